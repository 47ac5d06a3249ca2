package claimtoken

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerGenerateAndVerify(t *testing.T) {
	signer := NewSigner("secret")
	token, err := signer.Generate()
	require.NoError(t, err)
	require.Contains(t, token, ".")
	require.NoError(t, signer.Verify(token))

	other, err := signer.Generate()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestSignerVerifyRejectsTamperedTokens(t *testing.T) {
	signer := NewSigner("secret")
	token, err := signer.Generate()
	require.NoError(t, err)

	assert.ErrorIs(t, NewSigner("other").Verify(token), ErrSignature)
	assert.ErrorIs(t, signer.Verify("no-dot"), ErrMalformed)
	assert.ErrorIs(t, signer.Verify("abc.def"), ErrMalformed)
	assert.ErrorIs(t, signer.Verify(strings.Split(token, ".")[0]+"."), ErrMalformed)
}

func TestSignerRequiresSecret(t *testing.T) {
	_, err := NewSigner("").Generate()
	require.Error(t, err)
}

func TestClaimURL(t *testing.T) {
	assert.Equal(t, "https://club.example/enroll/abc.def", ClaimURL("https://club.example/", "abc.def"))
}
