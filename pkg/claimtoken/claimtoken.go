// Package claimtoken mints and checks the opaque values embedded in enrollment links.
//
// A token is 24 random bytes followed by a short HMAC tag, both base64url encoded
// and joined by a dot. The tag lets the API reject forged or mistyped links
// before touching the database.
package claimtoken

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	nonceSize = 24
	tagSize   = 8
)

var (
	// ErrMalformed indicates the token does not have the expected shape.
	ErrMalformed = errors.New("claim token malformed")
	// ErrSignature indicates the token tag does not match the signing secret.
	ErrSignature = errors.New("claim token signature mismatch")
)

// Signer creates and validates claim token values.
type Signer struct {
	secret []byte
}

// NewSigner constructs a signer with the provided secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Generate returns a fresh random token value.
func (s *Signer) Generate() (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("signing secret missing")
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(nonce)
	return encoded + "." + s.tag(encoded), nil
}

// Verify checks the token shape and tag. It does not consult persistent state.
func (s *Signer) Verify(token string) error {
	parts := strings.Split(token, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ErrMalformed
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil || len(raw) != nonceSize {
		return ErrMalformed
	}
	if !hmac.Equal([]byte(s.tag(parts[0])), []byte(parts[1])) {
		return ErrSignature
	}
	return nil
}

func (s *Signer) tag(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:tagSize])
}

// ClaimURL builds the public enrollment link for a token.
func ClaimURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/enroll/" + url.PathEscape(token)
}
