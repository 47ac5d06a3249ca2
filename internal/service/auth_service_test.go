package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
)

func signTestToken(t *testing.T, secret string, claims models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "club-idp"})
	signed := signTestToken(t, "secret", models.JWTClaims{
		UserID:    "user-1",
		Role:      models.RoleStudent,
		StudentID: "stu-1",
		ClubID:    "club-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "club-idp",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "stu-1", claims.StudentID)
	assert.Equal(t, "club-1", claims.ClubID)
}

func TestAuthServiceValidateTokenRejects(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "club-idp"})
	valid := jwt.RegisteredClaims{Issuer: "club-idp", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	cases := map[string]string{
		"wrong secret": signTestToken(t, "other", models.JWTClaims{Role: models.RoleAdmin, RegisteredClaims: valid}),
		"expired": signTestToken(t, "secret", models.JWTClaims{Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "club-idp", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}),
		"wrong issuer":       signTestToken(t, "secret", models.JWTClaims{Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Issuer: "evil"}}),
		"unknown role":       signTestToken(t, "secret", models.JWTClaims{Role: "SUPERADMIN", RegisteredClaims: valid}),
		"student without id": signTestToken(t, "secret", models.JWTClaims{Role: models.RoleStudent, RegisteredClaims: valid}),
		"garbage":            "not-a-jwt",
	}
	for name, token := range cases {
		_, err := svc.ValidateToken(token)
		require.Error(t, err, name)
		assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code, name)
	}
}
