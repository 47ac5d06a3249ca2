package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/padel-waitlist-api/internal/handler"
	"github.com/noah-isme/padel-waitlist-api/internal/models"
	"github.com/noah-isme/padel-waitlist-api/internal/service"
	"github.com/noah-isme/padel-waitlist-api/pkg/claimtoken"
	"github.com/noah-isme/padel-waitlist-api/pkg/config"
	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
)

type staticValidator struct{}

func (staticValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "student-jwt" {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.JWTClaims{UserID: "user-s1", Role: models.RoleStudent, StudentID: "s1", ClubID: "club-1"}, nil
}

type recordingClaimer struct {
	token     string
	studentID string
}

func (r *recordingClaimer) Claim(ctx context.Context, token, studentID string) (*models.ClaimResult, error) {
	r.token = token
	r.studentID = studentID
	return &models.ClaimResult{Success: true, ParticipantID: "p-1"}, nil
}

func newTestRouter(t *testing.T, claimer *recordingClaimer) (*gin.Engine, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg, err := config.Load()
	require.NoError(t, err)

	r := gin.New()
	h := handlers{claims: handler.NewClaimHandler(claimer, "", nil)}
	registerRoutes(r, cfg.APIPrefix, h, staticValidator{}, nil, nil, 0, nil)
	return r, cfg
}

func claimLinkPath(t *testing.T, cfg *config.Config) (string, string) {
	t.Helper()
	token, err := claimtoken.NewSigner("router-test-secret").Generate()
	require.NoError(t, err)
	tokens := service.NewTokenService(nil, nil, nil, service.TokenConfig{PublicBaseURL: cfg.Waitlist.PublicBaseURL}, nil, nil)
	link, err := url.Parse(tokens.ClaimURL(token))
	require.NoError(t, err)
	return token, link.Path
}

func TestClaimLinkResolvesToClaimHandler(t *testing.T) {
	claimer := &recordingClaimer{}
	r, cfg := newTestRouter(t, claimer)
	token, path := claimLinkPath(t, cfg)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer student-jwt")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, method)
		assert.Equal(t, token, claimer.token)
		assert.Equal(t, "s1", claimer.studentID)
	}
}

func TestClaimLinkWithoutSessionUsesClaimBody(t *testing.T) {
	claimer := &recordingClaimer{}
	r, cfg := newTestRouter(t, claimer)
	_, path := claimLinkPath(t, cfg)

	for _, header := range []string{"", "Bearer expired-jwt"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		var body models.ClaimResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, models.ClaimReasonUnauthenticated, body.Reason)
	}
	assert.Empty(t, claimer.token)
}

func TestStaffRoutesStayUnderAPIPrefix(t *testing.T) {
	r, cfg := newTestRouter(t, &recordingClaimer{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, cfg.APIPrefix+"/tokens/abc", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, cfg.APIPrefix+"/enroll/abc", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
