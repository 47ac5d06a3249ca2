package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/padel-waitlist-api/pkg/config"
)

func TestGinMiddlewareRedactsToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	r := gin.New()
	r.Use(GinMiddleware(zap.New(core), "/health"))
	r.GET("/enroll/:token", func(c *gin.Context) { c.Status(http.StatusGone) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	token := "c2VjcmV0LXJhbmRvbS1ieXRlcw.tag"
	for _, path := range []string{"/enroll/" + token, "/health"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)

	fields := entry.ContextMap()
	assert.Equal(t, "/enroll/:token", fields["route"])
	assert.Equal(t, "c2VjcmV0", fields["token_prefix"])
	assert.EqualValues(t, http.StatusGone, fields["status"])
	for _, v := range fields {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, token)
		}
	}
}

func TestGinMiddlewareLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	r := gin.New()
	r.Use(GinMiddleware(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	for _, path := range []string{"/ok", "/boom", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "unmatched", entries[2].ContextMap()["route"])
}

func TestNewFallsBackOnBadLevel(t *testing.T) {
	cfg := &config.Config{Env: config.EnvDevelopment, Log: config.LogConfig{Level: "loud", Format: "console"}}
	l, err := New(cfg)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestTokenPrefix(t *testing.T) {
	assert.Equal(t, "short", TokenPrefix("short"))
	assert.Equal(t, "abcdefgh", TokenPrefix("abcdefghijkl"))
}
