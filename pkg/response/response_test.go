package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestErrorUsesTypedStatus(t *testing.T) {
	c, w := newContext()
	Error(c, appErrors.Clone(appErrors.ErrAlreadyWaitlisted, ""))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var env map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "ALREADY_WAITLISTED", env["error"]["code"])
}

func TestErrorWithDataCarriesPayload(t *testing.T) {
	c, w := newContext()
	ErrorWithData(c, appErrors.Clone(appErrors.ErrDispatchFailed, "network_error"), map[string]string{"outcome": "dispatch_failed"})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"dispatch_failed"`)
	assert.Contains(t, w.Body.String(), `"code":"DISPATCH_FAILED"`)
}

func TestRawSkipsEnvelope(t *testing.T) {
	c, w := newContext()
	Raw(c, http.StatusGone, map[string]interface{}{"success": false, "reason": "expired"})

	assert.Equal(t, http.StatusGone, w.Code)
	assert.JSONEq(t, `{"success":false,"reason":"expired"}`, w.Body.String())
}

func TestFileSetsAttachment(t *testing.T) {
	c, w := newContext()
	File(c, "roster.csv", "text/csv", []byte("Student\n"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="roster.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Student\n", w.Body.String())
}
