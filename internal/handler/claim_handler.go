package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
	"github.com/noah-isme/padel-waitlist-api/internal/service"
	"github.com/noah-isme/padel-waitlist-api/pkg/response"
)

type claimer interface {
	Claim(ctx context.Context, token, studentID string) (*models.ClaimResult, error)
}

// ClaimHandler serves the link students open from the WhatsApp broadcast.
type ClaimHandler struct {
	claims      claimer
	redirectURL string
	logger      *zap.Logger
}

// NewClaimHandler constructs ClaimHandler. An empty redirectURL keeps GET claims on the JSON contract.
func NewClaimHandler(claims claimer, redirectURL string, logger *zap.Logger) *ClaimHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClaimHandler{claims: claims, redirectURL: redirectURL, logger: logger}
}

// Claim godoc
// @Summary Claim a spot through an enrollment link
// @Description First come, first served. The body is always {success, participantId?, reason?, message?}.
// @Tags Enrollment Links
// @Produce json
// @Param token path string true "Enrollment token"
// @Success 200 {object} models.ClaimResult
// @Success 303 "Redirect to the configured success page (GET only)"
// @Failure 400 {object} models.ClaimResult
// @Failure 401 {object} models.ClaimResult
// @Failure 403 {object} models.ClaimResult
// @Failure 404 {object} models.ClaimResult
// @Failure 409 {object} models.ClaimResult
// @Failure 410 {object} models.ClaimResult
// @Failure 429 {object} models.ClaimResult
// @Router /enroll/{token} [get]
// @Router /enroll/{token} [post]
func (h *ClaimHandler) Claim(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		result := service.ClaimRejection(models.ClaimReasonUnauthenticated)
		response.Raw(c, service.ClaimStatus(result), result)
		return
	}
	if claims.Role != models.RoleStudent || claims.StudentID == "" {
		result := service.ClaimRejection(models.ClaimReasonForbidden)
		response.Raw(c, service.ClaimStatus(result), result)
		return
	}

	result, err := h.claims.Claim(c.Request.Context(), c.Param("token"), claims.StudentID)
	if err != nil {
		h.logger.Sugar().Errorw("claim failed", "student_id", claims.StudentID, "error", err)
		result = service.ClaimRejection(models.ClaimReasonInternal)
		response.Raw(c, service.ClaimStatus(result), result)
		return
	}

	if result.Success && c.Request.Method == http.MethodGet && h.redirectURL != "" {
		c.Header("Cache-Control", "no-store")
		c.Redirect(http.StatusSeeOther, h.successLocation(result.ParticipantID))
		return
	}
	response.Raw(c, service.ClaimStatus(result), result)
}

// RateLimited renders the claim contract for callers over their attempt budget.
func (h *ClaimHandler) RateLimited(c *gin.Context) {
	result := service.ClaimRejection(models.ClaimReasonRateLimited)
	response.Raw(c, service.ClaimStatus(result), result)
}

func (h *ClaimHandler) successLocation(participantID string) string {
	target, err := url.Parse(h.redirectURL)
	if err != nil {
		return h.redirectURL
	}
	query := target.Query()
	query.Set("participantId", participantID)
	target.RawQuery = query.Encode()
	return target.String()
}
