package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/padel-waitlist-api/internal/dto"
	"github.com/noah-isme/padel-waitlist-api/internal/models"
	"github.com/noah-isme/padel-waitlist-api/internal/service"
	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
	"github.com/noah-isme/padel-waitlist-api/pkg/response"
)

type tokenAdmin interface {
	Inspect(ctx context.Context, value string) (*service.TokenInspection, error)
	InvalidateToken(ctx context.Context, value string) (*models.EnrollmentToken, error)
}

type tokenResender interface {
	Resend(ctx context.Context, value string, req dto.ResendRequest) (*models.DispatchResult, error)
}

// TokenHandler exposes administrator operations on enrollment tokens.
type TokenHandler struct {
	tokens   tokenAdmin
	resender tokenResender
	now      func() time.Time
}

// NewTokenHandler constructs TokenHandler.
func NewTokenHandler(tokens tokenAdmin, resender tokenResender) *TokenHandler {
	return &TokenHandler{tokens: tokens, resender: resender, now: time.Now}
}

// Get godoc
// @Summary Inspect an enrollment token
// @Tags Enrollment Links
// @Produce json
// @Param token path string true "Enrollment token"
// @Success 200 {object} response.Envelope
// @Router /api/v1/tokens/{token} [get]
func (h *TokenHandler) Get(c *gin.Context) {
	inspection, err := h.tokens.Inspect(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inspection, nil)
}

// Resend godoc
// @Summary Broadcast an enrollment link again
// @Description Re-dispatches a live token. Without force, an already sent broadcast is reported as a duplicate.
// @Tags Enrollment Links
// @Accept json
// @Produce json
// @Param token path string true "Enrollment token"
// @Param payload body dto.ResendRequest false "Resend options"
// @Success 200 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /api/v1/tokens/{token}/resend [post]
func (h *TokenHandler) Resend(c *gin.Context) {
	var req dto.ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	dispatch, err := h.resender.Resend(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		if dispatch != nil {
			response.ErrorWithData(c, err, dispatch)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dispatch, nil)
}

// Invalidate godoc
// @Summary Invalidate an enrollment token
// @Tags Enrollment Links
// @Produce json
// @Param token path string true "Enrollment token"
// @Success 200 {object} response.Envelope
// @Router /api/v1/tokens/{token}/invalidate [post]
func (h *TokenHandler) Invalidate(c *gin.Context) {
	token, err := h.tokens.InvalidateToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	state := token.State(h.now().UTC())
	response.JSON(c, http.StatusOK, dto.InvalidateTokenResponse{
		Invalidated: state == models.TokenStateExpired,
		State:       string(state),
	}, nil)
}
