package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/padel-waitlist-api/internal/service"
	"github.com/noah-isme/padel-waitlist-api/pkg/response"
)

type participantLifecycle interface {
	Cancel(ctx context.Context, id, actor string) (*service.ParticipantChange, error)
	ConfirmAbsence(ctx context.Context, id, actor string) (*service.ParticipantChange, error)
}

// ParticipantHandler exposes the events that free a seat.
type ParticipantHandler struct {
	participants participantLifecycle
}

// NewParticipantHandler constructs ParticipantHandler.
func NewParticipantHandler(participants participantLifecycle) *ParticipantHandler {
	return &ParticipantHandler{participants: participants}
}

// Cancel godoc
// @Summary Cancel a participation
// @Description Frees the seat and offers it to the waitlist.
// @Tags Participants
// @Produce json
// @Param id path string true "Participant ID"
// @Success 200 {object} response.Envelope
// @Router /api/v1/participants/{id}/cancel [post]
func (h *ParticipantHandler) Cancel(c *gin.Context) {
	change, err := h.participants.Cancel(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, change, nil)
}

// ConfirmAbsence godoc
// @Summary Confirm a participant will not attend
// @Tags Participants
// @Produce json
// @Param id path string true "Participant ID"
// @Success 200 {object} response.Envelope
// @Router /api/v1/participants/{id}/absence [post]
func (h *ParticipantHandler) ConfirmAbsence(c *gin.Context) {
	change, err := h.participants.ConfirmAbsence(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, change, nil)
}
