package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/padel-waitlist-api/internal/dto"
	"github.com/noah-isme/padel-waitlist-api/internal/models"
	"github.com/noah-isme/padel-waitlist-api/internal/service"
	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
	"github.com/noah-isme/padel-waitlist-api/pkg/response"
)

type availabilityService interface {
	Snapshot(ctx context.Context, key models.OccurrenceKey) (*models.Availability, error)
}

type waitlistService interface {
	Enqueue(ctx context.Context, key models.OccurrenceKey, req dto.EnqueueRequest) (*models.WaitlistEntry, error)
	List(ctx context.Context, key models.OccurrenceKey) ([]models.WaitlistEntryDetail, error)
}

type enrollmentService interface {
	Enroll(ctx context.Context, key models.OccurrenceKey, req dto.EnrollRequest) (*models.Participant, error)
}

type workflowTrigger interface {
	HandleCapacityFreed(ctx context.Context, key models.OccurrenceKey, actor string) (*models.WorkflowResult, error)
}

type rosterExporter interface {
	Export(ctx context.Context, key models.OccurrenceKey, format models.RosterFormat) (*service.RosterFile, error)
}

// OccurrenceHandler exposes the per-occurrence endpoints: availability,
// waitlist, direct enrollment, the manual workflow trigger and roster export.
type OccurrenceHandler struct {
	capacity     availabilityService
	waitlist     waitlistService
	participants enrollmentService
	workflow     workflowTrigger
	roster       rosterExporter
}

// NewOccurrenceHandler constructs OccurrenceHandler.
func NewOccurrenceHandler(capacity availabilityService, waitlist waitlistService, participants enrollmentService, workflow workflowTrigger, roster rosterExporter) *OccurrenceHandler {
	return &OccurrenceHandler{capacity: capacity, waitlist: waitlist, participants: participants, workflow: workflow, roster: roster}
}

// Availability godoc
// @Summary Occurrence availability
// @Tags Occurrences
// @Produce json
// @Param classId path string true "Class ID"
// @Param date path string true "Occurrence date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /api/v1/classes/{classId}/occurrences/{date}/availability [get]
func (h *OccurrenceHandler) Availability(c *gin.Context) {
	key, err := occurrenceKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	snapshot, err := h.capacity.Snapshot(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Waitlist godoc
// @Summary List the occurrence waitlist
// @Tags Occurrences
// @Produce json
// @Param classId path string true "Class ID"
// @Param date path string true "Occurrence date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /api/v1/classes/{classId}/occurrences/{date}/waitlist [get]
func (h *OccurrenceHandler) Waitlist(c *gin.Context) {
	key, err := occurrenceKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.waitlist.List(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil, map[string]interface{}{"total": len(entries)})
}

// JoinWaitlist godoc
// @Summary Join the occurrence waitlist
// @Description Students may only register themselves; staff may register any student of the club.
// @Tags Occurrences
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param date path string true "Occurrence date (YYYY-MM-DD)"
// @Param payload body dto.EnqueueRequest true "Waitlist payload"
// @Success 201 {object} response.Envelope
// @Router /api/v1/classes/{classId}/occurrences/{date}/waitlist [post]
func (h *OccurrenceHandler) JoinWaitlist(c *gin.Context) {
	key, err := occurrenceKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if !claims.IsStaff() {
		if claims.StudentID == "" || (req.StudentID != "" && req.StudentID != claims.StudentID) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students may only join the waitlist themselves"))
			return
		}
		req.StudentID = claims.StudentID
	}

	entry, err := h.waitlist.Enqueue(c.Request.Context(), key, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Enroll godoc
// @Summary Enroll a student directly
// @Tags Occurrences
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param date path string true "Occurrence date (YYYY-MM-DD)"
// @Param payload body dto.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Router /api/v1/classes/{classId}/occurrences/{date}/participants [post]
func (h *OccurrenceHandler) Enroll(c *gin.Context) {
	key, err := occurrenceKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	participant, err := h.participants.Enroll(c.Request.Context(), key, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, participant)
}

// NotifyWaitlist godoc
// @Summary Offer free spots to the waitlist
// @Description Runs the waitlist workflow for the occurrence. A failed broadcast answers 502 with the workflow result attached.
// @Tags Occurrences
// @Produce json
// @Param classId path string true "Class ID"
// @Param date path string true "Occurrence date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /api/v1/classes/{classId}/occurrences/{date}/notify-waitlist [post]
func (h *OccurrenceHandler) NotifyWaitlist(c *gin.Context) {
	key, err := occurrenceKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.workflow.HandleCapacityFreed(c.Request.Context(), key, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Outcome == models.WorkflowOutcomeDispatchFailed {
		response.ErrorWithData(c, appErrors.Clone(appErrors.ErrDispatchFailed, result.Error), result)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Roster godoc
// @Summary Export the occurrence roster
// @Tags Occurrences
// @Produce text/csv
// @Produce application/pdf
// @Param classId path string true "Class ID"
// @Param date path string true "Occurrence date (YYYY-MM-DD)"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /api/v1/classes/{classId}/occurrences/{date}/roster [get]
func (h *OccurrenceHandler) Roster(c *gin.Context) {
	key, err := occurrenceKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := models.RosterFormat(strings.ToLower(c.DefaultQuery("format", string(models.RosterFormatCSV))))
	file, err := h.roster.Export(c.Request.Context(), key, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Content)
}
