package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/padel-waitlist-api/internal/dto"
	"github.com/noah-isme/padel-waitlist-api/internal/models"
	"github.com/noah-isme/padel-waitlist-api/internal/repository"
	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
)

type participantStore interface {
	FindByID(ctx context.Context, id string) (*models.Participant, error)
	Enroll(ctx context.Context, participant *models.Participant) error
	Cancel(ctx context.Context, id string, at time.Time) (bool, error)
	ConfirmAbsence(ctx context.Context, id string, at time.Time) (bool, error)
}

// CapacityFreedHandler reacts to a seat becoming free.
type CapacityFreedHandler interface {
	HandleCapacityFreed(ctx context.Context, key models.OccurrenceKey, actor string) (*models.WorkflowResult, error)
}

// ParticipantChange is returned by capacity-freeing operations.
type ParticipantChange struct {
	Participant   *models.Participant    `json:"participant"`
	Workflow      *models.WorkflowResult `json:"workflow,omitempty"`
	WorkflowError string                 `json:"workflow_error,omitempty"`
}

// ParticipantService manages direct enrollments and the events that free seats.
type ParticipantService struct {
	repo      participantStore
	classes   occurrenceReader
	students  studentReader
	workflow  CapacityFreedHandler
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewParticipantService constructs ParticipantService.
func NewParticipantService(repo participantStore, classes occurrenceReader, students studentReader, workflow CapacityFreedHandler, validate *validator.Validate, logger *zap.Logger) *ParticipantService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParticipantService{repo: repo, classes: classes, students: students, workflow: workflow, validator: validate, logger: logger, now: time.Now}
}

// Enroll registers a student directly. Seat holders are admitted only while
// capacity remains; substitutes never occupy a seat.
func (s *ParticipantService) Enroll(ctx context.Context, key models.OccurrenceKey, req dto.EnrollRequest) (*models.Participant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	occurrence, err := loadOccurrence(ctx, s.classes, key)
	if err != nil {
		return nil, err
	}
	if _, err := loadClubStudent(ctx, s.students, req.StudentID, occurrence.ClubID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	participant := &models.Participant{
		ClassID:        key.ClassID,
		OccurrenceDate: key.Day(),
		StudentID:      req.StudentID,
		Status:         models.ParticipantStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.AsSubstitute {
		participant.Status = models.ParticipantStatusSubstitute
		participant.IsSubstitute = true
	}

	if err := s.repo.Enroll(ctx, participant); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateParticipant):
			return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
		case errors.Is(err, repository.ErrCapacityExceeded):
			return nil, appErrors.Clone(appErrors.ErrConflict, "class is full")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll participant")
		}
	}
	s.logger.Sugar().Infow("participant enrolled", "occurrence", key.String(), "student_id", req.StudentID, "status", participant.Status)
	return participant, nil
}

// Cancel withdraws a participant. When the participant held a seat the
// waitlist workflow runs for the occurrence.
func (s *ParticipantService) Cancel(ctx context.Context, id, actor string) (*ParticipantChange, error) {
	return s.free(ctx, id, actor, "cancel", s.repo.Cancel)
}

// ConfirmAbsence marks an active participant as absent, freeing the seat.
func (s *ParticipantService) ConfirmAbsence(ctx context.Context, id, actor string) (*ParticipantChange, error) {
	current, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.ParticipantStatusActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only active participants can be marked absent")
	}
	return s.free(ctx, id, actor, "absence", s.repo.ConfirmAbsence)
}

func (s *ParticipantService) free(ctx context.Context, id, actor, event string, apply func(context.Context, string, time.Time) (bool, error)) (*ParticipantChange, error) {
	before, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	changed, err := apply(ctx, id, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update participant")
	}
	after, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	change := &ParticipantChange{Participant: after}
	if !changed || !before.Occupying() || after.Occupying() {
		return change, nil
	}

	s.logger.Sugar().Infow("seat freed", "occurrence", after.Key().String(), "participant_id", id, "event", event)
	if s.workflow == nil {
		return change, nil
	}
	result, err := s.workflow.HandleCapacityFreed(ctx, after.Key(), actor)
	if err != nil {
		s.logger.Sugar().Warnw("waitlist workflow failed", "occurrence", after.Key().String(), "error", err)
		change.WorkflowError = appErrors.FromError(err).Message
		return change, nil
	}
	change.Workflow = result
	return change, nil
}

func (s *ParticipantService) get(ctx context.Context, id string) (*models.Participant, error) {
	participant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "participant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participant")
	}
	return participant, nil
}
