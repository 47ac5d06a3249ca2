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

type waitlistRepository interface {
	Create(ctx context.Context, entry *models.WaitlistEntry) error
	FindOpenByStudent(ctx context.Context, key models.OccurrenceKey, studentID string) (*models.WaitlistEntry, error)
	ListOpen(ctx context.Context, key models.OccurrenceKey) ([]models.WaitlistEntry, error)
	ListByOccurrence(ctx context.Context, key models.OccurrenceKey) ([]models.WaitlistEntryDetail, error)
	MarkNotified(ctx context.Context, ids []string, at time.Time) (int64, error)
	ExpireBefore(ctx context.Context, day string) (int64, error)
}

type participantChecker interface {
	ExistsOpen(ctx context.Context, key models.OccurrenceKey, studentID string) (bool, error)
}

// WaitlistService maintains the per-occurrence FIFO of students waiting for a seat.
type WaitlistService struct {
	repo         waitlistRepository
	classes      occurrenceReader
	students     studentReader
	participants participantChecker
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewWaitlistService constructs WaitlistService.
func NewWaitlistService(repo waitlistRepository, classes occurrenceReader, students studentReader, participants participantChecker, validate *validator.Validate, logger *zap.Logger) *WaitlistService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WaitlistService{repo: repo, classes: classes, students: students, participants: participants, validator: validate, logger: logger, now: time.Now}
}

// Enqueue appends the student to the occurrence waitlist. Duplicate open
// entries are rejected rather than merged.
func (s *WaitlistService) Enqueue(ctx context.Context, key models.OccurrenceKey, req dto.EnqueueRequest) (*models.WaitlistEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid waitlist payload")
	}
	if req.RequestedSpots == 0 {
		req.RequestedSpots = 1
	}

	occurrence, err := loadOccurrence(ctx, s.classes, key)
	if err != nil {
		return nil, err
	}
	if req.RequestedSpots > occurrence.Capacity {
		return nil, appErrors.Clone(appErrors.ErrValidation, "requested spots exceed class capacity")
	}
	if _, err := loadClubStudent(ctx, s.students, req.StudentID, occurrence.ClubID); err != nil {
		return nil, err
	}

	enrolled, err := s.participants.ExistsOpen(ctx, key, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if enrolled {
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
	}

	if _, err := s.repo.FindOpenByStudent(ctx, key, req.StudentID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrAlreadyWaitlisted, "")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check waitlist")
	}

	entry := &models.WaitlistEntry{
		ClassID:        key.ClassID,
		OccurrenceDate: key.Day(),
		StudentID:      req.StudentID,
		RequestedSpots: req.RequestedSpots,
		Status:         models.WaitlistStatusWaiting,
		EnqueuedAt:     s.now().UTC(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateWaitlistEntry) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyWaitlisted, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create waitlist entry")
	}
	s.logger.Sugar().Infow("waitlist entry created", "occurrence", key.String(), "student_id", req.StudentID, "entry_id", entry.ID)
	return entry, nil
}

// DequeueCandidates returns, in FIFO order, the open entries that fit into
// availableSpots. It does not change any entry.
func (s *WaitlistService) DequeueCandidates(ctx context.Context, key models.OccurrenceKey, availableSpots int) ([]models.WaitlistEntry, error) {
	if availableSpots <= 0 {
		return nil, nil
	}
	entries, err := s.repo.ListOpen(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waitlist")
	}
	return selectCandidates(entries, availableSpots), nil
}

// selectCandidates walks entries in order, skipping any that request more
// spots than remain, and stops once no spots remain.
func selectCandidates(entries []models.WaitlistEntry, availableSpots int) []models.WaitlistEntry {
	remaining := availableSpots
	var selected []models.WaitlistEntry
	for _, entry := range entries {
		if remaining <= 0 {
			break
		}
		if !entry.Status.Open() {
			continue
		}
		spots := entry.RequestedSpots
		if spots < 1 {
			spots = 1
		}
		if spots > remaining {
			continue
		}
		selected = append(selected, entry)
		remaining -= spots
	}
	return selected
}

// MarkNotified moves waiting entries to notified.
func (s *WaitlistService) MarkNotified(ctx context.Context, entryIDs []string) (int64, error) {
	affected, err := s.repo.MarkNotified(ctx, entryIDs, s.now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark waitlist entries notified")
	}
	return affected, nil
}

// List returns the occurrence waitlist for administrators.
func (s *WaitlistService) List(ctx context.Context, key models.OccurrenceKey) ([]models.WaitlistEntryDetail, error) {
	if _, err := loadOccurrence(ctx, s.classes, key); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListByOccurrence(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waitlist")
	}
	return entries, nil
}

// ExpirePast expires open entries of occurrences dated before today (UTC).
func (s *WaitlistService) ExpirePast(ctx context.Context) (int64, error) {
	today := s.now().UTC().Format(models.DateLayout)
	affected, err := s.repo.ExpireBefore(ctx, today)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire waitlist entries")
	}
	return affected, nil
}

// StartExpirySweep boots a goroutine that expires stale entries periodically.
func (s *WaitlistService) StartExpirySweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				affected, err := s.ExpirePast(ctx)
				if err != nil {
					s.logger.Sugar().Warnw("waitlist sweep failed", "error", err)
					continue
				}
				if affected > 0 {
					s.logger.Sugar().Infow("waitlist entries expired", "count", affected)
				}
			}
		}
	}()
}
