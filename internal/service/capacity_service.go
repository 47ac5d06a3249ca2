package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
)

type occupancyCounter interface {
	CountOccupying(ctx context.Context, key models.OccurrenceKey) (int, error)
}

type outstandingCounter interface {
	SumOutstanding(ctx context.Context, key models.OccurrenceKey, now time.Time) (int, error)
}

// CapacityService computes seat availability of class occurrences. It never mutates state.
type CapacityService struct {
	classes      occurrenceReader
	participants occupancyCounter
	tokens       outstandingCounter
	logger       *zap.Logger
	now          func() time.Time
}

// NewCapacityService constructs CapacityService.
func NewCapacityService(classes occurrenceReader, participants occupancyCounter, tokens outstandingCounter, logger *zap.Logger) *CapacityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapacityService{classes: classes, participants: participants, tokens: tokens, logger: logger, now: time.Now}
}

// AvailableSpots returns max(0, capacity - occupying participants).
func (s *CapacityService) AvailableSpots(ctx context.Context, key models.OccurrenceKey) (int, error) {
	occurrence, err := loadOccurrence(ctx, s.classes, key)
	if err != nil {
		return 0, err
	}
	occupied, err := s.occupied(ctx, occurrence)
	if err != nil {
		return 0, err
	}
	return available(occurrence.Capacity, occupied), nil
}

// Snapshot returns capacity, occupancy, availability and the spots already
// promised by live tokens.
func (s *CapacityService) Snapshot(ctx context.Context, key models.OccurrenceKey) (*models.Availability, error) {
	occurrence, err := loadOccurrence(ctx, s.classes, key)
	if err != nil {
		return nil, err
	}
	occupied, err := s.occupied(ctx, occurrence)
	if err != nil {
		return nil, err
	}
	outstanding, err := s.tokens.SumOutstanding(ctx, occurrence.Key(), s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count outstanding spots")
	}
	return &models.Availability{
		OccurrenceKey: occurrence.Key(),
		Capacity:      occurrence.Capacity,
		Occupied:      occupied,
		Available:     available(occurrence.Capacity, occupied),
		Outstanding:   outstanding,
	}, nil
}

func (s *CapacityService) occupied(ctx context.Context, occurrence *models.ClassOccurrence) (int, error) {
	occupied, err := s.participants.CountOccupying(ctx, occurrence.Key())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count participants")
	}
	if occupied > occurrence.Capacity {
		s.logger.Sugar().Errorw("occurrence over capacity", "occurrence", occurrence.Key().String(), "capacity", occurrence.Capacity, "occupied", occupied)
	}
	return occupied, nil
}

func available(capacity, occupied int) int {
	if occupied >= capacity {
		return 0
	}
	return capacity - occupied
}
