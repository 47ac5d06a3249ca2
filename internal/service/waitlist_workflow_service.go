package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/padel-waitlist-api/internal/dto"
	"github.com/noah-isme/padel-waitlist-api/internal/models"
	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
)

type availabilityReader interface {
	Snapshot(ctx context.Context, key models.OccurrenceKey) (*models.Availability, error)
}

type candidateQueue interface {
	DequeueCandidates(ctx context.Context, key models.OccurrenceKey, availableSpots int) ([]models.WaitlistEntry, error)
	MarkNotified(ctx context.Context, entryIDs []string) (int64, error)
}

type tokenIssuer interface {
	IssueTokenFor(ctx context.Context, key models.OccurrenceKey, spots int, createdBy string) (*models.IssuedToken, error)
	Get(ctx context.Context, value string) (*models.EnrollmentToken, error)
	ClaimURL(value string) string
}

type dispatcher interface {
	Notify(ctx context.Context, req NotifyRequest) (*models.DispatchResult, error)
}

type resendScheduler interface {
	ScheduleResend(token string) error
}

// occurrenceLocker serializes offer computation for one occurrence.
type occurrenceLocker interface {
	WithLock(ctx context.Context, key models.OccurrenceKey, fn func(ctx context.Context) error) error
}

// WaitlistWorkflowService reacts to freed capacity: it offers the spots that
// are not already promised by a live token, mints one token for them and
// broadcasts the claim link once.
type WaitlistWorkflowService struct {
	capacity   availabilityReader
	waitlist   candidateQueue
	tokens     tokenIssuer
	dispatcher dispatcher
	retries    resendScheduler
	locker     occurrenceLocker
	metrics    waitlistMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewWaitlistWorkflowService constructs WaitlistWorkflowService. retries and
// locker may be nil; without a locker concurrent runs for one occurrence can
// promise the same seat twice.
func NewWaitlistWorkflowService(capacity availabilityReader, waitlist candidateQueue, tokens tokenIssuer, dispatcher dispatcher, retries resendScheduler, locker occurrenceLocker, metrics waitlistMetrics, logger *zap.Logger) *WaitlistWorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WaitlistWorkflowService{
		capacity:   capacity,
		waitlist:   waitlist,
		tokens:     tokens,
		dispatcher: dispatcher,
		retries:    retries,
		locker:     locker,
		metrics:    metricsOrNop(metrics),
		logger:     logger,
		now:        time.Now,
	}
}

// HandleCapacityFreed runs the waitlist pipeline for an occurrence. A dispatch
// failure is not an error: the token stays valid and the result reports the
// failure so the caller can resend.
func (s *WaitlistWorkflowService) HandleCapacityFreed(ctx context.Context, key models.OccurrenceKey, actor string) (*models.WorkflowResult, error) {
	result := &models.WorkflowResult{Occurrence: key}
	var outcome models.WorkflowOutcome
	err := s.withLock(ctx, key, func(ctx context.Context) error {
		var err error
		outcome, err = s.offer(ctx, key, actor, result)
		return err
	})
	if err != nil {
		return nil, err
	}
	if outcome != "" {
		return s.finish(result, outcome), nil
	}

	issued := result.Token
	offer := result.OfferedSpots
	dispatch, err := s.dispatcher.Notify(ctx, NotifyRequest{
		Occurrence:     key,
		Token:          issued.Token,
		ClaimURL:       issued.ClaimURL,
		AvailableSpots: offer,
		ExpiresAt:      issued.ExpiresAt,
	})
	result.Dispatch = dispatch
	if err != nil {
		result.Error = err.Error()
		if s.retries != nil {
			schedErr := s.retries.ScheduleResend(issued.Token)
			if schedErr == nil {
				return s.finish(result, models.WorkflowOutcomeRetryScheduled), nil
			}
			s.logger.Sugar().Warnw("failed to schedule broadcast retry", "token", tokenPrefix(issued.Token), "error", schedErr)
		}
		return s.finish(result, models.WorkflowOutcomeDispatchFailed), nil
	}

	s.markNotified(ctx, key, result.CandidateIDs)
	return s.finish(result, models.WorkflowOutcomeNotified), nil
}

// offer computes the unpromised spots and mints a token for them. A non-empty
// outcome ends the run before dispatch.
func (s *WaitlistWorkflowService) offer(ctx context.Context, key models.OccurrenceKey, actor string, result *models.WorkflowResult) (models.WorkflowOutcome, error) {
	snapshot, err := s.capacity.Snapshot(ctx, key)
	if err != nil {
		return "", err
	}
	result.AvailableSpots = snapshot.Available
	offer := snapshot.Available - snapshot.Outstanding
	if offer <= 0 {
		return models.WorkflowOutcomeNoSpots, nil
	}

	candidates, err := s.waitlist.DequeueCandidates(ctx, key, offer)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return models.WorkflowOutcomeNoCandidates, nil
	}
	result.CandidateIDs = entryIDs(candidates)

	issued, err := s.tokens.IssueTokenFor(ctx, key, offer, actor)
	if err != nil {
		return "", err
	}
	result.OfferedSpots = offer
	result.Token = issued
	return "", nil
}

func (s *WaitlistWorkflowService) withLock(ctx context.Context, key models.OccurrenceKey, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, key, fn)
}

// Resend broadcasts an existing live token again without minting a new one.
func (s *WaitlistWorkflowService) Resend(ctx context.Context, value string, req dto.ResendRequest) (*models.DispatchResult, error) {
	token, err := s.tokens.Get(ctx, value)
	if err != nil {
		return nil, err
	}
	switch token.State(s.now().UTC()) {
	case models.TokenStateExpired:
		return nil, appErrors.Clone(appErrors.ErrTokenExpired, "")
	case models.TokenStateExhausted:
		return nil, appErrors.Clone(appErrors.ErrTokenExhausted, "")
	}

	key := token.Key()
	remaining := token.Remaining()
	dispatch, err := s.dispatcher.Notify(ctx, NotifyRequest{
		Occurrence:     key,
		Token:          value,
		ClaimURL:       s.tokens.ClaimURL(value),
		AvailableSpots: remaining,
		ExpiresAt:      token.ExpiresAt,
		Channel:        req.Channel,
		Force:          req.Force,
	})
	if err != nil {
		return dispatch, err
	}
	if !dispatch.Duplicate {
		candidates, err := s.waitlist.DequeueCandidates(ctx, key, remaining)
		if err != nil {
			s.logger.Sugar().Warnw("failed to load candidates after resend", "occurrence", key.String(), "error", err)
		} else {
			s.markNotified(ctx, key, entryIDs(candidates))
		}
	}
	return dispatch, nil
}

func (s *WaitlistWorkflowService) markNotified(ctx context.Context, key models.OccurrenceKey, ids []string) {
	if len(ids) == 0 {
		return
	}
	if _, err := s.waitlist.MarkNotified(ctx, ids); err != nil {
		s.logger.Sugar().Warnw("failed to mark waitlist entries notified", "occurrence", key.String(), "error", err)
	}
}

func (s *WaitlistWorkflowService) finish(result *models.WorkflowResult, outcome models.WorkflowOutcome) *models.WorkflowResult {
	result.Outcome = outcome
	s.metrics.ObserveWorkflow(string(outcome))
	s.logger.Sugar().Infow("waitlist workflow finished", "occurrence", result.Occurrence.String(), "outcome", outcome, "available", result.AvailableSpots, "offered", result.OfferedSpots, "candidates", len(result.CandidateIDs))
	return result
}

func entryIDs(entries []models.WaitlistEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	return ids
}
