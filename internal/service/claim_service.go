package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
	"github.com/noah-isme/padel-waitlist-api/internal/repository"
	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
)

type claimRepository interface {
	Claim(ctx context.Context, params repository.ClaimParams) (*models.Participant, error)
}

type tokenFinder interface {
	FindByToken(ctx context.Context, value string) (*models.EnrollmentToken, error)
}

type tokenVerifier interface {
	Verify(token string) error
}

// ClaimService turns a claim link click into a seat. Concurrent claims on the
// same token race; the persistence layer admits at most AvailableSpots of them.
type ClaimService struct {
	repo     claimRepository
	tokens   tokenFinder
	classes  occurrenceReader
	students studentReader
	verifier tokenVerifier
	metrics  waitlistMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewClaimService constructs ClaimService.
func NewClaimService(repo claimRepository, tokens tokenFinder, classes occurrenceReader, students studentReader, verifier tokenVerifier, metrics waitlistMetrics, logger *zap.Logger) *ClaimService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClaimService{
		repo:     repo,
		tokens:   tokens,
		classes:  classes,
		students: students,
		verifier: verifier,
		metrics:  metricsOrNop(metrics),
		logger:   logger,
		now:      time.Now,
	}
}

// Claim attempts to seat studentID using token. Business rejections are
// reported through a ClaimResult with Success=false; the error return is
// reserved for infrastructure failures.
func (s *ClaimService) Claim(ctx context.Context, token, studentID string) (*models.ClaimResult, error) {
	start := time.Now()
	result, err := s.claim(ctx, token, studentID)
	s.metrics.ObserveClaimDuration(time.Since(start))
	if err != nil {
		s.metrics.ObserveClaim(string(models.ClaimReasonInternal))
		s.logger.Sugar().Errorw("claim failed", "token", tokenPrefix(token), "student_id", studentID, "error", err)
		return nil, err
	}
	if result.Success {
		s.metrics.ObserveClaim("success")
	} else {
		s.metrics.ObserveClaim(string(result.Reason))
	}
	return result, nil
}

func (s *ClaimService) claim(ctx context.Context, token, studentID string) (*models.ClaimResult, error) {
	if err := s.verifier.Verify(token); err != nil {
		return rejected(models.ClaimReasonInvalidToken), nil
	}

	current, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		if err == sql.ErrNoRows {
			return rejected(models.ClaimReasonNotFound), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load token")
	}

	now := s.now().UTC()
	switch current.State(now) {
	case models.TokenStateExpired:
		return rejected(models.ClaimReasonExpired), nil
	case models.TokenStateExhausted:
		return rejected(models.ClaimReasonExhausted), nil
	}

	occurrence, err := loadOccurrence(ctx, s.classes, current.Key())
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return rejected(models.ClaimReasonNotFound), nil
		}
		return nil, err
	}
	if _, err := loadClubStudent(ctx, s.students, studentID, occurrence.ClubID); err != nil {
		if appErrors.Is(err, appErrors.ErrInternal) {
			return nil, err
		}
		return rejected(models.ClaimReasonForbidden), nil
	}

	participant, err := s.repo.Claim(ctx, repository.ClaimParams{Token: token, StudentID: studentID, Now: now})
	switch {
	case err == nil:
		s.logger.Sugar().Infow("spot claimed", "occurrence", current.Key().String(), "token", tokenPrefix(token), "student_id", studentID, "participant_id", participant.ID)
		return &models.ClaimResult{Success: true, ParticipantID: participant.ID, Message: "enrolled"}, nil
	case errors.Is(err, repository.ErrTokenUnavailable):
		return rejected(s.unavailableReason(ctx, token)), nil
	case errors.Is(err, repository.ErrDuplicateParticipant):
		return rejected(models.ClaimReasonAlreadyEnrolled), nil
	case errors.Is(err, repository.ErrCapacityExceeded):
		s.logger.Sugar().Errorw("claim would exceed capacity", "occurrence", current.Key().String(), "token", tokenPrefix(token), "capacity", occurrence.Capacity)
		return rejected(models.ClaimReasonCapacityViolation), nil
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit claim")
	}
}

// unavailableReason re-reads a token whose conditional update failed to tell
// expiry from exhaustion.
func (s *ClaimService) unavailableReason(ctx context.Context, token string) models.ClaimReason {
	current, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		return models.ClaimReasonNotFound
	}
	if current.State(s.now().UTC()) == models.TokenStateExpired {
		return models.ClaimReasonExpired
	}
	return models.ClaimReasonExhausted
}

var claimMessages = map[models.ClaimReason]string{
	models.ClaimReasonExpired:           "this link has expired",
	models.ClaimReasonExhausted:         "all spots offered by this link have been taken",
	models.ClaimReasonAlreadyEnrolled:   "you are already registered in this class",
	models.ClaimReasonNotFound:          "link not found",
	models.ClaimReasonInvalidToken:      "link is not valid",
	models.ClaimReasonUnauthenticated:   "sign in to claim this spot",
	models.ClaimReasonForbidden:         "you cannot enroll in this class",
	models.ClaimReasonCapacityViolation: "the class is full",
	models.ClaimReasonRateLimited:       "too many attempts, try again later",
	models.ClaimReasonInternal:          "something went wrong, try again later",
}

func rejected(reason models.ClaimReason) *models.ClaimResult {
	return &models.ClaimResult{Success: false, Reason: reason, Message: claimMessages[reason]}
}

// ClaimRejection builds the failure body for reason.
func ClaimRejection(reason models.ClaimReason) *models.ClaimResult {
	return rejected(reason)
}

// ClaimStatus maps a claim result to its HTTP status.
func ClaimStatus(result *models.ClaimResult) int {
	if result == nil {
		return http.StatusInternalServerError
	}
	if result.Success {
		return http.StatusOK
	}
	switch result.Reason {
	case models.ClaimReasonExpired, models.ClaimReasonExhausted:
		return http.StatusGone
	case models.ClaimReasonAlreadyEnrolled:
		return http.StatusConflict
	case models.ClaimReasonNotFound:
		return http.StatusNotFound
	case models.ClaimReasonInvalidToken:
		return http.StatusBadRequest
	case models.ClaimReasonUnauthenticated:
		return http.StatusUnauthorized
	case models.ClaimReasonForbidden:
		return http.StatusForbidden
	case models.ClaimReasonRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
