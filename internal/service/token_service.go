package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
	"github.com/noah-isme/padel-waitlist-api/pkg/claimtoken"
	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
)

type tokenRepository interface {
	Create(ctx context.Context, token *models.EnrollmentToken) error
	FindByToken(ctx context.Context, value string) (*models.EnrollmentToken, error)
	Expire(ctx context.Context, value string, at time.Time) (bool, error)
}

type notificationLister interface {
	ListByToken(ctx context.Context, token string) ([]models.NotificationRecord, error)
}

type tokenSigner interface {
	Generate() (string, error)
	Verify(token string) error
}

// TokenConfig configures token lifetime and link generation.
type TokenConfig struct {
	TTL           time.Duration
	PublicBaseURL string
}

// TokenInspection is the administrator view of a token.
type TokenInspection struct {
	Occurrence     models.OccurrenceKey        `json:"occurrence"`
	State          models.TokenState           `json:"state"`
	AvailableSpots int                         `json:"available_spots"`
	ConsumedCount  int                         `json:"consumed_count"`
	Remaining      int                         `json:"remaining"`
	ExpiresAt      time.Time                   `json:"expires_at"`
	CreatedAt      time.Time                   `json:"created_at"`
	CreatedBy      *string                     `json:"created_by,omitempty"`
	ClaimURL       string                      `json:"claim_url"`
	Notifications  []models.NotificationRecord `json:"notifications"`
}

// TokenService mints, inspects and revokes enrollment tokens.
type TokenService struct {
	repo          tokenRepository
	notifications notificationLister
	signer        tokenSigner
	cfg           TokenConfig
	metrics       waitlistMetrics
	logger        *zap.Logger
	now           func() time.Time
}

// NewTokenService constructs TokenService.
func NewTokenService(repo tokenRepository, notifications notificationLister, signer tokenSigner, cfg TokenConfig, metrics waitlistMetrics, logger *zap.Logger) *TokenService {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{repo: repo, notifications: notifications, signer: signer, cfg: cfg, metrics: metricsOrNop(metrics), logger: logger, now: time.Now}
}

// IssueToken mints and persists a token offering spots seats in the occurrence.
func (s *TokenService) IssueToken(ctx context.Context, key models.OccurrenceKey, spots int) (*models.IssuedToken, error) {
	return s.IssueTokenFor(ctx, key, spots, "")
}

// IssueTokenFor is IssueToken recording the actor who triggered the issuance.
func (s *TokenService) IssueTokenFor(ctx context.Context, key models.OccurrenceKey, spots int, createdBy string) (*models.IssuedToken, error) {
	if spots < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "token must offer at least one spot")
	}
	value, err := s.signer.Generate()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate token")
	}

	now := s.now().UTC()
	token := &models.EnrollmentToken{
		Token:          value,
		ClassID:        key.ClassID,
		OccurrenceDate: key.Day(),
		AvailableSpots: spots,
		ConsumedCount:  0,
		ExpiresAt:      now.Add(s.cfg.TTL),
		CreatedAt:      now,
	}
	if createdBy != "" {
		token.CreatedBy = &createdBy
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist token")
	}

	s.metrics.ObserveTokenIssued(spots)
	s.logger.Sugar().Infow("enrollment token issued", "occurrence", key.String(), "token", tokenPrefix(value), "spots", spots, "expires_at", token.ExpiresAt)

	return &models.IssuedToken{
		Token:          value,
		ClaimURL:       claimtoken.ClaimURL(s.cfg.PublicBaseURL, value),
		ExpiresAt:      token.ExpiresAt,
		AvailableSpots: spots,
		Occurrence:     key,
	}, nil
}

// Get returns the persisted token after a format check.
func (s *TokenService) Get(ctx context.Context, value string) (*models.EnrollmentToken, error) {
	if err := s.signer.Verify(value); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, appErrors.ErrInvalidToken.Message)
	}
	token, err := s.repo.FindByToken(ctx, value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment token not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load token")
	}
	return token, nil
}

// ClaimURL returns the public link for a token value.
func (s *TokenService) ClaimURL(value string) string {
	return claimtoken.ClaimURL(s.cfg.PublicBaseURL, value)
}

// Inspect reports the state and dispatch history of a token.
func (s *TokenService) Inspect(ctx context.Context, value string) (*TokenInspection, error) {
	token, err := s.Get(ctx, value)
	if err != nil {
		return nil, err
	}
	records, err := s.notifications.ListByToken(ctx, value)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notifications")
	}
	if records == nil {
		records = []models.NotificationRecord{}
	}
	return &TokenInspection{
		Occurrence:     token.Key(),
		State:          token.State(s.now().UTC()),
		AvailableSpots: token.AvailableSpots,
		ConsumedCount:  token.ConsumedCount,
		Remaining:      token.Remaining(),
		ExpiresAt:      token.ExpiresAt,
		CreatedAt:      token.CreatedAt,
		CreatedBy:      token.CreatedBy,
		ClaimURL:       s.ClaimURL(value),
		Notifications:  records,
	}, nil
}

// InvalidateToken expires the token immediately. Invalidating an already expired token is a no-op.
func (s *TokenService) InvalidateToken(ctx context.Context, value string) (*models.EnrollmentToken, error) {
	if _, err := s.Get(ctx, value); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if _, err := s.repo.Expire(ctx, value, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate token")
	}
	s.logger.Sugar().Infow("enrollment token invalidated", "token", tokenPrefix(value))
	return s.Get(ctx, value)
}
