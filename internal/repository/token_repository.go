package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
)

// TokenRepository persists enrollment tokens.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository constructs the repository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

const tokenColumns = `token, class_id, occurrence_date, available_spots, consumed_count, expires_at, created_at, created_by`

// Create stores a freshly minted token.
func (r *TokenRepository) Create(ctx context.Context, token *models.EnrollmentToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollment_tokens (token, class_id, occurrence_date, available_spots, consumed_count, expires_at, created_at, created_by)
VALUES (:token, :class_id, :occurrence_date, :available_spots, :consumed_count, :expires_at, :created_at, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create enrollment token: %w", err)
	}
	return nil
}

// FindByToken returns a token by its value or sql.ErrNoRows.
func (r *TokenRepository) FindByToken(ctx context.Context, value string) (*models.EnrollmentToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM enrollment_tokens WHERE token = $1`
	var token models.EnrollmentToken
	if err := r.db.GetContext(ctx, &token, query, value); err != nil {
		return nil, err
	}
	return &token, nil
}

// SumOutstanding returns the unconsumed spots of tokens for the occurrence that are still live at now.
func (r *TokenRepository) SumOutstanding(ctx context.Context, key models.OccurrenceKey, now time.Time) (int, error) {
	const query = `SELECT COALESCE(SUM(available_spots - consumed_count), 0) FROM enrollment_tokens
        WHERE class_id = $1 AND occurrence_date = $2::date AND expires_at > $3 AND consumed_count < available_spots`
	var outstanding int
	if err := r.db.GetContext(ctx, &outstanding, query, key.ClassID, key.Date, now); err != nil {
		return 0, fmt.Errorf("sum outstanding spots: %w", err)
	}
	return outstanding, nil
}

// ListByOccurrence returns every token minted for the occurrence, newest first.
func (r *TokenRepository) ListByOccurrence(ctx context.Context, key models.OccurrenceKey) ([]models.EnrollmentToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM enrollment_tokens WHERE class_id = $1 AND occurrence_date = $2::date ORDER BY created_at DESC`
	var tokens []models.EnrollmentToken
	if err := r.db.SelectContext(ctx, &tokens, query, key.ClassID, key.Date); err != nil {
		return nil, fmt.Errorf("list enrollment tokens: %w", err)
	}
	return tokens, nil
}

// Expire moves expires_at to at when the token is still live. It reports whether a row changed.
func (r *TokenRepository) Expire(ctx context.Context, value string, at time.Time) (bool, error) {
	const query = `UPDATE enrollment_tokens SET expires_at = $2 WHERE token = $1 AND expires_at > $2`
	res, err := r.db.ExecContext(ctx, query, value, at)
	if err != nil {
		return false, fmt.Errorf("expire enrollment token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("expire enrollment token rows: %w", err)
	}
	return affected > 0, nil
}
