package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
)

// ClaimRepository commits token claims.
type ClaimRepository struct {
	db *sqlx.DB
}

// NewClaimRepository constructs the repository.
func NewClaimRepository(db *sqlx.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// ClaimParams identifies a single claim attempt.
type ClaimParams struct {
	Token     string
	StudentID string
	Now       time.Time
}

const consumeTokenQuery = `UPDATE enrollment_tokens SET consumed_count = consumed_count + 1
        WHERE token = $1 AND consumed_count < available_spots AND expires_at > $2
        RETURNING ` + tokenColumns

// Claim consumes one spot of the token and seats the student in a single
// transaction. The conditional increment is the only admission decision: when
// it matches no row the transaction is rolled back and ErrTokenUnavailable is
// returned. A duplicate participant or a capacity overflow rolls back the
// increment as well.
func (r *ClaimRepository) Claim(ctx context.Context, params ClaimParams) (participant *models.Participant, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryxContext(ctx, consumeTokenQuery, params.Token, params.Now)
	if err != nil {
		return nil, fmt.Errorf("consume enrollment token: %w", err)
	}
	var token models.EnrollmentToken
	matched := rows.Next()
	if matched {
		err = rows.StructScan(&token)
	}
	if closeErr := rows.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("scan consumed token: %w", err)
	}
	if !matched {
		err = ErrTokenUnavailable
		return nil, err
	}

	date := token.OccurrenceDate.Format(models.DateLayout)

	capacity, err := lockClassTx(ctx, tx, token.ClassID)
	if err != nil {
		return nil, err
	}

	exists, err := hasOpenParticipantTx(ctx, tx, token.ClassID, date, params.StudentID)
	if err != nil {
		return nil, err
	}
	if exists {
		err = ErrDuplicateParticipant
		return nil, err
	}

	occupied, err := countOccupyingTx(ctx, tx, token.ClassID, date)
	if err != nil {
		return nil, err
	}
	if occupied+1 > capacity {
		err = ErrCapacityExceeded
		return nil, err
	}

	source := token.Token
	participant = &models.Participant{
		ClassID:        token.ClassID,
		OccurrenceDate: token.OccurrenceDate,
		StudentID:      params.StudentID,
		Status:         models.ParticipantStatusActive,
		IsSubstitute:   true,
		SourceToken:    &source,
		CreatedAt:      params.Now,
	}
	if err = insertParticipantTx(ctx, tx, participant); err != nil {
		return nil, err
	}

	const claimEntryQuery = `UPDATE waitlist_entries SET status = 'claimed', claimed_at = $4
        WHERE class_id = $1 AND occurrence_date = $2::date AND student_id = $3 AND status IN ('waiting', 'notified')`
	if _, err = tx.ExecContext(ctx, claimEntryQuery, token.ClassID, date, params.StudentID, params.Now); err != nil {
		return nil, fmt.Errorf("claim waitlist entry: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return participant, nil
}
