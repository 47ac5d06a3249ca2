package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
)

const countOccupyingQuery = `SELECT COUNT(*) FROM participants WHERE class_id = $1 AND occurrence_date = $2::date AND status = 'active' AND absence_confirmed = FALSE`

// lockClassTx takes a row lock on the class template, serializing seat commits
// for every occurrence of the class, and returns its capacity.
func lockClassTx(ctx context.Context, tx *sqlx.Tx, classID string) (int, error) {
	var capacity int
	const query = `SELECT max_participants FROM class_templates WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &capacity, query, classID); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("lock class template: %w", err)
	}
	return capacity, nil
}

func countOccupyingTx(ctx context.Context, tx *sqlx.Tx, classID, date string) (int, error) {
	var occupied int
	if err := tx.GetContext(ctx, &occupied, countOccupyingQuery, classID, date); err != nil {
		return 0, fmt.Errorf("count occupying participants: %w", err)
	}
	return occupied, nil
}

func hasOpenParticipantTx(ctx context.Context, tx *sqlx.Tx, classID, date, studentID string) (bool, error) {
	var exists int
	const query = `SELECT 1 FROM participants WHERE class_id = $1 AND occurrence_date = $2::date AND student_id = $3 AND status <> 'cancelled' LIMIT 1`
	if err := tx.GetContext(ctx, &exists, query, classID, date, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check participant: %w", err)
	}
	return true, nil
}

func insertParticipantTx(ctx context.Context, tx *sqlx.Tx, participant *models.Participant) error {
	if participant.ID == "" {
		participant.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if participant.CreatedAt.IsZero() {
		participant.CreatedAt = now
	}
	participant.UpdatedAt = participant.CreatedAt
	const query = `INSERT INTO participants (id, class_id, occurrence_date, student_id, status, absence_confirmed, is_substitute, source_token, created_at, updated_at)
VALUES (:id, :class_id, :occurrence_date, :student_id, :status, :absence_confirmed, :is_substitute, :source_token, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, participant); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateParticipant
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}
