package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
)

// ParticipantRepository handles persistence of occurrence participants.
type ParticipantRepository struct {
	db *sqlx.DB
}

// NewParticipantRepository constructs the repository.
func NewParticipantRepository(db *sqlx.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

const participantColumns = `id, class_id, occurrence_date, student_id, status, absence_confirmed, is_substitute, source_token, created_at, updated_at`

// CountOccupying returns the number of active, non-absent participants of the occurrence.
func (r *ParticipantRepository) CountOccupying(ctx context.Context, key models.OccurrenceKey) (int, error) {
	var occupied int
	if err := r.db.GetContext(ctx, &occupied, countOccupyingQuery, key.ClassID, key.Date); err != nil {
		return 0, fmt.Errorf("count occupying participants: %w", err)
	}
	return occupied, nil
}

// FindByID returns a participant by id.
func (r *ParticipantRepository) FindByID(ctx context.Context, id string) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`
	var participant models.Participant
	if err := r.db.GetContext(ctx, &participant, query, id); err != nil {
		return nil, err
	}
	return &participant, nil
}

// ExistsOpen reports whether the student has a non-cancelled participant row in the occurrence.
func (r *ParticipantRepository) ExistsOpen(ctx context.Context, key models.OccurrenceKey, studentID string) (bool, error) {
	var exists int
	const query = `SELECT 1 FROM participants WHERE class_id = $1 AND occurrence_date = $2::date AND student_id = $3 AND status <> 'cancelled' LIMIT 1`
	if err := r.db.GetContext(ctx, &exists, query, key.ClassID, key.Date, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check participant: %w", err)
	}
	return true, nil
}

// ListByOccurrence returns every participant of the occurrence with student names.
func (r *ParticipantRepository) ListByOccurrence(ctx context.Context, key models.OccurrenceKey) ([]models.ParticipantDetail, error) {
	const query = `SELECT p.id, p.class_id, p.occurrence_date, p.student_id, p.status, p.absence_confirmed, p.is_substitute, p.source_token, p.created_at, p.updated_at,
        COALESCE(s.full_name, '') AS student_name
        FROM participants p
        LEFT JOIN students s ON s.id = p.student_id
        WHERE p.class_id = $1 AND p.occurrence_date = $2::date
        ORDER BY p.created_at, p.id`
	var participants []models.ParticipantDetail
	if err := r.db.SelectContext(ctx, &participants, query, key.ClassID, key.Date); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return participants, nil
}

// Enroll inserts participant after re-checking duplicates and, for seat holders,
// capacity under the class row lock.
func (r *ParticipantRepository) Enroll(ctx context.Context, participant *models.Participant) (err error) {
	date := participant.OccurrenceDate.Format(models.DateLayout)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	capacity, err := lockClassTx(ctx, tx, participant.ClassID)
	if err != nil {
		return err
	}

	exists, err := hasOpenParticipantTx(ctx, tx, participant.ClassID, date, participant.StudentID)
	if err != nil {
		return err
	}
	if exists {
		err = ErrDuplicateParticipant
		return err
	}

	if participant.Status == models.ParticipantStatusActive {
		occupied, countErr := countOccupyingTx(ctx, tx, participant.ClassID, date)
		if countErr != nil {
			err = countErr
			return err
		}
		if occupied+1 > capacity {
			err = ErrCapacityExceeded
			return err
		}
	}

	if err = insertParticipantTx(ctx, tx, participant); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment: %w", err)
	}
	return nil
}

// Cancel moves an active or substitute participant to cancelled. It reports
// whether a row changed.
func (r *ParticipantRepository) Cancel(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE participants SET status = 'cancelled', updated_at = $2 WHERE id = $1 AND status <> 'cancelled'`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("cancel participant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel participant rows: %w", err)
	}
	return affected > 0, nil
}

// ConfirmAbsence flags an active participant as absent. It reports whether a row changed.
func (r *ParticipantRepository) ConfirmAbsence(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE participants SET absence_confirmed = TRUE, updated_at = $2 WHERE id = $1 AND status = 'active' AND absence_confirmed = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("confirm absence: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("confirm absence rows: %w", err)
	}
	return affected > 0, nil
}

// CountBySourceToken returns the number of participants created through a token.
func (r *ParticipantRepository) CountBySourceToken(ctx context.Context, token string) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM participants WHERE source_token = $1`
	if err := r.db.GetContext(ctx, &count, query, token); err != nil {
		return 0, fmt.Errorf("count token participants: %w", err)
	}
	return count, nil
}
