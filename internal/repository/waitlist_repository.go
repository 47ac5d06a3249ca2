package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
)

// WaitlistRepository handles persistence of waitlist entries.
type WaitlistRepository struct {
	db *sqlx.DB
}

// NewWaitlistRepository constructs the repository.
func NewWaitlistRepository(db *sqlx.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

const waitlistColumns = `id, class_id, occurrence_date, student_id, requested_spots, status, enqueued_at, notified_at, claimed_at`

// Create inserts a waiting entry. The partial unique index on open entries
// surfaces as ErrDuplicateWaitlistEntry.
func (r *WaitlistRepository) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now().UTC()
	}
	if entry.Status == "" {
		entry.Status = models.WaitlistStatusWaiting
	}
	const query = `INSERT INTO waitlist_entries (id, class_id, occurrence_date, student_id, requested_spots, status, enqueued_at)
VALUES (:id, :class_id, :occurrence_date, :student_id, :requested_spots, :status, :enqueued_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateWaitlistEntry
		}
		return fmt.Errorf("create waitlist entry: %w", err)
	}
	return nil
}

// FindOpenByStudent returns the student's waiting or notified entry for the occurrence.
func (r *WaitlistRepository) FindOpenByStudent(ctx context.Context, key models.OccurrenceKey, studentID string) (*models.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries
        WHERE class_id = $1 AND occurrence_date = $2::date AND student_id = $3 AND status IN ('waiting', 'notified')
        LIMIT 1`
	var entry models.WaitlistEntry
	if err := r.db.GetContext(ctx, &entry, query, key.ClassID, key.Date, studentID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListOpen returns waiting and notified entries in FIFO order.
func (r *WaitlistRepository) ListOpen(ctx context.Context, key models.OccurrenceKey) ([]models.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries
        WHERE class_id = $1 AND occurrence_date = $2::date AND status IN ('waiting', 'notified')
        ORDER BY enqueued_at ASC, id ASC`
	var entries []models.WaitlistEntry
	if err := r.db.SelectContext(ctx, &entries, query, key.ClassID, key.Date); err != nil {
		return nil, fmt.Errorf("list open waitlist entries: %w", err)
	}
	return entries, nil
}

// ListByOccurrence returns all entries of the occurrence with student names.
func (r *WaitlistRepository) ListByOccurrence(ctx context.Context, key models.OccurrenceKey) ([]models.WaitlistEntryDetail, error) {
	const query = `SELECT w.id, w.class_id, w.occurrence_date, w.student_id, w.requested_spots, w.status, w.enqueued_at, w.notified_at, w.claimed_at,
        COALESCE(s.full_name, '') AS student_name
        FROM waitlist_entries w
        LEFT JOIN students s ON s.id = w.student_id
        WHERE w.class_id = $1 AND w.occurrence_date = $2::date
        ORDER BY w.enqueued_at ASC, w.id ASC`
	var entries []models.WaitlistEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, key.ClassID, key.Date); err != nil {
		return nil, fmt.Errorf("list waitlist entries: %w", err)
	}
	return entries, nil
}

// MarkNotified moves waiting entries to notified. Entries in other states are left untouched.
func (r *WaitlistRepository) MarkNotified(ctx context.Context, ids []string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE waitlist_entries SET status = 'notified', notified_at = $2 WHERE id = ANY($1) AND status = 'waiting'`
	res, err := r.db.ExecContext(ctx, query, pq.Array(ids), at)
	if err != nil {
		return 0, fmt.Errorf("mark waitlist entries notified: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark waitlist entries rows: %w", err)
	}
	return affected, nil
}

// ExpireBefore expires open entries whose occurrence date is earlier than day.
func (r *WaitlistRepository) ExpireBefore(ctx context.Context, day string) (int64, error) {
	const query = `UPDATE waitlist_entries SET status = 'expired' WHERE occurrence_date < $1::date AND status IN ('waiting', 'notified')`
	res, err := r.db.ExecContext(ctx, query, day)
	if err != nil {
		return 0, fmt.Errorf("expire waitlist entries: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire waitlist entries rows: %w", err)
	}
	return affected, nil
}
