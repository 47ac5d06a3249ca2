package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
)

// NotificationRepository stores the broadcast log.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, token, channel, body, status, provider_message_id, failure_reason, forced, sent_at`

// Create appends a notification record.
func (r *NotificationRepository) Create(ctx context.Context, record *models.NotificationRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.SentAt.IsZero() {
		record.SentAt = time.Now().UTC()
	}
	const query = `INSERT INTO notification_records (id, token, channel, body, status, provider_message_id, failure_reason, forced, sent_at)
VALUES (:id, :token, :channel, :body, :status, :provider_message_id, :failure_reason, :forced, :sent_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create notification record: %w", err)
	}
	return nil
}

// FindSent returns the most recent successful record for the token and channel.
func (r *NotificationRepository) FindSent(ctx context.Context, token, channel string) (*models.NotificationRecord, error) {
	query := `SELECT ` + notificationColumns + ` FROM notification_records
        WHERE token = $1 AND channel = $2 AND status = 'sent'
        ORDER BY sent_at DESC LIMIT 1`
	var record models.NotificationRecord
	if err := r.db.GetContext(ctx, &record, query, token, channel); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByToken returns the dispatch history of a token, oldest first.
func (r *NotificationRepository) ListByToken(ctx context.Context, token string) ([]models.NotificationRecord, error) {
	query := `SELECT ` + notificationColumns + ` FROM notification_records WHERE token = $1 ORDER BY sent_at ASC`
	var records []models.NotificationRecord
	if err := r.db.SelectContext(ctx, &records, query, token); err != nil {
		return nil, fmt.Errorf("list notification records: %w", err)
	}
	return records, nil
}
