package models

import "time"

// NotificationStatus records the outcome of a dispatch attempt.
type NotificationStatus string

const (
	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusFailed NotificationStatus = "failed"
)

// Valid reports whether s is a known notification status.
func (s NotificationStatus) Valid() bool {
	switch s {
	case NotificationStatusSent, NotificationStatusFailed:
		return true
	default:
		return false
	}
}

// NotificationRecord is a write-once log of a broadcast attempt.
type NotificationRecord struct {
	ID                string             `db:"id" json:"id"`
	Token             string             `db:"token" json:"-"`
	Channel           string             `db:"channel" json:"channel"`
	Body              string             `db:"body" json:"body"`
	Status            NotificationStatus `db:"status" json:"status"`
	ProviderMessageID *string            `db:"provider_message_id" json:"provider_message_id,omitempty"`
	FailureReason     *string            `db:"failure_reason" json:"failure_reason,omitempty"`
	Forced            bool               `db:"forced" json:"forced"`
	SentAt            time.Time          `db:"sent_at" json:"sent_at"`
}
