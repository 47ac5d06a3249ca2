package models

import "time"

// WaitlistStatus is the lifecycle state of a waitlist entry.
type WaitlistStatus string

// Possible waitlist statuses. Claimed is terminal.
const (
	WaitlistStatusWaiting  WaitlistStatus = "waiting"
	WaitlistStatusNotified WaitlistStatus = "notified"
	WaitlistStatusClaimed  WaitlistStatus = "claimed"
	WaitlistStatusExpired  WaitlistStatus = "expired"
)

// Valid reports whether s is a known waitlist status.
func (s WaitlistStatus) Valid() bool {
	switch s {
	case WaitlistStatusWaiting, WaitlistStatusNotified, WaitlistStatusClaimed, WaitlistStatusExpired:
		return true
	default:
		return false
	}
}

// Open reports whether an entry in this status may still receive a seat.
func (s WaitlistStatus) Open() bool {
	switch s {
	case WaitlistStatusWaiting, WaitlistStatusNotified:
		return true
	case WaitlistStatusClaimed, WaitlistStatusExpired:
		return false
	default:
		return false
	}
}

// WaitlistEntry is a student waiting for a seat in an occurrence.
type WaitlistEntry struct {
	ID             string         `db:"id" json:"id"`
	ClassID        string         `db:"class_id" json:"class_id"`
	OccurrenceDate time.Time      `db:"occurrence_date" json:"occurrence_date"`
	StudentID      string         `db:"student_id" json:"student_id"`
	RequestedSpots int            `db:"requested_spots" json:"requested_spots"`
	Status         WaitlistStatus `db:"status" json:"status"`
	EnqueuedAt     time.Time      `db:"enqueued_at" json:"enqueued_at"`
	NotifiedAt     *time.Time     `db:"notified_at" json:"notified_at,omitempty"`
	ClaimedAt      *time.Time     `db:"claimed_at" json:"claimed_at,omitempty"`
}

// WaitlistEntryDetail adds the student name for admin listings.
type WaitlistEntryDetail struct {
	WaitlistEntry
	StudentName string `db:"student_name" json:"student_name"`
}

// Key returns the occurrence the entry waits for.
func (e *WaitlistEntry) Key() OccurrenceKey {
	return OccurrenceKey{ClassID: e.ClassID, Date: e.OccurrenceDate.Format(DateLayout)}
}
