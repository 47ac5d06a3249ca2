package models

import "time"

// ParticipantStatus is the lifecycle state of a seat holder.
type ParticipantStatus string

// Possible participant statuses. A substitute is a reserve player listed on
// the roster who does not hold a seat.
const (
	ParticipantStatusActive     ParticipantStatus = "active"
	ParticipantStatusCancelled  ParticipantStatus = "cancelled"
	ParticipantStatusSubstitute ParticipantStatus = "substitute"
)

// Valid reports whether s is a known participant status.
func (s ParticipantStatus) Valid() bool {
	switch s {
	case ParticipantStatusActive, ParticipantStatusCancelled, ParticipantStatusSubstitute:
		return true
	default:
		return false
	}
}

// Participant is a student registered in a class occurrence.
type Participant struct {
	ID               string            `db:"id" json:"id"`
	ClassID          string            `db:"class_id" json:"class_id"`
	OccurrenceDate   time.Time         `db:"occurrence_date" json:"occurrence_date"`
	StudentID        string            `db:"student_id" json:"student_id"`
	Status           ParticipantStatus `db:"status" json:"status"`
	AbsenceConfirmed bool              `db:"absence_confirmed" json:"absence_confirmed"`
	IsSubstitute     bool              `db:"is_substitute" json:"is_substitute"`
	SourceToken      *string           `db:"source_token" json:"-"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// Key returns the occurrence the participant belongs to.
func (p *Participant) Key() OccurrenceKey {
	return OccurrenceKey{ClassID: p.ClassID, Date: p.OccurrenceDate.Format(DateLayout)}
}

// Occupying reports whether the participant counts against capacity.
func (p *Participant) Occupying() bool {
	switch p.Status {
	case ParticipantStatusActive:
		return !p.AbsenceConfirmed
	case ParticipantStatusCancelled, ParticipantStatusSubstitute:
		return false
	default:
		return false
	}
}

// ParticipantDetail adds the student name for rosters.
type ParticipantDetail struct {
	Participant
	StudentName string `db:"student_name" json:"student_name"`
}
