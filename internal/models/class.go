package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used in occurrence keys and URLs.
const DateLayout = "2006-01-02"

// ClassTemplate is a recurring class definition.
type ClassTemplate struct {
	ID              string     `db:"id" json:"id"`
	ClubID          string     `db:"club_id" json:"club_id"`
	Name            string     `db:"name" json:"name"`
	TrainerName     *string    `db:"trainer_name" json:"trainer_name,omitempty"`
	MaxParticipants int        `db:"max_participants" json:"max_participants"`
	StartDate       time.Time  `db:"start_date" json:"start_date"`
	EndDate         *time.Time `db:"end_date" json:"end_date,omitempty"`
	Active          bool       `db:"active" json:"active"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// ClassSchedule places a template on a weekday. Weekday follows time.Weekday (0 = Sunday).
type ClassSchedule struct {
	ID              string `db:"id" json:"id"`
	ClassID         string `db:"class_id" json:"class_id"`
	Weekday         int    `db:"weekday" json:"weekday"`
	StartTime       string `db:"start_time" json:"start_time"`
	DurationMinutes int    `db:"duration_minutes" json:"duration_minutes"`
}

// ClassException cancels a single date of a template.
type ClassException struct {
	ID      string    `db:"id" json:"id"`
	ClassID string    `db:"class_id" json:"class_id"`
	Date    time.Time `db:"date" json:"date"`
	Reason  *string   `db:"reason" json:"reason,omitempty"`
}

// OccurrenceKey identifies one dated instance of a class template.
type OccurrenceKey struct {
	ClassID string `json:"class_id"`
	Date    string `json:"date"`
}

// NewOccurrenceKey validates the date component and returns the key.
func NewOccurrenceKey(classID, date string) (OccurrenceKey, error) {
	classID = strings.TrimSpace(classID)
	if classID == "" {
		return OccurrenceKey{}, fmt.Errorf("class id required")
	}
	day, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return OccurrenceKey{}, fmt.Errorf("invalid occurrence date %q", date)
	}
	return OccurrenceKey{ClassID: classID, Date: day.Format(DateLayout)}, nil
}

// ParseOccurrenceKey parses the "<classID>_<YYYY-MM-DD>" form.
func ParseOccurrenceKey(raw string) (OccurrenceKey, error) {
	idx := strings.LastIndex(raw, "_")
	if idx <= 0 {
		return OccurrenceKey{}, fmt.Errorf("invalid occurrence key %q", raw)
	}
	return NewOccurrenceKey(raw[:idx], raw[idx+1:])
}

// String renders the key as "<classID>_<YYYY-MM-DD>".
func (k OccurrenceKey) String() string {
	return k.ClassID + "_" + k.Date
}

// Day returns the occurrence date at UTC midnight.
func (k OccurrenceKey) Day() time.Time {
	day, _ := time.Parse(DateLayout, k.Date)
	return day
}

// ClassOccurrence is a dated class instance derived from its template, schedule and exceptions.
type ClassOccurrence struct {
	ClassID         string  `db:"class_id" json:"class_id"`
	Date            string  `db:"occurrence_date" json:"date"`
	ClubID          string  `db:"club_id" json:"club_id"`
	ClubName        string  `db:"club_name" json:"club_name"`
	Name            string  `db:"name" json:"name"`
	TrainerName     *string `db:"trainer_name" json:"trainer_name,omitempty"`
	Capacity        int     `db:"max_participants" json:"capacity"`
	StartTime       string  `db:"start_time" json:"start_time"`
	DurationMinutes int     `db:"duration_minutes" json:"duration_minutes"`
}

// Key returns the occurrence key.
func (o *ClassOccurrence) Key() OccurrenceKey {
	return OccurrenceKey{ClassID: o.ClassID, Date: o.Date}
}

// Weekday returns the weekday of the occurrence date.
func (o *ClassOccurrence) Weekday() time.Weekday {
	return o.Key().Day().Weekday()
}

// Availability summarizes the seat situation of an occurrence.
type Availability struct {
	OccurrenceKey
	Capacity    int `json:"capacity"`
	Occupied    int `json:"occupied"`
	Available   int `json:"available"`
	Outstanding int `json:"outstanding"`
}
