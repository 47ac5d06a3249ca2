package models

import "time"

// Student is a club member who can be enrolled or waitlisted.
type Student struct {
	ID        string    `db:"id" json:"id"`
	ClubID    string    `db:"club_id" json:"club_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
