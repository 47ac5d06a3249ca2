package models

import "time"

// TokenState describes an enrollment token as seen by administrators.
type TokenState string

const (
	TokenStateActive            TokenState = "ACTIVE"
	TokenStatePartiallyConsumed TokenState = "PARTIALLY_CONSUMED"
	TokenStateExhausted         TokenState = "EXHAUSTED"
	TokenStateExpired           TokenState = "EXPIRED"
)

// EnrollmentToken is a multi-use bearer credential granting up to AvailableSpots claims.
type EnrollmentToken struct {
	Token          string    `db:"token" json:"-"`
	ClassID        string    `db:"class_id" json:"class_id"`
	OccurrenceDate time.Time `db:"occurrence_date" json:"occurrence_date"`
	AvailableSpots int       `db:"available_spots" json:"available_spots"`
	ConsumedCount  int       `db:"consumed_count" json:"consumed_count"`
	ExpiresAt      time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	CreatedBy      *string   `db:"created_by" json:"created_by,omitempty"`
}

// Key returns the occurrence the token is bound to.
func (t *EnrollmentToken) Key() OccurrenceKey {
	return OccurrenceKey{ClassID: t.ClassID, Date: t.OccurrenceDate.Format(DateLayout)}
}

// Remaining returns the number of unconsumed spots.
func (t *EnrollmentToken) Remaining() int {
	if t.ConsumedCount >= t.AvailableSpots {
		return 0
	}
	return t.AvailableSpots - t.ConsumedCount
}

// State classifies the token at the given instant. Expiry wins over exhaustion.
func (t *EnrollmentToken) State(now time.Time) TokenState {
	switch {
	case !now.Before(t.ExpiresAt):
		return TokenStateExpired
	case t.ConsumedCount >= t.AvailableSpots:
		return TokenStateExhausted
	case t.ConsumedCount > 0:
		return TokenStatePartiallyConsumed
	default:
		return TokenStateActive
	}
}

// IssuedToken is returned by the issuer and handed to the dispatcher.
type IssuedToken struct {
	Token          string        `json:"token"`
	ClaimURL       string        `json:"claim_url"`
	ExpiresAt      time.Time     `json:"expires_at"`
	AvailableSpots int           `json:"available_spots"`
	Occurrence     OccurrenceKey `json:"occurrence"`
}
