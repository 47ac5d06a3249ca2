package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

var (
	// ErrTokenUnavailable is returned when a claim's conditional update matched no row.
	ErrTokenUnavailable = errors.New("enrollment token unavailable")
	// ErrDuplicateParticipant is returned when the student already holds a place in the occurrence.
	ErrDuplicateParticipant = errors.New("participant already registered")
	// ErrDuplicateWaitlistEntry is returned when the student already waits for the occurrence.
	ErrDuplicateWaitlistEntry = errors.New("waitlist entry already open")
	// ErrCapacityExceeded is returned when a seat commit would overfill the occurrence.
	ErrCapacityExceeded = errors.New("occurrence capacity exceeded")
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgerrcode.UniqueViolation
	}
	return false
}
