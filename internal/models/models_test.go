package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOccurrenceKeyRoundTrip(t *testing.T) {
	key, err := NewOccurrenceKey("class_7", "2024-06-04")
	require.NoError(t, err)
	assert.Equal(t, "class_7_2024-06-04", key.String())

	parsed, err := ParseOccurrenceKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)
	assert.Equal(t, time.Tuesday, parsed.Day().Weekday())

	_, err = NewOccurrenceKey("c1", "04/06/2024")
	assert.Error(t, err)
	_, err = ParseOccurrenceKey("nodate")
	assert.Error(t, err)
}

func TestEnrollmentTokenState(t *testing.T) {
	now := time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC)
	tok := EnrollmentToken{AvailableSpots: 2, ExpiresAt: now.Add(time.Hour)}
	assert.Equal(t, TokenStateActive, tok.State(now))

	tok.ConsumedCount = 1
	assert.Equal(t, TokenStatePartiallyConsumed, tok.State(now))
	assert.Equal(t, 1, tok.Remaining())

	tok.ConsumedCount = 2
	assert.Equal(t, TokenStateExhausted, tok.State(now))
	assert.Equal(t, TokenStateExpired, tok.State(now.Add(time.Hour)))
}

func TestParticipantOccupying(t *testing.T) {
	p := Participant{Status: ParticipantStatusActive}
	assert.True(t, p.Occupying())
	p.AbsenceConfirmed = true
	assert.False(t, p.Occupying())
	assert.False(t, (&Participant{Status: ParticipantStatusSubstitute}).Occupying())
	assert.False(t, (&Participant{Status: ParticipantStatusCancelled}).Occupying())
}

func TestStatusEnumsAreClosed(t *testing.T) {
	assert.True(t, WaitlistStatusNotified.Valid())
	assert.False(t, WaitlistStatus("pending").Valid())
	assert.True(t, WaitlistStatusWaiting.Open())
	assert.False(t, WaitlistStatusClaimed.Open())
	assert.False(t, ParticipantStatus("gone").Valid())
	assert.False(t, UserRole("SUPERADMIN").Valid())
}
