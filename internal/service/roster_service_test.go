package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
)

func TestRosterServiceExportCSV(t *testing.T) {
	store := newClubStore(4)
	store.addStudents("a", "b", "c", "w1")
	store.seat("a")
	cancelled := store.seat("b")
	_, err := storeParticipants{store}.Cancel(context.Background(), cancelled.ID, testNow)
	require.NoError(t, err)
	store.seat("c")
	store.wait("w1", 2, testNow)

	svc := NewRosterService(storeClasses{store}, storeParticipants{store}, storeWaitlist{store})
	file, err := svc.Export(context.Background(), testKey(), models.RosterFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "roster_class-1_2024-06-04.csv", file.Filename)

	lines := strings.Split(strings.TrimSpace(string(file.Content)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Student,Status,Substitute,Absent,Via link,Waitlist", lines[0])
	assert.Equal(t, "Player a,active,no,no,no,", lines[1])
	assert.Equal(t, "Player c,active,no,no,no,", lines[2])
	assert.Equal(t, "Player w1,waiting,,,,#1 (2)", lines[3])
}

func TestRosterServiceExportPDF(t *testing.T) {
	store := newClubStore(4)
	store.addStudents("a")
	store.seat("a")

	svc := NewRosterService(storeClasses{store}, storeParticipants{store}, storeWaitlist{store})
	file, err := svc.Export(context.Background(), testKey(), models.RosterFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Content), "%PDF"))
}

func TestRosterServiceRejectsUnknownFormat(t *testing.T) {
	store := newClubStore(4)
	svc := NewRosterService(storeClasses{store}, storeParticipants{store}, storeWaitlist{store})

	_, err := svc.Export(context.Background(), testKey(), models.RosterFormat("xlsx"))
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
