package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
)

func TestWaitlistRepositoryCreateMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO waitlist_entries")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &models.WaitlistEntry{
		ClassID:        "class-1",
		OccurrenceDate: time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC),
		StudentID:      "stu-1",
		RequestedSpots: 1,
	})
	require.ErrorIs(t, err, ErrDuplicateWaitlistEntry)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryListOpenOrdersFIFO(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)
	day := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	enqueued := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "class_id", "occurrence_date", "student_id", "requested_spots", "status", "enqueued_at", "notified_at", "claimed_at"}).
		AddRow("w-1", "class-1", day, "stu-1", 1, "waiting", enqueued, nil, nil).
		AddRow("w-2", "class-1", day, "stu-2", 2, "notified", enqueued.Add(time.Minute), enqueued.Add(time.Hour), nil)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY enqueued_at ASC, id ASC")).
		WithArgs("class-1", "2024-06-04").
		WillReturnRows(rows)

	entries, err := repo.ListOpen(context.Background(), models.OccurrenceKey{ClassID: "class-1", Date: "2024-06-04"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "w-1", entries[0].ID)
	require.Equal(t, models.WaitlistStatusNotified, entries[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryMarkNotifiedOnlyTouchesWaiting(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE waitlist_entries SET status = 'notified', notified_at = $2 WHERE id = ANY($1) AND status = 'waiting'")).
		WithArgs(sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.MarkNotified(context.Background(), []string{"w-1", "w-claimed"}, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	affected, err = repo.MarkNotified(context.Background(), nil, now)
	require.NoError(t, err)
	require.Zero(t, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryExpireBefore(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE waitlist_entries SET status = 'expired' WHERE occurrence_date < $1::date")).
		WithArgs("2024-06-05").
		WillReturnResult(sqlmock.NewResult(0, 4))

	affected, err := repo.ExpireBefore(context.Background(), "2024-06-05")
	require.NoError(t, err)
	require.Equal(t, int64(4), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}
