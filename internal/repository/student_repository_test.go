package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
)

func TestStudentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "club_id", "full_name", "phone", "active", "created_at"}).
		AddRow("s1", "club-1", "Ana Ruiz", "+34600111222", true, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE id = $1")).WithArgs("s1").WillReturnRows(rows)

	student, err := repo.FindByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "club-1", student.ClubID)
	require.NotNil(t, student.Phone)
	assert.Equal(t, "+34600111222", *student.Phone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students")).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "ghost")
	assert.Equal(t, sql.ErrNoRows, err)
}

func TestClubRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewClubRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "whatsapp_channel", "timezone", "created_at"}).
		AddRow("club-1", "Padel Norte", nil, "Europe/Madrid", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM clubs WHERE id = $1")).WithArgs("club-1").WillReturnRows(rows)

	club, err := repo.FindByID(context.Background(), "club-1")
	require.NoError(t, err)
	assert.Nil(t, club.WhatsAppChannel)
	assert.Equal(t, "Europe/Madrid", club.Timezone)
}

func TestAuditRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	user := "trainer-1"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.AuditLog{UserID: &user, Action: "WAITLIST_NOTIFY", Resource: "occurrence"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
