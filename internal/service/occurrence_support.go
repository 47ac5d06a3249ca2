package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
	"github.com/noah-isme/padel-waitlist-api/pkg/logger"
)

type occurrenceReader interface {
	FindOccurrence(ctx context.Context, key models.OccurrenceKey) (*models.ClassOccurrence, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// waitlistMetrics is satisfied by *MetricsService. A nil value disables recording.
type waitlistMetrics interface {
	ObserveClaim(result string)
	ObserveClaimDuration(d time.Duration)
	ObserveTokenIssued(spots int)
	ObserveDispatch(result string)
	ObserveWorkflow(outcome string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveClaim(string)                {}
func (nopMetrics) ObserveClaimDuration(time.Duration) {}
func (nopMetrics) ObserveTokenIssued(int)             {}
func (nopMetrics) ObserveDispatch(string)             {}
func (nopMetrics) ObserveWorkflow(string)             {}

func metricsOrNop(m waitlistMetrics) waitlistMetrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}

func loadOccurrence(ctx context.Context, classes occurrenceReader, key models.OccurrenceKey) (*models.ClassOccurrence, error) {
	occurrence, err := classes.FindOccurrence(ctx, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class occurrence not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class occurrence")
	}
	return occurrence, nil
}

// loadClubStudent returns the student when it exists, is active and belongs to clubID.
func loadClubStudent(ctx context.Context, students studentReader, studentID, clubID string) (*models.Student, error) {
	student, err := students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student inactive")
	}
	if student.ClubID != clubID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student does not belong to this club")
	}
	return student, nil
}

func tokenPrefix(token string) string {
	return logger.TokenPrefix(token)
}
