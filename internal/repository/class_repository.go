package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
)

// ClassRepository resolves class templates into dated occurrences.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const findOccurrenceQuery = `SELECT ct.id AS class_id, to_char($2::date, 'YYYY-MM-DD') AS occurrence_date, ct.club_id, cl.name AS club_name,
        ct.name, ct.trainer_name, ct.max_participants, cs.start_time, cs.duration_minutes
        FROM class_templates ct
        JOIN clubs cl ON cl.id = ct.club_id
        JOIN class_schedules cs ON cs.class_id = ct.id AND cs.weekday = EXTRACT(DOW FROM $2::date)
        WHERE ct.id = $1 AND ct.active = TRUE
          AND ct.start_date <= $2::date AND (ct.end_date IS NULL OR ct.end_date >= $2::date)
          AND NOT EXISTS (SELECT 1 FROM class_exceptions ce WHERE ce.class_id = ct.id AND ce.date = $2::date)
        ORDER BY cs.start_time
        LIMIT 1`

// FindOccurrence derives the occurrence for key. It returns sql.ErrNoRows when
// the class is unknown, inactive, not scheduled on that weekday, outside its
// date range, or cancelled by an exception.
func (r *ClassRepository) FindOccurrence(ctx context.Context, key models.OccurrenceKey) (*models.ClassOccurrence, error) {
	var occurrence models.ClassOccurrence
	if err := r.db.GetContext(ctx, &occurrence, findOccurrenceQuery, key.ClassID, key.Date); err != nil {
		return nil, err
	}
	return &occurrence, nil
}

// FindTemplate returns a class template by id.
func (r *ClassRepository) FindTemplate(ctx context.Context, id string) (*models.ClassTemplate, error) {
	const query = `SELECT id, club_id, name, trainer_name, max_participants, start_date, end_date, active, created_at FROM class_templates WHERE id = $1`
	var template models.ClassTemplate
	if err := r.db.GetContext(ctx, &template, query, id); err != nil {
		return nil, err
	}
	return &template, nil
}
