package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
)

const occurrenceLockQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

// OccurrenceLockRepository serializes work on one occurrence across API
// instances with a transaction-scoped Postgres advisory lock.
type OccurrenceLockRepository struct {
	db *sqlx.DB
}

// NewOccurrenceLockRepository constructs the repository.
func NewOccurrenceLockRepository(db *sqlx.DB) *OccurrenceLockRepository {
	return &OccurrenceLockRepository{db: db}
}

// WithLock runs fn while holding the occurrence lock. The lock belongs to a
// transaction that does no other work, so it is released when fn returns
// whatever the outcome.
func (r *OccurrenceLockRepository) WithLock(ctx context.Context, key models.OccurrenceKey, fn func(ctx context.Context) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin occurrence lock: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, occurrenceLockQuery, "occurrence:"+key.String()); err != nil {
		return fmt.Errorf("lock occurrence %s: %w", key.String(), err)
	}
	if err = fn(ctx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("release occurrence lock: %w", err)
	}
	return nil
}
