package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
)

// ClubRepository reads club tenants.
type ClubRepository struct {
	db *sqlx.DB
}

// NewClubRepository constructs the repository.
func NewClubRepository(db *sqlx.DB) *ClubRepository {
	return &ClubRepository{db: db}
}

// FindByID returns a club by id.
func (r *ClubRepository) FindByID(ctx context.Context, id string) (*models.Club, error) {
	const query = `SELECT id, name, whatsapp_channel, timezone, created_at FROM clubs WHERE id = $1`
	var club models.Club
	if err := r.db.GetContext(ctx, &club, query, id); err != nil {
		return nil, err
	}
	return &club, nil
}
