package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lexcal-api/internal/models"
)

// CaseRepository reads the cases events may be linked to.
type CaseRepository struct {
	db *sqlx.DB
}

// NewCaseRepository constructs a case repository.
func NewCaseRepository(db *sqlx.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// FindByID fetches a case by id.
func (r *CaseRepository) FindByID(ctx context.Context, id string) (*models.Case, error) {
	const query = `SELECT id, user_id, title, case_number, court_name, client_name, client_email, created_at, updated_at FROM cases WHERE id = $1`
	var c models.Case
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, err
	}
	return &c, nil
}
