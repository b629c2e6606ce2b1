package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

// DashboardRepository stores one snapshot document per professor.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Get returns the stored snapshot row.
func (r *DashboardRepository) Get(ctx context.Context, professorID string) (*models.DashboardState, error) {
	const query = `SELECT professor_id, snapshot, version, updated_at FROM dashboard_states WHERE professor_id = $1`
	var state models.DashboardState
	if err := r.db.GetContext(ctx, &state, query, professorID); err != nil {
		return nil, err
	}
	return &state, nil
}

// Save upserts the snapshot and bumps its version.
func (r *DashboardRepository) Save(ctx context.Context, professorID string, snapshot types.JSONText) (*models.DashboardState, error) {
	const query = `INSERT INTO dashboard_states (professor_id, snapshot, version, updated_at)
        VALUES ($1, $2, 1, $3)
        ON CONFLICT (professor_id) DO UPDATE SET snapshot = EXCLUDED.snapshot, version = dashboard_states.version + 1, updated_at = EXCLUDED.updated_at
        RETURNING professor_id, snapshot, version, updated_at`
	var state models.DashboardState
	if err := r.db.GetContext(ctx, &state, query, professorID, snapshot, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("save dashboard state: %w", err)
	}
	return &state, nil
}
