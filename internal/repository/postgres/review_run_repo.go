package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/port"
)

type reviewRunRepo struct {
	db *sqlx.DB
}

// NewReviewRunRepo creates a new PostgreSQL-backed ReviewRunRepository.
func NewReviewRunRepo(db *sqlx.DB) port.ReviewRunRepository {
	return &reviewRunRepo{db: db}
}

func (r *reviewRunRepo) Create(ctx context.Context, run *domain.ReviewRun) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO review_runs (id, template_id, status, toggles, degraded, clause_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.TemplateID, run.Status, run.Toggles, run.Degraded, run.ClauseCount, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("reviewRunRepo.Create: %w", err)
	}
	return nil
}

func (r *reviewRunRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus, degraded bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE review_runs
		 SET status = $2,
		     degraded = degraded OR $3,
		     completed_at = CASE WHEN $2 IN ('completed', 'canceled', 'failed') THEN now() ELSE completed_at END
		 WHERE id = $1`,
		id, status, degraded)
	if err != nil {
		return fmt.Errorf("reviewRunRepo.UpdateStatus: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reviewRunRepo.UpdateStatus rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *reviewRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReviewRun, error) {
	var run domain.ReviewRun
	err := r.db.GetContext(ctx, &run,
		`SELECT id, template_id, status, toggles, degraded, clause_count, created_at, completed_at
		 FROM review_runs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reviewRunRepo.GetByID: %w", err)
	}
	return &run, nil
}
