package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

// ReviewRunRepository persists review run lifecycle records.
type ReviewRunRepository interface {
	Create(ctx context.Context, run *domain.ReviewRun) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus, degraded bool) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ReviewRun, error)
}

// FinalVerdictRepository persists the terminal verdict set of a run.
// FinalVerdicts are the only pipeline entities persisted downstream.
type FinalVerdictRepository interface {
	InsertBatch(ctx context.Context, runID uuid.UUID, verdicts []domain.FinalVerdict) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.FinalVerdict, error)
}
