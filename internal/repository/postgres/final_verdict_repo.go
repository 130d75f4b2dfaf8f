package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/port"
)

type finalVerdictRepo struct {
	db *sqlx.DB
}

// NewFinalVerdictRepo creates a new PostgreSQL-backed FinalVerdictRepository.
func NewFinalVerdictRepo(db *sqlx.DB) port.FinalVerdictRepository {
	return &finalVerdictRepo{db: db}
}

// verdictRow is the storage shape of a FinalVerdict; evidence anchors are a
// JSONB column.
type verdictRow struct {
	RunID    uuid.UUID       `db:"run_id"`
	ClauseID string          `db:"clause_id"`
	Status   string          `db:"status"`
	Severity string          `db:"severity"`
	Expected string          `db:"expected"`
	Actual   string          `db:"actual"`
	Fix      string          `db:"fix"`
	Evidence json.RawMessage `db:"evidence"`
	Conflict bool            `db:"conflict"`
	Notes    string          `db:"notes"`
	Position int             `db:"position"`
}

// InsertBatch writes a run's verdict set in one transaction. Re-inserting the
// same run replaces its verdicts, keeping re-runs idempotent.
func (r *finalVerdictRepo) InsertBatch(ctx context.Context, runID uuid.UUID, verdicts []domain.FinalVerdict) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("finalVerdictRepo.InsertBatch begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM final_verdicts WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("finalVerdictRepo.InsertBatch clear: %w", err)
	}

	for i := range verdicts {
		v := &verdicts[i]
		evidence, err := json.Marshal(v.Evidence)
		if err != nil {
			return fmt.Errorf("finalVerdictRepo.InsertBatch evidence %s: %w", v.ClauseID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO final_verdicts (run_id, clause_id, status, severity, expected, actual, fix, evidence, conflict, notes, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			runID, v.ClauseID, v.Status, v.Severity, v.Expected, v.Actual, v.Fix, evidence, v.Conflict, v.Notes, i)
		if err != nil {
			return fmt.Errorf("finalVerdictRepo.InsertBatch %s: %w", v.ClauseID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("finalVerdictRepo.InsertBatch commit: %w", err)
	}
	return nil
}

// ListByRun returns a run's verdicts in their original clause order.
func (r *finalVerdictRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.FinalVerdict, error) {
	var rows []verdictRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT run_id, clause_id, status, severity, expected, actual, fix, evidence, conflict, notes, position
		 FROM final_verdicts WHERE run_id = $1 ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("finalVerdictRepo.ListByRun: %w", err)
	}

	verdicts := make([]domain.FinalVerdict, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		var evidence []domain.EvidenceAnchor
		if len(row.Evidence) > 0 {
			if err := json.Unmarshal(row.Evidence, &evidence); err != nil {
				return nil, fmt.Errorf("finalVerdictRepo.ListByRun evidence %s: %w", row.ClauseID, err)
			}
		}
		verdicts = append(verdicts, domain.FinalVerdict{
			ClauseID: row.ClauseID,
			Status:   domain.VerdictStatus(row.Status),
			Severity: domain.Severity(row.Severity),
			Expected: row.Expected,
			Actual:   row.Actual,
			Fix:      row.Fix,
			Evidence: evidence,
			Conflict: row.Conflict,
			Notes:    row.Notes,
		})
	}
	return verdicts, nil
}
