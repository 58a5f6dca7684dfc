package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/docflow/docflow/pkg/models"
	"github.com/docflow/docflow/pkg/persistence"
)

// RunRepository handles the append-only workflow run ledger.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunRepository creates a new run ledger repository.
func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

// record appends one ledger row inside the caller's transaction.
func (r *RunRepository) record(ctx context.Context, tx execer, run *models.WorkflowRun) error {
	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate run ID: %w", err)
		}

		run.ID = id.String()
	}

	query := `
		INSERT INTO workflow_runs (id, workflow_id, document_id, trigger_type, run_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.ExecContext(ctx, query,
		run.ID, run.WorkflowID, run.DocumentID, string(run.TriggerType), run.RunAt)
	if err != nil {
		return persistence.NewStoreError("RecordRun", run.WorkflowID, err)
	}

	return nil
}

// Last returns the newest ledger row for (workflow, document), or nil if
// the pair never fired.
func (r *RunRepository) Last(ctx context.Context, workflowID, documentID string) (*models.WorkflowRun, error) {
	query := `
		SELECT id, workflow_id, document_id, trigger_type, run_at
		FROM workflow_runs
		WHERE workflow_id = $1 AND document_id = $2
		ORDER BY run_at DESC
		LIMIT 1
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, workflowID, documentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan workflow run: %w", err)
	}

	return run, nil
}

// ByWorkflow returns all ledger rows for a workflow, newest first.
func (r *RunRepository) ByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowRun, error) {
	query := `
		SELECT id, workflow_id, document_id, trigger_type, run_at
		FROM workflow_runs
		WHERE workflow_id = $1
		ORDER BY run_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow runs: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	runs := make([]*models.WorkflowRun, 0)

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow run: %w", err)
		}

		runs = append(runs, run)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflow runs: %w", err)
	}

	return runs, nil
}

func scanRun(row rowScanner) (*models.WorkflowRun, error) {
	var (
		run         models.WorkflowRun
		triggerType string
	)

	err := row.Scan(&run.ID, &run.WorkflowID, &run.DocumentID, &triggerType, &run.RunAt)
	if err != nil {
		return nil, err
	}

	run.TriggerType = models.TriggerType(triggerType)

	return &run, nil
}
