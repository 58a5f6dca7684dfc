package file

import (
	"context"

	"github.com/google/uuid"

	"github.com/docflow/docflow/pkg/models"
	"github.com/docflow/docflow/pkg/persistence"
)

// recordRun appends one ledger row. Callers hold the write lock.
func (p *Persistence) recordRun(run *models.WorkflowRun) error {
	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return persistence.NewStoreError("RecordRun", run.WorkflowID, err)
		}

		run.ID = id.String()
	}

	return p.write("runs", run.ID, run)
}

// LastRun returns the most recent ledger row for (workflow, document), or
// nil when the pair has never fired.
func (p *Persistence) LastRun(ctx context.Context, workflowID, documentID string) (*models.WorkflowRun, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids, err := p.list("runs")
	if err != nil {
		return nil, err
	}

	var last *models.WorkflowRun

	for _, id := range ids {
		run := new(models.WorkflowRun)
		if err := p.read("runs", id, run, persistence.ErrRunNotFound); err != nil {
			return nil, err
		}

		if run.WorkflowID != workflowID || run.DocumentID != documentID {
			continue
		}

		if last == nil || run.RunAt.After(last.RunAt) {
			last = run
		}
	}

	return last, nil
}

func (p *Persistence) RunsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowRun, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids, err := p.list("runs")
	if err != nil {
		return nil, err
	}

	runs := make([]*models.WorkflowRun, 0)

	for _, id := range ids {
		run := new(models.WorkflowRun)
		if err := p.read("runs", id, run, persistence.ErrRunNotFound); err != nil {
			return nil, err
		}

		if run.WorkflowID == workflowID {
			runs = append(runs, run)
		}
	}

	return runs, nil
}
