package file

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/docflow/docflow/pkg/models"
	"github.com/docflow/docflow/pkg/persistence"
)

// Workflows returns all workflows ordered by their evaluation order.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids, err := p.list("workflows")
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow := new(models.Workflow)
		if err := p.read("workflows", id, workflow, persistence.ErrWorkflowNotFound); err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		return workflows[i].Order < workflows[j].Order
	})

	return workflows, nil
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	workflow := new(models.Workflow)
	if err := p.read("workflows", id, workflow, persistence.ErrWorkflowNotFound); err != nil {
		return nil, err
	}

	return workflow, nil
}

func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return persistence.NewStoreError("SaveWorkflow", workflow.Name, err)
		}

		workflow.ID = id.String()
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	return p.write("workflows", workflow.ID, workflow)
}

func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.remove("workflows", id, persistence.ErrWorkflowNotFound)
}
