// Package persistence provides the data storage abstraction for
// workflows, documents and the workflow run ledger.
package persistence

import (
	"context"

	"github.com/docflow/docflow/pkg/models"
)

// DocumentUpdate mutates a locked document snapshot and optionally returns
// run-ledger rows to record in the same transaction. Returning an error
// rolls back everything.
type DocumentUpdate func(doc *models.Document) ([]*models.WorkflowRun, error)

type Persistence interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error

	Documents(ctx context.Context) ([]*models.Document, error)
	DocumentByID(ctx context.Context, id string) (*models.Document, error)
	SaveDocument(ctx context.Context, document *models.Document) error

	// UpdateDocument applies fn to the document under a write lock. The
	// mutation and any returned run rows commit atomically; this is the
	// engine's sole mutation boundary.
	UpdateDocument(ctx context.Context, id string, fn DocumentUpdate) (*models.Document, error)

	LastRun(ctx context.Context, workflowID, documentID string) (*models.WorkflowRun, error)
	RunsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowRun, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
