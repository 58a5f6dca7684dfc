package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docflow/docflow/pkg/models"
	"github.com/docflow/docflow/pkg/notify"
	"github.com/docflow/docflow/pkg/persistence"
)

// Notifier queues side-effect notifications for delivery after the
// metadata transaction commits.
type Notifier interface {
	Enqueue(ctx context.Context, notification notify.Notification) error
}

// AppliedResult reports what one dispatch did to a document.
type AppliedResult struct {
	DocumentID          string           `json:"document_id"`
	MatchedWorkflowIDs  []string         `json:"matched_workflow_ids"`
	Document            *models.Document `json:"document,omitempty"`
	QueuedNotifications int              `json:"queued_notifications"`
	ActionErrors        []ActionError    `json:"action_errors,omitempty"`
}

// Executor applies a plan inside one persistence transaction and queues
// notifications afterwards. A partially applied plan is never observable:
// the store's update boundary commits everything or nothing.
type Executor struct {
	store    persistence.Persistence
	planner  *Planner
	notifier Notifier
	logger   *slog.Logger
}

// NewExecutor creates the action executor.
func NewExecutor(store persistence.Persistence, planner *Planner, notifier Notifier, logger *slog.Logger) *Executor {
	return &Executor{
		store:    store,
		planner:  planner,
		notifier: notifier,
		logger:   logger.With("module", "action_executor"),
	}
}

// Apply plans against the locked document snapshot and commits the
// resulting ChangeSet together with the given run-ledger rows. The plan
// is computed inside the update callback so concurrent dispatches for the
// same document serialize on the store's lock and each sees a consistent
// snapshot. prepare, when non-nil, mutates the locked document before
// planning so caller-supplied baseline changes commit in the same
// transaction.
func (x *Executor) Apply(ctx context.Context, documentID string, matched []*models.Workflow, runs []*models.WorkflowRun, prepare func(*models.Document)) (*AppliedResult, error) {
	var changeSet *ChangeSet

	updated, err := x.store.UpdateDocument(ctx, documentID, func(doc *models.Document) ([]*models.WorkflowRun, error) {
		if prepare != nil {
			prepare(doc)
		}

		planned, planErr := x.planner.Plan(ctx, doc, matched)
		if planErr != nil {
			return nil, planErr
		}

		changeSet = planned
		*doc = *planned.Document

		return runs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply change set to document %s: %w", documentID, err)
	}

	result := &AppliedResult{
		DocumentID:   documentID,
		Document:     updated,
		ActionErrors: changeSet.Errors,
	}

	for _, workflow := range matched {
		result.MatchedWorkflowIDs = append(result.MatchedWorkflowIDs, workflow.ID)
	}

	// Side effects are queued only after the transaction committed; a
	// failed send never rolls back metadata.
	for _, notification := range changeSet.Notifications {
		notification.DocumentID = documentID

		if err := x.notifier.Enqueue(ctx, notification); err != nil {
			x.logger.ErrorContext(ctx, "Failed to queue notification",
				"document_id", documentID,
				"workflow_id", notification.WorkflowID,
				"kind", notification.Kind,
				"error", err)
			result.ActionErrors = append(result.ActionErrors, ActionError{
				WorkflowID: notification.WorkflowID,
				Message:    fmt.Sprintf("queue notification: %v", err),
			})

			continue
		}

		result.QueuedNotifications++
	}

	return result, nil
}
