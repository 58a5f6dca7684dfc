package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/docflow/docflow/pkg/models"
	"github.com/docflow/docflow/pkg/persistence"
	"github.com/docflow/docflow/pkg/template"
)

// Engine is the explicitly constructed workflow engine. Call sites hold a
// reference; there is no process-wide singleton.
type Engine struct {
	store     persistence.Persistence
	evaluator *Evaluator
	clock     *Clock
	planner   *Planner
	executor  *Executor
	logger    *slog.Logger
}

// NewEngine wires the engine from its collaborators. resolver may be nil.
func NewEngine(store persistence.Persistence, notifier Notifier, resolver template.NameResolver, logger *slog.Logger) *Engine {
	planner := NewPlanner(logger, resolver)

	return &Engine{
		store:     store,
		evaluator: NewEvaluator(logger),
		clock:     NewClock(store, logger),
		planner:   planner,
		executor:  NewExecutor(store, planner, notifier, logger),
		logger:    logger.With("module", "workflow_engine"),
	}
}

// ConsumptionOverrides carries metadata the consumption pipeline decided
// before workflows run (mail-rule hints, parse-time values). Scalars set
// here become the planner's baseline; tags are unioned in. The overrides
// commit in the same transaction as the workflow changes.
type ConsumptionOverrides struct {
	Title           *string
	CorrespondentID *string
	DocumentTypeID  *string
	OwnerID         *string
	TagIDs          []string
}

func (o *ConsumptionOverrides) apply(doc *models.Document) {
	if o == nil {
		return
	}

	if o.Title != nil {
		doc.Title = *o.Title
	}

	if o.CorrespondentID != nil {
		doc.CorrespondentID = o.CorrespondentID
	}

	if o.DocumentTypeID != nil {
		doc.DocumentTypeID = o.DocumentTypeID
	}

	if o.OwnerID != nil {
		doc.OwnerID = o.OwnerID
	}

	for _, tagID := range o.TagIDs {
		if !doc.HasTag(tagID) {
			doc.TagIDs = append(doc.TagIDs, tagID)
		}
	}
}

// RunWorkflows is the dispatch entry point for lifecycle events. It
// evaluates every enabled workflow in ascending order, folds the matches
// into one ChangeSet and applies it once.
func (e *Engine) RunWorkflows(ctx context.Context, triggerType models.TriggerType, documentID string) (*AppliedResult, error) {
	return e.dispatch(ctx, triggerType, documentID, nil)
}

// RunConsumption dispatches the consumption firing with pipeline
// overrides applied before matching and planning.
func (e *Engine) RunConsumption(ctx context.Context, documentID string, overrides *ConsumptionOverrides) (*AppliedResult, error) {
	return e.dispatch(ctx, models.TriggerConsumption, documentID, overrides)
}

func (e *Engine) dispatch(ctx context.Context, triggerType models.TriggerType, documentID string, overrides *ConsumptionOverrides) (*AppliedResult, error) {
	doc, err := e.store.DocumentByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", documentID, err)
	}

	// Matching sees the overridden snapshot, same as planning will.
	overrides.apply(doc)

	workflows, err := e.store.Workflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflows: %w", err)
	}

	matched := make([]*models.Workflow, 0)

	for _, workflow := range workflows {
		if !workflow.Enabled {
			continue
		}

		result, err := e.evaluator.Matches(ctx, doc, workflow, triggerType)
		if err != nil {
			return nil, err
		}

		if result.Matched {
			matched = append(matched, workflow)
		}
	}

	if len(matched) == 0 {
		e.logger.DebugContext(ctx, "No workflows matched",
			"document_id", documentID, "trigger_type", triggerType)

		if overrides == nil {
			return &AppliedResult{DocumentID: documentID, Document: doc}, nil
		}

		// Overrides persist even when nothing matched.
		updated, err := e.store.UpdateDocument(ctx, documentID, func(d *models.Document) ([]*models.WorkflowRun, error) {
			overrides.apply(d)

			return nil, nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to apply overrides to document %s: %w", documentID, err)
		}

		return &AppliedResult{DocumentID: documentID, Document: updated}, nil
	}

	e.logger.InfoContext(ctx, "Applying matched workflows",
		"document_id", documentID,
		"trigger_type", triggerType,
		"matched", len(matched))

	return e.executor.Apply(ctx, documentID, matched, nil, overrides.apply)
}

// EvaluateOnly runs the trigger evaluator without applying anything.
// Used for diagnostics and the admin API's dry-run endpoint.
func (e *Engine) EvaluateOnly(ctx context.Context, doc *models.Document, workflow *models.Workflow, triggerType models.TriggerType) (MatchResult, error) {
	return e.evaluator.Matches(ctx, doc, workflow, triggerType)
}

// CheckScheduledWorkflows is the periodic sweep: for every document and
// every enabled workflow with scheduled triggers it checks due-ness and
// filter match, merges all due workflows for a document into one plan and
// records one run-ledger row per (workflow, document) in the same
// transaction. Per-document failures are logged and the sweep continues.
func (e *Engine) CheckScheduledWorkflows(ctx context.Context, now time.Time) error {
	workflows, err := e.store.Workflows(ctx)
	if err != nil {
		return fmt.Errorf("failed to load workflows: %w", err)
	}

	scheduled := make([]*models.Workflow, 0)

	for _, workflow := range workflows {
		if workflow.Enabled && hasScheduledTrigger(workflow) {
			scheduled = append(scheduled, workflow)
		}
	}

	if len(scheduled) == 0 {
		return nil
	}

	documents, err := e.store.Documents(ctx)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}

	for _, doc := range documents {
		if err := e.sweepDocument(ctx, doc, scheduled, now); err != nil {
			e.logger.ErrorContext(ctx, "Scheduled sweep failed for document",
				"document_id", doc.ID, "error", err)
		}
	}

	return nil
}

func (e *Engine) sweepDocument(ctx context.Context, doc *models.Document, scheduled []*models.Workflow, now time.Time) error {
	due := make([]*models.Workflow, 0)
	runs := make([]*models.WorkflowRun, 0)

	for _, workflow := range scheduled {
		fires, err := e.workflowDue(ctx, doc, workflow, now)
		if err != nil {
			return err
		}

		if !fires {
			continue
		}

		due = append(due, workflow)

		runID, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate run ID: %w", err)
		}

		runs = append(runs, &models.WorkflowRun{
			ID:          runID.String(),
			WorkflowID:  workflow.ID,
			DocumentID:  doc.ID,
			TriggerType: models.TriggerScheduled,
			RunAt:       now,
		})
	}

	if len(due) == 0 {
		return nil
	}

	e.logger.InfoContext(ctx, "Scheduled workflows due",
		"document_id", doc.ID, "due", len(due))

	_, err := e.executor.Apply(ctx, doc.ID, due, runs, nil)

	return err
}

// workflowDue reports whether any scheduled trigger on the workflow is
// both due and matching the document's filters.
func (e *Engine) workflowDue(ctx context.Context, doc *models.Document, workflow *models.Workflow, now time.Time) (bool, error) {
	for i := range workflow.Triggers {
		trigger := &workflow.Triggers[i]
		if trigger.Type != models.TriggerScheduled {
			continue
		}

		dueNow, err := e.clock.Due(ctx, doc, workflow, trigger, now)
		if err != nil {
			return false, err
		}

		if !dueNow {
			continue
		}

		if result := e.evaluator.evaluateTrigger(ctx, doc, trigger); result.Matched {
			return true, nil
		}
	}

	return false, nil
}

func hasScheduledTrigger(workflow *models.Workflow) bool {
	for _, trigger := range workflow.Triggers {
		if trigger.Type == models.TriggerScheduled {
			return true
		}
	}

	return false
}
