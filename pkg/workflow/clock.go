package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/docflow/docflow/pkg/models"
)

// RunLedger is the read side of the run ledger the clock consults for
// idempotency.
type RunLedger interface {
	LastRun(ctx context.Context, workflowID, documentID string) (*models.WorkflowRun, error)
}

// Clock decides whether a scheduled trigger is due for a document,
// including recurrence bookkeeping against the run ledger.
type Clock struct {
	ledger RunLedger
	logger *slog.Logger
}

// NewClock creates a scheduled-trigger clock backed by the given ledger.
func NewClock(ledger RunLedger, logger *slog.Logger) *Clock {
	return &Clock{
		ledger: ledger,
		logger: logger.With("module", "schedule_clock"),
	}
}

// Due reports whether the scheduled trigger should fire for the document
// at now. A trigger is due when now >= reference date + offset days and
// the run ledger does not suppress it: a non-recurring trigger fires once
// ever per (workflow, document); a recurring one fires again only after
// its interval has elapsed since the last run.
func (c *Clock) Due(ctx context.Context, doc *models.Document, workflow *models.Workflow, trigger *models.WorkflowTrigger, now time.Time) (bool, error) {
	reference, ok := c.referenceDate(doc, trigger)
	if !ok {
		// Missing reference data (unset custom field) is a non-match.
		c.logger.DebugContext(ctx, "No reference date for scheduled trigger",
			"document_id", doc.ID,
			"workflow_id", workflow.ID,
			"date_field", trigger.ScheduleDateField)

		return false, nil
	}

	fireAt := reference.AddDate(0, 0, trigger.ScheduleOffsetDays)
	if now.Before(fireAt) {
		return false, nil
	}

	lastRun, err := c.ledger.LastRun(ctx, workflow.ID, doc.ID)
	if err != nil {
		return false, err
	}

	if lastRun == nil {
		return true, nil
	}

	if !trigger.ScheduleIsRecurring {
		// Fired once already; non-recurring triggers never fire again.
		return false, nil
	}

	interval := time.Duration(trigger.ScheduleRecurringIntervalDays) * 24 * time.Hour
	if now.Sub(lastRun.RunAt) < interval {
		c.logger.DebugContext(ctx, "Last run was within the recurring interval",
			"document_id", doc.ID,
			"workflow_id", workflow.ID,
			"last_run_at", lastRun.RunAt,
			"interval_days", trigger.ScheduleRecurringIntervalDays)

		return false, nil
	}

	return true, nil
}

// referenceDate resolves the document date the schedule offsets from.
func (c *Clock) referenceDate(doc *models.Document, trigger *models.WorkflowTrigger) (time.Time, bool) {
	switch trigger.ScheduleDateField {
	case models.ScheduleDateCreated, "":
		return doc.CreatedAt, !doc.CreatedAt.IsZero()
	case models.ScheduleDateAdded:
		return doc.AddedAt, !doc.AddedAt.IsZero()
	case models.ScheduleDateModified:
		return doc.ModifiedAt, !doc.ModifiedAt.IsZero()
	case models.ScheduleDateCustomField:
		if trigger.ScheduleDateCustomFieldID == nil {
			return time.Time{}, false
		}

		cf, ok := doc.CustomField(*trigger.ScheduleDateCustomFieldID)
		if !ok || cf.Value == "" {
			return time.Time{}, false
		}

		parsed, err := time.Parse("2006-01-02", cf.Value)
		if err != nil {
			return time.Time{}, false
		}

		return parsed, true
	default:
		return time.Time{}, false
	}
}
