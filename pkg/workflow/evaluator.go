// Package workflow implements the document workflow engine: trigger
// evaluation, schedule bookkeeping, action merging and transactional
// application.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docflow/docflow/pkg/matching"
	"github.com/docflow/docflow/pkg/models"
)

var (
	// ErrUnknownTriggerType indicates a trigger type this engine version
	// does not know. Configuration/version skew, never swallowed.
	ErrUnknownTriggerType = errors.New("unknown trigger type")
)

// MatchResult is the verdict for one workflow against one event, with a
// human-readable reason when it did not match.
type MatchResult struct {
	Matched bool
	Reason  string
}

// Evaluator decides whether a workflow's triggers match a document event.
type Evaluator struct {
	logger *slog.Logger
}

// NewEvaluator creates a trigger evaluator.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{logger: logger.With("module", "trigger_evaluator")}
}

// filterCheck evaluates one configured filter. It returns ok=false with a
// reason describing the first mismatch.
type filterCheck func() (ok bool, reason string)

// Matches reports whether any trigger of the requested type on the
// workflow matches the document. Every configured filter of a trigger
// must pass; an absent filter is vacuously true. Scheduled due-ness is
// the Clock's concern, not the evaluator's.
func (e *Evaluator) Matches(ctx context.Context, doc *models.Document, workflow *models.Workflow, triggerType models.TriggerType) (MatchResult, error) {
	switch triggerType {
	case models.TriggerConsumption, models.TriggerDocumentAdded, models.TriggerDocumentUpdated, models.TriggerScheduled:
	default:
		return MatchResult{}, fmt.Errorf("%w: %q", ErrUnknownTriggerType, triggerType)
	}

	reasons := make([]string, 0)

	for i := range workflow.Triggers {
		trigger := &workflow.Triggers[i]
		if trigger.Type != triggerType {
			continue
		}

		result := e.evaluateTrigger(ctx, doc, trigger)
		if result.Matched {
			return result, nil
		}

		reasons = append(reasons, result.Reason)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("no %s trigger configured", triggerType))
	}

	result := MatchResult{Reason: strings.Join(reasons, "; ")}

	e.logger.DebugContext(ctx, "Document did not match workflow",
		"document_id", doc.ID,
		"workflow_id", workflow.ID,
		"workflow_name", workflow.Name,
		"reason", result.Reason)

	return result, nil
}

// evaluateTrigger runs the trigger's filter chain. The chain stops at the
// first failing filter; its reason becomes the trigger's reason.
func (e *Evaluator) evaluateTrigger(ctx context.Context, doc *models.Document, trigger *models.WorkflowTrigger) MatchResult {
	checks := []filterCheck{
		func() (bool, string) { return e.checkSources(doc, trigger) },
		func() (bool, string) { return e.checkFilename(doc, trigger) },
		func() (bool, string) { return e.checkPath(doc, trigger) },
		func() (bool, string) { return e.checkMailRule(doc, trigger) },
		func() (bool, string) { return e.checkTags(doc, trigger) },
		func() (bool, string) { return e.checkDocumentType(doc, trigger) },
		func() (bool, string) { return e.checkCorrespondent(doc, trigger) },
		func() (bool, string) { return e.checkContent(ctx, doc, trigger) },
	}

	for _, check := range checks {
		if ok, reason := check(); !ok {
			return MatchResult{Reason: reason}
		}
	}

	return MatchResult{Matched: true}
}

func (e *Evaluator) checkSources(doc *models.Document, trigger *models.WorkflowTrigger) (bool, string) {
	if len(trigger.Sources) == 0 {
		return true, ""
	}

	for _, source := range trigger.Sources {
		if source == doc.Source {
			return true, ""
		}
	}

	return false, fmt.Sprintf("document source %q not in trigger sources", doc.Source)
}

func (e *Evaluator) checkFilename(doc *models.Document, trigger *models.WorkflowTrigger) (bool, string) {
	if trigger.FilterFilename == "" {
		return true, ""
	}

	if matching.Glob(trigger.FilterFilename, doc.OriginalFilename) {
		return true, ""
	}

	return false, fmt.Sprintf("document filename %q does not match %q", doc.OriginalFilename, trigger.FilterFilename)
}

func (e *Evaluator) checkPath(doc *models.Document, trigger *models.WorkflowTrigger) (bool, string) {
	if trigger.FilterPath == "" {
		return true, ""
	}

	if matching.Glob(trigger.FilterPath, doc.StoragePathName) {
		return true, ""
	}

	return false, fmt.Sprintf("document path %q does not match %q", doc.StoragePathName, trigger.FilterPath)
}

func (e *Evaluator) checkMailRule(doc *models.Document, trigger *models.WorkflowTrigger) (bool, string) {
	if trigger.FilterMailRuleID == nil {
		return true, ""
	}

	// A document without a mail rule (not fetched from mail) is a
	// non-match, not an error.
	if doc.MailRuleID == nil || *doc.MailRuleID != *trigger.FilterMailRuleID {
		return false, fmt.Sprintf("document mail rule does not match %q", *trigger.FilterMailRuleID)
	}

	return true, ""
}

func (e *Evaluator) checkTags(doc *models.Document, trigger *models.WorkflowTrigger) (bool, string) {
	if len(trigger.FilterHasTags) == 0 {
		return true, ""
	}

	if matching.ContainsAll(doc.TagIDs, trigger.FilterHasTags) {
		return true, ""
	}

	return false, fmt.Sprintf("document tags %v do not contain all of %v", doc.TagIDs, trigger.FilterHasTags)
}

func (e *Evaluator) checkDocumentType(doc *models.Document, trigger *models.WorkflowTrigger) (bool, string) {
	if trigger.FilterHasDocumentTypeID == nil {
		return true, ""
	}

	if doc.DocumentTypeID != nil && *doc.DocumentTypeID == *trigger.FilterHasDocumentTypeID {
		return true, ""
	}

	return false, fmt.Sprintf("document type does not match %q", *trigger.FilterHasDocumentTypeID)
}

func (e *Evaluator) checkCorrespondent(doc *models.Document, trigger *models.WorkflowTrigger) (bool, string) {
	if trigger.FilterHasCorrespondentID == nil {
		return true, ""
	}

	if doc.CorrespondentID != nil && *doc.CorrespondentID == *trigger.FilterHasCorrespondentID {
		return true, ""
	}

	return false, fmt.Sprintf("document correspondent does not match %q", *trigger.FilterHasCorrespondentID)
}

func (e *Evaluator) checkContent(ctx context.Context, doc *models.Document, trigger *models.WorkflowTrigger) (bool, string) {
	if trigger.MatchingAlgorithm == "" || trigger.MatchingAlgorithm == models.MatchNone {
		return true, ""
	}

	matched, err := matching.Content(trigger.MatchingAlgorithm, trigger.Match, trigger.IsInsensitive, doc.Content)
	if err != nil {
		// Unusable pattern: logged, treated as a non-match.
		e.logger.ErrorContext(ctx, "Content match failed",
			"document_id", doc.ID,
			"algorithm", trigger.MatchingAlgorithm,
			"pattern", trigger.Match,
			"error", err)

		return false, fmt.Sprintf("content match error: %v", err)
	}

	if !matched {
		return false, fmt.Sprintf("document content does not match %q (%s)", trigger.Match, trigger.MatchingAlgorithm)
	}

	if trigger.MatchingAlgorithm == models.MatchLiteral {
		e.logger.DebugContext(ctx, "Document content contains this string",
			"document_id", doc.ID, "pattern", trigger.Match)
	}

	return true, ""
}
