package models

import (
	"errors"
	"time"
)

// TriggerType identifies the lifecycle event a trigger reacts to.
type TriggerType string

const (
	TriggerConsumption     TriggerType = "consumption"
	TriggerDocumentAdded   TriggerType = "document_added"
	TriggerDocumentUpdated TriggerType = "document_updated"
	TriggerScheduled       TriggerType = "scheduled"
)

// MatchingAlgorithm selects how a trigger's content pattern is evaluated.
type MatchingAlgorithm string

const (
	MatchNone    MatchingAlgorithm = "none"
	MatchAny     MatchingAlgorithm = "any"
	MatchAll     MatchingAlgorithm = "all"
	MatchLiteral MatchingAlgorithm = "literal"
	MatchRegex   MatchingAlgorithm = "regex"
	MatchFuzzy   MatchingAlgorithm = "fuzzy"
)

// ScheduleDateField selects which document date a scheduled trigger
// offsets from.
type ScheduleDateField string

const (
	ScheduleDateCreated     ScheduleDateField = "created"
	ScheduleDateAdded       ScheduleDateField = "added"
	ScheduleDateModified    ScheduleDateField = "modified"
	ScheduleDateCustomField ScheduleDateField = "custom_field"
)

// Workflow is an administrator-defined rule: a set of triggers that gate a
// set of actions. Workflows are configuration — the engine never mutates
// them. Order determines both evaluation order and merge precedence when
// several workflows match the same event.
type Workflow struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"     validate:"required,min=3"`
	Order     int               `json:"order"`
	Enabled   bool              `json:"enabled"`
	Triggers  []WorkflowTrigger `json:"triggers" validate:"min=1,dive"`
	Actions   []WorkflowAction  `json:"actions"  validate:"min=1,dive"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// WorkflowTrigger is one condition set. All configured filters must pass
// for the trigger to match; an unset filter is a wildcard.
type WorkflowTrigger struct {
	ID   string      `json:"id"`
	Type TriggerType `json:"type" validate:"required,oneof=consumption document_added document_updated scheduled"`

	// Event filters. Sources applies to consumption triggers only.
	Sources                   []DocumentSource `json:"sources,omitempty"`
	FilterFilename            string           `json:"filter_filename,omitempty"`
	FilterPath                string           `json:"filter_path,omitempty"`
	FilterMailRuleID          *string          `json:"filter_mail_rule_id,omitempty"`
	FilterHasTags             []string         `json:"filter_has_tags,omitempty"`
	FilterHasCorrespondentID  *string          `json:"filter_has_correspondent_id,omitempty"`
	FilterHasDocumentTypeID   *string          `json:"filter_has_document_type_id,omitempty"`

	MatchingAlgorithm MatchingAlgorithm `json:"matching_algorithm,omitempty" validate:"omitempty,oneof=none any all literal regex fuzzy"`
	Match             string            `json:"match,omitempty"`
	IsInsensitive     bool              `json:"is_insensitive,omitempty"`

	// Scheduling fields, meaningful only when Type is scheduled.
	ScheduleOffsetDays            int               `json:"schedule_offset_days,omitempty"`
	ScheduleDateField             ScheduleDateField `json:"schedule_date_field,omitempty" validate:"omitempty,oneof=created added modified custom_field"`
	ScheduleDateCustomFieldID     *string           `json:"schedule_date_custom_field_id,omitempty"`
	ScheduleIsRecurring           bool              `json:"schedule_is_recurring,omitempty"`
	ScheduleRecurringIntervalDays int               `json:"schedule_recurring_interval_days,omitempty" validate:"omitempty,min=1"`
}

// WorkflowRun is the append-only ledger row recorded for every successful
// scheduled firing. Its existence (or recency, for recurring triggers)
// suppresses re-firing.
type WorkflowRun struct {
	ID          string      `json:"id"`
	WorkflowID  string      `json:"workflow_id"`
	DocumentID  string      `json:"document_id"`
	TriggerType TriggerType `json:"trigger_type"`
	RunAt       time.Time   `json:"run_at"`
}

var (
	// ErrInvalidTrigger is returned when a trigger definition is not
	// internally consistent.
	ErrInvalidTrigger = errors.New("invalid trigger configuration")
)

// Validate checks cross-field constraints validator tags cannot express.
func (t *WorkflowTrigger) Validate() error {
	if t.Type == TriggerScheduled {
		if t.ScheduleDateField == ScheduleDateCustomField && t.ScheduleDateCustomFieldID == nil {
			return ErrInvalidTrigger
		}

		if t.ScheduleIsRecurring && t.ScheduleRecurringIntervalDays < 1 {
			return ErrInvalidTrigger
		}
	}

	if t.MatchingAlgorithm != "" && t.MatchingAlgorithm != MatchNone && t.Match == "" {
		return ErrInvalidTrigger
	}

	return nil
}
