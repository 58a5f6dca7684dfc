package models

import "errors"

// ActionType identifies what kind of mutation or side effect an action
// performs.
type ActionType string

const (
	ActionAssignment ActionType = "assignment"
	ActionRemoval    ActionType = "removal"
	ActionEmail      ActionType = "email"
	ActionWebhook    ActionType = "webhook"
)

// WorkflowAction is a tagged union: exactly one payload matches Type.
// Keeping one payload per kind avoids the null-checking sprawl of a single
// struct with every optional column of every action kind.
type WorkflowAction struct {
	ID   string     `json:"id"`
	Type ActionType `json:"type" validate:"required,oneof=assignment removal email webhook"`

	Assignment *AssignmentAction `json:"assignment,omitempty"`
	Removal    *RemovalAction    `json:"removal,omitempty"`
	Email      *EmailAction      `json:"email,omitempty"`
	Webhook    *WebhookAction    `json:"webhook,omitempty"`
}

// CustomFieldAssignment attaches a custom field, optionally with a literal
// value. Attaching is idempotent: a field already present on the document
// keeps its current value.
type CustomFieldAssignment struct {
	FieldID string `json:"field_id" validate:"required"`
	Value   string `json:"value,omitempty"`
}

// AssignmentAction sets scalar metadata and adds to collection metadata.
// Scalars are last-assignment-wins across matched workflows; collections
// union.
type AssignmentAction struct {
	Title           *string `json:"title,omitempty"` // template, e.g. "{correspondent} {created_year}"
	CorrespondentID *string `json:"correspondent_id,omitempty"`
	DocumentTypeID  *string `json:"document_type_id,omitempty"`
	StoragePathID   *string `json:"storage_path_id,omitempty"`
	OwnerID         *string `json:"owner_id,omitempty"`

	TagIDs         []string                `json:"tag_ids,omitempty"`
	ViewUserIDs    []string                `json:"view_user_ids,omitempty"`
	ViewGroupIDs   []string                `json:"view_group_ids,omitempty"`
	ChangeUserIDs  []string                `json:"change_user_ids,omitempty"`
	ChangeGroupIDs []string                `json:"change_group_ids,omitempty"`
	CustomFields   []CustomFieldAssignment `json:"custom_fields,omitempty"`
}

// RemovalAction clears or subtracts metadata. Each category pairs an
// explicit ID set with a remove-all flag that supersedes it. Removals only
// clear or subtract, never resurrect a value.
type RemovalAction struct {
	RemoveTitle bool `json:"remove_title,omitempty"`

	CorrespondentIDs        []string `json:"correspondent_ids,omitempty"`
	RemoveAllCorrespondents bool     `json:"remove_all_correspondents,omitempty"`

	DocumentTypeIDs        []string `json:"document_type_ids,omitempty"`
	RemoveAllDocumentTypes bool     `json:"remove_all_document_types,omitempty"`

	StoragePathIDs        []string `json:"storage_path_ids,omitempty"`
	RemoveAllStoragePaths bool     `json:"remove_all_storage_paths,omitempty"`

	OwnerIDs        []string `json:"owner_ids,omitempty"`
	RemoveAllOwners bool     `json:"remove_all_owners,omitempty"`

	TagIDs        []string `json:"tag_ids,omitempty"`
	RemoveAllTags bool     `json:"remove_all_tags,omitempty"`

	ViewUserIDs          []string `json:"view_user_ids,omitempty"`
	ViewGroupIDs         []string `json:"view_group_ids,omitempty"`
	ChangeUserIDs        []string `json:"change_user_ids,omitempty"`
	ChangeGroupIDs       []string `json:"change_group_ids,omitempty"`
	RemoveAllPermissions bool     `json:"remove_all_permissions,omitempty"`

	CustomFieldIDs        []string `json:"custom_field_ids,omitempty"`
	RemoveAllCustomFields bool     `json:"remove_all_custom_fields,omitempty"`
}

// EmailAction sends a templated email after the metadata transaction
// commits. To accepts a comma-separated recipient list.
type EmailAction struct {
	To              string `json:"to"      validate:"required"`
	Subject         string `json:"subject" validate:"required"`
	Body            string `json:"body"    validate:"required"`
	IncludeDocument bool   `json:"include_document,omitempty"`
}

// WebhookAction posts a templated payload after the metadata transaction
// commits. With UseParams the params map is form-encoded, otherwise Body
// is sent raw (as JSON when AsJSON is set).
type WebhookAction struct {
	URL             string            `json:"url" validate:"required"`
	UseParams       bool              `json:"use_params,omitempty"`
	Params          map[string]string `json:"params,omitempty"`
	Body            string            `json:"body,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	IncludeDocument bool              `json:"include_document,omitempty"`
	AsJSON          bool              `json:"as_json,omitempty"`
}

var (
	// ErrInvalidAction is returned when an action's payload does not match
	// its declared type.
	ErrInvalidAction = errors.New("invalid action configuration")
)

// Validate ensures the payload pointer matching Type is populated.
func (a *WorkflowAction) Validate() error {
	switch a.Type {
	case ActionAssignment:
		if a.Assignment == nil {
			return ErrInvalidAction
		}
	case ActionRemoval:
		if a.Removal == nil {
			return ErrInvalidAction
		}
	case ActionEmail:
		if a.Email == nil {
			return ErrInvalidAction
		}
	case ActionWebhook:
		if a.Webhook == nil {
			return ErrInvalidAction
		}
	default:
		return ErrInvalidAction
	}

	return nil
}
