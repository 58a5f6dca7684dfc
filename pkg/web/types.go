package web

import "github.com/docflow/docflow/pkg/models"

type CreateWorkflowRequest struct {
	Name     string                   `json:"name"     validate:"required,min=3"`
	Order    int                      `json:"order"`
	Enabled  bool                     `json:"enabled"`
	Triggers []models.WorkflowTrigger `json:"triggers" validate:"min=1,dive"`
	Actions  []models.WorkflowAction  `json:"actions"  validate:"min=1,dive"`
}

type UpdateWorkflowRequest struct {
	Name     *string                  `json:"name,omitempty" validate:"omitempty,min=3"`
	Order    *int                     `json:"order,omitempty"`
	Enabled  *bool                    `json:"enabled,omitempty"`
	Triggers []models.WorkflowTrigger `json:"triggers,omitempty" validate:"omitempty,dive"`
	Actions  []models.WorkflowAction  `json:"actions,omitempty"  validate:"omitempty,dive"`
}

// EvaluateRequest asks whether a workflow would match a stored document
// for a given trigger type, without applying any actions.
type EvaluateRequest struct {
	DocumentID  string             `json:"document_id"  validate:"required"`
	TriggerType models.TriggerType `json:"trigger_type" validate:"required,oneof=consumption document_added document_updated scheduled"`
}

type EvaluateResponse struct {
	Matched bool   `json:"matched"`
	Reason  string `json:"reason,omitempty"`
}
