// Package web provides HTTP handlers and REST API endpoints for workflow
// administration.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/docflow/docflow/pkg/models"
	"github.com/docflow/docflow/pkg/persistence"
	"github.com/docflow/docflow/pkg/workflow"
)

type APIHandlers struct {
	store     persistence.Persistence
	engine    *workflow.Engine
	validator *validator.Validate
}

func NewAPIHandlers(
	store persistence.Persistence,
	engine *workflow.Engine,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		store:     store,
		engine:    engine,
		validator: validator,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.store.Workflows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	found, err := h.store.WorkflowByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created := &models.Workflow{
		Name:     req.Name,
		Order:    req.Order,
		Enabled:  req.Enabled,
		Triggers: req.Triggers,
		Actions:  req.Actions,
	}

	if err := validateDefinition(created); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.store.SaveWorkflow(c.Context(), created); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.store.WorkflowByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Order != nil {
		existing.Order = *req.Order
	}

	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}

	if req.Triggers != nil {
		existing.Triggers = req.Triggers
	}

	if req.Actions != nil {
		existing.Actions = req.Actions
	}

	if err := validateDefinition(existing); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.store.SaveWorkflow(c.Context(), existing); err != nil {
		return internalError(c, err)
	}

	return c.JSON(existing)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.store.DeleteWorkflow(c.Context(), id); err != nil {
		return handleStoreError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetWorkflowRuns(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if _, err := h.store.WorkflowByID(c.Context(), id); err != nil {
		return handleStoreError(c, err)
	}

	runs, err := h.store.RunsByWorkflow(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"runs":        runs,
		"total_count": len(runs),
	})
}

// EvaluateWorkflow is the dry-run endpoint: it reports whether the
// workflow's triggers would match a document without changing anything.
func (h *APIHandlers) EvaluateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req EvaluateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	target, err := h.store.WorkflowByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	doc, err := h.store.DocumentByID(c.Context(), req.DocumentID)
	if err != nil {
		return handleStoreError(c, err)
	}

	result, err := h.engine.EvaluateOnly(c.Context(), doc, target, req.TriggerType)
	if err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(EvaluateResponse{
		Matched: result.Matched,
		Reason:  result.Reason,
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Docflow API is healthy"
	httpStatus := http.StatusOK

	if err := h.store.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Docflow API is unhealthy: " + err.Error()
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}

// validateDefinition runs the cross-field checks validator tags cannot
// express.
func validateDefinition(w *models.Workflow) error {
	for i := range w.Triggers {
		if err := w.Triggers[i].Validate(); err != nil {
			return err
		}
	}

	for i := range w.Actions {
		if err := w.Actions[i].Validate(); err != nil {
			return err
		}
	}

	return nil
}
