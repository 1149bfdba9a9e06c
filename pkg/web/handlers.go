// Package web exposes the engine over HTTP. Errors cross the boundary as
// RFC 7807 problem documents.
package web

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/innospot/autoflow/pkg/engine"
	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/persistence"
)

const defaultAnalyticsWindow = 30 * 24 * time.Hour

type APIHandlers struct {
	engine    *engine.Engine
	validator *validator.Validate
	logger    *slog.Logger
}

func NewAPIHandlers(eng *engine.Engine, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		engine:    eng,
		validator: validator.New(),
		logger:    logger.With("module", "web"),
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.engine.HealthCheck(c.Context())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}

// GetWorkflows lists workflow definitions with optional filtering,
// sorting, and pagination.
func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	opts, err := parseListWorkflowsOptions(c)
	if err != nil {
		return badRequest(c, "invalid query parameters: "+err.Error())
	}

	result, err := h.engine.ListWorkflows(c.Context(), opts)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(result)
}

func parseListWorkflowsOptions(c fiber.Ctx) (persistence.ListWorkflowsOptions, error) {
	opts := persistence.ListWorkflowsOptions{
		OwnerID:   c.Query("owner_id"),
		Scope:     models.AutomationScope(c.Query("scope")),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return opts, err
		}

		opts.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return opts, err
		}

		opts.Offset = offset
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.WorkflowStatus(statusStr)
		opts.Status = &status
	}

	return opts, nil
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest

	err := c.Bind().Body(&req)
	if err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	err = h.validator.Struct(&req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.engine.CreateWorkflow(c.Context(), req.toWorkflow())
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	wf, err := h.engine.GetWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(wf)
}

// UpdateWorkflow merges the provided fields into the stored definition.
// Absent fields keep their current values.
func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req engine.UpdateWorkflowRequest

	err := c.Bind().Body(&req)
	if err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	updated, err := h.engine.UpdateWorkflow(c.Context(), c.Params("id"), req)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	err := h.engine.DeleteWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteWorkflow starts a manual execution. The response carries the
// pending execution record; the run itself happens asynchronously.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	var req ExecuteWorkflowRequest

	if len(c.Body()) > 0 {
		err := c.Bind().Body(&req)
		if err != nil {
			return badRequest(c, "invalid request body: "+err.Error())
		}
	}

	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = "api"
	}

	execution, err := h.engine.ExecuteWorkflow(
		c.Context(), c.Params("id"), req.Input, triggeredBy, models.TriggerManual)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(execution)
}

// TriggerWorkflow starts a webhook-triggered execution. The raw JSON body
// becomes the execution's input data.
func (h *APIHandlers) TriggerWorkflow(c fiber.Ctx) error {
	var input map[string]any

	if len(c.Body()) > 0 {
		err := c.Bind().Body(&input)
		if err != nil {
			return badRequest(c, "invalid request body: "+err.Error())
		}
	}

	execution, err := h.engine.ExecuteWorkflow(
		c.Context(), c.Params("id"), input, "webhook", models.TriggerWebhook)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(execution)
}

func (h *APIHandlers) ListExecutions(c fiber.Ctx) error {
	var opts persistence.ListExecutionsOptions

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "invalid limit parameter")
		}

		opts.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return badRequest(c, "invalid offset parameter")
		}

		opts.Offset = offset
	}

	result, err := h.engine.ListExecutions(c.Context(), c.Params("id"), opts)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(result)
}

// GetAnalytics reports aggregate execution metrics for one workflow. The
// window defaults to the last 30 days when start/end are absent.
func (h *APIHandlers) GetAnalytics(c fiber.Ctx) error {
	end := time.Now().UTC()
	start := end.Add(-defaultAnalyticsWindow)

	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return badRequest(c, "invalid start date, want RFC 3339")
		}

		start = parsed
	}

	if raw := c.Query("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return badRequest(c, "invalid end date, want RFC 3339")
		}

		end = parsed
	}

	if end.Before(start) {
		return badRequest(c, "end date is before start date")
	}

	report, err := h.engine.Analytics(c.Context(), c.Params("id"), start, end)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.engine.GetExecution(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(execution)
}

// CancelExecution cancels a queued or running execution. Cancelling an
// already finished or unknown execution succeeds without effect.
func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	err := h.engine.CancelExecution(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
