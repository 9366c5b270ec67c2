// Package web provides the REST surface of the intent pipeline API.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/seoforge/intent-engine/pkg/artifacts"
	"github.com/seoforge/intent-engine/pkg/eventbus"
	"github.com/seoforge/intent-engine/pkg/events"
	"github.com/seoforge/intent-engine/pkg/models"
	"github.com/seoforge/intent-engine/pkg/ratelimit"
	"github.com/seoforge/intent-engine/pkg/services"
)

type APIHandlers struct {
	workflows *services.Workflows
	engine    *services.Engine
	approvals *services.Approvals
	linking   *services.Linking
	analytics *services.Analytics
	validator *validator.Validate
	publisher eventbus.EventPublisher
	limiter   ratelimit.Limiter
	logger    *slog.Logger
}

func NewAPIHandlers(
	workflows *services.Workflows,
	engine *services.Engine,
	approvals *services.Approvals,
	linking *services.Linking,
	analytics *services.Analytics,
	validator *validator.Validate,
	publisher eventbus.EventPublisher,
	limiter ratelimit.Limiter,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		workflows: workflows,
		engine:    engine,
		approvals: approvals,
		linking:   linking,
		analytics: analytics,
		validator: validator,
		publisher: publisher,
		limiter:   limiter,
		logger:    logger,
	}
}

// identity reads the auth gateway's headers. The organization ID is
// mandatory on every route; user ID and role accompany human calls.
func (h *APIHandlers) identity(c fiber.Ctx) (string, services.Actor, bool) {
	orgID := c.Get(HeaderOrganizationID)
	if orgID == "" {
		return "", services.Actor{}, false
	}

	actor := services.Actor{
		ID:   c.Get(HeaderUserID),
		Role: c.Get(HeaderUserRole),
	}

	if actor.ID == "" {
		actor = services.SystemActor
	}

	return orgID, actor, true
}

func (h *APIHandlers) allowTransition(c fiber.Ctx, orgID string) (bool, error) {
	allowed, err := h.limiter.Allow(c.Context(), orgID)
	if err != nil {
		// A broken limiter must not take the pipeline down with it.
		h.logger.ErrorContext(c.Context(), "rate limiter unavailable, allowing request",
			"organization_id", orgID, "error", err)

		return true, nil
	}

	return allowed, nil
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	orgID, _, ok := h.identity(c)
	if !ok {
		return unauthorized(c, "missing "+HeaderOrganizationID+" header")
	}

	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.workflows.Create(c.Context(), orgID, req.Name)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	orgID, _, ok := h.identity(c)
	if !ok {
		return unauthorized(c, "missing "+HeaderOrganizationID+" header")
	}

	workflow, err := h.workflows.FetchByID(c.Context(), c.Params("id"), orgID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) TransitionWorkflow(c fiber.Ctx) error {
	orgID, actor, ok := h.identity(c)
	if !ok {
		return unauthorized(c, "missing "+HeaderOrganizationID+" header")
	}

	allowed, err := h.allowTransition(c, orgID)
	if err != nil {
		return internalError(c, err)
	}

	if !allowed {
		return tooManyRequests(c)
	}

	var req TransitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.engine.Transition(c.Context(), c.Params("id"), orgID, req.From, req.To, actor, req.Reason)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) ForceTransitionWorkflow(c fiber.Ctx) error {
	orgID, actor, ok := h.identity(c)
	if !ok {
		return unauthorized(c, "missing "+HeaderOrganizationID+" header")
	}

	var req ForceTransitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.engine.ForceTransition(c.Context(), c.Params("id"), orgID, req.To, actor, req.Reason)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

// ReportCompletion handles a pipeline worker's step-completed signal and
// emits the next stage trigger on the bus when the automation graph has one.
func (h *APIHandlers) ReportCompletion(c fiber.Ctx) error {
	orgID, actor, ok := h.identity(c)
	if !ok {
		return unauthorized(c, "missing "+HeaderOrganizationID+" header")
	}

	allowed, err := h.allowTransition(c, orgID)
	if err != nil {
		return internalError(c, err)
	}

	if !allowed {
		return tooManyRequests(c)
	}

	var req CompletionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.engine.TransitionWithAutomation(c.Context(), c.Params("id"), orgID,
		events.CompletionEvent(req.Event), actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	h.publishEmit(c, result.Emit, result.Workflow, actor)

	return c.JSON(result)
}

func (h *APIHandlers) ProcessApproval(c fiber.Ctx) error {
	orgID, actor, ok := h.identity(c)
	if !ok {
		return unauthorized(c, "missing "+HeaderOrganizationID+" header")
	}

	var body ApprovalRequestBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.approvals.ProcessHumanApproval(c.Context(), c.Params("id"), orgID, actor,
		services.ApprovalRequest{
			Decision:    models.ApprovalDecision(body.Decision),
			Feedback:    body.Feedback,
			ResetToStep: body.ResetToStep,
		})
	if err != nil {
		return handleServiceError(c, err)
	}

	h.publishEmit(c, result.Emit, result.Workflow, actor)

	return c.JSON(result)
}

func (h *APIHandlers) LinkArticles(c fiber.Ctx) error {
	orgID, actor, ok := h.identity(c)
	if !ok {
		return unauthorized(c, "missing "+HeaderOrganizationID+" header")
	}

	result, err := h.linking.LinkArticlesToWorkflow(c.Context(), c.Params("id"), orgID, actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) AttachArtifact(c fiber.Ctx) error {
	orgID, _, ok := h.identity(c)
	if !ok {
		return unauthorized(c, "missing "+HeaderOrganizationID+" header")
	}

	var req AttachArtifactRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.workflows.AttachArtifact(c.Context(), c.Params("id"), orgID,
		artifacts.Stage(c.Params("stage")), req.Payload)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) GetTransitionHistory(c fiber.Ctx) error {
	orgID, _, ok := h.identity(c)
	if !ok {
		return unauthorized(c, "missing "+HeaderOrganizationID+" header")
	}

	if _, err := h.workflows.FetchByID(c.Context(), c.Params("id"), orgID); err != nil {
		return handleServiceError(c, err)
	}

	records, err := h.analytics.GetTransitionHistory(c.Context(), c.Params("id"), orgID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"transitions": records})
}

func (h *APIHandlers) GetStateDurations(c fiber.Ctx) error {
	orgID, _, ok := h.identity(c)
	if !ok {
		return unauthorized(c, "missing "+HeaderOrganizationID+" header")
	}

	if _, err := h.workflows.FetchByID(c.Context(), c.Params("id"), orgID); err != nil {
		return handleServiceError(c, err)
	}

	durations, err := h.analytics.GetStateDurations(c.Context(), c.Params("id"), orgID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"durations": durations})
}

func (h *APIHandlers) GetFunnelAnalytics(c fiber.Ctx) error {
	orgID, _, ok := h.identity(c)
	if !ok {
		return unauthorized(c, "missing "+HeaderOrganizationID+" header")
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return badRequest(c, "invalid from timestamp: "+err.Error())
		}

		from = parsed
	}

	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return badRequest(c, "invalid to timestamp: "+err.Error())
		}

		to = parsed
	}

	funnel, err := h.analytics.GetFunnelAnalytics(c.Context(), orgID, from, to)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"funnel": funnel, "from": from, "to": to})
}

func (h *APIHandlers) ListKeywords(c fiber.Ctx) error {
	orgID, _, ok := h.identity(c)
	if !ok {
		return unauthorized(c, "missing "+HeaderOrganizationID+" header")
	}

	keywords, err := h.workflows.ListKeywords(c.Context(), c.Params("id"), orgID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"keywords": keywords})
}

func (h *APIHandlers) ListArticles(c fiber.Ctx) error {
	orgID, _, ok := h.identity(c)
	if !ok {
		return unauthorized(c, "missing "+HeaderOrganizationID+" header")
	}

	articles, err := h.workflows.ListArticles(c.Context(), c.Params("id"), orgID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"articles": articles})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	message, healthy := h.workflows.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if !healthy {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
	})
}

// publishEmit hands the engine's emitted event to the bus. The transition
// already committed, so a publish failure is escalated in the log rather
// than failing the request; the stuck-workflow sweep catches the gap.
func (h *APIHandlers) publishEmit(c fiber.Ctx, emit events.EventType, workflow *models.Workflow, actor services.Actor) {
	if emit == "" || h.publisher == nil {
		return
	}

	var event eventbus.Event

	if emit == events.WorkflowCompletedEvent {
		event = events.WorkflowCompleted{
			BaseEvent:  events.NewBaseEvent(emit, workflow.ID, workflow.OrganizationID),
			FinalState: string(workflow.State),
		}
	} else {
		event = events.StepTrigger{
			BaseEvent: events.NewBaseEvent(emit, workflow.ID, workflow.OrganizationID),
			Actor:     actor.ID,
		}
	}

	if err := h.publisher.Publish(c.Context(), event); err != nil {
		h.logger.ErrorContext(c.Context(), "failed to publish pipeline event",
			"event_type", emit,
			"workflow_id", workflow.ID,
			"error", err,
		)
	}
}
