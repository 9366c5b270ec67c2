// Package services implements the transition engine, approval gate, linking
// reconciler and audit analytics over the persistence layer.
package services

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/seoforge/intent-engine/pkg/automation"
	"github.com/seoforge/intent-engine/pkg/events"
	"github.com/seoforge/intent-engine/pkg/models"
	"github.com/seoforge/intent-engine/pkg/otelhelper"
	"github.com/seoforge/intent-engine/pkg/persistence"
)

// Actor is the acting identity supplied by the upstream auth collaborator.
// The engine trusts it once provided and never re-derives it.
type Actor struct {
	ID   string
	Role string
}

const RoleAdmin = "admin"

// SystemActor is used for transitions driven by pipeline workers.
var SystemActor = Actor{ID: models.ActorSystem, Role: "system"}

// Engine performs atomic, conditionally guarded workflow state transitions
// and writes the audit trail. It holds no in-process state between
// requests; the store's row-level atomicity is the only synchronization.
type Engine struct {
	persistence persistence.Persistence
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewEngine creates a transition engine. The tracer may be nil outside of
// instrumented deployments.
func NewEngine(p persistence.Persistence, logger *slog.Logger, tracer trace.Tracer) *Engine {
	return &Engine{
		persistence: p,
		logger:      logger,
		tracer:      tracer,
	}
}

// TransitionResult carries the moved workflow plus the event the caller
// must hand to the external dispatcher. Emit is empty when the pipeline
// intentionally goes silent (human checkpoints).
type TransitionResult struct {
	Workflow *models.Workflow `json:"workflow"`
	Emit     events.EventType `json:"emit,omitempty"`
}

// Transition moves a workflow from one state to another. Preconditions are
// checked short-circuiting: a no-op request, an edge missing from the
// adjacency table, or a terminal source each fail before the store is
// touched. The state swap itself is a compare-and-swap on the state column;
// losing the race yields ErrTransitionFailed and the engine never retries.
//
// On success one audit record is written synchronously. If the audit write
// fails the transition is reported as a hard failure even though the state
// change already committed: a transition without an audit trail breaks the
// compliance invariant and must be escalated.
func (e *Engine) Transition(ctx context.Context, workflowID, organizationID string, from, to models.State, actor Actor, reason string) (*models.Workflow, error) {
	ctx, span := e.startSpan(ctx, "workflow.transition", workflowID, string(from), string(to))
	defer span.End()

	if from == to {
		err := &ServiceError{Op: "Transition", WorkflowID: workflowID, Err: ErrAlreadyInState}
		otelhelper.RecordFailure(span, err)

		return nil, err
	}

	if !models.IsLegalTransition(from, to) || from.IsTerminal() {
		err := &ServiceError{Op: "Transition", WorkflowID: workflowID, Err: ErrIllegalTransition}
		otelhelper.RecordFailure(span, err)

		return nil, err
	}

	workflow, err := e.commit(ctx, workflowID, organizationID, from, to, actor, reason, false)
	if err != nil {
		otelhelper.RecordFailure(span, err)

		return nil, err
	}

	return workflow, nil
}

// ForceTransition unconditionally overwrites a workflow's state, bypassing
// legality and CAS checks. Operator recovery only: the caller must hold the
// admin role, and the audit record carries a distinct forced marker.
func (e *Engine) ForceTransition(ctx context.Context, workflowID, organizationID string, to models.State, actor Actor, reason string) (*models.Workflow, error) {
	ctx, span := e.startSpan(ctx, "workflow.force_transition", workflowID, "", string(to))
	defer span.End()

	if actor.Role != RoleAdmin {
		err := &ServiceError{Op: "ForceTransition", WorkflowID: workflowID, Err: ErrForbidden}
		otelhelper.RecordFailure(span, err, attribute.String(otelhelper.ActorKey, actor.ID))

		return nil, err
	}

	if !to.IsValid() {
		err := &ServiceError{Op: "ForceTransition", WorkflowID: workflowID, Err: ErrIllegalTransition}
		otelhelper.RecordFailure(span, err)

		return nil, err
	}

	workflows := e.persistence.WorkflowRepository()

	workflow, err := workflows.GetByID(ctx, workflowID, organizationID)
	if err != nil {
		return nil, err
	}

	previous := workflow.State

	err = workflows.ForceSetState(ctx, workflowID, organizationID, to)
	if err != nil {
		return nil, err
	}

	workflow.State = to

	e.audit(ctx, &models.TransitionRecord{
		WorkflowID:     workflowID,
		OrganizationID: organizationID,
		PreviousState:  previous,
		NewState:       to,
		Reason:         reason,
		Actor:          actor.ID,
		Forced:         true,
	})

	e.logger.WarnContext(ctx, "forced state overwrite",
		"workflow_id", workflowID,
		"previous_state", previous,
		"new_state", to,
		"actor", actor.ID,
	)

	return workflow, nil
}

// TransitionWithAutomation handles a worker's step-completed signal: it
// resolves the state the event implies, performs the transition, then
// consults the automation graph for the event to emit. An absent graph
// entry returns an empty Emit; that is intentional silence at a human
// checkpoint, not an error.
func (e *Engine) TransitionWithAutomation(ctx context.Context, workflowID, organizationID string, completed events.CompletionEvent, actor Actor) (*TransitionResult, error) {
	target, ok := automation.TargetState(completed)
	if !ok {
		return nil, &ServiceError{Op: "TransitionWithAutomation", WorkflowID: workflowID, Err: ErrUnknownEvent}
	}

	workflow, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID, organizationID)
	if err != nil {
		return nil, err
	}

	moved, err := e.Transition(ctx, workflowID, organizationID, workflow.State, target, actor, "completion event "+string(completed))
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{Workflow: moved}

	if next, ok := automation.NextEvent(completed); ok {
		result.Emit = next
	}

	return result, nil
}

// commit performs the CAS swap and the mandatory audit write.
func (e *Engine) commit(ctx context.Context, workflowID, organizationID string, from, to models.State, actor Actor, reason string, forced bool) (*models.Workflow, error) {
	workflows := e.persistence.WorkflowRepository()

	swapped, err := workflows.CompareAndSwapState(ctx, workflowID, organizationID, from, to)
	if err != nil {
		return nil, err
	}

	if !swapped {
		return nil, &ServiceError{Op: "Transition", WorkflowID: workflowID, Err: ErrTransitionFailed}
	}

	auditErr := e.persistence.AuditRepository().Append(ctx, &models.TransitionRecord{
		WorkflowID:     workflowID,
		OrganizationID: organizationID,
		PreviousState:  from,
		NewState:       to,
		Reason:         reason,
		Actor:          actor.ID,
		Forced:         forced,
	})
	if auditErr != nil {
		// The state change is already committed and cannot be rolled
		// back; escalate loudly instead of swallowing.
		e.logger.ErrorContext(ctx, "ESCALATE: committed transition has no audit record",
			"workflow_id", workflowID,
			"previous_state", from,
			"new_state", to,
			"error", auditErr,
		)

		return nil, &ServiceError{Op: "Transition", WorkflowID: workflowID, Err: ErrAuditWriteFailed}
	}

	workflow, err := workflows.GetByID(ctx, workflowID, organizationID)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// audit appends a record outside the CAS path (force transitions, domain
// decisions). Failures are escalated via log; the state change stands.
func (e *Engine) audit(ctx context.Context, record *models.TransitionRecord) {
	err := e.persistence.AuditRepository().Append(ctx, record)
	if err != nil {
		e.logger.ErrorContext(ctx, "ESCALATE: audit write failed",
			"workflow_id", record.WorkflowID,
			"previous_state", record.PreviousState,
			"new_state", record.NewState,
			"error", err,
		)
	}
}

func (e *Engine) startSpan(ctx context.Context, name, workflowID, from, to string) (context.Context, trace.Span) {
	if e.tracer == nil {
		return noop.NewTracerProvider().Tracer("").Start(ctx, name)
	}

	return otelhelper.StartSpan(ctx, e.tracer, name,
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.FromStateKey, from),
		attribute.String(otelhelper.ToStateKey, to),
	)
}
