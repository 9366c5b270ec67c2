package services

import (
	"context"
	"log/slog"

	"github.com/seoforge/intent-engine/pkg/automation"
	"github.com/seoforge/intent-engine/pkg/events"
	"github.com/seoforge/intent-engine/pkg/models"
	"github.com/seoforge/intent-engine/pkg/persistence"
)

// ApprovalRequest is a human reviewer's decision at a pipeline checkpoint.
type ApprovalRequest struct {
	Decision    models.ApprovalDecision `json:"decision"      validate:"required,oneof=approved rejected"`
	Feedback    string                  `json:"feedback,omitempty"`
	ResetToStep int                     `json:"reset_to_step,omitempty"`
}

// ApprovalResult reports the decision outcome: the stored approval row, the
// moved workflow, and the event to emit on approval (empty on rejection).
type ApprovalResult struct {
	Approval *models.Approval `json:"approval"`
	Workflow *models.Workflow `json:"workflow"`
	Emit     events.EventType `json:"emit,omitempty"`
}

// Approvals is the human approval gate: the only place in the system that
// may advance past a review checkpoint, and the only place that may move a
// workflow backward.
type Approvals struct {
	persistence persistence.Persistence
	engine      *Engine
	logger      *slog.Logger
}

// NewApprovals creates the approval gate service.
func NewApprovals(p persistence.Persistence, engine *Engine, logger *slog.Logger) *Approvals {
	return &Approvals{
		persistence: p,
		engine:      engine,
		logger:      logger,
	}
}

// ProcessHumanApproval records the decision and moves the workflow.
// Approval advances one state; rejection performs the system's sole
// backward transition, to a bounded earlier step. Both the domain decision
// and the mechanical state change are audited separately: they answer
// different questions ("why" versus "what").
//
// The workflow may sit at the checkpoint's canonical state or its running
// substate; the latter absorbs the race where the reviewer acts before the
// dispatcher's final transition lands.
func (a *Approvals) ProcessHumanApproval(ctx context.Context, workflowID, organizationID string, actor Actor, req ApprovalRequest) (*ApprovalResult, error) {
	if actor.Role != RoleAdmin {
		return nil, &ServiceError{Op: "ProcessHumanApproval", WorkflowID: workflowID, Err: ErrForbidden}
	}

	workflow, err := a.persistence.WorkflowRepository().GetByID(ctx, workflowID, organizationID)
	if err != nil {
		return nil, err
	}

	approvalType, ok := models.ApprovalTypeForState(workflow.State)
	if !ok {
		return nil, &ServiceError{Op: "ProcessHumanApproval", WorkflowID: workflowID, Err: ErrNotAwaitingApproval}
	}

	// Resolve the target before any write so an invalid request mutates
	// nothing: no state change, no approval row.
	var (
		target    models.State
		completed events.CompletionEvent
	)

	switch req.Decision {
	case models.DecisionApproved:
		if approvalType == models.ApprovalTypeSeeds {
			completed = events.SeedsApproved
		} else {
			completed = events.SubtopicsApproved
		}

		target, _ = automation.TargetState(completed)

	case models.DecisionRejected:
		if !models.IsValidResetTarget(workflow.State, req.ResetToStep) {
			return nil, &ServiceError{Op: "ProcessHumanApproval", WorkflowID: workflowID, Err: ErrInvalidResetTarget}
		}

		target, _ = models.StateForStep(req.ResetToStep)

	default:
		return nil, &ServiceError{Op: "ProcessHumanApproval", WorkflowID: workflowID, Err: ErrInvalidResetTarget}
	}

	approval := &models.Approval{
		WorkflowID:     workflowID,
		OrganizationID: organizationID,
		Type:           approvalType,
		Decision:       req.Decision,
		ApproverID:     actor.ID,
		Feedback:       req.Feedback,
		ResetToStep:    req.ResetToStep,
	}

	err = a.persistence.ApprovalRepository().Upsert(ctx, approval)
	if err != nil {
		return nil, &ServiceError{Op: "ProcessHumanApproval", WorkflowID: workflowID, Err: err}
	}

	// The domain decision gets its own audit entry, independent of the
	// transition engine's mechanical record.
	a.engine.audit(ctx, &models.TransitionRecord{
		WorkflowID:     workflowID,
		OrganizationID: organizationID,
		PreviousState:  workflow.State,
		NewState:       workflow.State,
		Reason:         "human approval decision: " + string(req.Decision),
		Actor:          actor.ID,
		Metadata: map[string]any{
			"approval_type": string(approvalType),
			"decision":      string(req.Decision),
			"feedback":      req.Feedback,
			"reset_to_step": req.ResetToStep,
		},
	})

	reason := "approval " + string(req.Decision) + " by " + actor.ID
	if req.Decision == models.DecisionRejected {
		reason = "rejection reset by " + actor.ID
	}

	moved, err := a.engine.Transition(ctx, workflowID, organizationID, workflow.State, target, actor, reason)
	if err != nil {
		return nil, err
	}

	result := &ApprovalResult{
		Approval: approval,
		Workflow: moved,
	}

	if req.Decision == models.DecisionApproved {
		if next, ok := automation.NextEvent(completed); ok {
			result.Emit = next
		}
	}

	return result, nil
}
