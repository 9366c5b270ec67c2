package models

import "time"

// ApprovalType identifies which human checkpoint an approval belongs to.
type ApprovalType string

const (
	ApprovalTypeSeeds     ApprovalType = "seeds"
	ApprovalTypeSubtopics ApprovalType = "subtopics"
)

// ApprovalTypeForState resolves the approval type for a human-boundary
// state. The bool is false for any non-boundary state.
func ApprovalTypeForState(s State) (ApprovalType, bool) {
	switch s {
	case StateStep3Seeds, StateStep3SeedsRunning:
		return ApprovalTypeSeeds, true
	case StateStep8Subtopics, StateStep8SubtopicsRunning:
		return ApprovalTypeSubtopics, true
	default:
		return "", false
	}
}

// ApprovalDecision is a human reviewer's verdict.
type ApprovalDecision string

const (
	DecisionApproved ApprovalDecision = "approved"
	DecisionRejected ApprovalDecision = "rejected"
)

// Approval is the single authoritative decision row for one
// (workflow, approval_type) pair. Re-submissions upsert in place; only the
// latest decision drives the next transition.
type Approval struct {
	ID             string           `json:"id"`
	WorkflowID     string           `json:"workflow_id"`
	OrganizationID string           `json:"organization_id"`
	Type           ApprovalType     `json:"type"`
	Decision       ApprovalDecision `json:"decision"`
	ApproverID     string           `json:"approver_id"`
	Feedback       string           `json:"feedback,omitempty"`
	ResetToStep    int              `json:"reset_to_step,omitempty"`
	DecidedAt      time.Time        `json:"decided_at"`
}
