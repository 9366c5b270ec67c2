package web

import (
	"github.com/seoforge/intent-engine/pkg/models"
)

// Identity headers set by the upstream auth gateway. The API trusts them
// and never re-derives identity itself.
const (
	HeaderOrganizationID = "X-Org-ID"
	HeaderUserID         = "X-User-ID"
	HeaderUserRole       = "X-User-Role"
)

// CreateWorkflowRequest starts a new pipeline run.
type CreateWorkflowRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// TransitionRequest performs one explicit state transition. From is
// required: the caller states what it believes the current state is, and
// the conditional update enforces that belief.
type TransitionRequest struct {
	From   models.State `json:"from"   validate:"required"`
	To     models.State `json:"to"     validate:"required"`
	Reason string       `json:"reason" validate:"max=1024"`
}

// ForceTransitionRequest overwrites state unconditionally. Admin only; the
// reason is mandatory because forced overwrites are audited prominently.
type ForceTransitionRequest struct {
	To     models.State `json:"to"     validate:"required"`
	Reason string       `json:"reason" validate:"required,min=1,max=1024"`
}

// CompletionRequest is a pipeline worker reporting that its stage finished.
type CompletionRequest struct {
	Event string `json:"event" validate:"required"`
}

// ApprovalRequestBody is a reviewer's decision at a human checkpoint.
type ApprovalRequestBody struct {
	Decision    string `json:"decision"      validate:"required,oneof=approved rejected"`
	Feedback    string `json:"feedback"      validate:"max=4096"`
	ResetToStep int    `json:"reset_to_step" validate:"min=0,max=9"`
}

// AttachArtifactRequest attaches a stage output document to the workflow.
type AttachArtifactRequest struct {
	Payload map[string]any `json:"payload" validate:"required"`
}
