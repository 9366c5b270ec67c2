// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/seoforge/intent-engine/pkg/persistence"
)

// Business logic errors. These are the externally observable error kinds of
// the transition core; the web layer branches on them to pick HTTP statuses.
var (
	// ErrIllegalTransition means the requested edge is not in the
	// adjacency table or the source state is terminal (400).
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrAlreadyInState means the request was a no-op; no-op transitions
	// are rejected, not silently accepted (400).
	ErrAlreadyInState = errors.New("workflow already in requested state")

	// ErrTransitionFailed means the conditional update affected zero rows:
	// another caller moved the workflow first, or state drifted. Callers
	// decide whether to retry; the engine never does (409).
	ErrTransitionFailed = errors.New("transition failed: state changed concurrently")

	// ErrInvalidResetTarget means a rejection named a reset step outside
	// the bounded earlier range (400).
	ErrInvalidResetTarget = errors.New("invalid reset target")

	// ErrForbidden means the acting user lacks the organization-admin role
	// required for the operation (403).
	ErrForbidden = errors.New("operation requires organization admin")

	// ErrUnknownEvent means a completion event outside the automation
	// vocabulary was reported (400).
	ErrUnknownEvent = errors.New("unknown completion event")

	// ErrNotAwaitingApproval means the workflow is not at a human
	// checkpoint (or its running substate) (400).
	ErrNotAwaitingApproval = errors.New("workflow is not awaiting approval")

	// ErrNotAtGenerationState means article linking was requested away
	// from the final generation state; this is a hard error, not a skip (400).
	ErrNotAtGenerationState = errors.New("workflow is not at the article generation state")

	// ErrAuditWriteFailed means a state change committed but its audit
	// record could not be written. The compliance invariant is broken and
	// the condition must be escalated, never swallowed (500).
	ErrAuditWriteFailed = errors.New("audit write failed after committed transition")

	// ErrWorkflowNotFound re-exports the persistence sentinel: absent and
	// cross-tenant lookups are indistinguishable (404).
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op         string
	WorkflowID string
	Err        error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a client error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrAlreadyInState) ||
		errors.Is(err, ErrInvalidResetTarget) ||
		errors.Is(err, ErrUnknownEvent) ||
		errors.Is(err, ErrNotAwaitingApproval) ||
		errors.Is(err, ErrNotAtGenerationState)
}

// IsConflictError checks if an error is a lost CAS race that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrTransitionFailed)
}

// IsForbidden checks if an error is a role failure that should return HTTP 403.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
