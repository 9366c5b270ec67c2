// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow is absent or belongs to
	// another organization; callers cannot tell the two apart.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrApprovalNotFound indicates no decision exists yet for the
	// (workflow, approval type) pair.
	ErrApprovalNotFound = errors.New("approval not found")

	// ErrArticleNotFound indicates an article was not found by the given identifier.
	ErrArticleNotFound = errors.New("article not found")

	// ErrDuplicateWorkflow indicates a workflow with the same identifier already exists.
	ErrDuplicateWorkflow = errors.New("workflow already exists")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "GetByID", "CompareAndSwapState")
	WorkflowID string
	Err        error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsApprovalNotFound checks if an error indicates an approval was not found.
func IsApprovalNotFound(err error) bool {
	return errors.Is(err, ErrApprovalNotFound)
}

// IsArticleNotFound checks if an error indicates an article was not found.
func IsArticleNotFound(err error) bool {
	return errors.Is(err, ErrArticleNotFound)
}
