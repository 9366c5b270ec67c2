package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/seoforge/intent-engine/pkg/models"
	"github.com/seoforge/intent-engine/pkg/persistence"
)

// ApprovalRepository stores the single authoritative decision per
// (workflow, approval type) pair.
type ApprovalRepository struct {
	db *sql.DB
}

// NewApprovalRepository creates a new approval repository.
func NewApprovalRepository(db *sql.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Upsert inserts the decision or replaces the previous one in place. The
// unique constraint on (workflow_id, approval_type) makes re-submission
// idempotent: one row, latest decision wins.
func (r *ApprovalRepository) Upsert(ctx context.Context, approval *models.Approval) error {
	if approval.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate approval ID: %w", err)
		}

		approval.ID = id.String()
	}

	if approval.DecidedAt.IsZero() {
		approval.DecidedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO workflow_approvals
			(id, workflow_id, organization_id, approval_type, decision, approver_id, feedback, reset_to_step, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (workflow_id, approval_type) DO UPDATE SET
			decision = EXCLUDED.decision,
			approver_id = EXCLUDED.approver_id,
			feedback = EXCLUDED.feedback,
			reset_to_step = EXCLUDED.reset_to_step,
			decided_at = EXCLUDED.decided_at
	`

	_, err := r.db.ExecContext(ctx, query,
		approval.ID,
		approval.WorkflowID,
		approval.OrganizationID,
		approval.Type,
		approval.Decision,
		approval.ApproverID,
		approval.Feedback,
		approval.ResetToStep,
		approval.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert approval: %w", err)
	}

	return nil
}

func (r *ApprovalRepository) GetByWorkflowAndType(ctx context.Context, workflowID, organizationID string, approvalType models.ApprovalType) (*models.Approval, error) {
	query := `
		SELECT id, workflow_id, organization_id, approval_type, decision, approver_id, feedback, reset_to_step, decided_at
		FROM workflow_approvals
		WHERE workflow_id = $1 AND organization_id = $2 AND approval_type = $3
	`

	var approval models.Approval

	err := r.db.QueryRowContext(ctx, query, workflowID, organizationID, approvalType).Scan(
		&approval.ID,
		&approval.WorkflowID,
		&approval.OrganizationID,
		&approval.Type,
		&approval.Decision,
		&approval.ApproverID,
		&approval.Feedback,
		&approval.ResetToStep,
		&approval.DecidedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrApprovalNotFound
		}

		return nil, fmt.Errorf("failed to scan approval: %w", err)
	}

	return &approval, nil
}
