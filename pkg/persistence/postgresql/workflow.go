package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seoforge/intent-engine/pkg/models"
	"github.com/seoforge/intent-engine/pkg/persistence"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `
	id
  , organization_id
  , name
  , state
  , icp_document
  , competitor_analysis
  , seed_keywords
  , topic_clusters
  , validation_results
  , created_at
  , updated_at
`

func (r *WorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	artifacts, err := marshalArtifacts(workflow)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflows (id, organization_id, name, state,
			icp_document, competitor_analysis, seed_keywords, topic_clusters, validation_results,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.OrganizationID,
		workflow.Name,
		workflow.State,
		artifacts[0], artifacts[1], artifacts[2], artifacts[3], artifacts[4],
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("Create", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id, organizationID string) (*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE id = $1 AND organization_id = $2
	`

	row := r.db.QueryRowContext(ctx, query, id, organizationID)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

// CompareAndSwapState performs the conditional state update the whole
// system's concurrency safety hangs on: the row only moves if its persisted
// state still equals from. Zero rows affected means another caller won.
func (r *WorkflowRepository) CompareAndSwapState(ctx context.Context, id, organizationID string, from, to models.State) (bool, error) {
	query := `
		UPDATE workflows
		SET state = $1, updated_at = NOW()
		WHERE id = $2 AND organization_id = $3 AND state = $4
	`

	result, err := r.db.ExecContext(ctx, query, to, id, organizationID, from)
	if err != nil {
		return false, persistence.NewWorkflowError("CompareAndSwapState", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Distinguish a lost race from a missing or cross-tenant workflow.
		_, err := r.GetByID(ctx, id, organizationID)
		if err != nil {
			return false, err
		}

		return false, nil
	}

	return true, nil
}

// ForceSetState unconditionally overwrites the state column. Operator
// recovery only; callers are responsible for the admin gate.
func (r *WorkflowRepository) ForceSetState(ctx context.Context, id, organizationID string, to models.State) error {
	query := `
		UPDATE workflows
		SET state = $1, updated_at = NOW()
		WHERE id = $2 AND organization_id = $3
	`

	result, err := r.db.ExecContext(ctx, query, to, id, organizationID)
	if err != nil {
		return persistence.NewWorkflowError("ForceSetState", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewWorkflowError("ForceSetState", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) UpdateArtifacts(ctx context.Context, workflow *models.Workflow) error {
	artifacts, err := marshalArtifacts(workflow)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflows
		SET icp_document = $1
		  , competitor_analysis = $2
		  , seed_keywords = $3
		  , topic_clusters = $4
		  , validation_results = $5
		  , updated_at = NOW()
		WHERE id = $6 AND organization_id = $7
	`

	result, err := r.db.ExecContext(ctx, query,
		artifacts[0], artifacts[1], artifacts[2], artifacts[3], artifacts[4],
		workflow.ID, workflow.OrganizationID,
	)
	if err != nil {
		return persistence.NewWorkflowError("UpdateArtifacts", workflow.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewWorkflowError("UpdateArtifacts", workflow.ID, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) ListStuckRunning(ctx context.Context, olderThan time.Duration) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE state IN ($1, $2) AND updated_at < $3
		ORDER BY updated_at ASC
	`

	cutoff := time.Now().UTC().Add(-olderThan)

	rows, err := r.db.QueryContext(ctx, query,
		models.StateStep3SeedsRunning, models.StateStep8SubtopicsRunning, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stuck workflows: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	var workflows []*models.Workflow

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func marshalArtifacts(workflow *models.Workflow) ([5][]byte, error) {
	var out [5][]byte

	blobs := []map[string]any{
		workflow.ICPDocument,
		workflow.CompetitorAnalysis,
		workflow.SeedKeywords,
		workflow.TopicClusters,
		workflow.ValidationResults,
	}

	for i, blob := range blobs {
		if blob == nil {
			out[i] = nil

			continue
		}

		data, err := json.Marshal(blob)
		if err != nil {
			return out, fmt.Errorf("failed to marshal artifact: %w", err)
		}

		out[i] = data
	}

	return out, nil
}

func scanWorkflow(scanner interface {
	Scan(dest ...any) error
}) (*models.Workflow, error) {
	var (
		workflow models.Workflow
		blobs    [5][]byte
	)

	err := scanner.Scan(
		&workflow.ID,
		&workflow.OrganizationID,
		&workflow.Name,
		&workflow.State,
		&blobs[0], &blobs[1], &blobs[2], &blobs[3], &blobs[4],
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	targets := []*map[string]any{
		&workflow.ICPDocument,
		&workflow.CompetitorAnalysis,
		&workflow.SeedKeywords,
		&workflow.TopicClusters,
		&workflow.ValidationResults,
	}

	for i, blob := range blobs {
		if blob == nil {
			continue
		}

		err := json.Unmarshal(blob, targets[i])
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal artifact: %w", err)
		}
	}

	return &workflow, nil
}
