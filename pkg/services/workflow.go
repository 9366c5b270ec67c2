package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/seoforge/intent-engine/pkg/artifacts"
	"github.com/seoforge/intent-engine/pkg/models"
	"github.com/seoforge/intent-engine/pkg/persistence"
)

// Workflows handles workflow lifecycle outside of state transitions:
// creation, lookup, artifact attachment and child-entity reads.
type Workflows struct {
	persistence persistence.Persistence
}

// NewWorkflows creates the workflow lifecycle service.
func NewWorkflows(p persistence.Persistence) *Workflows {
	return &Workflows{persistence: p}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflows) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Create starts a new pipeline run at the first step. Creation is not a
// transition, so no audit record is written here; the trail starts with
// the first state change.
func (w *Workflows) Create(ctx context.Context, organizationID, name string) (*models.Workflow, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate workflow ID: %w", err)
	}

	workflow := &models.Workflow{
		ID:             id.String(),
		OrganizationID: organizationID,
		Name:           name,
		State:          models.StateStep1ICP,
	}

	err = w.persistence.WorkflowRepository().Create(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// FetchByID returns the workflow, tenant-scoped.
func (w *Workflows) FetchByID(ctx context.Context, id, organizationID string) (*models.Workflow, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id, organizationID)
}

// AttachArtifact validates a stage payload against its schema and persists
// it on the workflow. The state column is untouched.
func (w *Workflows) AttachArtifact(ctx context.Context, id, organizationID string, stage artifacts.Stage, payload map[string]any) (*models.Workflow, error) {
	err := artifacts.Validate(stage, payload)
	if err != nil {
		return nil, &ServiceError{Op: "AttachArtifact", WorkflowID: id, Err: err}
	}

	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id, organizationID)
	if err != nil {
		return nil, err
	}

	switch stage {
	case artifacts.StageICPDocument:
		workflow.ICPDocument = payload
	case artifacts.StageCompetitorAnalysis:
		workflow.CompetitorAnalysis = payload
	case artifacts.StageSeedKeywords:
		workflow.SeedKeywords = payload
	case artifacts.StageTopicClusters:
		workflow.TopicClusters = payload
	case artifacts.StageValidationResults:
		workflow.ValidationResults = payload
	}

	err = w.persistence.WorkflowRepository().UpdateArtifacts(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// ListKeywords returns the workflow's keywords, tenant-scoped.
func (w *Workflows) ListKeywords(ctx context.Context, id, organizationID string) ([]*models.Keyword, error) {
	_, err := w.persistence.WorkflowRepository().GetByID(ctx, id, organizationID)
	if err != nil {
		return nil, err
	}

	return w.persistence.KeywordRepository().ListByWorkflow(ctx, id, organizationID)
}

// ListArticles returns the workflow's articles, tenant-scoped.
func (w *Workflows) ListArticles(ctx context.Context, id, organizationID string) ([]*models.Article, error) {
	_, err := w.persistence.WorkflowRepository().GetByID(ctx, id, organizationID)
	if err != nil {
		return nil, err
	}

	return w.persistence.ArticleRepository().ListByWorkflow(ctx, id, organizationID)
}
