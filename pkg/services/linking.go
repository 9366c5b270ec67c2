package services

import (
	"context"
	"log/slog"

	"github.com/seoforge/intent-engine/pkg/models"
	"github.com/seoforge/intent-engine/pkg/persistence"
)

// LinkResult reports the reconciler's per-row outcome. A non-zero Failed
// count degrades the reported status but the batch still completes.
type LinkResult struct {
	Linked int    `json:"linked"`
	Failed int    `json:"failed"`
	Status string `json:"status"`
}

// Linking is the completion reconciler: it flips generation-complete
// articles to linked. It never decides workflow completion; that authority
// belongs to the progress-tracking subsystem reporting ARTICLES_SUCCESS.
type Linking struct {
	persistence persistence.Persistence
	engine      *Engine
	logger      *slog.Logger
}

// NewLinking creates the linking reconciler service.
func NewLinking(p persistence.Persistence, engine *Engine, logger *slog.Logger) *Linking {
	return &Linking{
		persistence: p,
		engine:      engine,
		logger:      logger,
	}
}

// LinkArticlesToWorkflow links every generation-complete, not-yet-linked
// article of the workflow, writing one audit entry per linked row. The
// workflow must be exactly at the final generation state; anything else is
// a hard error, not a silent skip. Row-level failures are counted and the
// batch continues.
func (l *Linking) LinkArticlesToWorkflow(ctx context.Context, workflowID, organizationID string, actor Actor) (*LinkResult, error) {
	workflow, err := l.persistence.WorkflowRepository().GetByID(ctx, workflowID, organizationID)
	if err != nil {
		return nil, err
	}

	if workflow.State != models.StateStep9Articles {
		return nil, &ServiceError{Op: "LinkArticlesToWorkflow", WorkflowID: workflowID, Err: ErrNotAtGenerationState}
	}

	articles, err := l.persistence.ArticleRepository().ListCompletedUnlinked(ctx, workflowID, organizationID)
	if err != nil {
		return nil, &ServiceError{Op: "LinkArticlesToWorkflow", WorkflowID: workflowID, Err: err}
	}

	result := &LinkResult{}

	for _, article := range articles {
		err := l.persistence.ArticleRepository().MarkLinked(ctx, article.ID, organizationID)
		if err != nil {
			result.Failed++

			l.logger.ErrorContext(ctx, "failed to link article",
				"workflow_id", workflowID,
				"article_id", article.ID,
				"error", err,
			)

			continue
		}

		result.Linked++

		l.engine.audit(ctx, &models.TransitionRecord{
			WorkflowID:     workflowID,
			OrganizationID: organizationID,
			PreviousState:  workflow.State,
			NewState:       workflow.State,
			Reason:         "article linked",
			Actor:          actor.ID,
			Metadata: map[string]any{
				"article_id": article.ID,
			},
		})
	}

	result.Status = "completed"
	if result.Failed > 0 {
		result.Status = "completed_with_failures"
	}

	return result, nil
}
