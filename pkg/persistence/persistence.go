// Package persistence provides the data storage abstraction for workflows,
// audit records, approvals and pipeline-owned entities.
package persistence

import (
	"context"
	"time"

	"github.com/seoforge/intent-engine/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	AuditRepository() AuditRepository
	ApprovalRepository() ApprovalRepository
	ArticleRepository() ArticleRepository
	KeywordRepository() KeywordRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository persists workflow rows. Every read is scoped by
// organization; a cross-tenant ID lookup behaves exactly like a missing row.
type WorkflowRepository interface {
	Create(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id, organizationID string) (*models.Workflow, error)

	// CompareAndSwapState updates the state column only if the persisted
	// state still equals from. It reports whether a row was swapped; false
	// with a nil error means another caller won the race or the state
	// drifted. This is the system's only lock discipline.
	CompareAndSwapState(ctx context.Context, id, organizationID string, from, to models.State) (bool, error)

	// ForceSetState unconditionally overwrites the state column. Operator
	// recovery only.
	ForceSetState(ctx context.Context, id, organizationID string, to models.State) error

	// UpdateArtifacts persists the workflow's pipeline artifact blobs
	// without touching the state column.
	UpdateArtifacts(ctx context.Context, workflow *models.Workflow) error

	// ListStuckRunning returns workflows that have sat in a running
	// substate longer than the given age.
	ListStuckRunning(ctx context.Context, olderThan time.Duration) ([]*models.Workflow, error)
}

// AuditRepository is append-only; there is intentionally no update or
// delete operation.
type AuditRepository interface {
	Append(ctx context.Context, record *models.TransitionRecord) error
	ListByWorkflow(ctx context.Context, workflowID, organizationID string) ([]*models.TransitionRecord, error)

	// CountEnteredByState aggregates, per state, how many distinct
	// workflows of the organization entered that state inside the range.
	CountEnteredByState(ctx context.Context, organizationID string, from, to time.Time) (map[models.State]int, error)
}

type ApprovalRepository interface {
	// Upsert inserts or replaces the single decision row for the
	// (workflow, approval type) pair.
	Upsert(ctx context.Context, approval *models.Approval) error
	GetByWorkflowAndType(ctx context.Context, workflowID, organizationID string, approvalType models.ApprovalType) (*models.Approval, error)
}

type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	ListByWorkflow(ctx context.Context, workflowID, organizationID string) ([]*models.Article, error)

	// ListCompletedUnlinked returns articles whose generation finished but
	// that the reconciler has not yet linked.
	ListCompletedUnlinked(ctx context.Context, workflowID, organizationID string) ([]*models.Article, error)
	MarkLinked(ctx context.Context, articleID, organizationID string) error
}

type KeywordRepository interface {
	Save(ctx context.Context, keyword *models.Keyword) error
	ListByWorkflow(ctx context.Context, workflowID, organizationID string) ([]*models.Keyword, error)
}
