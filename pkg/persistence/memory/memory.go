// Package memory provides an in-memory persistence implementation for tests
// and local development. A single mutex stands in for the row-level
// atomicity the SQL store provides, so compare-and-swap semantics hold
// under concurrent use.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/seoforge/intent-engine/pkg/models"
	"github.com/seoforge/intent-engine/pkg/persistence"
)

// Persistence implements persistence.Persistence backed by process memory.
// Reset returns it to a blank state between test cases.
type Persistence struct {
	mu sync.Mutex

	workflows map[string]*models.Workflow
	audit     []*models.TransitionRecord
	approvals map[string]*models.Approval // keyed by workflowID + "/" + type
	articles  map[string]*models.Article
	keywords  map[string]*models.Keyword

	// runningSince tracks when a workflow entered a running substate, for
	// the stuck-workflow sweep.
	runningSince map[string]time.Time
}

func NewPersistence() *Persistence {
	p := &Persistence{}
	p.Reset()

	return p
}

// Reset clears all stored state. Tests call this between cases.
func (p *Persistence) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.workflows = make(map[string]*models.Workflow)
	p.audit = nil
	p.approvals = make(map[string]*models.Approval)
	p.articles = make(map[string]*models.Article)
	p.keywords = make(map[string]*models.Keyword)
	p.runningSince = make(map[string]time.Time)
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return &workflowRepository{p: p}
}

func (p *Persistence) AuditRepository() persistence.AuditRepository {
	return &auditRepository{p: p}
}

func (p *Persistence) ApprovalRepository() persistence.ApprovalRepository {
	return &approvalRepository{p: p}
}

func (p *Persistence) ArticleRepository() persistence.ArticleRepository {
	return &articleRepository{p: p}
}

func (p *Persistence) KeywordRepository() persistence.KeywordRepository {
	return &keywordRepository{p: p}
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func isRunning(s models.State) bool {
	return s == models.StateStep3SeedsRunning || s == models.StateStep8SubtopicsRunning
}

type workflowRepository struct {
	p *Persistence
}

func (r *workflowRepository) Create(_ context.Context, workflow *models.Workflow) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, exists := r.p.workflows[workflow.ID]; exists {
		return persistence.NewWorkflowError("Create", workflow.ID, persistence.ErrDuplicateWorkflow)
	}

	clone := *workflow
	r.p.workflows[workflow.ID] = &clone

	return nil
}

func (r *workflowRepository) GetByID(_ context.Context, id, organizationID string) (*models.Workflow, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	workflow, ok := r.p.workflows[id]
	if !ok || workflow.OrganizationID != organizationID {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	clone := *workflow

	return &clone, nil
}

func (r *workflowRepository) CompareAndSwapState(_ context.Context, id, organizationID string, from, to models.State) (bool, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	workflow, ok := r.p.workflows[id]
	if !ok || workflow.OrganizationID != organizationID {
		return false, persistence.NewWorkflowError("CompareAndSwapState", id, persistence.ErrWorkflowNotFound)
	}

	if workflow.State != from {
		return false, nil
	}

	workflow.State = to
	workflow.UpdatedAt = time.Now().UTC()

	if isRunning(to) {
		r.p.runningSince[id] = workflow.UpdatedAt
	} else {
		delete(r.p.runningSince, id)
	}

	return true, nil
}

func (r *workflowRepository) ForceSetState(_ context.Context, id, organizationID string, to models.State) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	workflow, ok := r.p.workflows[id]
	if !ok || workflow.OrganizationID != organizationID {
		return persistence.NewWorkflowError("ForceSetState", id, persistence.ErrWorkflowNotFound)
	}

	workflow.State = to
	workflow.UpdatedAt = time.Now().UTC()
	delete(r.p.runningSince, id)

	return nil
}

func (r *workflowRepository) UpdateArtifacts(_ context.Context, workflow *models.Workflow) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	stored, ok := r.p.workflows[workflow.ID]
	if !ok || stored.OrganizationID != workflow.OrganizationID {
		return persistence.NewWorkflowError("UpdateArtifacts", workflow.ID, persistence.ErrWorkflowNotFound)
	}

	stored.ICPDocument = workflow.ICPDocument
	stored.CompetitorAnalysis = workflow.CompetitorAnalysis
	stored.SeedKeywords = workflow.SeedKeywords
	stored.TopicClusters = workflow.TopicClusters
	stored.ValidationResults = workflow.ValidationResults
	stored.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *workflowRepository) ListStuckRunning(_ context.Context, olderThan time.Duration) ([]*models.Workflow, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)

	var stuck []*models.Workflow

	for id, since := range r.p.runningSince {
		if since.Before(cutoff) {
			clone := *r.p.workflows[id]
			stuck = append(stuck, &clone)
		}
	}

	sort.Slice(stuck, func(i, j int) bool { return stuck[i].ID < stuck[j].ID })

	return stuck, nil
}

type auditRepository struct {
	p *Persistence
}

func (r *auditRepository) Append(_ context.Context, record *models.TransitionRecord) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	clone := *record
	r.p.audit = append(r.p.audit, &clone)

	return nil
}

func (r *auditRepository) ListByWorkflow(_ context.Context, workflowID, organizationID string) ([]*models.TransitionRecord, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var records []*models.TransitionRecord

	for _, record := range r.p.audit {
		if record.WorkflowID == workflowID && record.OrganizationID == organizationID {
			clone := *record
			records = append(records, &clone)
		}
	}

	return records, nil
}

func (r *auditRepository) CountEnteredByState(_ context.Context, organizationID string, from, to time.Time) (map[models.State]int, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	// Count each workflow at most once per state.
	seen := make(map[string]bool)
	counts := make(map[models.State]int)

	for _, record := range r.p.audit {
		if record.OrganizationID != organizationID {
			continue
		}

		if record.CreatedAt.Before(from) || record.CreatedAt.After(to) {
			continue
		}

		key := record.WorkflowID + "/" + string(record.NewState)
		if seen[key] {
			continue
		}

		seen[key] = true
		counts[record.NewState]++
	}

	return counts, nil
}

type approvalRepository struct {
	p *Persistence
}

func approvalKey(workflowID string, approvalType models.ApprovalType) string {
	return workflowID + "/" + string(approvalType)
}

func (r *approvalRepository) Upsert(_ context.Context, approval *models.Approval) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	key := approvalKey(approval.WorkflowID, approval.Type)

	if existing, ok := r.p.approvals[key]; ok {
		approval.ID = existing.ID
	}

	clone := *approval
	r.p.approvals[key] = &clone

	return nil
}

func (r *approvalRepository) GetByWorkflowAndType(_ context.Context, workflowID, organizationID string, approvalType models.ApprovalType) (*models.Approval, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	approval, ok := r.p.approvals[approvalKey(workflowID, approvalType)]
	if !ok || approval.OrganizationID != organizationID {
		return nil, persistence.ErrApprovalNotFound
	}

	clone := *approval

	return &clone, nil
}

type articleRepository struct {
	p *Persistence
}

func (r *articleRepository) Create(_ context.Context, article *models.Article) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	clone := *article
	r.p.articles[article.ID] = &clone

	return nil
}

func (r *articleRepository) ListByWorkflow(_ context.Context, workflowID, organizationID string) ([]*models.Article, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return r.listLocked(workflowID, organizationID, false), nil
}

func (r *articleRepository) ListCompletedUnlinked(_ context.Context, workflowID, organizationID string) ([]*models.Article, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return r.listLocked(workflowID, organizationID, true), nil
}

func (r *articleRepository) listLocked(workflowID, organizationID string, completedUnlinkedOnly bool) []*models.Article {
	var articles []*models.Article

	for _, article := range r.p.articles {
		if article.WorkflowID != workflowID || article.OrganizationID != organizationID {
			continue
		}

		if completedUnlinkedOnly &&
			(article.GenerationStatus != models.GenerationCompleted || article.LinkStatus != models.LinkStatusUnlinked) {
			continue
		}

		clone := *article
		articles = append(articles, &clone)
	}

	sort.Slice(articles, func(i, j int) bool { return articles[i].ID < articles[j].ID })

	return articles
}

func (r *articleRepository) MarkLinked(_ context.Context, articleID, organizationID string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	article, ok := r.p.articles[articleID]
	if !ok || article.OrganizationID != organizationID {
		return persistence.ErrArticleNotFound
	}

	article.LinkStatus = models.LinkStatusLinked
	article.UpdatedAt = time.Now().UTC()

	return nil
}

type keywordRepository struct {
	p *Persistence
}

func (r *keywordRepository) Save(_ context.Context, keyword *models.Keyword) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	clone := *keyword
	r.p.keywords[keyword.ID] = &clone

	return nil
}

func (r *keywordRepository) ListByWorkflow(_ context.Context, workflowID, organizationID string) ([]*models.Keyword, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var keywords []*models.Keyword

	for _, keyword := range r.p.keywords {
		if keyword.WorkflowID == workflowID && keyword.OrganizationID == organizationID {
			clone := *keyword
			keywords = append(keywords, &clone)
		}
	}

	sort.Slice(keywords, func(i, j int) bool { return keywords[i].ID < keywords[j].ID })

	return keywords, nil
}
