//go:build integration
// +build integration

package postgresql

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/seoforge/intent-engine/pkg/models"
	"github.com/seoforge/intent-engine/pkg/persistence"
)

var postgresContainer *postgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()

	if postgresContainer != nil {
		_ = postgresContainer.Terminate(context.Background())
	}

	os.Exit(code)
}

func setupTestDB(t *testing.T) (*Persistence, context.Context) {
	ctx := context.Background()

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error
		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("intent_engine_test"),
			postgres.WithUsername("intent"),
			postgres.WithPassword("intent"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	cleanupDB(t, databaseURL)

	t.Cleanup(func() { _ = store.Close(ctx) })

	return store, ctx
}

func cleanupDB(t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer db.Close()

	_, err = db.Exec("TRUNCATE TABLE workflows, workflow_transitions, workflow_approvals, articles, keywords")
	require.NoError(t, err)
}

func createWorkflow(t *testing.T, ctx context.Context, store *Persistence, state models.State) *models.Workflow {
	t.Helper()

	workflow := &models.Workflow{
		OrganizationID: "org-1",
		Name:           "Integration Pipeline",
		State:          state,
	}
	require.NoError(t, store.WorkflowRepository().Create(ctx, workflow))

	return workflow
}

func TestWorkflowLifecycle(t *testing.T) {
	store, ctx := setupTestDB(t)

	created := createWorkflow(t, ctx, store, models.StateStep1ICP)
	require.NotEmpty(t, created.ID)

	fetched, err := store.WorkflowRepository().GetByID(ctx, created.ID, "org-1")
	require.NoError(t, err)
	assert.Equal(t, models.StateStep1ICP, fetched.State)

	_, err = store.WorkflowRepository().GetByID(ctx, created.ID, "org-other")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestCompareAndSwapState(t *testing.T) {
	store, ctx := setupTestDB(t)
	repo := store.WorkflowRepository()

	created := createWorkflow(t, ctx, store, models.StateStep1ICP)

	swapped, err := repo.CompareAndSwapState(ctx, created.ID, "org-1",
		models.StateStep1ICP, models.StateStep2Competitors)
	require.NoError(t, err)
	assert.True(t, swapped)

	// Stale from value: zero rows, reported as a lost race.
	swapped, err = repo.CompareAndSwapState(ctx, created.ID, "org-1",
		models.StateStep1ICP, models.StateStep2Competitors)
	require.NoError(t, err)
	assert.False(t, swapped)

	// Missing row is a hard not-found, distinguishable from the race.
	_, err = repo.CompareAndSwapState(ctx, "00000000-0000-0000-0000-000000000000", "org-1",
		models.StateStep1ICP, models.StateStep2Competitors)
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestAuditAppendAndList(t *testing.T) {
	store, ctx := setupTestDB(t)

	created := createWorkflow(t, ctx, store, models.StateStep1ICP)

	records := []*models.TransitionRecord{
		{
			WorkflowID:     created.ID,
			OrganizationID: "org-1",
			PreviousState:  models.StateStep1ICP,
			NewState:       models.StateStep2Competitors,
			Reason:         "icp done",
			Actor:          "system",
		},
		{
			WorkflowID:     created.ID,
			OrganizationID: "org-1",
			PreviousState:  models.StateStep2Competitors,
			NewState:       models.StateStep3SeedsRunning,
			Actor:          "system",
			Metadata:       map[string]any{"worker": "seeds-1"},
		},
	}

	for _, record := range records {
		require.NoError(t, store.AuditRepository().Append(ctx, record))
	}

	listed, err := store.AuditRepository().ListByWorkflow(ctx, created.ID, "org-1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, models.StateStep2Competitors, listed[0].NewState)
	assert.Equal(t, "seeds-1", listed[1].Metadata["worker"])

	counts, err := store.AuditRepository().CountEnteredByState(ctx, "org-1",
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.StateStep2Competitors])
}

func TestApprovalUpsertConflict(t *testing.T) {
	store, ctx := setupTestDB(t)

	created := createWorkflow(t, ctx, store, models.StateStep3Seeds)

	repo := store.ApprovalRepository()

	require.NoError(t, repo.Upsert(ctx, &models.Approval{
		WorkflowID:     created.ID,
		OrganizationID: "org-1",
		Type:           models.ApprovalTypeSeeds,
		Decision:       models.DecisionRejected,
		ApproverID:     "admin-1",
		ResetToStep:    1,
	}))

	require.NoError(t, repo.Upsert(ctx, &models.Approval{
		WorkflowID:     created.ID,
		OrganizationID: "org-1",
		Type:           models.ApprovalTypeSeeds,
		Decision:       models.DecisionApproved,
		ApproverID:     "admin-1",
	}))

	stored, err := repo.GetByWorkflowAndType(ctx, created.ID, "org-1", models.ApprovalTypeSeeds)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionApproved, stored.Decision)
}

func TestArticleLinking(t *testing.T) {
	store, ctx := setupTestDB(t)

	created := createWorkflow(t, ctx, store, models.StateStep9Articles)

	repo := store.ArticleRepository()

	article := &models.Article{
		WorkflowID:       created.ID,
		OrganizationID:   "org-1",
		Title:            "SEO Audit Checklist",
		GenerationStatus: models.GenerationCompleted,
		LinkStatus:       models.LinkStatusUnlinked,
	}
	require.NoError(t, repo.Create(ctx, article))

	unlinked, err := repo.ListCompletedUnlinked(ctx, created.ID, "org-1")
	require.NoError(t, err)
	require.Len(t, unlinked, 1)

	require.NoError(t, repo.MarkLinked(ctx, article.ID, "org-1"))

	unlinked, err = repo.ListCompletedUnlinked(ctx, created.ID, "org-1")
	require.NoError(t, err)
	assert.Empty(t, unlinked)

	err = repo.MarkLinked(ctx, "00000000-0000-0000-0000-000000000000", "org-1")
	assert.ErrorIs(t, err, persistence.ErrArticleNotFound)
}

func TestListStuckRunning(t *testing.T) {
	store, ctx := setupTestDB(t)
	repo := store.WorkflowRepository()

	created := createWorkflow(t, ctx, store, models.StateStep2Competitors)

	swapped, err := repo.CompareAndSwapState(ctx, created.ID, "org-1",
		models.StateStep2Competitors, models.StateStep3SeedsRunning)
	require.NoError(t, err)
	require.True(t, swapped)

	stuck, err := repo.ListStuckRunning(ctx, 0)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, created.ID, stuck[0].ID)

	stuck, err = repo.ListStuckRunning(ctx, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, stuck)
}
