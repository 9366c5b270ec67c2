package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoforge/intent-engine/pkg/models"
	"github.com/seoforge/intent-engine/pkg/persistence"
)

func seed(t *testing.T, p *Persistence, id string, state models.State) {
	t.Helper()

	err := p.WorkflowRepository().Create(t.Context(), &models.Workflow{
		ID:             id,
		OrganizationID: "org-1",
		Name:           "Test Pipeline",
		State:          state,
	})
	require.NoError(t, err)
}

func TestCompareAndSwapState_ExactlyOneWinner(t *testing.T) {
	p := NewPersistence()
	seed(t, p, "wf-1", models.StateStep1ICP)

	repo := p.WorkflowRepository()

	const callers = 32

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)

	for range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			swapped, err := repo.CompareAndSwapState(t.Context(), "wf-1", "org-1",
				models.StateStep1ICP, models.StateStep2Competitors)
			require.NoError(t, err)

			if swapped {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestCompareAndSwapState_NotFoundVersusLostRace(t *testing.T) {
	p := NewPersistence()
	seed(t, p, "wf-1", models.StateStep2Competitors)

	repo := p.WorkflowRepository()

	// Wrong from state: a lost race, not an error.
	swapped, err := repo.CompareAndSwapState(t.Context(), "wf-1", "org-1",
		models.StateStep1ICP, models.StateStep2Competitors)
	require.NoError(t, err)
	assert.False(t, swapped)

	// Missing workflow and foreign tenant are both hard not-found errors.
	_, err = repo.CompareAndSwapState(t.Context(), "missing", "org-1",
		models.StateStep1ICP, models.StateStep2Competitors)
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	_, err = repo.CompareAndSwapState(t.Context(), "wf-1", "org-other",
		models.StateStep2Competitors, models.StateStep3SeedsRunning)
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestCreate_DuplicateRejected(t *testing.T) {
	p := NewPersistence()
	seed(t, p, "wf-1", models.StateStep1ICP)

	err := p.WorkflowRepository().Create(t.Context(), &models.Workflow{
		ID:             "wf-1",
		OrganizationID: "org-1",
		State:          models.StateStep1ICP,
	})
	assert.ErrorIs(t, err, persistence.ErrDuplicateWorkflow)
}

func TestListStuckRunning(t *testing.T) {
	p := NewPersistence()
	seed(t, p, "wf-1", models.StateStep2Competitors)
	seed(t, p, "wf-2", models.StateStep2Competitors)

	repo := p.WorkflowRepository()

	swapped, err := repo.CompareAndSwapState(t.Context(), "wf-1", "org-1",
		models.StateStep2Competitors, models.StateStep3SeedsRunning)
	require.NoError(t, err)
	require.True(t, swapped)

	// Zero threshold makes a just-entered running substate already stale.
	time.Sleep(5 * time.Millisecond)

	stuck, err := repo.ListStuckRunning(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, "wf-1", stuck[0].ID)

	// Leaving the running substate clears the tracking.
	swapped, err = repo.CompareAndSwapState(t.Context(), "wf-1", "org-1",
		models.StateStep3SeedsRunning, models.StateStep3Seeds)
	require.NoError(t, err)
	require.True(t, swapped)

	stuck, err = repo.ListStuckRunning(t.Context(), 0)
	require.NoError(t, err)
	assert.Empty(t, stuck)
}

func TestApprovalUpsert_PreservesIDPerCheckpoint(t *testing.T) {
	p := NewPersistence()
	repo := p.ApprovalRepository()

	first := &models.Approval{
		ID:             "ap-1",
		WorkflowID:     "wf-1",
		OrganizationID: "org-1",
		Type:           models.ApprovalTypeSeeds,
		Decision:       models.DecisionRejected,
	}
	require.NoError(t, repo.Upsert(t.Context(), first))

	second := &models.Approval{
		ID:             "ap-2",
		WorkflowID:     "wf-1",
		OrganizationID: "org-1",
		Type:           models.ApprovalTypeSeeds,
		Decision:       models.DecisionApproved,
	}
	require.NoError(t, repo.Upsert(t.Context(), second))

	stored, err := repo.GetByWorkflowAndType(t.Context(), "wf-1", "org-1", models.ApprovalTypeSeeds)
	require.NoError(t, err)
	assert.Equal(t, "ap-1", stored.ID)
	assert.Equal(t, models.DecisionApproved, stored.Decision)

	// A different checkpoint gets its own row.
	subtopics := &models.Approval{
		ID:             "ap-3",
		WorkflowID:     "wf-1",
		OrganizationID: "org-1",
		Type:           models.ApprovalTypeSubtopics,
		Decision:       models.DecisionApproved,
	}
	require.NoError(t, repo.Upsert(t.Context(), subtopics))

	stored, err = repo.GetByWorkflowAndType(t.Context(), "wf-1", "org-1", models.ApprovalTypeSubtopics)
	require.NoError(t, err)
	assert.Equal(t, "ap-3", stored.ID)
}

func TestCountEnteredByState_DedupesPerWorkflow(t *testing.T) {
	p := NewPersistence()
	repo := p.AuditRepository()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	records := []*models.TransitionRecord{
		{WorkflowID: "wf-1", OrganizationID: "org-1", PreviousState: models.StateStep1ICP, NewState: models.StateStep2Competitors, CreatedAt: base},
		// Same workflow re-enters after a rejection reset; counted once.
		{WorkflowID: "wf-1", OrganizationID: "org-1", PreviousState: models.StateStep3Seeds, NewState: models.StateStep2Competitors, CreatedAt: base.Add(time.Hour)},
		{WorkflowID: "wf-2", OrganizationID: "org-1", PreviousState: models.StateStep1ICP, NewState: models.StateStep2Competitors, CreatedAt: base},
		{WorkflowID: "wf-3", OrganizationID: "org-2", PreviousState: models.StateStep1ICP, NewState: models.StateStep2Competitors, CreatedAt: base},
	}

	for _, record := range records {
		require.NoError(t, repo.Append(t.Context(), record))
	}

	counts, err := repo.CountEnteredByState(t.Context(), "org-1", base.Add(-time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.StateStep2Competitors])
}
