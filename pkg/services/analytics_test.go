package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoforge/intent-engine/pkg/models"
	"github.com/seoforge/intent-engine/pkg/persistence/memory"
)

func appendRecord(t *testing.T, store *memory.Persistence, workflowID string, prev, next models.State, at time.Time) {
	t.Helper()

	err := store.AuditRepository().Append(t.Context(), &models.TransitionRecord{
		WorkflowID:     workflowID,
		OrganizationID: testOrg,
		PreviousState:  prev,
		NewState:       next,
		Actor:          models.ActorSystem,
		CreatedAt:      at,
	})
	require.NoError(t, err)
}

func TestGetStateDurations_DiffsConsecutiveTimestamps(t *testing.T) {
	store := memory.NewPersistence()
	analytics := NewAnalytics(store)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	analytics.now = func() time.Time { return base.Add(90 * time.Minute) }

	appendRecord(t, store, "wf-1", models.StateStep1ICP, models.StateStep2Competitors, base)
	appendRecord(t, store, "wf-1", models.StateStep2Competitors, models.StateStep3SeedsRunning, base.Add(10*time.Minute))
	appendRecord(t, store, "wf-1", models.StateStep3SeedsRunning, models.StateStep3Seeds, base.Add(40*time.Minute))

	durations, err := analytics.GetStateDurations(t.Context(), "wf-1", testOrg)
	require.NoError(t, err)
	require.Len(t, durations, 3)

	assert.Equal(t, models.StateStep2Competitors, durations[0].State)
	assert.Equal(t, 10*time.Minute, durations[0].Duration)
	assert.False(t, durations[0].Current)

	assert.Equal(t, models.StateStep3SeedsRunning, durations[1].State)
	assert.Equal(t, 30*time.Minute, durations[1].Duration)

	assert.Equal(t, models.StateStep3Seeds, durations[2].State)
	assert.Equal(t, 50*time.Minute, durations[2].Duration)
	assert.True(t, durations[2].Current)
}

func TestGetStateDurations_SkipsDecisionEntries(t *testing.T) {
	store := memory.NewPersistence()
	analytics := NewAnalytics(store)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	analytics.now = func() time.Time { return base.Add(time.Hour) }

	appendRecord(t, store, "wf-1", models.StateStep2Competitors, models.StateStep3Seeds, base)
	// Approval decision entry: no state motion, must not split the dwell.
	appendRecord(t, store, "wf-1", models.StateStep3Seeds, models.StateStep3Seeds, base.Add(20*time.Minute))
	appendRecord(t, store, "wf-1", models.StateStep3Seeds, models.StateStep4Longtails, base.Add(30*time.Minute))

	durations, err := analytics.GetStateDurations(t.Context(), "wf-1", testOrg)
	require.NoError(t, err)
	require.Len(t, durations, 2)

	assert.Equal(t, models.StateStep3Seeds, durations[0].State)
	assert.Equal(t, 30*time.Minute, durations[0].Duration)
}

func TestGetStateDurations_EmptyHistory(t *testing.T) {
	store := memory.NewPersistence()
	analytics := NewAnalytics(store)

	durations, err := analytics.GetStateDurations(t.Context(), "wf-1", testOrg)
	require.NoError(t, err)
	assert.Empty(t, durations)
}

func TestGetFunnelAnalytics_CountsAndDropOff(t *testing.T) {
	store := memory.NewPersistence()
	analytics := NewAnalytics(store)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Four workflows reach step 2, two reach step 3 (one only as the
	// running substate), one reaches step 4.
	for _, id := range []string{"wf-1", "wf-2", "wf-3", "wf-4"} {
		appendRecord(t, store, id, models.StateStep1ICP, models.StateStep2Competitors, base.Add(time.Hour))
	}

	appendRecord(t, store, "wf-1", models.StateStep2Competitors, models.StateStep3SeedsRunning, base.Add(2*time.Hour))
	appendRecord(t, store, "wf-1", models.StateStep3SeedsRunning, models.StateStep3Seeds, base.Add(3*time.Hour))
	appendRecord(t, store, "wf-2", models.StateStep2Competitors, models.StateStep3SeedsRunning, base.Add(2*time.Hour))
	appendRecord(t, store, "wf-1", models.StateStep3Seeds, models.StateStep4Longtails, base.Add(4*time.Hour))

	funnel, err := analytics.GetFunnelAnalytics(t.Context(), testOrg, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, funnel, 9)

	assert.Equal(t, models.StateStep2Competitors, funnel[1].State)
	assert.Equal(t, 4, funnel[1].Entered)

	// Running substates fold into their canonical step.
	assert.Equal(t, 2, funnel[2].Entered)
	assert.InDelta(t, 0.5, funnel[2].DropOffRate, 1e-9)

	assert.Equal(t, 1, funnel[3].Entered)
	assert.InDelta(t, 0.5, funnel[3].DropOffRate, 1e-9)

	// No workflow reached step 5 onward.
	for step := 4; step < 9; step++ {
		assert.Equal(t, 0, funnel[step].Entered)
	}
}

func TestGetFunnelAnalytics_RangeExcludesOutsideRecords(t *testing.T) {
	store := memory.NewPersistence()
	analytics := NewAnalytics(store)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	appendRecord(t, store, "wf-old", models.StateStep1ICP, models.StateStep2Competitors, base.Add(-48*time.Hour))
	appendRecord(t, store, "wf-new", models.StateStep1ICP, models.StateStep2Competitors, base.Add(time.Hour))

	funnel, err := analytics.GetFunnelAnalytics(t.Context(), testOrg, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, funnel[1].Entered)
}
