package services

import (
	"context"
	"time"

	"github.com/seoforge/intent-engine/pkg/models"
	"github.com/seoforge/intent-engine/pkg/persistence"
)

// Analytics derives read-only views over the audit trail. Everything here
// is pure computation on the transition log; there is no separate timer or
// counter state anywhere.
type Analytics struct {
	persistence persistence.Persistence

	// now is swappable so duration math is deterministic in tests.
	now func() time.Time
}

// NewAnalytics creates the audit analytics service.
func NewAnalytics(p persistence.Persistence) *Analytics {
	return &Analytics{
		persistence: p,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// GetTransitionHistory returns the workflow's ordered immutable history.
func (a *Analytics) GetTransitionHistory(ctx context.Context, workflowID, organizationID string) ([]*models.TransitionRecord, error) {
	return a.persistence.AuditRepository().ListByWorkflow(ctx, workflowID, organizationID)
}

// GetStateDurations derives per-state dwell time by diffing consecutive
// audit timestamps. The decision entries the approval gate writes (previous
// equals new) carry no state motion and are skipped.
func (a *Analytics) GetStateDurations(ctx context.Context, workflowID, organizationID string) ([]*models.StateDuration, error) {
	records, err := a.persistence.AuditRepository().ListByWorkflow(ctx, workflowID, organizationID)
	if err != nil {
		return nil, err
	}

	var durations []*models.StateDuration

	var (
		current   models.State
		enteredAt time.Time
		active    bool
	)

	for _, record := range records {
		if record.PreviousState == record.NewState {
			continue
		}

		if active {
			durations = append(durations, &models.StateDuration{
				State:     current,
				EnteredAt: enteredAt,
				Duration:  record.CreatedAt.Sub(enteredAt),
			})
		}

		current = record.NewState
		enteredAt = record.CreatedAt
		active = true
	}

	if active {
		durations = append(durations, &models.StateDuration{
			State:     current,
			EnteredAt: enteredAt,
			Duration:  a.now().Sub(enteredAt),
			Current:   true,
		})
	}

	return durations, nil
}

// GetFunnelAnalytics aggregates, per pipeline step, how many of the
// organization's workflows entered that step inside the range, and the
// drop-off rate from each step to the next.
func (a *Analytics) GetFunnelAnalytics(ctx context.Context, organizationID string, from, to time.Time) ([]*models.FunnelStep, error) {
	counts, err := a.persistence.AuditRepository().CountEnteredByState(ctx, organizationID, from, to)
	if err != nil {
		return nil, err
	}

	// Running substates fold into their canonical step.
	entered := make(map[int]int)

	for state, count := range counts {
		step := state.StepNumber()
		if step == 0 {
			continue
		}

		canonical, _ := models.StateForStep(step)
		if state == canonical || entered[step] < count {
			entered[step] = max(entered[step], count)
		}
	}

	var funnel []*models.FunnelStep

	for step := 1; step <= 9; step++ {
		state, _ := models.StateForStep(step)

		stepEntry := &models.FunnelStep{
			State:   state,
			Entered: entered[step],
		}

		if step > 1 {
			previous := entered[step-1]
			if previous > 0 {
				stepEntry.DropOffRate = 1 - float64(entered[step])/float64(previous)
				if stepEntry.DropOffRate < 0 {
					stepEntry.DropOffRate = 0
				}
			}
		}

		funnel = append(funnel, stepEntry)
	}

	return funnel, nil
}
