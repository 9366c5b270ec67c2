// Package automation holds the static worker-chaining graph: which event a
// completed pipeline step should emit to resume the run.
package automation

import (
	"github.com/seoforge/intent-engine/pkg/events"
	"github.com/seoforge/intent-engine/pkg/models"
)

// graph maps a completed-step event to the event emitted for the external
// dispatcher. Absence is meaningful: SEEDS_SUCCESS and SUBTOPICS_SUCCESS
// land the workflow on a human checkpoint and emit nothing, and no
// completion event may ever map to its own stage's trigger.
//
// ARTICLES_SUCCESS is the only key mapping to WORKFLOW_COMPLETED; losing or
// duplicating that entry breaks run completion outright.
var graph = map[events.CompletionEvent]events.EventType{
	events.ICPSuccess:         events.Step2CompetitorsTrigger,
	events.CompetitorsSuccess: events.Step3SeedsTrigger,
	events.SeedsApproved:      events.Step4LongtailsTrigger,
	events.LongtailSuccess:    events.Step5FilteringTrigger,
	events.FilteringSuccess:   events.Step6ClusteringTrigger,
	events.ClusteringSuccess:  events.Step7ValidationTrigger,
	events.ValidationSuccess:  events.Step8SubtopicsTrigger,
	events.SubtopicsApproved:  events.Step9ArticlesTrigger,
	events.ArticlesSuccess:    events.WorkflowCompletedEvent,
}

// targetStates maps each completion event to the workflow state it implies.
// This is what the transition engine moves the workflow to when the event
// arrives.
var targetStates = map[events.CompletionEvent]models.State{
	events.ICPSuccess:         models.StateStep2Competitors,
	events.CompetitorsSuccess: models.StateStep3SeedsRunning,
	events.SeedsSuccess:       models.StateStep3Seeds,
	events.SeedsApproved:      models.StateStep4Longtails,
	events.LongtailSuccess:    models.StateStep5Filtering,
	events.FilteringSuccess:   models.StateStep6Clustering,
	events.ClusteringSuccess:  models.StateStep7Validation,
	events.ValidationSuccess:  models.StateStep8SubtopicsRunning,
	events.SubtopicsSuccess:   models.StateStep8Subtopics,
	events.SubtopicsApproved:  models.StateStep9Articles,
	events.ArticlesSuccess:    models.StateCompleted,
}

// NextEvent returns the event to emit after completion, or false when the
// pipeline intentionally goes silent (human checkpoints).
func NextEvent(completed events.CompletionEvent) (events.EventType, bool) {
	next, ok := graph[completed]

	return next, ok
}

// TargetState returns the workflow state implied by a completion event.
// Unknown events yield false; callers must treat that as a bad request, not
// a default.
func TargetState(completed events.CompletionEvent) (models.State, bool) {
	state, ok := targetStates[completed]

	return state, ok
}

// CompletionEvents returns every known completion event.
func CompletionEvents() []events.CompletionEvent {
	out := make([]events.CompletionEvent, 0, len(targetStates))
	for ev := range targetStates {
		out = append(out, ev)
	}

	return out
}
