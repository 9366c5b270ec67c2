// Package models defines the core domain models for the intent pipeline state machine.
package models

// State represents one named stage in the fixed content-pipeline sequence.
type State string

const (
	StateStep1ICP         State = "step_1_icp"
	StateStep2Competitors State = "step_2_competitors"
	// StateStep3SeedsRunning is held while the seed-generation worker is still
	// producing reviewable output; the approval gate accepts it as equivalent
	// to StateStep3Seeds so a fast reviewer does not race the dispatcher.
	StateStep3SeedsRunning     State = "step_3_seeds_running"
	StateStep3Seeds            State = "step_3_seeds"
	StateStep4Longtails        State = "step_4_longtails"
	StateStep5Filtering        State = "step_5_filtering"
	StateStep6Clustering       State = "step_6_clustering"
	StateStep7Validation       State = "step_7_validation"
	StateStep8SubtopicsRunning State = "step_8_subtopics_running"
	StateStep8Subtopics        State = "step_8_subtopics"
	StateStep9Articles         State = "step_9_articles"
	StateCompleted             State = "completed"
	StateFailed                State = "failed"
)

// stepStates maps canonical step numbers to their review/pending state.
// Reset targets for human rejections resolve through this table.
var stepStates = map[int]State{
	1: StateStep1ICP,
	2: StateStep2Competitors,
	3: StateStep3Seeds,
	4: StateStep4Longtails,
	5: StateStep5Filtering,
	6: StateStep6Clustering,
	7: StateStep7Validation,
	8: StateStep8Subtopics,
	9: StateStep9Articles,
}

// stepNumbers is the inverse of stepStates, with running substates mapped to
// their canonical step.
var stepNumbers = map[State]int{
	StateStep1ICP:              1,
	StateStep2Competitors:      2,
	StateStep3SeedsRunning:     3,
	StateStep3Seeds:            3,
	StateStep4Longtails:        4,
	StateStep5Filtering:        5,
	StateStep6Clustering:       6,
	StateStep7Validation:       7,
	StateStep8SubtopicsRunning: 8,
	StateStep8Subtopics:        8,
	StateStep9Articles:         9,
}

// adjacency is the full legal-transition relation. Each non-terminal,
// non-boundary state has exactly one forward edge. The two human-boundary
// states (and their running substates) additionally carry the reset edges
// used by the rejection path; nothing else in the system may move backward.
var adjacency = map[State][]State{
	StateStep1ICP:         {StateStep2Competitors},
	StateStep2Competitors: {StateStep3SeedsRunning},
	StateStep3SeedsRunning: {
		StateStep3Seeds,
		StateStep4Longtails,
		StateStep1ICP,
		StateStep2Competitors,
	},
	StateStep3Seeds: {
		StateStep4Longtails,
		StateStep1ICP,
		StateStep2Competitors,
	},
	StateStep4Longtails:  {StateStep5Filtering},
	StateStep5Filtering:  {StateStep6Clustering},
	StateStep6Clustering: {StateStep7Validation},
	StateStep7Validation: {StateStep8SubtopicsRunning},
	StateStep8SubtopicsRunning: {
		StateStep8Subtopics,
		StateStep9Articles,
		StateStep1ICP,
		StateStep2Competitors,
		StateStep3Seeds,
		StateStep4Longtails,
		StateStep5Filtering,
		StateStep6Clustering,
		StateStep7Validation,
	},
	StateStep8Subtopics: {
		StateStep9Articles,
		StateStep1ICP,
		StateStep2Competitors,
		StateStep3Seeds,
		StateStep4Longtails,
		StateStep5Filtering,
		StateStep6Clustering,
		StateStep7Validation,
	},
	StateStep9Articles: {StateCompleted},
	StateCompleted:     {},
	StateFailed:        {},
}

var terminalStates = map[State]bool{
	StateCompleted: true,
	StateFailed:    true,
}

// humanBoundaryStates are the states at which the pipeline pauses for an
// organization admin. Running substates are included so approvals submitted
// before the worker's final transition lands are still accepted.
var humanBoundaryStates = map[State]bool{
	StateStep3Seeds:            true,
	StateStep3SeedsRunning:     true,
	StateStep8Subtopics:        true,
	StateStep8SubtopicsRunning: true,
}

// AllStates returns every state in the catalog in pipeline order.
func AllStates() []State {
	return []State{
		StateStep1ICP,
		StateStep2Competitors,
		StateStep3SeedsRunning,
		StateStep3Seeds,
		StateStep4Longtails,
		StateStep5Filtering,
		StateStep6Clustering,
		StateStep7Validation,
		StateStep8SubtopicsRunning,
		StateStep8Subtopics,
		StateStep9Articles,
		StateCompleted,
		StateFailed,
	}
}

// IsValid reports whether s is part of the catalog. Anything outside the
// catalog is illegal by definition.
func (s State) IsValid() bool {
	_, ok := adjacency[s]

	return ok
}

// IsTerminal reports whether s permits no outbound transitions.
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsHumanBoundary reports whether s is one of the approval checkpoints
// (or a running substate of one).
func (s State) IsHumanBoundary() bool {
	return humanBoundaryStates[s]
}

// StepNumber returns the canonical 1-9 step number for s, or 0 for the
// terminal states.
func (s State) StepNumber() int {
	return stepNumbers[s]
}

func (s State) String() string {
	return string(s)
}

// NextStates returns the legal targets from s. Terminal and unknown states
// yield an empty slice.
func NextStates(s State) []State {
	next := adjacency[s]
	out := make([]State, len(next))
	copy(out, next)

	return out
}

// IsLegalTransition reports whether the edge from -> to exists in the
// adjacency table. States outside the catalog fail closed.
func IsLegalTransition(from, to State) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}

	for _, next := range adjacency[from] {
		if next == to {
			return true
		}
	}

	return false
}

// StateForStep resolves a canonical step number to its review/pending state.
func StateForStep(step int) (State, bool) {
	state, ok := stepStates[step]

	return state, ok
}

// IsValidResetTarget reports whether a rejection at boundary state from may
// reset the workflow to the given step. Targets must be strictly earlier
// than the boundary's own step; terminal states and forward skips are never
// reachable this way.
func IsValidResetTarget(from State, step int) bool {
	if !from.IsHumanBoundary() {
		return false
	}

	target, ok := stepStates[step]
	if !ok || target.IsTerminal() {
		return false
	}

	return step < from.StepNumber()
}
