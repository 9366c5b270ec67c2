package models

import "time"

// ActorSystem identifies transitions driven by the automation pipeline
// rather than a human.
const ActorSystem = "system"

// TransitionRecord is one immutable row of the audit trail. Records are
// appended once per successful transition and never updated or deleted.
type TransitionRecord struct {
	ID             string         `json:"id"`
	WorkflowID     string         `json:"workflow_id"`
	OrganizationID string         `json:"organization_id"`
	PreviousState  State          `json:"previous_state"`
	NewState       State          `json:"new_state"`
	Reason         string         `json:"reason"`
	Actor          string         `json:"actor"`
	Forced         bool           `json:"forced"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// StateDuration is the derived dwell time in one state, computed by diffing
// consecutive audit timestamps.
type StateDuration struct {
	State     State         `json:"state"`
	EnteredAt time.Time     `json:"entered_at"`
	Duration  time.Duration `json:"duration"`
	// Current marks the state the workflow is still in; Duration then
	// measures up to the query time.
	Current bool `json:"current"`
}

// FunnelStep aggregates workflow counts for one pipeline step within a
// date range.
type FunnelStep struct {
	State       State   `json:"state"`
	Entered     int     `json:"entered"`
	DropOffRate float64 `json:"drop_off_rate"`
}
