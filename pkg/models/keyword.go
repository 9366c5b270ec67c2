package models

import "time"

// LongtailStatus tracks a keyword through the longtail expansion and
// filtering stages.
type LongtailStatus string

const (
	LongtailPending  LongtailStatus = "pending"
	LongtailExpanded LongtailStatus = "expanded"
	LongtailFiltered LongtailStatus = "filtered"
	LongtailDropped  LongtailStatus = "dropped"
)

// Keyword is a seed or longtail keyword owned by a workflow. Its status is
// mutated by the pipeline stages independently of workflow-state
// transitions.
type Keyword struct {
	ID             string         `json:"id"`
	WorkflowID     string         `json:"workflow_id"`
	OrganizationID string         `json:"organization_id"`
	Phrase         string         `json:"phrase"`
	Seed           bool           `json:"seed"`
	LongtailStatus LongtailStatus `json:"longtail_status"`
	SearchVolume   int            `json:"search_volume,omitempty"`
	ClusterID      string         `json:"cluster_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
