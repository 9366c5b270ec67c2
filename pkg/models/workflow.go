package models

import "time"

// Workflow represents one tenant's run through the intent pipeline. The
// State field only ever changes through the transition engine; artifact
// blobs are attached by the pipeline workers as their stage completes.
type Workflow struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id" validate:"required"`
	Name           string    `json:"name"            validate:"required,min=3"`
	State          State     `json:"state"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Pipeline artifacts, accumulated as the run progresses. Opaque to the
	// transition engine; validated against per-stage schemas on attach.
	ICPDocument        map[string]any `json:"icp_document,omitempty"`
	CompetitorAnalysis map[string]any `json:"competitor_analysis,omitempty"`
	SeedKeywords       map[string]any `json:"seed_keywords,omitempty"`
	TopicClusters      map[string]any `json:"topic_clusters,omitempty"`
	ValidationResults  map[string]any `json:"validation_results,omitempty"`
}
