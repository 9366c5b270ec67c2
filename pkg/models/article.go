package models

import "time"

// ArticleGenerationStatus tracks the article worker's own progress. It is
// mutated by the generation stage, never by the transition engine.
type ArticleGenerationStatus string

const (
	GenerationPending   ArticleGenerationStatus = "pending"
	GenerationRunning   ArticleGenerationStatus = "running"
	GenerationCompleted ArticleGenerationStatus = "completed"
	GenerationFailed    ArticleGenerationStatus = "failed"
)

// ArticleLinkStatus tracks whether a generated article has been linked back
// to its workflow by the reconciler.
type ArticleLinkStatus string

const (
	LinkStatusUnlinked ArticleLinkStatus = "unlinked"
	LinkStatusLinked   ArticleLinkStatus = "linked"
)

// Article is a generated article owned by a workflow.
type Article struct {
	ID               string                  `json:"id"`
	WorkflowID       string                  `json:"workflow_id"`
	OrganizationID   string                  `json:"organization_id"`
	Title            string                  `json:"title"`
	SubtopicID       string                  `json:"subtopic_id,omitempty"`
	GenerationStatus ArticleGenerationStatus `json:"generation_status"`
	LinkStatus       ArticleLinkStatus       `json:"link_status"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}
