// Package events defines the pipeline signal vocabulary: the completion
// events workers report and the trigger events emitted for the dispatcher.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Kafka topic carrying all pipeline events.
const Topic = "intent.pipeline.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

// CompletionEvent is a step-completed signal reported by a pipeline worker
// or by the human approval gate. Completion events are inputs to the
// automation graph; they are never published on the bus themselves.
//
// There are deliberately no *_START events anywhere in this vocabulary: a
// retried worker re-emitting its own start signal once sent the pipeline
// into a loop, so start markers are excluded from the model entirely.
type CompletionEvent string

const (
	ICPSuccess         CompletionEvent = "ICP_SUCCESS"
	CompetitorsSuccess CompletionEvent = "COMPETITORS_SUCCESS"
	SeedsSuccess       CompletionEvent = "SEEDS_SUCCESS"
	SeedsApproved      CompletionEvent = "SEEDS_APPROVED"
	LongtailSuccess    CompletionEvent = "LONGTAIL_SUCCESS"
	FilteringSuccess   CompletionEvent = "FILTERING_SUCCESS"
	ClusteringSuccess  CompletionEvent = "CLUSTERING_SUCCESS"
	ValidationSuccess  CompletionEvent = "VALIDATION_SUCCESS"
	SubtopicsSuccess   CompletionEvent = "SUBTOPICS_SUCCESS"
	SubtopicsApproved  CompletionEvent = "SUBTOPICS_APPROVED"
	ArticlesSuccess    CompletionEvent = "ARTICLES_SUCCESS"
)

// EventType names an event published on the bus for the external
// dispatcher: either a stage trigger or the single completion emission.
type EventType string

const (
	Step2CompetitorsTrigger EventType = "intent.step2.competitors"
	Step3SeedsTrigger       EventType = "intent.step3.seeds"
	Step4LongtailsTrigger   EventType = "intent.step4.longtails"
	Step5FilteringTrigger   EventType = "intent.step5.filtering"
	Step6ClusteringTrigger  EventType = "intent.step6.clustering"
	Step7ValidationTrigger  EventType = "intent.step7.validation"
	Step8SubtopicsTrigger   EventType = "intent.step8.subtopics"
	Step9ArticlesTrigger    EventType = "intent.step9.articles"

	WorkflowCompletedEvent EventType = "WORKFLOW_COMPLETED"
)

// StepTriggers returns every stage-trigger event type, in pipeline order.
func StepTriggers() []EventType {
	return []EventType{
		Step2CompetitorsTrigger,
		Step3SeedsTrigger,
		Step4LongtailsTrigger,
		Step5FilteringTrigger,
		Step6ClusteringTrigger,
		Step7ValidationTrigger,
		Step8SubtopicsTrigger,
		Step9ArticlesTrigger,
	}
}

type BaseEvent struct {
	ID             string         `json:"id"`
	Type           EventType      `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	WorkflowID     string         `json:"workflow_id"`
	OrganizationID string         `json:"organization_id"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// GetWorkflowID returns the owning workflow, used as the partition key so
// one workflow's events stay ordered on the bus.
func (b BaseEvent) GetWorkflowID() string {
	return b.WorkflowID
}

// StepTrigger asks the dispatcher to start the next pipeline stage's worker.
type StepTrigger struct {
	BaseEvent

	Actor string `json:"actor"`
}

func (s StepTrigger) GetType() EventType {
	return s.Type
}

// WorkflowCompleted announces that the last generation stage finished and
// the workflow reached its completed state.
type WorkflowCompleted struct {
	BaseEvent

	FinalState string `json:"final_state"`
}

func (w WorkflowCompleted) GetType() EventType {
	return WorkflowCompletedEvent
}

func NewBaseEvent(eventType EventType, workflowID, organizationID string) BaseEvent {
	return BaseEvent{
		ID:             uuid.New().String(),
		Type:           eventType,
		Timestamp:      time.Now().UTC(),
		WorkflowID:     workflowID,
		OrganizationID: organizationID,
		Metadata:       make(map[string]any),
	}
}
