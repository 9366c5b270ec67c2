// Package eventbus publishes and consumes pipeline events over watermill,
// decoupling the transition engine from the dispatcher that reacts to the
// events it emits.
package eventbus

import (
	"context"

	"github.com/seoforge/intent-engine/pkg/events"
)

// Event is anything publishable on the pipeline topic.
type Event interface {
	GetType() events.EventType
	GetWorkflowID() string
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, handler EventHandler) error
}

// EventHandler consumes one decoded event. A returned error nacks the
// message for redelivery.
type EventHandler func(ctx context.Context, event Event) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
