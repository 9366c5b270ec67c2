package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/seoforge/intent-engine/pkg/events"
)

// WatermillEventBus routes every pipeline event over a single topic. The
// concrete event type travels in message metadata; the workflow ID rides
// along as the partition key so per-workflow ordering survives Kafka.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) EventBus {
	return &WatermillEventBus{
		publisher:  pub,
		subscriber: sub,
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(_ context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.GetType(), err)
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))
	msg.Metadata.Set(events.EventMetadataKey, event.GetWorkflowID())

	return eb.publisher.Publish(events.Topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context, handler EventHandler) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			event, ok := decode(msg)
			if !ok {
				// Foreign or undecodable payloads on the shared topic are
				// skipped, not redelivered.
				msg.Ack()
				continue
			}

			if err := handler(ctx, event); err != nil {
				msg.Nack()
				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func decode(msg *message.Message) (Event, bool) {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	var event Event

	switch eventType {
	case events.WorkflowCompletedEvent:
		event = &events.WorkflowCompleted{}
	default:
		if !isStepTrigger(eventType) {
			return nil, false
		}

		event = &events.StepTrigger{}
	}

	if err := json.Unmarshal(msg.Payload, event); err != nil {
		return nil, false
	}

	return event, true
}

func isStepTrigger(eventType events.EventType) bool {
	for _, trigger := range events.StepTriggers() {
		if trigger == eventType {
			return true
		}
	}

	return false
}

func (eb *WatermillEventBus) Close() error {
	if err := eb.publisher.Close(); err != nil {
		return err
	}

	return eb.subscriber.Close()
}
