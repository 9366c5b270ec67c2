package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoforge/intent-engine/pkg/channels/gochannel"
	"github.com/seoforge/intent-engine/pkg/eventbus"
	"github.com/seoforge/intent-engine/pkg/events"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_StepTriggerRoundTrip(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan eventbus.Event, 1)

	err := bus.Subscribe(t.Context(), func(_ context.Context, event eventbus.Event) error {
		received <- event

		return nil
	})
	require.NoError(t, err)

	sent := events.StepTrigger{
		BaseEvent: events.NewBaseEvent(events.Step5FilteringTrigger, "wf-1", "org-1"),
		Actor:     "system",
	}

	require.NoError(t, bus.Publish(t.Context(), sent))

	select {
	case event := <-received:
		trigger, ok := event.(*events.StepTrigger)
		require.True(t, ok)
		assert.Equal(t, events.Step5FilteringTrigger, trigger.Type)
		assert.Equal(t, "wf-1", trigger.WorkflowID)
		assert.Equal(t, "org-1", trigger.OrganizationID)
		assert.Equal(t, "system", trigger.Actor)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	assert.NotEmpty(t, bus.GenerateID())
	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
