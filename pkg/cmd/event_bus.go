package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/seoforge/intent-engine/pkg/channels/gochannel"
	"github.com/seoforge/intent-engine/pkg/channels/kafka"
	"github.com/seoforge/intent-engine/pkg/eventbus"
)

// NewEventBus creates the pipeline event bus for the given provider. Kafka
// is used in multi-process deployments; gochannel keeps everything in one
// process for development.
func NewEventBus(provider, serviceName, kafkaBrokers string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, serviceName, kafkaBrokers)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gochannel pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
