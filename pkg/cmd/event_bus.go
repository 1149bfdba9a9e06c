package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/innospot/autoflow/pkg/channels/gochannel"
	"github.com/innospot/autoflow/pkg/channels/kafka"
	"github.com/innospot/autoflow/pkg/eventbus"
)

// NewEventBus builds the event bus for the requested provider. The in-memory
// channel serves single-process deployments; kafka fans events out to other
// consumers.
func NewEventBus(provider string, logger *slog.Logger, serviceName string) (eventbus.EventBus, error) {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
