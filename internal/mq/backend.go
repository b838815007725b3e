package mq

import (
	"context"
	"fmt"

	"github.com/cicap/personnel/config"
)

// FromConfig builds the broker selected by cfg.Events.Backend. It returns
// nil, nil when events are disabled.
func FromConfig(ctx context.Context, cfg config.Config) (*MQ, error) {
	switch cfg.Events.Backend {
	case "", config.EventsBackendNone:
		return nil, nil
	case config.EventsBackendRabbitMQ:
		client, err := NewRabbitMQClient(cfg.Events.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return New(client), nil
	case config.EventsBackendPubSub:
		client, err := NewPubSubClient(ctx, cfg.Events.PubSub)
		if err != nil {
			return nil, err
		}
		return New(client), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Events.Backend)
	}
}
