// Package pubsub is the AMQP bridge between the EEE core and an external
// message bus. It is an adapter only: every path through it ends in a
// call to Supervisor.SubmitEffect or reads from an Environment's own
// broadcast.Ring.Subscribe() tap, exactly the programmatic surface
// spec.md §6 exposes. Nothing here reaches into core internals.
package pubsub

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/webitel/eee-runtime/internal/effect"
	"github.com/webitel/eee-runtime/internal/supervisor"
)

// Bridge subscribes one topic per configured Environment name and calls
// Supervisor.SubmitEffect for every message it receives — the ingestion
// path spec.md §6 says any task/thread may drive.
type Bridge struct {
	sv     *supervisor.Supervisor
	router *message.Router
	log    *slog.Logger
}

// NewBridge builds a Bridge that subscribes to amqpURI for the given
// environment names once Run is called.
func NewBridge(sv *supervisor.Supervisor, amqpURI string, environments []string, log *slog.Logger) (*Bridge, error) {
	if log == nil {
		log = slog.Default()
	}
	wmLogger := watermill.NewSlogLogger(log)

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("pubsub bridge: new router: %w", err)
	}

	b := &Bridge{sv: sv, router: router, log: log}

	for _, envName := range environments {
		cfg := amqp.NewDurableQueueConfig(amqpURI)
		subscriber, err := amqp.NewSubscriber(cfg, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("pubsub bridge: subscriber for %q: %w", envName, err)
		}
		registerIngestHandler(router, subscriber, envName, sv, log)
	}

	return b, nil
}

// registerIngestHandler wires one topic's subscriber to
// Supervisor.SubmitEffect. Split out from NewBridge so tests can exercise
// the routing logic against an in-memory message.Subscriber instead of a
// real broker connection.
func registerIngestHandler(router *message.Router, sub message.Subscriber, topic string, sv *supervisor.Supervisor, log *slog.Logger) {
	router.AddNoPublisherHandler(
		"eee-bridge-ingest-"+topic,
		topic,
		sub,
		func(msg *message.Message) error {
			if err := sv.SubmitEffect(effect.Bytes(msg.Payload), topic); err != nil {
				log.Error("bridge: submit_effect failed", "environment", topic, "error", err)
				return err
			}
			return nil
		},
	)
}

// Run starts the router and blocks until ctx is done or the router stops.
func (b *Bridge) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Close stops the router.
func (b *Bridge) Close() error {
	return b.router.Close()
}
