package pubsub

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker"

	"github.com/webitel/eee-runtime/internal/effect"
)

// Dispatcher republishes effects observed on an Environment's broadcast to
// an AMQP topic for external consumers. It taps the Environment the same
// way any diagnostics consumer does (Environment.Subscribe). Publish runs
// through a circuit breaker, so a broker whose publishes keep failing
// degrades to dropped egress messages while the circuit is open. A
// publish call that hangs is not timed out: while it hangs, Watch stops
// draining its tap, and once the tap's buffer is full the Environment's
// broadcast waits on it.
type Dispatcher struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker
	log       *slog.Logger
}

// NewDispatcher builds a Dispatcher publishing to amqpURI.
func NewDispatcher(amqpURI string, log *slog.Logger) (*Dispatcher, error) {
	if log == nil {
		log = slog.Default()
	}
	wmLogger := watermill.NewSlogLogger(log)

	cfg := amqp.NewDurableQueueConfig(amqpURI)
	pub, err := amqp.NewPublisher(cfg, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("pubsub dispatcher: new publisher: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "eee-egress-dispatcher",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Dispatcher{publisher: pub, breaker: breaker, log: log}, nil
}

// Publish sends eff to topic (typically an Environment's name), dropping
// it if the circuit is open.
func (d *Dispatcher) Publish(topic string, eff effect.Effect) {
	_, err := d.breaker.Execute(func() (any, error) {
		msg := message.NewMessage(watermill.NewUUID(), []byte(eff.String()))
		return nil, d.publisher.Publish(topic, msg)
	})
	if err != nil {
		d.log.Warn("dispatcher: egress publish dropped", "topic", topic, "error", err)
	}
}

// Close closes the underlying publisher.
func (d *Dispatcher) Close() error {
	return d.publisher.Close()
}

// Watch taps env's broadcast and republishes every delivered effect to
// topic until ch is closed (e.g. via env.Unsubscribe).
func (d *Dispatcher) Watch(topic string, ch <-chan effect.Effect) {
	go func() {
		for eff := range ch {
			d.Publish(topic, eff)
		}
	}()
}
