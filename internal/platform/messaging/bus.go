package messaging

import (
	"context"
	"log/slog"
	"sync"

	"satin/contexts/verification/impact-oracle/ports"
)

// Bus carries oracle lifecycle events (attestations issued, evaluations
// rejected) from the outbox relay to in-process consumers. It stands in
// for an external broker until one is wired; the Publisher port keeps the
// relay indifferent to which backs it.
type Bus struct {
	mu        sync.RWMutex
	consumers map[string][]chan ports.EventEnvelope
	published map[string]uint64
	logger    *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		consumers: make(map[string][]chan ports.EventEnvelope),
		published: make(map[string]uint64),
		logger:    logger,
	}
}

var _ ports.Publisher = (*Bus)(nil)

// Publish fans the event out to every consumer on the topic. A consumer
// whose buffer is full is skipped rather than blocking the relay; the
// outbox row is already marked published by then, so delivery here is
// best-effort by contract.
func (b *Bus) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	b.mu.RLock()
	targets := append([]chan ports.EventEnvelope(nil), b.consumers[topic]...)
	b.mu.RUnlock()

	for _, target := range targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case target <- event:
		default:
			if b.logger != nil {
				b.logger.Warn("dropping event for saturated consumer",
					"event", "oracle_event_dropped",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"event_id", event.EventID,
				)
			}
		}
	}

	b.mu.Lock()
	b.published[topic]++
	b.mu.Unlock()

	if b.logger != nil {
		b.logger.Info("event published",
			"event", "oracle_event_published",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
	}
	return nil
}

// Subscribe registers a handler for a topic and consumes until the
// context is cancelled. Handler errors are logged, not retried.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler func(context.Context, ports.EventEnvelope) error) {
	ch := make(chan ports.EventEnvelope, 128)

	b.mu.Lock()
	b.consumers[topic] = append(b.consumers[topic], ch)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.dropConsumer(topic, ch)
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil && b.logger != nil {
					b.logger.Error("event handler failed",
						"event", "oracle_event_handler_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
}

// PublishedCount reports how many events went out on a topic.
func (b *Bus) PublishedCount(topic string) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.published[topic]
}

func (b *Bus) dropConsumer(topic string, target chan ports.EventEnvelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.consumers[topic][:0:0]
	for _, c := range b.consumers[topic] {
		if c != target {
			kept = append(kept, c)
		}
	}
	b.consumers[topic] = kept
}
