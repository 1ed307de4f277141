package workers_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"satin/contexts/verification/impact-oracle/adapters/memory"
	"satin/contexts/verification/impact-oracle/application/workers"
	"satin/contexts/verification/impact-oracle/domain/entities"
	"satin/contexts/verification/impact-oracle/ports"
)

type capturingPublisher struct {
	topics    []string
	envelopes []ports.EventEnvelope
	fail      bool
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.fail {
		return errors.New("bus unavailable")
	}
	p.topics = append(p.topics, topic)
	p.envelopes = append(p.envelopes, event)
	return nil
}

func TestRelayPublishesRejectionAndDrains(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	if err := store.SaveEvaluation(ctx, entities.Evaluation{
		EventID:         "evt-1",
		Status:          entities.StatusRejected,
		RejectionReason: "gps_out_of_range",
		ImpactScore:     42,
		ReviewOpened:    true,
	}); err != nil {
		t.Fatalf("SaveEvaluation: %v", err)
	}

	publisher := &capturingPublisher{}
	relay := workers.OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(publisher.topics) != 1 || publisher.topics[0] != "evaluation.rejected" {
		t.Fatalf("topics = %v", publisher.topics)
	}
	var payload struct {
		EventID      string `json:"event_id"`
		ReviewOpened bool   `json:"review_opened"`
	}
	if err := json.Unmarshal(publisher.envelopes[0].Payload, &payload); err != nil {
		t.Fatalf("payload decode: %v", err)
	}
	if payload.EventID != "evt-1" || !payload.ReviewOpened {
		t.Fatalf("payload = %+v", payload)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingOutbox: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("outbox not drained: %d pending", len(pending))
	}
}

func TestRelayKeepsMessageOnPublishFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	if err := store.SaveEvaluation(ctx, entities.Evaluation{
		EventID: "evt-2",
		Status:  entities.StatusRejected,
	}); err != nil {
		t.Fatalf("SaveEvaluation: %v", err)
	}

	relay := workers.OutboxRelay{Outbox: store, Publisher: &capturingPublisher{fail: true}, Clock: store}
	if err := relay.RunOnce(ctx); err == nil {
		t.Fatal("RunOnce succeeded with failing publisher")
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingOutbox: %v", err)
	}
	if len(pending) != 1 || pending[0].RetryCount != 1 {
		t.Fatalf("pending = %+v", pending)
	}
}
