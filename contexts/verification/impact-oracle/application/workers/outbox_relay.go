package workers

import (
	"context"
	"log/slog"
	"time"

	"satin/contexts/verification/impact-oracle/application"
	"satin/contexts/verification/impact-oracle/ports"
)

// OutboxRelay drains pending evaluation events onto the bus. The topic
// is the message's event type, so issued attestations and rejections
// fan out to separate consumers.
type OutboxRelay struct {
	Outbox    ports.Outbox
	Publisher ports.Publisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("outbox list pending failed",
			"event", "impact_outbox_list_failed",
			"module", "verification/impact-oracle",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, message := range pending {
		envelope := ports.EventEnvelope{
			EventID:       message.ID,
			EventType:     message.EventType,
			SourceService: "impact-oracle",
			OccurredAtUTC: now,
			EntityType:    "evaluation",
			EntityID:      message.EntityID,
			Payload:       message.Payload,
		}

		if err := r.Publisher.Publish(ctx, message.EventType, envelope); err != nil {
			logger.Error("outbox publish failed",
				"event", "impact_outbox_publish_failed",
				"module", "verification/impact-oracle",
				"layer", "worker",
				"outbox_id", message.ID,
				"event_type", message.EventType,
				"error", err.Error(),
			)
			if markErr := r.Outbox.MarkOutboxFailed(ctx, message.ID); markErr != nil {
				return markErr
			}
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, message.ID, now); err != nil {
			logger.Error("outbox mark published failed",
				"event", "impact_outbox_mark_failed",
				"module", "verification/impact-oracle",
				"layer", "worker",
				"outbox_id", message.ID,
				"error", err.Error(),
			)
			return err
		}
	}

	if len(pending) > 0 {
		logger.Info("outbox relay cycle completed",
			"event", "impact_outbox_relay_completed",
			"module", "verification/impact-oracle",
			"layer", "worker",
			"published_count", len(pending),
		)
	}
	return nil
}
