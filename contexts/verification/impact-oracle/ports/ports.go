package ports

import (
	"context"
	"encoding/json"
	"time"

	"satin/contexts/verification/impact-oracle/domain/entities"
)

// DetectionResult is the object detector's read of one evidence image.
type DetectionResult struct {
	Confidence  float64
	Objects     []string
	PersonCount int
	HasPerson   bool
}

// Detector runs object detection on evidence images. Implementations must
// degrade to a zero result instead of failing the pipeline.
type Detector interface {
	Analyze(ctx context.Context, image []byte) (DetectionResult, error)
}

// AttestationStore persists evaluations and their signed attestations.
type AttestationStore interface {
	SaveEvaluation(ctx context.Context, eval entities.Evaluation) error
	GetEvaluation(ctx context.Context, eventID string) (entities.Evaluation, error)
	ListRecent(ctx context.Context, limit int) ([]entities.Evaluation, error)
}

// ReviewOpener routes a failed evaluation into community review.
type ReviewOpener interface {
	OpenCase(ctx context.Context, open OpenReviewCase) error
}

// OpenReviewCase carries everything review voting needs to judge the
// event without re-running the pipeline.
type OpenReviewCase struct {
	EventID           string
	SubmitterAddress  string
	ActionType        string
	Description       string
	RejectionReason   string
	ImpactScore       float64
	AIConfidence      float64
	TheoreticalReward float64
	ExclusiveAudit    bool
}

// EventEnvelope is the wire shape published to the event bus.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	SourceService string          `json:"source_service"`
	OccurredAtUTC time.Time       `json:"occurred_at_utc"`
	EntityType    string          `json:"entity_type"`
	EntityID      string          `json:"entity_id"`
	Payload       json.RawMessage `json:"payload"`
}

// Publisher hands envelopes to the event bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// OutboxMessage is one pending event row, written in the same
// transaction as the evaluation it describes.
type OutboxMessage struct {
	ID         string
	EventType  string
	EntityID   string
	Payload    []byte
	RetryCount int
}

// Outbox exposes pending rows to the relay worker.
type Outbox interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, id string, at time.Time) error
	MarkOutboxFailed(ctx context.Context, id string) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints event ids and signing nonces.
type IDGenerator interface {
	NewID() string
}
