package ports

import (
	"context"
	"time"

	"satin/contexts/verification/integrity-service/domain/entities"
)

// ReserveResult reports whether a content hash was newly reserved, and who
// owns it when it was not.
type ReserveResult struct {
	Reserved      bool
	ExistingAgent string
}

// ContentReserve records content-hash ownership. Reserve must be a single
// atomic operation: two concurrent calls with the same hash may not both
// observe it as free.
type ContentReserve interface {
	Reserve(ctx context.Context, contentHash string, agentAddress string, eventID string, now time.Time) (ReserveResult, error)
}

// SubmissionLog backs the per-address sliding-window rate limiter.
type SubmissionLog interface {
	Append(ctx context.Context, agentAddress string, at time.Time) error
	CountSince(ctx context.Context, agentAddress string, since time.Time) (int, error)
	OldestSince(ctx context.Context, agentAddress string, since time.Time) (time.Time, bool, error)
	PruneBefore(ctx context.Context, cutoff time.Time) error
}

// FingerprintStore keeps perceptual fingerprints for the trailing
// near-duplicate window.
type FingerprintStore interface {
	Save(ctx context.Context, fp entities.Fingerprint) error
	ListSince(ctx context.Context, since time.Time) ([]entities.Fingerprint, error)
	PruneBefore(ctx context.Context, cutoff time.Time) error
}

// AbuseStateStore holds per-address misconduct counters. The mutating
// operations are atomic read-modify-writes inside the adapter.
type AbuseStateStore interface {
	Get(ctx context.Context, agentAddress string) (entities.AbuseState, bool, error)
	RecordRejection(ctx context.Context, agentAddress string, banThreshold int, now time.Time) (entities.AbuseState, error)
	RecordManipulation(ctx context.Context, agentAddress string, now time.Time) (entities.AbuseState, error)
	Clear(ctx context.Context, agentAddress string, now time.Time) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
