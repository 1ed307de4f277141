package ports

import (
	"context"
	"time"

	"satin/contexts/community/review-service/domain/entities"
)

// CaseStore persists review cases. Mutate runs fn against the current
// case state under exclusive ownership of the row: two concurrent votes
// must serialize so only one of them observes the transition to quorum.
// A non-nil error from fn aborts the mutation and is returned verbatim.
type CaseStore interface {
	Create(ctx context.Context, c entities.ReviewCase) error
	Get(ctx context.Context, caseID string) (entities.ReviewCase, error)
	GetByEvent(ctx context.Context, eventID string) (entities.ReviewCase, error)
	Mutate(ctx context.Context, caseID string, fn func(*entities.ReviewCase) error) (entities.ReviewCase, error)
	ListOpen(ctx context.Context) ([]entities.ReviewCase, error)
	ListRecent(ctx context.Context, limit int) ([]entities.ReviewCase, error)
}

// ReputationLookup resolves a voter's cumulative reputation from the
// authoritative external source.
type ReputationLookup interface {
	Score(ctx context.Context, voterAddress string) (float64, error)
}

// AttestationMinter issues the fixed minimum-grade attestation for an
// approved case.
type AttestationMinter interface {
	MintMinimum(ctx context.Context, c entities.ReviewCase) error
}

// AbuseReporter feeds vote outcomes back into submitter misconduct
// tracking.
type AbuseReporter interface {
	RecordRejection(ctx context.Context, submitterAddress string) error
	ClearCounters(ctx context.Context, submitterAddress string) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints case ids.
type IDGenerator interface {
	NewID() string
}
