// Package reviewservice wires the community consensus fallback: phased,
// quorum-based voting over cases automated verification would not pay
// out, with a fixed minimum-grade attestation on approval.
package reviewservice

import (
	"log/slog"

	"satin/contexts/community/review-service/adapters/memory"
	"satin/contexts/community/review-service/application/commands"
	"satin/contexts/community/review-service/application/queries"
	"satin/contexts/community/review-service/ports"
)

// Module exposes the review use cases.
type Module struct {
	Open    *commands.OpenCaseUseCase
	Vote    *commands.CastVoteUseCase
	Queries *queries.ReviewQueries
	Store   *memory.Store
}

// Dependencies lists the ports the module needs. Reputation, Minter, and
// Abuse may be nil: voting then runs with degraded reputation and skips
// the outcome side effects it cannot reach.
type Dependencies struct {
	Cases      ports.CaseStore
	Reputation ports.ReputationLookup
	Minter     ports.AttestationMinter
	Abuse      ports.AbuseReporter
	Clock      ports.Clock
	IDs        ports.IDGenerator
	Logger     *slog.Logger

	Quorum              int
	ReputationThreshold float64
}

func NewModule(deps Dependencies) *Module {
	return &Module{
		Open: &commands.OpenCaseUseCase{
			Cases:  deps.Cases,
			Clock:  deps.Clock,
			IDs:    deps.IDs,
			Logger: deps.Logger,
		},
		Vote: &commands.CastVoteUseCase{
			Cases:               deps.Cases,
			Reputation:          deps.Reputation,
			Minter:              deps.Minter,
			Abuse:               deps.Abuse,
			Clock:               deps.Clock,
			Logger:              deps.Logger,
			Quorum:              deps.Quorum,
			ReputationThreshold: deps.ReputationThreshold,
		},
		Queries: &queries.ReviewQueries{
			Cases:  deps.Cases,
			Clock:  deps.Clock,
			Logger: deps.Logger,
		},
	}
}

// NewInMemoryModule builds a module over the in-memory store with no
// external collaborators.
func NewInMemoryModule(logger *slog.Logger) *Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Cases:  store,
		Clock:  store,
		IDs:    store,
		Logger: logger,
	})
	module.Store = store
	return module
}
