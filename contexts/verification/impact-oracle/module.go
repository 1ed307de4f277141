// Package impactoracle wires the verification pipeline end to end:
// integrity screening, object detection, plausibility validation, impact
// scoring, and contract-grade attestation signing.
package impactoracle

import (
	"log/slog"
	"time"

	"satin/contexts/verification/impact-oracle/adapters/memory"
	"satin/contexts/verification/impact-oracle/application/commands"
	"satin/contexts/verification/impact-oracle/application/queries"
	"satin/contexts/verification/impact-oracle/ports"
	integrityservice "satin/contexts/verification/integrity-service"
	integritycommands "satin/contexts/verification/integrity-service/application/commands"
	plausibilityservice "satin/contexts/verification/plausibility-service"
	plausibilitycommands "satin/contexts/verification/plausibility-service/application/commands"
	"satin/internal/evm"
)

// Module exposes the oracle's use cases. Queries read the same store the
// evaluate command writes.
type Module struct {
	Evaluate      *commands.EvaluateUseCase
	AttestMinimum *commands.AttestMinimumUseCase
	Queries       *queries.OracleQueries
	Store         *memory.Store
}

// Dependencies lists everything the oracle needs. Detector and Review may
// be nil; evaluation degrades without the detector and skips review
// routing without the opener. Signer is mandatory.
type Dependencies struct {
	Integrity    *integritycommands.ScreenUseCase
	Plausibility *plausibilitycommands.ValidateUseCase
	Deduction    *plausibilitycommands.DeduceUseCase
	Detector     ports.Detector
	Store        ports.AttestationStore
	Review       ports.ReviewOpener
	Signer       *evm.Signer
	Clock        ports.Clock
	IDs          ports.IDGenerator
	Logger       *slog.Logger

	AttestationTTL time.Duration
}

func NewModule(deps Dependencies) *Module {
	return &Module{
		Evaluate: &commands.EvaluateUseCase{
			Integrity:      deps.Integrity,
			Plausibility:   deps.Plausibility,
			Deduction:      deps.Deduction,
			Detector:       deps.Detector,
			Store:          deps.Store,
			Review:         deps.Review,
			Signer:         deps.Signer,
			Clock:          deps.Clock,
			IDs:            deps.IDs,
			Logger:         deps.Logger,
			AttestationTTL: deps.AttestationTTL,
		},
		AttestMinimum: &commands.AttestMinimumUseCase{
			Store:          deps.Store,
			Signer:         deps.Signer,
			Clock:          deps.Clock,
			IDs:            deps.IDs,
			Logger:         deps.Logger,
			AttestationTTL: deps.AttestationTTL,
		},
		Queries: &queries.OracleQueries{
			Store:  deps.Store,
			Signer: deps.Signer,
			Logger: deps.Logger,
		},
	}
}

// NewInMemoryModule assembles the whole pipeline over in-memory adapters
// with no model backends. Meant for tests and local runs.
func NewInMemoryModule(signer *evm.Signer, logger *slog.Logger) *Module {
	store := memory.NewStore()
	integrity := integrityservice.NewInMemoryModule(logger)
	plausibility := plausibilityservice.NewInMemoryModule(logger)
	module := NewModule(Dependencies{
		Integrity:    &integrity.Screen,
		Plausibility: plausibility.Validate,
		Deduction:    plausibility.Deduce,
		Store:        store,
		Signer:       signer,
		Clock:        store,
		IDs:          store,
		Logger:       logger,
	})
	module.Store = store
	return module
}
