package integrityservice

import (
	"log/slog"
	"time"

	"satin/contexts/verification/integrity-service/adapters/memory"
	"satin/contexts/verification/integrity-service/application/commands"
	"satin/contexts/verification/integrity-service/ports"
)

type Module struct {
	Screen commands.ScreenUseCase
	Abuse  commands.AbuseUseCase
	Store  *memory.Store
}

type Dependencies struct {
	Reserve          ports.ContentReserve
	Submissions      ports.SubmissionLog
	Fingerprints     ports.FingerprintStore
	Abuse            ports.AbuseStateStore
	Clock            ports.Clock
	IDGen            ports.IDGenerator
	RateWindow       time.Duration
	MaxPerWindow     int
	NearDupThreshold int
	NearDupWindow    time.Duration
	BanThreshold     int
	Logger           *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Screen: commands.ScreenUseCase{
			Reserve:          deps.Reserve,
			Submissions:      deps.Submissions,
			Fingerprints:     deps.Fingerprints,
			Abuse:            deps.Abuse,
			Clock:            deps.Clock,
			IDGen:            deps.IDGen,
			Logger:           deps.Logger,
			RateWindow:       deps.RateWindow,
			MaxPerWindow:     deps.MaxPerWindow,
			NearDupThreshold: deps.NearDupThreshold,
			NearDupWindow:    deps.NearDupWindow,
		},
		Abuse: commands.AbuseUseCase{
			Abuse:        deps.Abuse,
			Clock:        deps.Clock,
			Logger:       deps.Logger,
			BanThreshold: deps.BanThreshold,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Reserve:      store,
		Submissions:  store,
		Fingerprints: store,
		Abuse:        store,
		Clock:        store,
		IDGen:        store,
		Logger:       logger,
	})
	module.Store = store
	return module
}
