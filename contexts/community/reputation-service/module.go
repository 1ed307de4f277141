// Package reputationservice tracks cumulative volunteer standing:
// verified attestations accrue impact points, points map onto a tier
// ladder, and the phased review vote reads the same scores for its
// eligibility gate.
package reputationservice

import (
	"log/slog"

	"satin/contexts/community/reputation-service/adapters/memory"
	"satin/contexts/community/reputation-service/application"
	"satin/contexts/community/reputation-service/ports"
)

type Module struct {
	Service application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Repository ports.Repository
	Clock      ports.Clock
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Service: application.Service{
			Repo:   deps.Repository,
			Clock:  deps.Clock,
			Logger: deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository: store,
		Clock:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
