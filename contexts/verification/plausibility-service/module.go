// Package plausibilityservice wires the parameter plausibility validator:
// physical-limit checks, description cross-examination, detector
// reconciliation, and the vision-language audit layer.
package plausibilityservice

import (
	"log/slog"
	"time"

	"satin/contexts/verification/plausibility-service/application/commands"
	"satin/contexts/verification/plausibility-service/ports"
)

// Module exposes the plausibility use cases.
type Module struct {
	Validate *commands.ValidateUseCase
	Deduce   *commands.DeduceUseCase
}

// Dependencies lists the ports the module needs. Auditor and Deducer may
// be nil; the use cases degrade conservatively without them.
type Dependencies struct {
	Auditor ports.ConsistencyAuditor
	Deducer ports.ParameterDeducer
	Logger  *slog.Logger

	AuditTimeout  time.Duration
	DeduceTimeout time.Duration
}

func NewModule(deps Dependencies) *Module {
	return &Module{
		Validate: &commands.ValidateUseCase{
			Auditor:      deps.Auditor,
			Logger:       deps.Logger,
			AuditTimeout: deps.AuditTimeout,
		},
		Deduce: &commands.DeduceUseCase{
			Deducer: deps.Deducer,
			Logger:  deps.Logger,
			Timeout: deps.DeduceTimeout,
		},
	}
}

// NewInMemoryModule builds a module with no model backends; structural
// layers still run and the deducer falls back to conservative defaults.
func NewInMemoryModule(logger *slog.Logger) *Module {
	return NewModule(Dependencies{Logger: logger})
}
