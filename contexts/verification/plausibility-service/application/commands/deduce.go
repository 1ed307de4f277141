package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"satin/contexts/verification/plausibility-service/application"
	"satin/contexts/verification/plausibility-service/domain/entities"
	"satin/contexts/verification/plausibility-service/ports"
)

const (
	defaultDeduceTimeout = 45 * time.Second

	fallbackConfidence = 0.2
	fallbackEffort     = 1.0

	indicatorDeductionUnavailable = "deduction_unavailable"
	indicatorCappedByVisibleCount = "people_capped_by_visible_count"
	indicatorUnknownCategory      = "deduced_category_unknown"
)

// DeduceCommand carries a submission with no user-declared parameters.
// PersonCount < 0 means no detector ran on the evidence.
type DeduceCommand struct {
	Description     string
	Image           []byte
	DetectedObjects []string
	PersonCount     int
}

// DeduceUseCase asks the vision-language model to estimate working
// parameters, then reconciles the estimate against the independent
// detector so the model never single-handedly inflates a claim.
type DeduceUseCase struct {
	Deducer ports.ParameterDeducer
	Logger  *slog.Logger

	Timeout time.Duration
}

func (uc *DeduceUseCase) timeout() time.Duration {
	if uc.Timeout > 0 {
		return uc.Timeout
	}
	return defaultDeduceTimeout
}

// Deduce never fails: a missing or broken deducer degrades to a
// low-confidence fallback the scorer treats conservatively.
func (uc *DeduceUseCase) Deduce(ctx context.Context, cmd DeduceCommand) entities.DeducedParameters {
	logger := application.ResolveLogger(uc.Logger)

	if uc.Deducer == nil {
		return uc.fallback(logger, cmd, "no deducer configured")
	}

	deduceCtx, cancel := context.WithTimeout(ctx, uc.timeout())
	defer cancel()

	params, err := uc.Deducer.Deduce(deduceCtx, ports.DeduceRequest{
		Description:     cmd.Description,
		Image:           cmd.Image,
		DetectedObjects: cmd.DetectedObjects,
		PersonCount:     cmd.PersonCount,
	})
	if err != nil {
		return uc.fallback(logger, cmd, err.Error())
	}

	uc.normalize(&params)
	uc.reconcile(logger, &params, cmd.PersonCount)

	logger.Info("parameters deduced",
		slog.String("event", "plausibility_parameters_deduced"),
		slog.String("module", "verification/plausibility-service"),
		slog.String("layer", "application"),
		slog.String("category", params.Category),
		slog.Int("people_helped", params.PeopleHelped),
		slog.Float64("effort_hours", params.EffortHours),
		slog.Float64("confidence", params.Confidence))

	return params
}

func (uc *DeduceUseCase) fallback(logger *slog.Logger, cmd DeduceCommand, cause string) entities.DeducedParameters {
	logger.Warn("parameter deduction degraded",
		slog.String("event", "plausibility_deduction_degraded"),
		slog.String("module", "verification/plausibility-service"),
		slog.String("layer", "application"),
		slog.String("cause", cause))

	people := 1
	if cmd.PersonCount > 1 {
		people = cmd.PersonCount
	}
	return entities.DeducedParameters{
		Category:        "UNKNOWN",
		Urgency:         "LOW",
		PeopleHelped:    people,
		PeopleMin:       people,
		PeopleMax:       people,
		EffortHours:     fallbackEffort,
		EffortMin:       fallbackEffort,
		EffortMax:       fallbackEffort,
		Confidence:      fallbackConfidence,
		FraudIndicators: []string{indicatorDeductionUnavailable},
		Rationale:       "deducer unavailable, conservative defaults applied",
	}
}

func (uc *DeduceUseCase) normalize(p *entities.DeducedParameters) {
	p.Category = strings.ToUpper(strings.TrimSpace(p.Category))
	p.Urgency = strings.ToUpper(strings.TrimSpace(p.Urgency))
	if p.Urgency == "" {
		p.Urgency = "LOW"
	}
	if p.PeopleHelped < 1 {
		p.PeopleHelped = 1
	}
	if p.EffortHours <= 0 {
		p.EffortHours = fallbackEffort
	}
	if p.Confidence < 0 {
		p.Confidence = 0
	}
	if p.Confidence > 1 {
		p.Confidence = 1
	}
	if _, known := entities.ActionConstraints[p.Category]; !known {
		p.FraudIndicators = append(p.FraudIndicators, indicatorUnknownCategory)
		p.Confidence = min(p.Confidence, fallbackConfidence)
	}
}

// reconcile caps the model's people estimate at a conservative multiple of
// the detector's person count. The cap itself is a fraud signal.
func (uc *DeduceUseCase) reconcile(logger *slog.Logger, p *entities.DeducedParameters, personCount int) {
	if personCount < 0 {
		return
	}

	limit := personCount * entities.VisibleCountMultiplier
	if limit < 1 {
		limit = 1
	}
	if p.PeopleHelped <= limit {
		return
	}

	logger.Warn("deduced people estimate capped",
		slog.String("event", "plausibility_estimate_capped"),
		slog.String("module", "verification/plausibility-service"),
		slog.String("layer", "application"),
		slog.Int("estimated", p.PeopleHelped),
		slog.Int("visible", personCount),
		slog.Int("capped_to", limit))

	p.PeopleHelped = limit
	if p.PeopleMax > limit {
		p.PeopleMax = limit
	}
	if p.PeopleMin > limit {
		p.PeopleMin = limit
	}
	p.FraudIndicators = append(p.FraudIndicators, indicatorCappedByVisibleCount)
}
