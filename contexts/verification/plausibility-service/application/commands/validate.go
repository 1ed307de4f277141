package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"satin/contexts/verification/plausibility-service/application"
	"satin/contexts/verification/plausibility-service/domain/entities"
	"satin/contexts/verification/plausibility-service/ports"
)

const (
	defaultAuditTimeout = 45 * time.Second

	unknownActionPenalty      = 0.20
	effortTooLowPenalty       = 0.25
	urgencyIncompatPenalty    = 0.35
	criticalNoContextPenalty  = 0.30
	criticalBannedPenalty     = 0.40
	descriptionShortPenalty   = 0.25
	keywordMismatchPenalty    = 0.25
	crossActionPenalty        = 0.20
	noPeopleVisiblePenalty    = 0.15
	noPersonDetectedPenalty   = 0.20
	suspiciousObjectsPenalty  = 0.15
	modelMildSuspicionPenalty = 0.10
)

// ValidateCommand carries claimed parameters plus whatever evidence the
// submission shipped. PersonCount < 0 means no detector output exists.
type ValidateCommand struct {
	ActionType      string
	Urgency         string
	EffortHours     float64
	PeopleHelped    int
	Description     string
	DetectedObjects []string
	PersonCount     int
	Image           []byte
}

// ValidateUseCase cross-checks claimed parameters against physical limits,
// the description text, detector output, and an external consistency
// auditor. It never persists anything; the result is pure data.
type ValidateUseCase struct {
	Auditor ports.ConsistencyAuditor
	Logger  *slog.Logger

	AuditTimeout time.Duration
}

func (uc *ValidateUseCase) auditTimeout() time.Duration {
	if uc.AuditTimeout > 0 {
		return uc.AuditTimeout
	}
	return defaultAuditTimeout
}

// Validate runs every plausibility layer in order. Cheap structural layers
// run first; the model audit runs last and degrades silently when the
// auditor is absent or failing.
func (uc *ValidateUseCase) Validate(ctx context.Context, cmd ValidateCommand) entities.Result {
	logger := application.ResolveLogger(uc.Logger)
	result := entities.Result{Passed: true}

	action := strings.ToUpper(strings.TrimSpace(cmd.ActionType))
	urgency := strings.ToUpper(strings.TrimSpace(cmd.Urgency))

	constraint, known := entities.ActionConstraints[action]
	if !known {
		result.AddPenalty(entities.PenaltyUnknownAction, unknownActionPenalty,
			fmt.Sprintf("action type %q is not recognized and cannot be validated", cmd.ActionType))
		uc.finish(logger, cmd, &result)
		return result
	}

	uc.checkEffortHours(&result, constraint, cmd.EffortHours, action)
	if !result.HardBlocked {
		uc.checkPeopleHelped(&result, constraint, cmd.PeopleHelped, action)
	}
	if !result.HardBlocked {
		uc.checkThroughput(&result, action, cmd.EffortHours, cmd.PeopleHelped)
	}
	if !result.HardBlocked {
		uc.checkUrgency(&result, constraint, urgency, cmd.Description, action)
		uc.checkDescription(&result, constraint, cmd.Description, action)
		uc.checkVisibleCount(&result, cmd.PersonCount, cmd.PeopleHelped)
		uc.checkDetectedObjects(&result, cmd.DetectedObjects, action)
	}

	if !result.HardBlocked && uc.Auditor != nil && strings.TrimSpace(cmd.Description) != "" {
		uc.auditConsistency(ctx, logger, &result, action, urgency, cmd)
	}

	result.AdjustedEffortHours = min(cmd.EffortHours, constraint.MaxEffortHours)
	result.AdjustedPeopleHelped = cmd.PeopleHelped
	if result.AdjustedPeopleHelped > constraint.MaxPeopleAbs {
		result.AdjustedPeopleHelped = constraint.MaxPeopleAbs
	}

	if !result.HardBlocked && accumulated(&result) >= entities.HardBlockAccumulation {
		result.HardBlock(fmt.Sprintf(
			"accumulated manipulation signals too high (%.0f%%), flags: %s",
			accumulated(&result)*100, joinCodes(result.Codes(), 5)))
	}

	uc.finish(logger, cmd, &result)
	return result
}

// accumulated sums raw penalty amounts, ignoring the reporting cap. The
// promotion threshold sits above the cap on purpose.
func accumulated(r *entities.Result) float64 {
	var total float64
	for _, p := range r.Penalties {
		total += p.Amount
	}
	return total
}

func joinCodes(codes []entities.PenaltyCode, limit int) string {
	if len(codes) > limit {
		codes = codes[:limit]
	}
	parts := make([]string, 0, len(codes))
	for _, c := range codes {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, ", ")
}

func (uc *ValidateUseCase) checkEffortHours(result *entities.Result, c entities.Constraint, effortHours float64, action string) {
	if effortHours > c.MaxEffortHours*2 {
		result.HardBlock(fmt.Sprintf(
			"effort_hours=%.1fh is physically impossible for %s (max %.0fh)",
			effortHours, action, c.MaxEffortHours))
		return
	}

	if effortHours > c.MaxEffortHours {
		overshoot := (effortHours - c.MaxEffortHours) / c.MaxEffortHours
		result.AddPenalty(entities.PenaltyEffortInflated,
			min(0.25, 0.10+overshoot*0.15),
			fmt.Sprintf("%s effort=%.1fh exceeds the realistic ceiling of %.0fh (%.0f%% overshoot)",
				action, effortHours, c.MaxEffortHours, overshoot*100))
	}

	if effortHours < 0.5 {
		switch action {
		case "DISASTER_RELIEF", "SHELTER_CONSTRUCTION", "CLEAN_WATER_PROJECT":
			result.AddPenalty(entities.PenaltyEffortTooLow, effortTooLowPenalty,
				fmt.Sprintf("%s cannot complete in %.1fh, this work needs substantial physical effort", action, effortHours))
		}
	}
}

func (uc *ValidateUseCase) checkPeopleHelped(result *entities.Result, c entities.Constraint, people int, action string) {
	if people > c.MaxPeopleAbs*3 {
		result.HardBlock(fmt.Sprintf(
			"people_helped=%d far exceeds the absolute physical limit for one volunteer (%s, max %d)",
			people, action, c.MaxPeopleAbs))
		return
	}

	if people > c.MaxPeopleAbs {
		overshoot := float64(people-c.MaxPeopleAbs) / float64(c.MaxPeopleAbs)
		result.AddPenalty(entities.PenaltyPeopleInflated,
			min(0.30, 0.15+overshoot*0.10),
			fmt.Sprintf("%s: %d people exceeds the realistic ceiling of %d for one volunteer (%.0f%% overshoot)",
				action, people, c.MaxPeopleAbs, overshoot*100))
	}
}

func (uc *ValidateUseCase) checkThroughput(result *entities.Result, action string, effortHours float64, people int) {
	if effortHours <= 0 {
		return
	}

	ratio := float64(people) / effortHours
	ceiling, ok := entities.ImpossibleRatios[action]
	if !ok {
		ceiling = 100.0
	}

	if ratio > ceiling*3 {
		result.HardBlock(fmt.Sprintf(
			"%d people in %.1fh is %.0f people/hour, physically impossible for %s (limit %.0f/hour)",
			people, effortHours, ratio, action, ceiling))
		return
	}

	if ratio > ceiling {
		overshoot := (ratio - ceiling) / ceiling
		result.AddPenalty(entities.PenaltyThroughputAnomaly,
			min(0.25, 0.15+overshoot*0.05),
			fmt.Sprintf("throughput of %.0f people/hour is unrealistic for %s (physical max %.0f/hour)",
				ratio, action, ceiling))
	}
}

func (uc *ValidateUseCase) checkUrgency(result *entities.Result, c entities.Constraint, urgency, description, action string) {
	allowed := false
	for _, u := range c.UrgencyAllowed {
		if u == urgency {
			allowed = true
			break
		}
	}
	if !allowed {
		result.AddPenalty(entities.PenaltyUrgencyIncompatible, urgencyIncompatPenalty,
			fmt.Sprintf("urgency %s is incompatible with %s, accepted levels: %s",
				urgency, action, strings.Join(c.UrgencyAllowed, ", ")))
		return
	}

	if urgency != "CRITICAL" {
		return
	}

	switch {
	case c.CriticalKeywords == nil:
		// CRITICAL always admissible for this category.
	case len(c.CriticalKeywords) == 0:
		result.AddPenalty(entities.PenaltyCriticalBanned, criticalBannedPenalty,
			fmt.Sprintf("urgency CRITICAL is not valid for %s, this action is almost never a critical emergency", action))
	default:
		descLower := strings.ToLower(description)
		for _, kw := range c.CriticalKeywords {
			if strings.Contains(descLower, kw) {
				return
			}
		}
		result.AddPenalty(entities.PenaltyCriticalWithoutContext, criticalNoContextPenalty,
			fmt.Sprintf("urgency CRITICAL for %s requires emergency context in the description, urgency may have been raised to game the score", action))
	}
}

func (uc *ValidateUseCase) checkDescription(result *entities.Result, c entities.Constraint, description, action string) {
	if len(description) < entities.DescriptionMinLength {
		result.AddPenalty(entities.PenaltyDescriptionTooShort, descriptionShortPenalty,
			fmt.Sprintf("description too short (%d chars), minimum %d to validate context",
				len(description), entities.DescriptionMinLength))
		return
	}

	descLower := strings.ToLower(description)

	found := false
	for _, kw := range c.RequireKeywords {
		if strings.Contains(descLower, kw) {
			found = true
			break
		}
	}
	if !found {
		result.AddPenalty(entities.PenaltyKeywordMismatch, keywordMismatchPenalty,
			fmt.Sprintf("description carries no keyword relevant to %s, the action type may have been chosen dishonestly", action))
	}

	if flags := crossActionFlags(descLower, action); len(flags) > 0 {
		result.AddPenalty(entities.PenaltyCrossActionMismatch, crossActionPenalty,
			fmt.Sprintf("description reads like %s rather than %s", strings.Join(flags, ", "), action))
	}
}

// crossActionFlags lists other categories whose strong signature phrases
// appear in the description.
func crossActionFlags(descLower, claimedAction string) []string {
	var flags []string
	for action, sigs := range entities.CrossActionSignatures {
		if action == claimedAction {
			continue
		}
		for _, sig := range sigs {
			if strings.Contains(descLower, sig) {
				flags = append(flags, action)
				break
			}
		}
	}
	return flags
}

func (uc *ValidateUseCase) checkVisibleCount(result *entities.Result, personCount, people int) {
	if personCount < 0 {
		return
	}

	if personCount == 0 && people > 5 {
		result.AddPenalty(entities.PenaltyNoPeopleVisible, noPeopleVisiblePenalty,
			fmt.Sprintf("no person detected in the photo but people_helped=%d, the photo does not evidence the claim", people))
		return
	}

	if personCount > 0 {
		maxPlausible := personCount * entities.VisibleCountMultiplier
		if people > maxPlausible && people > 50 {
			ratio := float64(people) / float64(personCount)
			result.AddPenalty(entities.PenaltyVisibleCountMismatch,
				min(0.25, 0.10+(ratio/100)*0.05),
				fmt.Sprintf("%d people visible in the photo against a claim of %d helped (%.0fx), the photo cannot prove this scale",
					personCount, people, ratio))
		}
	}
}

func (uc *ValidateUseCase) checkDetectedObjects(result *entities.Result, objects []string, action string) {
	if len(objects) == 0 {
		return
	}

	lower := make([]string, 0, len(objects))
	hasPerson := false
	for _, obj := range objects {
		o := strings.ToLower(obj)
		lower = append(lower, o)
		if o == "person" {
			hasPerson = true
		}
	}

	if !hasPerson && entities.PersonRequiredActions[action] {
		result.AddPenalty(entities.PenaltyNoPersonDetected, noPersonDetectedPenalty,
			fmt.Sprintf("no human detected in the photo for %s, this action must show the people involved", action))
	}

	var found []string
	for _, o := range lower {
		for _, s := range entities.SuspiciousObjects[action] {
			if o == s {
				found = append(found, o)
				break
			}
		}
	}
	if len(found) > 0 {
		result.AddPenalty(entities.PenaltySuspiciousObjects, suspiciousObjectsPenalty,
			fmt.Sprintf("detector saw implausible objects %v for %s, the photo may not be the claimed scene", found, action))
	}
}

func (uc *ValidateUseCase) auditConsistency(
	ctx context.Context,
	logger *slog.Logger,
	result *entities.Result,
	action, urgency string,
	cmd ValidateCommand,
) {
	auditCtx, cancel := context.WithTimeout(ctx, uc.auditTimeout())
	defer cancel()

	judgment, err := uc.Auditor.Judge(auditCtx, ports.ConsistencyRequest{
		ActionType:   action,
		Urgency:      urgency,
		EffortHours:  cmd.EffortHours,
		PeopleHelped: cmd.PeopleHelped,
		Description:  cmd.Description,
		Image:        cmd.Image,
	})
	if err != nil {
		logger.Warn("plausibility model audit skipped",
			slog.String("event", "plausibility_audit_skipped"),
			slog.String("module", "verification/plausibility-service"),
			slog.String("layer", "application"),
			slog.String("error", err.Error()))
		return
	}

	result.ModelVerdict = judgment.Verdict
	result.ModelReason = judgment.Reasoning

	switch {
	case judgment.Verdict == entities.VerdictFabricated && judgment.Confidence >= 70:
		result.HardBlock(fmt.Sprintf("model audit flagged probable fabrication: %s (issues: %s)",
			judgment.Reasoning, strings.Join(head(judgment.Inconsistencies, 3), "; ")))
	case judgment.Verdict == entities.VerdictSuspicious && judgment.Confidence >= 60:
		penalty := 0.10 + float64(judgment.Confidence)/100.0*0.30
		result.AddPenalty(entities.PenaltyModelSuspicious, roundTo(penalty, 2),
			fmt.Sprintf("model audit suspicious (%s, confidence %d%%): %s",
				manipulationLabel(judgment.ManipulationType), judgment.Confidence, judgment.Reasoning))
	case judgment.Verdict == entities.VerdictSuspicious:
		result.AddPenalty(entities.PenaltyModelMildSuspicion, modelMildSuspicionPenalty,
			fmt.Sprintf("model audit mildly doubtful: %s", judgment.Reasoning))
	}

	if judgment.RealisticPeople > 0 && float64(judgment.RealisticPeople) < float64(cmd.PeopleHelped)*0.5 {
		logger.Warn("model people estimate far below claim",
			slog.String("event", "plausibility_people_estimate_low"),
			slog.String("module", "verification/plausibility-service"),
			slog.String("layer", "application"),
			slog.Int("estimated", judgment.RealisticPeople),
			slog.Int("claimed", cmd.PeopleHelped))
	}
}

func manipulationLabel(t string) string {
	if t == "" {
		return "generic"
	}
	return t
}

func head(items []string, limit int) []string {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

func roundTo(v float64, places int) float64 {
	scale := 1.0
	for i := 0; i < places; i++ {
		scale *= 10
	}
	if v >= 0 {
		return float64(int64(v*scale+0.5)) / scale
	}
	return float64(int64(v*scale-0.5)) / scale
}

func (uc *ValidateUseCase) finish(logger *slog.Logger, cmd ValidateCommand, result *entities.Result) {
	if result.HardBlocked {
		logger.Warn("plausibility hard block",
			slog.String("event", "plausibility_hard_block"),
			slog.String("module", "verification/plausibility-service"),
			slog.String("layer", "application"),
			slog.String("action_type", cmd.ActionType),
			slog.String("reason", result.BlockReason))
		return
	}
	logger.Info("plausibility validated",
		slog.String("event", "plausibility_validated"),
		slog.String("module", "verification/plausibility-service"),
		slog.String("layer", "application"),
		slog.String("action_type", cmd.ActionType),
		slog.Float64("total_penalty", result.TotalPenalty),
		slog.Int("penalties", len(result.Penalties)))
}
