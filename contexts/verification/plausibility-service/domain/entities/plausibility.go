package entities

// Verdict is the external consistency model's judgment of a claim.
type Verdict string

const (
	VerdictConsistent Verdict = "consistent"
	VerdictSuspicious Verdict = "suspicious"
	VerdictFabricated Verdict = "fabricated"
)

// PenaltyCode is the closed set of plausibility findings. Penalties are
// data, not errors; each carries its contribution and a reason.
type PenaltyCode string

const (
	PenaltyUnknownAction          PenaltyCode = "unknown_action_type"
	PenaltyEffortInflated         PenaltyCode = "effort_hours_inflated"
	PenaltyEffortTooLow           PenaltyCode = "effort_too_low_for_action"
	PenaltyPeopleInflated         PenaltyCode = "people_helped_inflated"
	PenaltyThroughputAnomaly      PenaltyCode = "effort_people_ratio_anomaly"
	PenaltyUrgencyIncompatible    PenaltyCode = "urgency_incompatible_with_action"
	PenaltyCriticalWithoutContext PenaltyCode = "critical_urgency_without_context"
	PenaltyCriticalBanned         PenaltyCode = "critical_urgency_banned_for_action"
	PenaltyDescriptionTooShort    PenaltyCode = "description_too_short"
	PenaltyKeywordMismatch        PenaltyCode = "description_keyword_mismatch"
	PenaltyCrossActionMismatch    PenaltyCode = "description_action_mismatch"
	PenaltyNoPeopleVisible        PenaltyCode = "no_people_visible_but_high_claimed"
	PenaltyVisibleCountMismatch   PenaltyCode = "visible_count_vs_claimed_mismatch"
	PenaltyNoPersonDetected       PenaltyCode = "no_person_detected_for_people_action"
	PenaltySuspiciousObjects      PenaltyCode = "suspicious_objects_detected"
	PenaltyModelSuspicious        PenaltyCode = "model_suspicious"
	PenaltyModelMildSuspicion     PenaltyCode = "model_mild_suspicion"
	PenaltyDeductionCapped        PenaltyCode = "deduction_capped_by_visible_count"
)

// Penalty is one structured soft finding.
type Penalty struct {
	Code   PenaltyCode
	Amount float64
	Reason string
}

// Penalty accumulation cap. Beyond the promotion threshold the whole
// result is escalated to a hard block.
const (
	PenaltyCap             = 0.60
	HardBlockAccumulation  = 0.80
	DescriptionMinLength   = 20
	VisibleCountMultiplier = 30
)

// Result is the validator's outcome for one submission.
type Result struct {
	Passed       bool
	HardBlocked  bool
	BlockReason  string
	Penalties    []Penalty
	TotalPenalty float64

	AdjustedEffortHours  float64
	AdjustedPeopleHelped int

	ModelVerdict Verdict
	ModelReason  string
}

// AddPenalty appends a finding and accumulates the capped total.
func (r *Result) AddPenalty(code PenaltyCode, amount float64, reason string) {
	r.Penalties = append(r.Penalties, Penalty{Code: code, Amount: amount, Reason: reason})
	r.TotalPenalty += amount
	if r.TotalPenalty > PenaltyCap {
		r.TotalPenalty = PenaltyCap
	}
}

// HardBlock marks the result as refused outright.
func (r *Result) HardBlock(reason string) {
	r.HardBlocked = true
	r.Passed = false
	r.BlockReason = reason
}

// Codes returns the emitted penalty codes in order.
func (r *Result) Codes() []PenaltyCode {
	out := make([]PenaltyCode, 0, len(r.Penalties))
	for _, p := range r.Penalties {
		out = append(out, p.Code)
	}
	return out
}

// DeducedParameters is an AI-estimated parameter set for a submission that
// carried no user-declared parameters. Values are never trusted verbatim;
// the validator reconciles them against detector output.
type DeducedParameters struct {
	Category        string
	Urgency         string
	PeopleHelped    int
	PeopleMin       int
	PeopleMax       int
	EffortHours     float64
	EffortMin       float64
	EffortMax       float64
	Confidence      float64
	FraudIndicators []string
	Rationale       string
}
