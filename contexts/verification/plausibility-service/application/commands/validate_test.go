package commands_test

import (
	"context"
	"errors"
	"testing"

	"satin/contexts/verification/plausibility-service/application/commands"
	"satin/contexts/verification/plausibility-service/domain/entities"
	"satin/contexts/verification/plausibility-service/ports"
)

type stubAuditor struct {
	judgment ports.ConsistencyJudgment
	err      error
	calls    int
}

func (s *stubAuditor) Judge(_ context.Context, _ ports.ConsistencyRequest) (ports.ConsistencyJudgment, error) {
	s.calls++
	return s.judgment, s.err
}

type stubDeducer struct {
	params entities.DeducedParameters
	err    error
}

func (s *stubDeducer) Deduce(_ context.Context, _ ports.DeduceRequest) (entities.DeducedParameters, error) {
	return s.params, s.err
}

func hasPenalty(result entities.Result, code entities.PenaltyCode) bool {
	for _, p := range result.Penalties {
		if p.Code == code {
			return true
		}
	}
	return false
}

func TestValidateHonestFoodDistribution(t *testing.T) {
	uc := &commands.ValidateUseCase{}

	result := uc.Validate(context.Background(), commands.ValidateCommand{
		ActionType:      "FOOD_DISTRIBUTION",
		Urgency:         "HIGH",
		EffortHours:     8,
		PeopleHelped:    150,
		Description:     "Distribusi 150 paket nasi bungkus bersama tim relawan selama 8 jam di posko pengungsi banjir Bekasi.",
		DetectedObjects: []string{"person", "bowl", "cup"},
		PersonCount:     12,
	})

	if result.HardBlocked {
		t.Fatalf("honest submission hard blocked: %s", result.BlockReason)
	}
	if !result.Passed {
		t.Fatal("expected submission to pass")
	}
	if result.TotalPenalty >= 0.10 {
		t.Fatalf("expected near-zero penalty, got %.2f (%v)", result.TotalPenalty, result.Codes())
	}
	if result.AdjustedEffortHours != 8 || result.AdjustedPeopleHelped != 150 {
		t.Fatalf("in-range values should pass through unclamped, got %.1fh / %d",
			result.AdjustedEffortHours, result.AdjustedPeopleHelped)
	}
}

func TestValidateImpossibleThroughputHardBlocks(t *testing.T) {
	uc := &commands.ValidateUseCase{}

	result := uc.Validate(context.Background(), commands.ValidateCommand{
		ActionType:      "DISASTER_RELIEF",
		Urgency:         "CRITICAL",
		EffortHours:     1,
		PeopleHelped:    5000,
		Description:     "Saya membantu seorang nenek menyebrang jalan di dekat rumah saya.",
		DetectedObjects: []string{"person"},
		PersonCount:     2,
	})

	if !result.HardBlocked {
		t.Fatalf("5000 people in one hour must hard block, got penalty %.2f (%v)",
			result.TotalPenalty, result.Codes())
	}
}

func TestValidateEffortDoubleCeilingHardBlocks(t *testing.T) {
	uc := &commands.ValidateUseCase{}

	result := uc.Validate(context.Background(), commands.ValidateCommand{
		ActionType:   "EDUCATION_SESSION",
		Urgency:      "HIGH",
		EffortHours:  72,
		PeopleHelped: 50,
		Description:  "Mengajar anak-anak membaca di sekolah darurat.",
		PersonCount:  -1,
	})

	if !result.HardBlocked {
		t.Fatal("72h of teaching must hard block (ceiling is 10h)")
	}
}

func TestValidateUnknownActionGetsSinglePenalty(t *testing.T) {
	uc := &commands.ValidateUseCase{}

	result := uc.Validate(context.Background(), commands.ValidateCommand{
		ActionType:   "PET_GROOMING",
		Urgency:      "LOW",
		EffortHours:  2,
		PeopleHelped: 3,
		Description:  "Memandikan anjing tetangga selama dua jam penuh.",
		PersonCount:  -1,
	})

	if result.HardBlocked {
		t.Fatal("unknown action should penalize, not block")
	}
	if len(result.Penalties) != 1 || result.Penalties[0].Code != entities.PenaltyUnknownAction {
		t.Fatalf("expected only unknown_action_type, got %v", result.Codes())
	}
	if result.TotalPenalty != 0.20 {
		t.Fatalf("expected 0.20 penalty, got %.2f", result.TotalPenalty)
	}
}

func TestValidateUrgencyIncompatible(t *testing.T) {
	uc := &commands.ValidateUseCase{}

	result := uc.Validate(context.Background(), commands.ValidateCommand{
		ActionType:   "EDUCATION_SESSION",
		Urgency:      "CRITICAL",
		EffortHours:  4,
		PeopleHelped: 30,
		Description:  "Workshop literasi digital untuk murid sekolah menengah.",
		PersonCount:  -1,
	})

	if !hasPenalty(result, entities.PenaltyUrgencyIncompatible) {
		t.Fatalf("CRITICAL is not an accepted urgency for education, got %v", result.Codes())
	}
	if hasPenalty(result, entities.PenaltyCriticalBanned) {
		t.Fatal("incompatible urgency should short-circuit the banned-critical check")
	}
}

func TestValidateCriticalWithoutContext(t *testing.T) {
	uc := &commands.ValidateUseCase{}

	result := uc.Validate(context.Background(), commands.ValidateCommand{
		ActionType:   "FOOD_DISTRIBUTION",
		Urgency:      "CRITICAL",
		EffortHours:  6,
		PeopleHelped: 100,
		Description:  "Distribusi makanan rutin mingguan untuk warga komplek perumahan.",
		PersonCount:  -1,
	})

	if !hasPenalty(result, entities.PenaltyCriticalWithoutContext) {
		t.Fatalf("CRITICAL food distribution needs emergency context, got %v", result.Codes())
	}
}

func TestValidateCrossActionContamination(t *testing.T) {
	uc := &commands.ValidateUseCase{}

	result := uc.Validate(context.Background(), commands.ValidateCommand{
		ActionType:   "DISASTER_RELIEF",
		Urgency:      "HIGH",
		EffortHours:  3,
		PeopleHelped: 20,
		Description:  "Kegiatan bersih pantai dan pungut sampah bersama komunitas untuk korban bencana.",
		PersonCount:  -1,
	})

	if !hasPenalty(result, entities.PenaltyCrossActionMismatch) {
		t.Fatalf("beach-cleanup phrasing under disaster relief must flag, got %v", result.Codes())
	}
}

func TestValidateVisibleCountChecks(t *testing.T) {
	uc := &commands.ValidateUseCase{}

	result := uc.Validate(context.Background(), commands.ValidateCommand{
		ActionType:      "FOOD_DISTRIBUTION",
		Urgency:         "HIGH",
		EffortHours:     8,
		PeopleHelped:    900,
		Description:     "Distribusi paket makanan darurat untuk pengungsi banjir di posko utama.",
		DetectedObjects: []string{"person"},
		PersonCount:     2,
	})

	if !hasPenalty(result, entities.PenaltyVisibleCountMismatch) {
		t.Fatalf("900 claimed with 2 visible must flag, got %v", result.Codes())
	}

	noPeople := uc.Validate(context.Background(), commands.ValidateCommand{
		ActionType:   "FOOD_DISTRIBUTION",
		Urgency:      "HIGH",
		EffortHours:  2,
		PeopleHelped: 40,
		Description:  "Distribusi paket makanan darurat untuk pengungsi banjir di posko utama.",
		PersonCount:  0,
	})

	if !hasPenalty(noPeople, entities.PenaltyNoPeopleVisible) {
		t.Fatalf("zero visible with 40 claimed must flag, got %v", noPeople.Codes())
	}
}

func TestValidateSuspiciousObjects(t *testing.T) {
	uc := &commands.ValidateUseCase{}

	result := uc.Validate(context.Background(), commands.ValidateCommand{
		ActionType:      "DISASTER_RELIEF",
		Urgency:         "HIGH",
		EffortHours:     5,
		PeopleHelped:    30,
		Description:     "Evakuasi korban banjir dan bantuan darurat di wilayah terdampak.",
		DetectedObjects: []string{"person", "couch", "tv"},
		PersonCount:     4,
	})

	if !hasPenalty(result, entities.PenaltySuspiciousObjects) {
		t.Fatalf("living-room objects in a disaster zone photo must flag, got %v", result.Codes())
	}
}

func TestValidateAccumulationPromotesToHardBlock(t *testing.T) {
	uc := &commands.ValidateUseCase{}

	result := uc.Validate(context.Background(), commands.ValidateCommand{
		ActionType:   "MENTAL_HEALTH_SUPPORT",
		Urgency:      "CRITICAL",
		EffortHours:  20,
		PeopleHelped: 100,
		Description:  "abc",
		PersonCount:  -1,
	})

	if !result.HardBlocked {
		t.Fatalf("stacked inflation signals must promote to a hard block, codes %v", result.Codes())
	}
	if result.TotalPenalty > entities.PenaltyCap {
		t.Fatalf("reported penalty must stay capped at %.2f, got %.2f",
			entities.PenaltyCap, result.TotalPenalty)
	}
}

func TestValidateClampsAdjustedValues(t *testing.T) {
	uc := &commands.ValidateUseCase{}

	result := uc.Validate(context.Background(), commands.ValidateCommand{
		ActionType:   "CLEAN_WATER_PROJECT",
		Urgency:      "HIGH",
		EffortHours:  60,
		PeopleHelped: 700,
		Description:  "Perbaikan sumur dan instalasi filter air bersih untuk desa terdampak kekeringan.",
		PersonCount:  -1,
	})

	if result.AdjustedEffortHours != 48 {
		t.Fatalf("effort must clamp to 48h, got %.1f", result.AdjustedEffortHours)
	}
	if result.AdjustedPeopleHelped != 500 {
		t.Fatalf("people must clamp to 500, got %d", result.AdjustedPeopleHelped)
	}
}

func TestValidateModelFabricatedHardBlocks(t *testing.T) {
	auditor := &stubAuditor{judgment: ports.ConsistencyJudgment{
		Verdict:         entities.VerdictFabricated,
		Confidence:      85,
		Inconsistencies: []string{"photo shows an empty table"},
		Reasoning:       "claim does not match the photo",
	}}
	uc := &commands.ValidateUseCase{Auditor: auditor}

	result := uc.Validate(context.Background(), commands.ValidateCommand{
		ActionType:   "FOOD_DISTRIBUTION",
		Urgency:      "HIGH",
		EffortHours:  8,
		PeopleHelped: 150,
		Description:  "Distribusi 150 paket nasi bungkus di posko pengungsi banjir.",
		PersonCount:  -1,
	})

	if !result.HardBlocked {
		t.Fatal("high-confidence fabrication verdict must hard block")
	}
	if result.ModelVerdict != entities.VerdictFabricated {
		t.Fatalf("verdict not recorded, got %q", result.ModelVerdict)
	}
}

func TestValidateModelSuspiciousPenalty(t *testing.T) {
	auditor := &stubAuditor{judgment: ports.ConsistencyJudgment{
		Verdict:          entities.VerdictSuspicious,
		Confidence:       80,
		ManipulationType: "people_inflated",
		Reasoning:        "photo shows far fewer people than claimed",
	}}
	uc := &commands.ValidateUseCase{Auditor: auditor}

	result := uc.Validate(context.Background(), commands.ValidateCommand{
		ActionType:   "FOOD_DISTRIBUTION",
		Urgency:      "HIGH",
		EffortHours:  8,
		PeopleHelped: 150,
		Description:  "Distribusi 150 paket nasi bungkus di posko pengungsi banjir.",
		PersonCount:  -1,
	})

	if result.HardBlocked {
		t.Fatalf("suspicious verdict alone must not block: %s", result.BlockReason)
	}
	if !hasPenalty(result, entities.PenaltyModelSuspicious) {
		t.Fatalf("expected model_suspicious penalty, got %v", result.Codes())
	}
	// 0.10 + 0.80*0.30
	if result.TotalPenalty != 0.34 {
		t.Fatalf("expected 0.34 penalty, got %.2f", result.TotalPenalty)
	}
}

func TestValidateAuditorFailureDegrades(t *testing.T) {
	auditor := &stubAuditor{err: errors.New("connection refused")}
	uc := &commands.ValidateUseCase{Auditor: auditor}

	result := uc.Validate(context.Background(), commands.ValidateCommand{
		ActionType:   "FOOD_DISTRIBUTION",
		Urgency:      "HIGH",
		EffortHours:  8,
		PeopleHelped: 150,
		Description:  "Distribusi 150 paket nasi bungkus di posko pengungsi banjir.",
		PersonCount:  -1,
	})

	if auditor.calls != 1 {
		t.Fatalf("auditor should have been consulted once, got %d", auditor.calls)
	}
	if result.HardBlocked || result.TotalPenalty != 0 {
		t.Fatalf("auditor failure must not penalize, got %.2f (%v)",
			result.TotalPenalty, result.Codes())
	}
}

func TestDeduceFallsBackWithoutDeducer(t *testing.T) {
	uc := &commands.DeduceUseCase{}

	params := uc.Deduce(context.Background(), commands.DeduceCommand{
		Description: "Membantu membersihkan pantai bersama warga.",
		PersonCount: 4,
	})

	if params.Confidence != 0.2 {
		t.Fatalf("fallback confidence must be 0.2, got %.2f", params.Confidence)
	}
	if params.PeopleHelped != 4 {
		t.Fatalf("fallback should anchor on detector count, got %d", params.PeopleHelped)
	}
	if len(params.FraudIndicators) == 0 {
		t.Fatal("fallback must carry a fraud indicator")
	}
}

func TestDeduceCapsEstimateByVisibleCount(t *testing.T) {
	uc := &commands.DeduceUseCase{Deducer: &stubDeducer{params: entities.DeducedParameters{
		Category:     "FOOD_DISTRIBUTION",
		Urgency:      "HIGH",
		PeopleHelped: 900,
		PeopleMin:    500,
		PeopleMax:    1200,
		EffortHours:  6,
		Confidence:   0.9,
	}}}

	params := uc.Deduce(context.Background(), commands.DeduceCommand{
		Description: "Distribusi makanan di posko.",
		PersonCount: 5,
	})

	if params.PeopleHelped != 150 {
		t.Fatalf("estimate must cap at 5x30=150, got %d", params.PeopleHelped)
	}
	if params.PeopleMax != 150 || params.PeopleMin != 150 {
		t.Fatalf("band must collapse to the cap, got [%d, %d]", params.PeopleMin, params.PeopleMax)
	}

	capped := false
	for _, f := range params.FraudIndicators {
		if f == "people_capped_by_visible_count" {
			capped = true
		}
	}
	if !capped {
		t.Fatalf("cap must be flagged as a fraud indicator, got %v", params.FraudIndicators)
	}
}

func TestDeduceUnknownCategoryLowersConfidence(t *testing.T) {
	uc := &commands.DeduceUseCase{Deducer: &stubDeducer{params: entities.DeducedParameters{
		Category:     "INTERPRETIVE_DANCE",
		Urgency:      "LOW",
		PeopleHelped: 10,
		EffortHours:  2,
		Confidence:   0.95,
	}}}

	params := uc.Deduce(context.Background(), commands.DeduceCommand{
		Description: "Pentas seni amal.",
		PersonCount: -1,
	})

	if params.Confidence > 0.2 {
		t.Fatalf("unknown category must lower confidence, got %.2f", params.Confidence)
	}
}

func TestDeduceErrorFallsBack(t *testing.T) {
	uc := &commands.DeduceUseCase{Deducer: &stubDeducer{err: errors.New("model timeout")}}

	params := uc.Deduce(context.Background(), commands.DeduceCommand{
		Description: "Distribusi makanan di posko.",
		PersonCount: -1,
	})

	if params.Category != "UNKNOWN" || params.Confidence != 0.2 {
		t.Fatalf("error must fall back to conservative defaults, got %q %.2f",
			params.Category, params.Confidence)
	}
}
