package services

import (
	"math"

	"satin/contexts/verification/impact-oracle/domain/entities"
)

// Version tags every event hash and attestation this oracle emits. The
// on-chain verifier pins it; changing it invalidates nothing retroactively
// but forks the hash space.
const Version = "1.1.0"

// Scoring constants. The curve is concave so high scores saturate instead
// of minting runaway rewards.
const (
	MaxEffortHours      = 72.0
	NormalizationFactor = 10.0
	MaxTokenReward      = 100.0
	MinScoreThreshold   = 30.0
	RewardGatePenalty   = 0.60
	DefaultBaseScore    = 60.0
)

var urgencyMultipliers = map[entities.UrgencyLevel]float64{
	entities.UrgencyCritical: 3.0,
	entities.UrgencyHigh:     2.0,
	entities.UrgencyMedium:   1.5,
	entities.UrgencyLow:      1.0,
}

var actionBaseScores = map[entities.ActionType]float64{
	entities.ActionDisasterRelief:      90.0,
	entities.ActionMedicalAid:          85.0,
	entities.ActionFoodDistribution:    80.0,
	entities.ActionCleanWaterProject:   78.0,
	entities.ActionShelterConstruction: 75.0,
	entities.ActionMentalHealthSupport: 72.0,
	entities.ActionEducationSession:    70.0,
	entities.ActionEnvironmentalAction: 65.0,
}

// BaseScore returns the category base, defaulting for unknown categories.
func BaseScore(action entities.ActionType) float64 {
	if base, ok := actionBaseScores[action]; ok {
		return base
	}
	return DefaultBaseScore
}

// UrgencyMultiplier defaults to 1.0 for unknown levels.
func UrgencyMultiplier(urgency entities.UrgencyLevel) float64 {
	if m, ok := urgencyMultipliers[urgency]; ok {
		return m
	}
	return 1.0
}

// ImpactScore computes the normalized score in [0, 100]:
//
//	base(action) × clamp01(confidence) × urgencyMult × (1 + 0.8×clamp01(poverty))
//	× (1 + 0.05×min(effortHours, 72)) / 10, capped at 100, rounded to 4 decimals.
func ImpactScore(action entities.ActionType, urgency entities.UrgencyLevel, confidence, povertyIndex, effortHours float64) float64 {
	baseWeighted := BaseScore(action) * clamp01(confidence)
	locationMult := 1.0 + clamp01(povertyIndex)*0.8
	difficultyMult := 1.0 + math.Min(effortHours, MaxEffortHours)*0.05

	raw := baseWeighted * UrgencyMultiplier(urgency) * locationMult * difficultyMult / NormalizationFactor
	return Round4(math.Min(100.0, raw))
}

// ApplyPenalty discounts a raw score by the accumulated penalty. Reward
// derivation must run on the penalized score, never the raw one.
func ApplyPenalty(rawScore, penalty float64) float64 {
	if penalty <= 0 {
		return rawScore
	}
	return math.Max(0, Round4(rawScore*(1.0-penalty)))
}

// TokenReward maps a (penalized) score onto the concave reward curve. A
// penalty at or above the gate forces zero regardless of score.
func TokenReward(score, penalty float64) float64 {
	if penalty >= RewardGatePenalty {
		return 0
	}
	normalized := score / 100.0
	reward := 5.0 + math.Pow(normalized, 1.5)*45.0
	return math.Min(reward, MaxTokenReward)
}

// Breakdown splits the category base score by the fixed reporting weights
// (urgency .35, difficulty .25, reach .20, authenticity .20).
func Breakdown(action entities.ActionType) entities.ScoreBreakdown {
	base := BaseScore(action)
	return entities.ScoreBreakdown{
		Urgency:      Round2(base * 0.35),
		Difficulty:   Round2(base * 0.25),
		Reach:        Round2(base * 0.20),
		Authenticity: Round2(base * 0.20),
	}
}

// ScaleScore converts a score to the integer basis-point form the
// contract compares against its 3000 floor.
func ScaleScore(score float64) int64 {
	return int64(math.Round(score * 100))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
