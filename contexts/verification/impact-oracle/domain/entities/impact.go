package entities

import (
	"math/big"
	"time"
)

// ActionType is the closed set of recognized beneficial action categories.
type ActionType string

const (
	ActionFoodDistribution    ActionType = "FOOD_DISTRIBUTION"
	ActionMedicalAid          ActionType = "MEDICAL_AID"
	ActionShelterConstruction ActionType = "SHELTER_CONSTRUCTION"
	ActionEducationSession    ActionType = "EDUCATION_SESSION"
	ActionDisasterRelief      ActionType = "DISASTER_RELIEF"
	ActionCleanWaterProject   ActionType = "CLEAN_WATER_PROJECT"
	ActionMentalHealthSupport ActionType = "MENTAL_HEALTH_SUPPORT"
	ActionEnvironmentalAction ActionType = "ENVIRONMENTAL_ACTION"
)

// ActionTypes lists every recognized category in base-score order.
var ActionTypes = []ActionType{
	ActionDisasterRelief,
	ActionMedicalAid,
	ActionFoodDistribution,
	ActionCleanWaterProject,
	ActionShelterConstruction,
	ActionMentalHealthSupport,
	ActionEducationSession,
	ActionEnvironmentalAction,
}

// UrgencyLevel orders LOW < MEDIUM < HIGH < CRITICAL.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "LOW"
	UrgencyMedium   UrgencyLevel = "MEDIUM"
	UrgencyHigh     UrgencyLevel = "HIGH"
	UrgencyCritical UrgencyLevel = "CRITICAL"
)

// VerificationStatus is the lifecycle of one evaluation.
type VerificationStatus string

const (
	StatusPendingReview VerificationStatus = "PENDING_REVIEW"
	StatusVerified      VerificationStatus = "VERIFIED"
	StatusRejected      VerificationStatus = "REJECTED"
)

// GPSCoordinate is a submitted location fix.
type GPSCoordinate struct {
	Latitude       float64
	Longitude      float64
	Altitude       float64
	AccuracyMeters float64
}

// ZKProofBundle is the submitter's identity-privacy proof. Phase 1 uses a
// Pedersen commitment; the layout anticipates Groth16.
type ZKProofBundle struct {
	ProofHash           string
	PublicSignals       []string
	VerificationKeyHash string
	Protocol            string
	Curve               string
}

// Submission is the evidence package a volunteer ships from the dApp.
type Submission struct {
	VolunteerAddress   string
	BeneficiaryAddress string
	IPFSMediaCID       string
	EvidenceSHA256     string
	Description        string
	GPS                GPSCoordinate
	CaptureSource      string // "live_capture" or "gallery"
	Image              []byte
	ZKP                *ZKProofBundle
	ActionTimestampUTC string
}

// Parameters is the tagged union over the two legitimate input shapes:
// the volunteer either declares the action's working parameters, or asks
// the oracle to deduce them from evidence. Every consumer must switch
// exhaustively over both shapes.
type Parameters interface {
	parameters()
}

// DeclaredParameters is the user-declared shape.
type DeclaredParameters struct {
	ActionType   ActionType
	Urgency      UrgencyLevel
	EffortHours  float64
	PeopleHelped int
}

func (DeclaredParameters) parameters() {}

// DeduceFromEvidence asks the oracle to estimate the parameters itself.
type DeduceFromEvidence struct{}

func (DeduceFromEvidence) parameters() {}

// WorkingParameters is the resolved parameter set the scorer runs on,
// after clamping or deduction.
type WorkingParameters struct {
	ActionType   ActionType
	Urgency      UrgencyLevel
	EffortHours  float64
	PeopleHelped int
	Deduced      bool
	Confidence   float64
}

// ScoreBreakdown decomposes the category base score by fixed weights.
type ScoreBreakdown struct {
	Urgency      float64
	Difficulty   float64
	Reach        float64
	Authenticity float64
}

// Signature is an on-chain-recoverable ECDSA signature.
type Signature struct {
	V uint8
	R string
	S string
}

// Attestation is the signed payload the vault contract accepts via
// signature recovery. Every field feeds releaseReward() directly.
type Attestation struct {
	EventID            string
	VolunteerAddress   string
	BeneficiaryAddress string
	ActionType         ActionType
	Status             VerificationStatus

	ImpactScore       float64
	ImpactScoreScaled int64
	TokenReward       float64
	TokenRewardWei    *big.Int
	AIConfidence      float64
	ScoreBreakdown    ScoreBreakdown

	EventHash   string // hex, no 0x
	ZKProofHash string // 0x-prefixed hex
	Nonce       string
	IssuedAt    time.Time
	ExpiresAt   time.Time

	Signature Signature
}

// Evaluation is the full pipeline outcome. Attestation is nil unless the
// status is VERIFIED; rejected evaluations keep the score and the
// theoretical reward so review voting can reason about them.
type Evaluation struct {
	EventID           string
	Status            VerificationStatus
	RejectionReason   string
	ImpactScore       float64
	AIConfidence      float64
	TotalPenalty      float64
	TheoreticalReward float64
	WarningCodes      []string
	Attestation       *Attestation
	ReviewOpened      bool
}
