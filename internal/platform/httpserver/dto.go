package httpserver

import (
	"encoding/base64"
	"strings"
	"time"

	reputationports "satin/contexts/community/reputation-service/ports"
	reviewqueries "satin/contexts/community/review-service/application/queries"
	"satin/contexts/verification/impact-oracle/application/queries"
	"satin/contexts/verification/impact-oracle/domain/entities"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type GPSRequest struct {
	Latitude       float64 `json:"lat"`
	Longitude      float64 `json:"lon"`
	Altitude       float64 `json:"altitude,omitempty"`
	AccuracyMeters float64 `json:"accuracy_m,omitempty"`
}

type ZKProofRequest struct {
	ProofHash           string   `json:"proof_hash"`
	PublicSignals       []string `json:"public_signals"`
	VerificationKeyHash string   `json:"verification_key_hash,omitempty"`
	Protocol            string   `json:"protocol,omitempty"`
	Curve               string   `json:"curve,omitempty"`
}

// ParametersRequest carries either declared working parameters or the
// request to deduce them from evidence.
type ParametersRequest struct {
	Mode         string  `json:"mode"` // "declared" or "deduce"
	ActionType   string  `json:"action_type,omitempty"`
	Urgency      string  `json:"urgency,omitempty"`
	EffortHours  float64 `json:"effort_hours,omitempty"`
	PeopleHelped int     `json:"people_helped,omitempty"`
}

type VerifyRequest struct {
	VolunteerAddress   string             `json:"volunteer_address"`
	BeneficiaryAddress string             `json:"beneficiary_address,omitempty"`
	IPFSMediaCID       string             `json:"ipfs_media_cid"`
	EvidenceSHA256     string             `json:"evidence_sha256"`
	Description        string             `json:"description"`
	GPS                GPSRequest         `json:"gps"`
	CaptureSource      string             `json:"capture_source"`
	ImageBase64        string             `json:"image_base64,omitempty"`
	ActionTimestampUTC string             `json:"action_timestamp_utc,omitempty"`
	ZKProof            *ZKProofRequest    `json:"zk_proof,omitempty"`
	Parameters         *ParametersRequest `json:"parameters"`
}

func (r VerifyRequest) toSubmission() (entities.Submission, error) {
	sub := entities.Submission{
		VolunteerAddress:   r.VolunteerAddress,
		BeneficiaryAddress: r.BeneficiaryAddress,
		IPFSMediaCID:       r.IPFSMediaCID,
		EvidenceSHA256:     r.EvidenceSHA256,
		Description:        r.Description,
		GPS: entities.GPSCoordinate{
			Latitude:       r.GPS.Latitude,
			Longitude:      r.GPS.Longitude,
			Altitude:       r.GPS.Altitude,
			AccuracyMeters: r.GPS.AccuracyMeters,
		},
		CaptureSource:      r.CaptureSource,
		ActionTimestampUTC: r.ActionTimestampUTC,
	}
	if r.ImageBase64 != "" {
		image, err := base64.StdEncoding.DecodeString(r.ImageBase64)
		if err != nil {
			return entities.Submission{}, err
		}
		sub.Image = image
	}
	if r.ZKProof != nil {
		sub.ZKP = &entities.ZKProofBundle{
			ProofHash:           r.ZKProof.ProofHash,
			PublicSignals:       r.ZKProof.PublicSignals,
			VerificationKeyHash: r.ZKProof.VerificationKeyHash,
			Protocol:            r.ZKProof.Protocol,
			Curve:               r.ZKProof.Curve,
		}
	}
	return sub, nil
}

func (r VerifyRequest) toParameters() entities.Parameters {
	if r.Parameters == nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(r.Parameters.Mode)) {
	case "declared":
		return entities.DeclaredParameters{
			ActionType:   entities.ActionType(strings.ToUpper(strings.TrimSpace(r.Parameters.ActionType))),
			Urgency:      entities.UrgencyLevel(strings.ToUpper(strings.TrimSpace(r.Parameters.Urgency))),
			EffortHours:  r.Parameters.EffortHours,
			PeopleHelped: r.Parameters.PeopleHelped,
		}
	case "deduce":
		return entities.DeduceFromEvidence{}
	default:
		return nil
	}
}

type SignatureResponse struct {
	V uint8  `json:"v"`
	R string `json:"r"`
	S string `json:"s"`
}

type ScoreBreakdownResponse struct {
	Urgency      float64 `json:"urgency"`
	Difficulty   float64 `json:"difficulty"`
	Reach        float64 `json:"reach"`
	Authenticity float64 `json:"authenticity"`
}

type AttestationResponse struct {
	EventID            string                 `json:"event_id"`
	VolunteerAddress   string                 `json:"volunteer_address"`
	BeneficiaryAddress string                 `json:"beneficiary_address"`
	ActionType         string                 `json:"action_type"`
	ImpactScore        float64                `json:"impact_score"`
	ImpactScoreScaled  int64                  `json:"impact_score_scaled"`
	TokenReward        float64                `json:"token_reward"`
	TokenRewardWei     string                 `json:"token_reward_wei"`
	AIConfidence       float64                `json:"ai_confidence"`
	ScoreBreakdown     ScoreBreakdownResponse `json:"score_breakdown"`
	EventHash          string                 `json:"event_hash"`
	ZKProofHash        string                 `json:"zk_proof_hash"`
	Nonce              string                 `json:"nonce"`
	IssuedAt           time.Time              `json:"issued_at"`
	ExpiresAt          time.Time              `json:"expires_at"`
	Signature          SignatureResponse      `json:"signature"`
}

type EvaluationResponse struct {
	EventID           string               `json:"event_id"`
	Status            string               `json:"status"`
	RejectionReason   string               `json:"rejection_reason,omitempty"`
	ImpactScore       float64              `json:"impact_score"`
	AIConfidence      float64              `json:"ai_confidence"`
	TotalPenalty      float64              `json:"total_penalty"`
	TheoreticalReward float64              `json:"theoretical_reward"`
	WarningCodes      []string             `json:"warning_codes,omitempty"`
	ReviewOpened      bool                 `json:"review_opened"`
	Attestation       *AttestationResponse `json:"attestation,omitempty"`
	Review            *ReviewCaseResponse  `json:"review,omitempty"`
}

func evaluationResponseFrom(eval entities.Evaluation) EvaluationResponse {
	resp := EvaluationResponse{
		EventID:           eval.EventID,
		Status:            string(eval.Status),
		RejectionReason:   eval.RejectionReason,
		ImpactScore:       eval.ImpactScore,
		AIConfidence:      eval.AIConfidence,
		TotalPenalty:      eval.TotalPenalty,
		TheoreticalReward: eval.TheoreticalReward,
		WarningCodes:      eval.WarningCodes,
		ReviewOpened:      eval.ReviewOpened,
	}
	att := eval.Attestation
	if att == nil {
		return resp
	}
	wei := ""
	if att.TokenRewardWei != nil {
		wei = att.TokenRewardWei.String()
	}
	resp.Attestation = &AttestationResponse{
		EventID:            att.EventID,
		VolunteerAddress:   att.VolunteerAddress,
		BeneficiaryAddress: att.BeneficiaryAddress,
		ActionType:         string(att.ActionType),
		ImpactScore:        att.ImpactScore,
		ImpactScoreScaled:  att.ImpactScoreScaled,
		TokenReward:        att.TokenReward,
		TokenRewardWei:     wei,
		AIConfidence:       att.AIConfidence,
		ScoreBreakdown: ScoreBreakdownResponse{
			Urgency:      att.ScoreBreakdown.Urgency,
			Difficulty:   att.ScoreBreakdown.Difficulty,
			Reach:        att.ScoreBreakdown.Reach,
			Authenticity: att.ScoreBreakdown.Authenticity,
		},
		EventHash:   att.EventHash,
		ZKProofHash: att.ZKProofHash,
		Nonce:       att.Nonce,
		IssuedAt:    att.IssuedAt,
		ExpiresAt:   att.ExpiresAt,
		Signature: SignatureResponse{
			V: att.Signature.V,
			R: att.Signature.R,
			S: att.Signature.S,
		},
	}
	return resp
}

type OracleInfoResponse struct {
	OracleAddress     string             `json:"oracle_address"`
	Protocol          string             `json:"protocol"`
	Version           string             `json:"version"`
	SupportedActions  []string           `json:"supported_actions"`
	ScoreWeights      map[string]float64 `json:"score_weights"`
	MaxTokenReward    float64            `json:"max_token_reward"`
	MinScoreThreshold float64            `json:"min_score_threshold"`
	SigningAlgorithm  string             `json:"signing_algorithm"`
	ZKProofScheme     string             `json:"zk_proof_scheme"`
}

func oracleInfoResponseFrom(info queries.OracleInfo) OracleInfoResponse {
	actions := make([]string, 0, len(info.SupportedActions))
	for _, action := range info.SupportedActions {
		actions = append(actions, string(action))
	}
	return OracleInfoResponse{
		OracleAddress:     info.OracleAddress,
		Protocol:          info.Protocol,
		Version:           info.Version,
		SupportedActions:  actions,
		ScoreWeights:      info.ScoreWeights,
		MaxTokenReward:    info.MaxTokenReward,
		MinScoreThreshold: info.MinScoreThreshold,
		SigningAlgorithm:  info.SigningAlgorithm,
		ZKProofScheme:     info.ZKProofScheme,
	}
}

type CastVoteRequest struct {
	VoterAddress      string  `json:"voter_address"`
	Approve           bool    `json:"approve"`
	ClaimedReputation float64 `json:"claimed_reputation,omitempty"`
}

type ReviewCaseResponse struct {
	CaseID            string     `json:"case_id"`
	EventID           string     `json:"event_id"`
	SubmitterAddress  string     `json:"submitter_address"`
	ActionType        string     `json:"action_type"`
	Description       string     `json:"description"`
	RejectionReason   string     `json:"rejection_reason"`
	ImpactScore       float64    `json:"impact_score"`
	AIConfidence      float64    `json:"ai_confidence"`
	TheoreticalReward float64    `json:"theoretical_reward"`
	ExclusiveAudit    bool       `json:"exclusive_audit"`
	Phase             string     `json:"phase"`
	Approvals         int        `json:"approvals"`
	Rejections        int        `json:"rejections"`
	Outcome           string     `json:"outcome,omitempty"`
	OpenedAt          time.Time  `json:"opened_at"`
	ClosedAt          *time.Time `json:"closed_at,omitempty"`
}

func reviewCaseResponseFrom(t reviewqueries.Tally) ReviewCaseResponse {
	return ReviewCaseResponse{
		CaseID:            t.Case.CaseID,
		EventID:           t.Case.EventID,
		SubmitterAddress:  t.Case.SubmitterAddress,
		ActionType:        t.Case.ActionType,
		Description:       t.Case.Description,
		RejectionReason:   t.Case.RejectionReason,
		ImpactScore:       t.Case.ImpactScore,
		AIConfidence:      t.Case.AIConfidence,
		TheoreticalReward: t.Case.TheoreticalReward,
		ExclusiveAudit:    t.Case.ExclusiveAudit,
		Phase:             string(t.Phase),
		Approvals:         t.Approvals,
		Rejections:        t.Rejections,
		Outcome:           string(t.Case.Outcome),
		OpenedAt:          t.Case.OpenedAt,
		ClosedAt:          t.Case.ClosedAt,
	}
}

type ReputationResponse struct {
	Address         string    `json:"address"`
	Reputation      float64   `json:"reputation"`
	Tier            string    `json:"tier"`
	PointsToNext    float64   `json:"points_to_next_tier"`
	VerifiedActions int       `json:"verified_actions"`
	RejectedActions int       `json:"rejected_actions"`
	LastVerifiedAt  time.Time `json:"last_verified_at"`
}

func reputationResponseFrom(record reputationports.VolunteerReputation) ReputationResponse {
	return ReputationResponse{
		Address:         record.Address,
		Reputation:      record.Score,
		Tier:            string(record.Tier),
		PointsToNext:    record.TierProgress.PointsToNext,
		VerifiedActions: record.VerifiedActions,
		RejectedActions: record.RejectedActions,
		LastVerifiedAt:  record.LastVerifiedAt,
	}
}

type LeaderboardEntryResponse struct {
	Rank            int     `json:"rank"`
	Address         string  `json:"address"`
	Tier            string  `json:"tier"`
	Score           float64 `json:"score"`
	VerifiedActions int     `json:"verified_actions"`
}

type LeaderboardResponse struct {
	Entries         []LeaderboardEntryResponse `json:"entries"`
	TotalVolunteers int                        `json:"total_volunteers"`
	YourRank        int                        `json:"your_rank,omitempty"`
}

func leaderboardResponseFrom(board reputationports.Leaderboard) LeaderboardResponse {
	resp := LeaderboardResponse{
		TotalVolunteers: board.TotalVolunteers,
		YourRank:        board.YourRank,
		Entries:         make([]LeaderboardEntryResponse, 0, len(board.Entries)),
	}
	for _, entry := range board.Entries {
		resp.Entries = append(resp.Entries, LeaderboardEntryResponse{
			Rank:            entry.Rank,
			Address:         entry.Address,
			Tier:            string(entry.Tier),
			Score:           entry.Score,
			VerifiedActions: entry.VerifiedActions,
		})
	}
	return resp
}
