package services

import (
	"encoding/json"
	"time"

	"satin/contexts/verification/impact-oracle/domain/entities"
)

const (
	TopicAttestationIssued  = "attestation.issued"
	TopicEvaluationRejected = "evaluation.rejected"
)

type attestationIssuedPayload struct {
	EventID          string  `json:"event_id"`
	VolunteerAddress string  `json:"volunteer_address"`
	ActionType       string  `json:"action_type"`
	ImpactScore      float64 `json:"impact_score"`
	TokenReward      float64 `json:"token_reward"`
	TokenRewardWei   string  `json:"token_reward_wei"`
	ExpiresAt        string  `json:"expires_at"`
}

type evaluationRejectedPayload struct {
	EventID         string  `json:"event_id"`
	RejectionReason string  `json:"rejection_reason"`
	ImpactScore     float64 `json:"impact_score"`
	ReviewOpened    bool    `json:"review_opened"`
}

// OutboxEventFor maps a persisted evaluation onto its integration event.
// Pending evaluations emit nothing.
func OutboxEventFor(eval entities.Evaluation) (eventType string, payload []byte, ok bool) {
	switch {
	case eval.Status == entities.StatusVerified && eval.Attestation != nil:
		att := eval.Attestation
		body, err := json.Marshal(attestationIssuedPayload{
			EventID:          eval.EventID,
			VolunteerAddress: att.VolunteerAddress,
			ActionType:       string(att.ActionType),
			ImpactScore:      att.ImpactScore,
			TokenReward:      att.TokenReward,
			TokenRewardWei:   att.TokenRewardWei.String(),
			ExpiresAt:        att.ExpiresAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return "", nil, false
		}
		return TopicAttestationIssued, body, true
	case eval.Status == entities.StatusRejected:
		body, err := json.Marshal(evaluationRejectedPayload{
			EventID:         eval.EventID,
			RejectionReason: eval.RejectionReason,
			ImpactScore:     eval.ImpactScore,
			ReviewOpened:    eval.ReviewOpened,
		})
		if err != nil {
			return "", nil, false
		}
		return TopicEvaluationRejected, body, true
	default:
		return "", nil, false
	}
}
