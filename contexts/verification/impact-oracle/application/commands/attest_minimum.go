package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"satin/contexts/verification/impact-oracle/application"
	"satin/contexts/verification/impact-oracle/domain/entities"
	domainerrors "satin/contexts/verification/impact-oracle/domain/errors"
	"satin/contexts/verification/impact-oracle/domain/services"
	"satin/contexts/verification/impact-oracle/ports"
	"satin/internal/evm"
)

// AttestMinimumCommand issues the community-approved fallback attestation
// for an event that failed automated verification.
type AttestMinimumCommand struct {
	EventID          string
	VolunteerAddress string
	ActionType       entities.ActionType
}

// AttestMinimumUseCase signs a fixed minimum-grade attestation through
// the same chain the evaluator uses. The score is pinned to the
// acceptance floor, never the original AI score, so community approval
// cannot mint an inflated reward.
type AttestMinimumUseCase struct {
	Store  ports.AttestationStore
	Signer *evm.Signer
	Clock  ports.Clock
	IDs    ports.IDGenerator
	Logger *slog.Logger

	AttestationTTL time.Duration
}

func (uc *AttestMinimumUseCase) attestationTTL() time.Duration {
	if uc.AttestationTTL > 0 {
		return uc.AttestationTTL
	}
	return defaultAttestationTTL
}

func (uc *AttestMinimumUseCase) AttestMinimum(ctx context.Context, cmd AttestMinimumCommand) (*entities.Attestation, error) {
	logger := application.ResolveLogger(uc.Logger)
	if uc.Signer == nil {
		return nil, domainerrors.ErrSignerUnavailable
	}

	now := uc.Clock.Now()
	score := services.MinScoreThreshold
	reward := services.TokenReward(score, 0)

	att, err := signAttestation(uc.Signer, attestationInput{
		EventID:          cmd.EventID,
		VolunteerAddress: cmd.VolunteerAddress,
		ActionType:       cmd.ActionType,
		Score:            score,
		Confidence:       0,
		Reward:           reward,
		Nonce:            strings.ReplaceAll(uc.IDs.NewID(), "-", ""),
		IssuedAt:         now,
		ExpiresAt:        now.Add(uc.attestationTTL()),
	})
	if err != nil {
		return nil, err
	}

	eval, getErr := uc.Store.GetEvaluation(ctx, cmd.EventID)
	if getErr != nil && !errors.Is(getErr, domainerrors.ErrEvaluationNotFound) {
		return nil, getErr
	}
	eval.EventID = cmd.EventID
	eval.Status = entities.StatusVerified
	eval.RejectionReason = ""
	eval.ImpactScore = score
	eval.TheoreticalReward = reward
	eval.Attestation = att
	if err := uc.Store.SaveEvaluation(ctx, eval); err != nil {
		return nil, err
	}

	logger.Info("minimum-grade attestation issued",
		slog.String("event", "impact_minimum_attested"),
		slog.String("module", "verification/impact-oracle"),
		slog.String("layer", "application"),
		slog.String("event_id", cmd.EventID),
		slog.Float64("score", score),
		slog.Float64("reward", reward))
	return att, nil
}
