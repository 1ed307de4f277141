package commands

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"satin/contexts/verification/impact-oracle/application"
	"satin/contexts/verification/impact-oracle/domain/entities"
	domainerrors "satin/contexts/verification/impact-oracle/domain/errors"
	"satin/contexts/verification/impact-oracle/domain/services"
	"satin/contexts/verification/impact-oracle/ports"
	integritycommands "satin/contexts/verification/integrity-service/application/commands"
	integrityentities "satin/contexts/verification/integrity-service/domain/entities"
	plausibilitycommands "satin/contexts/verification/plausibility-service/application/commands"
	"satin/internal/evm"
)

const (
	defaultAttestationTTL = time.Hour
	minImageConfidence    = 0.20
	zeroAddress           = "0x0000000000000000000000000000000000000000"
)

var weiPerToken = new(big.Float).SetFloat64(1e18)

// EvaluateCommand is one verification request: the evidence package plus
// the parameter input shape (declared or deduce-from-evidence).
type EvaluateCommand struct {
	Submission entities.Submission
	Input      entities.Parameters
}

// EvaluateUseCase runs the full verification pipeline: integrity
// screening (with its atomic evidence reservation) before any slow model
// call, then detection, plausibility, scoring, and the signing chain.
// Failed evaluations are persisted and routed to community review rather
// than discarded.
type EvaluateUseCase struct {
	Integrity    *integritycommands.ScreenUseCase
	Plausibility *plausibilitycommands.ValidateUseCase
	Deduction    *plausibilitycommands.DeduceUseCase
	Detector     ports.Detector
	Store        ports.AttestationStore
	Review       ports.ReviewOpener
	Signer       *evm.Signer
	Clock        ports.Clock
	IDs          ports.IDGenerator
	Logger       *slog.Logger

	AttestationTTL time.Duration
}

func (uc *EvaluateUseCase) attestationTTL() time.Duration {
	if uc.AttestationTTL > 0 {
		return uc.AttestationTTL
	}
	return defaultAttestationTTL
}

// Evaluate decides one submission. Abuse-level refusals (ban, rate limit,
// duplicate evidence) surface as errors; every other outcome is a
// persisted Evaluation, verified or rejected.
func (uc *EvaluateUseCase) Evaluate(ctx context.Context, cmd EvaluateCommand) (entities.Evaluation, error) {
	logger := application.ResolveLogger(uc.Logger)
	sub := cmd.Submission

	if uc.Signer == nil {
		return entities.Evaluation{}, domainerrors.ErrSignerUnavailable
	}
	if _, err := evm.ParseAddress(sub.VolunteerAddress); err != nil {
		return entities.Evaluation{}, fmt.Errorf("%w: volunteer address: %v", domainerrors.ErrInvalidSubmission, err)
	}
	if sub.BeneficiaryAddress != "" {
		if _, err := evm.ParseAddress(sub.BeneficiaryAddress); err != nil {
			return entities.Evaluation{}, fmt.Errorf("%w: beneficiary address: %v", domainerrors.ErrInvalidSubmission, err)
		}
	}

	eventID := uc.IDs.NewID()
	now := uc.Clock.Now()

	// Evidence is reserved atomically before any model call runs, so two
	// racing submissions of the same file cannot both pass the screen.
	finding, err := uc.Integrity.Screen(ctx, integritycommands.ScreenCommand{
		AgentAddress: sub.VolunteerAddress,
		EventID:      eventID,
		ContentHash:  sub.EvidenceSHA256,
		Image:        sub.Image,
		Source:       integrityentities.CaptureSource(sub.CaptureSource),
		SubmittedLat: sub.GPS.Latitude,
		SubmittedLon: sub.GPS.Longitude,
	})
	if err != nil {
		return entities.Evaluation{}, err
	}
	if !finding.OK {
		switch finding.BlockCode {
		case integrityentities.BlockAgentBanned:
			return entities.Evaluation{}, domainerrors.ErrAgentBanned
		case integrityentities.BlockRateLimited:
			return entities.Evaluation{}, domainerrors.ErrRateLimited
		default:
			return entities.Evaluation{}, fmt.Errorf("%w: %s", domainerrors.ErrDuplicateEvidence, finding.BlockReason)
		}
	}

	gpsCheck := services.ValidateGPS(sub.GPS)
	if !gpsCheck.Valid {
		eval := uc.reject(ctx, logger, eventID, sub, "gps validation failed: "+gpsCheck.Reason, 0, 0, 0, nil, false)
		return eval, nil
	}

	detection, detectorRan := uc.detect(ctx, logger, eventID, sub.Image)

	working, deducedIndicators, err := uc.resolveParameters(ctx, cmd, detection, detectorRan)
	if err != nil {
		return entities.Evaluation{}, err
	}

	personCount := -1
	var objects []string
	if detectorRan {
		personCount = detection.PersonCount
		objects = detection.Objects
	}
	validation := uc.Plausibility.Validate(ctx, plausibilitycommands.ValidateCommand{
		ActionType:      string(working.ActionType),
		Urgency:         string(working.Urgency),
		EffortHours:     working.EffortHours,
		PeopleHelped:    working.PeopleHelped,
		Description:     sub.Description,
		DetectedObjects: objects,
		PersonCount:     personCount,
		Image:           sub.Image,
	})

	warnings := deducedIndicators
	for _, code := range validation.Codes() {
		warnings = append(warnings, string(code))
	}
	for _, w := range finding.Warnings {
		warnings = append(warnings, string(w.Code))
	}

	if validation.HardBlocked {
		eval := uc.reject(ctx, logger, eventID, sub,
			"plausibility hard block: "+validation.BlockReason,
			0, working.Confidence, 0, warnings, true)
		return eval, nil
	}

	totalPenalty := finding.Penalty + validation.TotalPenalty

	// Confidence baseline: text/GPS-only submissions are trusted at 1.0;
	// an image can only refine the confidence, absence never penalizes.
	confidence := 1.0
	if len(sub.Image) > 0 {
		confidence = detection.Confidence
	}
	if working.Deduced {
		confidence = min(confidence, working.Confidence)
	}

	if sub.ZKP != nil && !services.VerifyZKProof(*sub.ZKP) {
		eval := uc.reject(ctx, logger, eventID, sub,
			"zk proof verification failed", 0, confidence, totalPenalty, warnings, false)
		return eval, nil
	}

	povertyIndex := services.DerivePovertyIndex(validation.AdjustedPeopleHelped)
	if gpsCheck.InHighNeedZone {
		povertyIndex = gpsCheck.DetectedPovertyIndex
	}
	effortForScore := services.DeriveEffortHours(validation.AdjustedEffortHours, validation.AdjustedPeopleHelped)

	rawScore := services.ImpactScore(working.ActionType, working.Urgency, confidence, povertyIndex, effortForScore)
	score := services.ApplyPenalty(rawScore, totalPenalty)

	var reasons []string
	if len(sub.Image) > 0 && confidence < minImageConfidence {
		reasons = append(reasons, fmt.Sprintf("image confidence %.2f below minimum %.2f", confidence, minImageConfidence))
	}
	if score < services.MinScoreThreshold {
		reasons = append(reasons, fmt.Sprintf("impact score %.2f below minimum threshold %.0f", score, services.MinScoreThreshold))
	}
	if len(reasons) > 0 {
		eval := uc.reject(ctx, logger, eventID, sub,
			strings.Join(reasons, " | "), score, confidence, totalPenalty, warnings, false)
		return eval, nil
	}

	reward := services.TokenReward(score, totalPenalty)

	att, err := uc.buildAttestation(eventID, sub, working, now, score, confidence, reward)
	if err != nil {
		return entities.Evaluation{}, err
	}

	eval := entities.Evaluation{
		EventID:           eventID,
		Status:            entities.StatusVerified,
		ImpactScore:       score,
		AIConfidence:      confidence,
		TotalPenalty:      totalPenalty,
		TheoreticalReward: reward,
		WarningCodes:      warnings,
		Attestation:       att,
	}

	if reward == 0 && uc.Review != nil {
		// Penalty gate fired: the attestation stands but pays nothing, so
		// the community gets a shot at restoring a minimum-grade reward.
		uc.openReview(ctx, logger, eventID, sub, working, eval, false)
		eval.ReviewOpened = true
	}

	if err := uc.Store.SaveEvaluation(ctx, eval); err != nil {
		return entities.Evaluation{}, err
	}

	logger.Info("impact verified",
		slog.String("event", "impact_verified"),
		slog.String("module", "verification/impact-oracle"),
		slog.String("layer", "application"),
		slog.String("event_id", eventID),
		slog.Float64("score", score),
		slog.Float64("reward", reward),
		slog.Float64("penalty", totalPenalty))
	return eval, nil
}

func (uc *EvaluateUseCase) detect(ctx context.Context, logger *slog.Logger, eventID string, image []byte) (ports.DetectionResult, bool) {
	if len(image) == 0 || uc.Detector == nil {
		return ports.DetectionResult{}, false
	}
	detection, err := uc.Detector.Analyze(ctx, image)
	if err != nil {
		logger.Warn("object detection degraded",
			slog.String("event", "impact_detection_degraded"),
			slog.String("module", "verification/impact-oracle"),
			slog.String("layer", "application"),
			slog.String("event_id", eventID),
			slog.String("error", err.Error()))
		return ports.DetectionResult{}, false
	}
	return detection, true
}

// resolveParameters matches the input union exhaustively: either the
// volunteer declared the working parameters, or the oracle deduces them.
func (uc *EvaluateUseCase) resolveParameters(
	ctx context.Context,
	cmd EvaluateCommand,
	detection ports.DetectionResult,
	detectorRan bool,
) (entities.WorkingParameters, []string, error) {
	switch input := cmd.Input.(type) {
	case entities.DeclaredParameters:
		return entities.WorkingParameters{
			ActionType:   input.ActionType,
			Urgency:      input.Urgency,
			EffortHours:  input.EffortHours,
			PeopleHelped: input.PeopleHelped,
			Confidence:   1.0,
		}, nil, nil

	case entities.DeduceFromEvidence:
		personCount := -1
		var objects []string
		if detectorRan {
			personCount = detection.PersonCount
			objects = detection.Objects
		}
		deduced := uc.Deduction.Deduce(ctx, plausibilitycommands.DeduceCommand{
			Description:     cmd.Submission.Description,
			Image:           cmd.Submission.Image,
			DetectedObjects: objects,
			PersonCount:     personCount,
		})
		return entities.WorkingParameters{
			ActionType:   entities.ActionType(deduced.Category),
			Urgency:      entities.UrgencyLevel(deduced.Urgency),
			EffortHours:  deduced.EffortHours,
			PeopleHelped: deduced.PeopleHelped,
			Deduced:      true,
			Confidence:   deduced.Confidence,
		}, deduced.FraudIndicators, nil

	default:
		return entities.WorkingParameters{}, nil, domainerrors.ErrUnhandledInputShape
	}
}

func (uc *EvaluateUseCase) reject(
	ctx context.Context,
	logger *slog.Logger,
	eventID string,
	sub entities.Submission,
	reason string,
	score, confidence, penalty float64,
	warnings []string,
	exclusiveAudit bool,
) entities.Evaluation {
	eval := entities.Evaluation{
		EventID:           eventID,
		Status:            entities.StatusRejected,
		RejectionReason:   reason,
		ImpactScore:       score,
		AIConfidence:      confidence,
		TotalPenalty:      penalty,
		TheoreticalReward: services.TokenReward(score, penalty),
		WarningCodes:      warnings,
	}

	if uc.Review != nil {
		uc.openReview(ctx, logger, eventID, sub, entities.WorkingParameters{}, eval, exclusiveAudit)
		eval.ReviewOpened = true
	}

	if err := uc.Store.SaveEvaluation(ctx, eval); err != nil {
		logger.Error("persist rejected evaluation failed",
			slog.String("event", "impact_persist_failed"),
			slog.String("module", "verification/impact-oracle"),
			slog.String("layer", "application"),
			slog.String("event_id", eventID),
			slog.String("error", err.Error()))
	}

	logger.Warn("impact rejected",
		slog.String("event", "impact_rejected"),
		slog.String("module", "verification/impact-oracle"),
		slog.String("layer", "application"),
		slog.String("event_id", eventID),
		slog.String("reason", reason),
		slog.Float64("score", score))
	return eval
}

func (uc *EvaluateUseCase) openReview(
	ctx context.Context,
	logger *slog.Logger,
	eventID string,
	sub entities.Submission,
	working entities.WorkingParameters,
	eval entities.Evaluation,
	exclusiveAudit bool,
) {
	err := uc.Review.OpenCase(ctx, ports.OpenReviewCase{
		EventID:           eventID,
		SubmitterAddress:  sub.VolunteerAddress,
		ActionType:        string(working.ActionType),
		Description:       sub.Description,
		RejectionReason:   eval.RejectionReason,
		ImpactScore:       eval.ImpactScore,
		AIConfidence:      eval.AIConfidence,
		TheoreticalReward: eval.TheoreticalReward,
		ExclusiveAudit:    exclusiveAudit,
	})
	if err != nil {
		logger.Error("open review case failed",
			slog.String("event", "impact_review_open_failed"),
			slog.String("module", "verification/impact-oracle"),
			slog.String("layer", "application"),
			slog.String("event_id", eventID),
			slog.String("error", err.Error()))
	}
}

func (uc *EvaluateUseCase) buildAttestation(
	eventID string,
	sub entities.Submission,
	working entities.WorkingParameters,
	now time.Time,
	score, confidence, reward float64,
) (*entities.Attestation, error) {
	return signAttestation(uc.Signer, attestationInput{
		EventID:            eventID,
		VolunteerAddress:   sub.VolunteerAddress,
		BeneficiaryAddress: sub.BeneficiaryAddress,
		ActionType:         working.ActionType,
		IPFSMediaCID:       sub.IPFSMediaCID,
		ActionTimestampUTC: sub.ActionTimestampUTC,
		Latitude:           sub.GPS.Latitude,
		Longitude:          sub.GPS.Longitude,
		Score:              score,
		Confidence:         confidence,
		Reward:             reward,
		Nonce:              strings.ReplaceAll(uc.IDs.NewID(), "-", ""),
		IssuedAt:           now,
		ExpiresAt:          now.Add(uc.attestationTTL()),
	})
}
