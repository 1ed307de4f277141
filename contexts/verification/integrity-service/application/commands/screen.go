package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "satin/contexts/verification/integrity-service/application"
	"satin/contexts/verification/integrity-service/domain/entities"
	domainerrors "satin/contexts/verification/integrity-service/domain/errors"
	"satin/contexts/verification/integrity-service/domain/services"
	"satin/contexts/verification/integrity-service/ports"
	"satin/internal/shared/geo"
)

const (
	defaultRateWindow   = time.Hour
	defaultMaxPerWindow = 5

	defaultNearDupThreshold = 10
	defaultNearDupWindow    = 7 * 24 * time.Hour

	metadataMissingPenalty  = 0.15
	photoStalePenalty       = 0.15
	photoVeryStalePenalty   = 0.30
	gpsMismatchPenalty      = 0.25
	metadataPenaltyCap      = 0.50
	liveCaptureDiscount     = 0.10
	elaSuspiciousPenalty    = 0.30
	elaPossiblyEditsPenalty = 0.10

	photoStaleAge     = 48 * time.Hour
	photoVeryStaleAge = 168 * time.Hour
	gpsMismatchKm     = 50.0

	// Accumulated soft penalty never exceeds this, regardless of how many
	// checks fired.
	totalPenaltyCap = 0.60

	// Placeholder hash used by text-only submissions; exempt from dedup.
	zeroContentHash = "0000000000000000000000000000000000000000000000000000000000000000"
)

// ScreenCommand carries one submission through the fraud pipeline.
type ScreenCommand struct {
	AgentAddress string
	EventID      string
	ContentHash  string
	Image        []byte
	Source       entities.CaptureSource
	SubmittedLat float64
	SubmittedLon float64
}

// ScreenUseCase runs the ordered fraud checks: ban state, rate limit,
// exact dedup, perceptual near-dup, capture metadata, and re-encode
// forensics. The first hard block short-circuits the rest.
type ScreenUseCase struct {
	Reserve      ports.ContentReserve
	Submissions  ports.SubmissionLog
	Fingerprints ports.FingerprintStore
	Abuse        ports.AbuseStateStore
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	Logger       *slog.Logger

	RateWindow       time.Duration
	MaxPerWindow     int
	NearDupThreshold int
	NearDupWindow    time.Duration
}

// Screen executes the pipeline. Hard blocks are reported in the Finding;
// the error return is reserved for storage faults.
func (uc ScreenUseCase) Screen(ctx context.Context, cmd ScreenCommand) (entities.Finding, error) {
	logger := application.ResolveLogger(uc.Logger)
	agent := strings.ToLower(strings.TrimSpace(cmd.AgentAddress))
	if agent == "" {
		return entities.Finding{}, domainerrors.ErrInvalidScreenInput
	}
	now := uc.now()

	if state, found, err := uc.Abuse.Get(ctx, agent); err != nil {
		return entities.Finding{}, err
	} else if found && state.Banned {
		logger.Warn("screening blocked banned agent",
			"event", "integrity_screen_agent_banned",
			"module", "verification/integrity-service",
			"layer", "application",
			"agent_address", agent,
		)
		return blocked(entities.BlockAgentBanned,
			"address is banned after repeated rejected or manipulated submissions"), nil
	}

	if finding, err := uc.checkRateLimit(ctx, agent, now); err != nil {
		return entities.Finding{}, err
	} else if !finding.OK {
		return finding, nil
	}
	if err := uc.Submissions.Append(ctx, agent, now); err != nil {
		return entities.Finding{}, err
	}

	// Reserve the content hash before any slow analysis so two in-flight
	// submissions of the same file cannot both pass.
	if finding, err := uc.checkDuplicate(ctx, cmd, agent, now); err != nil {
		return entities.Finding{}, err
	} else if !finding.OK {
		if _, aerr := uc.Abuse.RecordManipulation(ctx, agent, now); aerr != nil {
			logger.Error("manipulation counter update failed",
				"event", "integrity_abuse_update_failed",
				"module", "verification/integrity-service",
				"layer", "application",
				"agent_address", agent,
				"error", aerr.Error(),
			)
		}
		return finding, nil
	}

	finding := entities.Finding{OK: true}
	if len(cmd.Image) > 0 {
		if nf, err := uc.checkNearDuplicate(ctx, cmd, agent, now); err != nil {
			return entities.Finding{}, err
		} else if !nf.OK {
			if _, aerr := uc.Abuse.RecordManipulation(ctx, agent, now); aerr != nil {
				logger.Error("manipulation counter update failed",
					"event", "integrity_abuse_update_failed",
					"module", "verification/integrity-service",
					"layer", "application",
					"agent_address", agent,
					"error", aerr.Error(),
				)
			}
			return nf, nil
		}

		uc.checkCaptureMetadata(&finding, cmd)
		uc.checkErrorLevel(&finding, cmd, logger)

		if cmd.Source == entities.SourceLiveCapture && finding.Penalty > 0 {
			discount := liveCaptureDiscount
			if discount > finding.Penalty {
				discount = finding.Penalty
			}
			finding.Penalty -= discount
			finding.Warnings = append(finding.Warnings, entities.Warning{
				Code:   entities.WarningLiveCaptureDiscount,
				Amount: -discount,
				Reason: "live capture verified by in-app camera",
			})
		}
	}

	if finding.Penalty > totalPenaltyCap {
		finding.Penalty = totalPenaltyCap
	}

	logger.Info("screening completed",
		"event", "integrity_screen_completed",
		"module", "verification/integrity-service",
		"layer", "application",
		"agent_address", agent,
		"event_id", cmd.EventID,
		"penalty", finding.Penalty,
		"warnings", len(finding.Warnings),
	)
	return finding, nil
}

func (uc ScreenUseCase) checkRateLimit(ctx context.Context, agent string, now time.Time) (entities.Finding, error) {
	window := uc.rateWindow()
	limit := uc.maxPerWindow()
	since := now.Add(-window)

	count, err := uc.Submissions.CountSince(ctx, agent, since)
	if err != nil {
		return entities.Finding{}, err
	}
	if count < limit {
		return entities.Finding{OK: true}, nil
	}

	wait := window
	if oldest, found, err := uc.Submissions.OldestSince(ctx, agent, since); err != nil {
		return entities.Finding{}, err
	} else if found {
		wait = oldest.Add(window).Sub(now)
	}
	return blocked(entities.BlockRateLimited,
		fmt.Sprintf("rate limit: max %d submissions per %s, try again in %s",
			limit, window, wait.Round(time.Second))), nil
}

func (uc ScreenUseCase) checkDuplicate(ctx context.Context, cmd ScreenCommand, agent string, now time.Time) (entities.Finding, error) {
	hash := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cmd.ContentHash), "0x"))
	if hash == "" || hash == zeroContentHash {
		return entities.Finding{OK: true}, nil
	}

	res, err := uc.Reserve.Reserve(ctx, hash, agent, cmd.EventID, now)
	if err != nil {
		return entities.Finding{}, err
	}
	if res.Reserved {
		return entities.Finding{OK: true}, nil
	}
	if res.ExistingAgent == agent {
		return blocked(entities.BlockSelfDuplicate,
			"duplicate evidence: this file was already submitted by this address"), nil
	}
	return blocked(entities.BlockThirdPartyDuplicate,
		"duplicate evidence: this file was already submitted by another address"), nil
}

func (uc ScreenUseCase) checkNearDuplicate(ctx context.Context, cmd ScreenCommand, agent string, now time.Time) (entities.Finding, error) {
	hash, bits, err := services.Fingerprint(cmd.Image)
	if err != nil {
		// Undecodable images fall through to the metadata/forensics checks
		// rather than blocking here.
		return entities.Finding{OK: true}, nil
	}

	threshold := uc.nearDupThreshold()
	recorded, err := uc.Fingerprints.ListSince(ctx, now.Add(-uc.nearDupWindow()))
	if err != nil {
		return entities.Finding{}, err
	}
	for _, fp := range recorded {
		if fp.AgentAddress == agent {
			continue
		}
		dist, derr := services.FingerprintDistance(hash, bits, fp.Hash, fp.Bits)
		if derr != nil {
			continue
		}
		if dist < threshold {
			return blocked(entities.BlockImageReuse,
				fmt.Sprintf("near-duplicate image: visual distance %d below threshold %d against evidence from another address", dist, threshold)), nil
		}
	}

	id, err := uc.newID(ctx)
	if err != nil {
		return entities.Finding{}, err
	}
	if err := uc.Fingerprints.Save(ctx, entities.Fingerprint{
		FingerprintID: id,
		AgentAddress:  agent,
		EventID:       cmd.EventID,
		Hash:          hash,
		Bits:          bits,
		CreatedAt:     now,
	}); err != nil {
		return entities.Finding{}, err
	}
	return entities.Finding{OK: true}, nil
}

func (uc ScreenUseCase) checkCaptureMetadata(finding *entities.Finding, cmd ScreenCommand) {
	// In-app captures are canvas JPEGs without embedded metadata, so the
	// absence checks below would punish honest submitters.
	if cmd.Source == entities.SourceLiveCapture {
		return
	}

	meta := services.ExtractMetadata(cmd.Image)
	penalty := 0.0
	if !meta.HasMetadata {
		penalty += metadataMissingPenalty
		finding.Warnings = append(finding.Warnings, entities.Warning{
			Code:   entities.WarningNoCaptureMetadata,
			Amount: metadataMissingPenalty,
			Reason: "no capture metadata found, possible screenshot or generated image",
		})
	} else {
		if meta.TakenAt != nil {
			age := uc.now().Sub(*meta.TakenAt)
			if age > photoVeryStaleAge {
				penalty += photoVeryStalePenalty
				finding.Warnings = append(finding.Warnings, entities.Warning{
					Code:   entities.WarningPhotoVeryStale,
					Amount: photoVeryStalePenalty,
					Reason: fmt.Sprintf("photo captured %.0f hours ago", age.Hours()),
				})
			} else if age > photoStaleAge {
				penalty += photoStalePenalty
				finding.Warnings = append(finding.Warnings, entities.Warning{
					Code:   entities.WarningPhotoStale,
					Amount: photoStalePenalty,
					Reason: fmt.Sprintf("photo captured %.0f hours ago", age.Hours()),
				})
			}
		}
		if meta.Latitude != nil && meta.Longitude != nil &&
			(cmd.SubmittedLat != 0 || cmd.SubmittedLon != 0) {
			dist := geo.HaversineKm(*meta.Latitude, *meta.Longitude, cmd.SubmittedLat, cmd.SubmittedLon)
			if dist > gpsMismatchKm {
				penalty += gpsMismatchPenalty
				finding.Warnings = append(finding.Warnings, entities.Warning{
					Code:   entities.WarningGPSMismatch,
					Amount: gpsMismatchPenalty,
					Reason: fmt.Sprintf("embedded GPS is %.0f km from submitted location", dist),
				})
			}
		}
	}

	if penalty > metadataPenaltyCap {
		penalty = metadataPenaltyCap
	}
	finding.Penalty += penalty
}

func (uc ScreenUseCase) checkErrorLevel(finding *entities.Finding, cmd ScreenCommand, logger *slog.Logger) {
	mean, verdict, err := services.ErrorLevel(cmd.Image)
	if err != nil {
		logger.Warn("error level analysis failed",
			"event", "integrity_ela_failed",
			"module", "verification/integrity-service",
			"layer", "application",
			"event_id", cmd.EventID,
			"error", err.Error(),
		)
		return
	}

	if warning, ok := errorLevelWarning(mean, verdict); ok {
		finding.Penalty += warning.Amount
		finding.Warnings = append(finding.Warnings, warning)
	}
}

// errorLevelWarning maps a divergence verdict to its soft penalty.
// Authentic and unknown verdicts carry no warning.
func errorLevelWarning(mean float64, verdict entities.ELAVerdict) (entities.Warning, bool) {
	switch verdict {
	case entities.ELASuspicious:
		return entities.Warning{
			Code:   entities.WarningSuspiciousEdit,
			Amount: elaSuspiciousPenalty,
			Reason: fmt.Sprintf("re-encode divergence %.1f indicates local edits", mean),
		}, true
	case entities.ELAPossiblyEdited:
		return entities.Warning{
			Code:   entities.WarningPossiblyEdited,
			Amount: elaPossiblyEditsPenalty,
			Reason: fmt.Sprintf("re-encode divergence %.1f slightly elevated", mean),
		}, true
	default:
		return entities.Warning{}, false
	}
}

func (uc ScreenUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now()
	}
	return time.Now().UTC()
}

func (uc ScreenUseCase) newID(ctx context.Context) (string, error) {
	if uc.IDGen != nil {
		return uc.IDGen.NewID(ctx)
	}
	return fmt.Sprintf("fp-%d", uc.now().UnixNano()), nil
}

func (uc ScreenUseCase) rateWindow() time.Duration {
	if uc.RateWindow > 0 {
		return uc.RateWindow
	}
	return defaultRateWindow
}

func (uc ScreenUseCase) maxPerWindow() int {
	if uc.MaxPerWindow > 0 {
		return uc.MaxPerWindow
	}
	return defaultMaxPerWindow
}

func (uc ScreenUseCase) nearDupThreshold() int {
	if uc.NearDupThreshold > 0 {
		return uc.NearDupThreshold
	}
	return defaultNearDupThreshold
}

func (uc ScreenUseCase) nearDupWindow() time.Duration {
	if uc.NearDupWindow > 0 {
		return uc.NearDupWindow
	}
	return defaultNearDupWindow
}

func blocked(code entities.BlockCode, reason string) entities.Finding {
	return entities.Finding{OK: false, BlockCode: code, BlockReason: reason}
}
