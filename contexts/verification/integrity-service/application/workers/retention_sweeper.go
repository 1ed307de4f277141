package workers

import (
	"context"
	"log/slog"
	"time"

	application "satin/contexts/verification/integrity-service/application"
	"satin/contexts/verification/integrity-service/ports"
)

// RetentionSweeper prunes expired rate-limit entries and perceptual
// fingerprints that have aged out of the near-duplicate window.
type RetentionSweeper struct {
	Submissions       ports.SubmissionLog
	Fingerprints      ports.FingerprintStore
	Clock             ports.Clock
	RateWindow        time.Duration
	FingerprintWindow time.Duration
	Logger            *slog.Logger
}

func (j RetentionSweeper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	now := time.Now().UTC()
	if j.Clock != nil {
		now = j.Clock.Now().UTC()
	}

	rateWindow := j.RateWindow
	if rateWindow <= 0 {
		rateWindow = time.Hour
	}
	fpWindow := j.FingerprintWindow
	if fpWindow <= 0 {
		fpWindow = 7 * 24 * time.Hour
	}

	if err := j.Submissions.PruneBefore(ctx, now.Add(-rateWindow)); err != nil {
		logger.Error("submission log prune failed",
			"event", "integrity_retention_submissions_failed",
			"module", "verification/integrity-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if err := j.Fingerprints.PruneBefore(ctx, now.Add(-fpWindow)); err != nil {
		logger.Error("fingerprint prune failed",
			"event", "integrity_retention_fingerprints_failed",
			"module", "verification/integrity-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	logger.Info("retention sweep completed",
		"event", "integrity_retention_completed",
		"module", "verification/integrity-service",
		"layer", "worker",
	)
	return nil
}
