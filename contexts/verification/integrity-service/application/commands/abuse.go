package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "satin/contexts/verification/integrity-service/application"
	"satin/contexts/verification/integrity-service/domain/entities"
	domainerrors "satin/contexts/verification/integrity-service/domain/errors"
	"satin/contexts/verification/integrity-service/ports"
)

const defaultBanThreshold = 3

// AbuseUseCase maintains per-address misconduct state on behalf of the
// review outcome flow: rejections build a streak toward a ban, approvals
// clear the slate.
type AbuseUseCase struct {
	Abuse        ports.AbuseStateStore
	Clock        ports.Clock
	Logger       *slog.Logger
	BanThreshold int
}

// RecordRejection increments the rejection streak and bans the address
// once the streak reaches the threshold.
func (uc AbuseUseCase) RecordRejection(ctx context.Context, agentAddress string) (entities.AbuseState, error) {
	logger := application.ResolveLogger(uc.Logger)
	agent := strings.ToLower(strings.TrimSpace(agentAddress))
	if agent == "" {
		return entities.AbuseState{}, domainerrors.ErrInvalidScreenInput
	}

	state, err := uc.Abuse.RecordRejection(ctx, agent, uc.banThreshold(), uc.now())
	if err != nil {
		return entities.AbuseState{}, err
	}
	if state.Banned {
		logger.Warn("agent banned after rejection streak",
			"event", "integrity_agent_banned",
			"module", "verification/integrity-service",
			"layer", "application",
			"agent_address", agent,
			"rejection_streak", state.RejectionStreak,
		)
	} else {
		logger.Info("rejection recorded",
			"event", "integrity_rejection_recorded",
			"module", "verification/integrity-service",
			"layer", "application",
			"agent_address", agent,
			"rejection_streak", state.RejectionStreak,
		)
	}
	return state, nil
}

// ClearCounters resets the misconduct counters after a community approval.
func (uc AbuseUseCase) ClearCounters(ctx context.Context, agentAddress string) error {
	agent := strings.ToLower(strings.TrimSpace(agentAddress))
	if agent == "" {
		return domainerrors.ErrInvalidScreenInput
	}
	if err := uc.Abuse.Clear(ctx, agent, uc.now()); err != nil {
		return err
	}
	application.ResolveLogger(uc.Logger).Info("abuse counters cleared",
		"event", "integrity_abuse_cleared",
		"module", "verification/integrity-service",
		"layer", "application",
		"agent_address", agent,
	)
	return nil
}

func (uc AbuseUseCase) banThreshold() int {
	if uc.BanThreshold > 0 {
		return uc.BanThreshold
	}
	return defaultBanThreshold
}

func (uc AbuseUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now()
	}
	return time.Now().UTC()
}
