package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	domainerrors "satin/contexts/community/reputation-service/domain/errors"
	"satin/contexts/community/reputation-service/ports"
)

// Service accrues and serves volunteer reputation. One verified action
// adds its impact score as points; rejections never subtract, they only
// count against the record.
type Service struct {
	Repo   ports.Repository
	Clock  ports.Clock
	Logger *slog.Logger
}

func (s Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now().UTC()
}

func normalizeAddress(raw string) (string, error) {
	address := strings.ToLower(strings.TrimSpace(raw))
	if !strings.HasPrefix(address, "0x") || len(address) != 42 {
		return "", domainerrors.ErrInvalidAddress
	}
	return address, nil
}

func (s Service) GetReputation(ctx context.Context, address string) (ports.VolunteerReputation, error) {
	normalized, err := normalizeAddress(address)
	if err != nil {
		return ports.VolunteerReputation{}, err
	}
	return s.Repo.GetReputation(ctx, normalized)
}

func (s Service) GetLeaderboard(ctx context.Context, filter ports.LeaderboardFilter) (ports.Leaderboard, error) {
	if filter.Tier != "" && !ports.IsValidTier(filter.Tier) {
		return ports.Leaderboard{}, domainerrors.ErrInvalidRequest
	}
	if filter.Offset < 0 || filter.Limit < 0 {
		return ports.Leaderboard{}, domainerrors.ErrInvalidRequest
	}
	if filter.Limit == 0 {
		filter.Limit = 50
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	filter.ViewerAddress = strings.ToLower(strings.TrimSpace(filter.ViewerAddress))

	board, err := s.Repo.GetLeaderboard(ctx, filter)
	if err != nil {
		return ports.Leaderboard{}, err
	}

	resolveLogger(s.Logger).Debug("reputation leaderboard served",
		"event", "reputation_leaderboard_served",
		"module", "community/reputation-service",
		"layer", "application",
		"tier", string(filter.Tier),
		"limit", filter.Limit,
		"offset", filter.Offset,
		"total_volunteers", board.TotalVolunteers,
	)
	return board, nil
}

// RecordVerification credits a verified action. Points equal the
// attested impact score, so the 0-100 scale carries straight through.
func (s Service) RecordVerification(ctx context.Context, address string, impactScore float64) (ports.VolunteerReputation, error) {
	normalized, err := normalizeAddress(address)
	if err != nil {
		return ports.VolunteerReputation{}, err
	}
	if impactScore < 0 {
		impactScore = 0
	}

	record, err := s.Repo.ApplyVerification(ctx, normalized, impactScore, s.now())
	if err != nil {
		return ports.VolunteerReputation{}, err
	}

	resolveLogger(s.Logger).Info("reputation verification recorded",
		"event", "reputation_verification_recorded",
		"module", "community/reputation-service",
		"layer", "application",
		"volunteer_address", normalized,
		"points", impactScore,
		"score", record.Score,
		"tier", string(record.Tier),
	)
	return record, nil
}

func (s Service) RecordRejection(ctx context.Context, address string) (ports.VolunteerReputation, error) {
	normalized, err := normalizeAddress(address)
	if err != nil {
		return ports.VolunteerReputation{}, err
	}
	return s.Repo.ApplyRejection(ctx, normalized, s.now())
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
