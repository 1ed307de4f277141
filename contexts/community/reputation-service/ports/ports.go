package ports

import (
	"context"
	"strings"
	"time"
)

type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Tier floors in cumulative impact points.
const (
	SilverFloor   = 200.0
	GoldFloor     = 750.0
	PlatinumFloor = 2000.0
)

func ParseTier(raw string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(TierBronze):
		return TierBronze, true
	case string(TierSilver):
		return TierSilver, true
	case string(TierGold):
		return TierGold, true
	case string(TierPlatinum):
		return TierPlatinum, true
	default:
		return "", false
	}
}

func IsValidTier(tier Tier) bool {
	switch tier {
	case TierBronze, TierSilver, TierGold, TierPlatinum:
		return true
	default:
		return false
	}
}

// TierForScore maps cumulative points onto the tier ladder.
func TierForScore(score float64) Tier {
	switch {
	case score >= PlatinumFloor:
		return TierPlatinum
	case score >= GoldFloor:
		return TierGold
	case score >= SilverFloor:
		return TierSilver
	default:
		return TierBronze
	}
}

// NextTierFloor returns the floor of the tier above, or 0 at platinum.
func NextTierFloor(tier Tier) float64 {
	switch tier {
	case TierBronze:
		return SilverFloor
	case TierSilver:
		return GoldFloor
	case TierGold:
		return PlatinumFloor
	default:
		return 0
	}
}

type TierProgress struct {
	CurrentPoints  float64
	NextTierPoints float64
	PointsToNext   float64
}

// VolunteerReputation is the cumulative standing of one wallet address.
// Points accrue from verified attestations; rejections only count.
type VolunteerReputation struct {
	Address         string
	Score           float64
	Tier            Tier
	TierProgress    TierProgress
	VerifiedActions int
	RejectedActions int
	LastVerifiedAt  time.Time
	UpdatedAt       time.Time
}

type LeaderboardEntry struct {
	Rank            int
	Address         string
	Tier            Tier
	Score           float64
	VerifiedActions int
}

type Leaderboard struct {
	Entries         []LeaderboardEntry
	TotalVolunteers int
	YourRank        int
}

type LeaderboardFilter struct {
	Tier          Tier
	Limit         int
	Offset        int
	ViewerAddress string
}

type Repository interface {
	GetReputation(ctx context.Context, address string) (VolunteerReputation, error)
	GetLeaderboard(ctx context.Context, filter LeaderboardFilter) (Leaderboard, error)
	ApplyVerification(ctx context.Context, address string, points float64, at time.Time) (VolunteerReputation, error)
	ApplyRejection(ctx context.Context, address string, at time.Time) (VolunteerReputation, error)
}

type Clock interface {
	Now() time.Time
}
