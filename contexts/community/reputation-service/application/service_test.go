package application_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"satin/contexts/community/reputation-service/adapters/memory"
	"satin/contexts/community/reputation-service/application"
	domainerrors "satin/contexts/community/reputation-service/domain/errors"
	"satin/contexts/community/reputation-service/ports"
)

const (
	addrAlice = "0x2c7536e3605d9c16a7a3d7b1898e529396a65c23"
	addrBob   = "0x1111111111111111111111111111111111111111"
	addrCarol = "0x2222222222222222222222222222222222222222"
)

func newService(t *testing.T) (application.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.NowFunc = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	service := application.Service{
		Repo:   store,
		Clock:  store,
		Logger: slog.Default(),
	}
	return service, store
}

func TestVerificationAccruesPointsAndTiers(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	record, err := service.RecordVerification(ctx, addrAlice, 90)
	if err != nil {
		t.Fatalf("RecordVerification: %v", err)
	}
	if record.Score != 90 || record.Tier != ports.TierBronze {
		t.Fatalf("after one action: score %.1f tier %s", record.Score, record.Tier)
	}
	if record.TierProgress.PointsToNext != 110 {
		t.Fatalf("PointsToNext = %.1f, want 110", record.TierProgress.PointsToNext)
	}

	// Two more strong actions cross the silver floor.
	if _, err := service.RecordVerification(ctx, addrAlice, 90); err != nil {
		t.Fatalf("RecordVerification: %v", err)
	}
	record, err = service.RecordVerification(ctx, addrAlice, 90)
	if err != nil {
		t.Fatalf("RecordVerification: %v", err)
	}
	if record.Score != 270 || record.Tier != ports.TierSilver {
		t.Fatalf("after three actions: score %.1f tier %s", record.Score, record.Tier)
	}
	if record.VerifiedActions != 3 {
		t.Fatalf("VerifiedActions = %d, want 3", record.VerifiedActions)
	}
}

func TestRejectionCountsWithoutSubtracting(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	if _, err := service.RecordVerification(ctx, addrAlice, 50); err != nil {
		t.Fatalf("RecordVerification: %v", err)
	}
	record, err := service.RecordRejection(ctx, addrAlice)
	if err != nil {
		t.Fatalf("RecordRejection: %v", err)
	}
	if record.Score != 50 {
		t.Fatalf("rejection changed score: %.1f", record.Score)
	}
	if record.RejectedActions != 1 {
		t.Fatalf("RejectedActions = %d, want 1", record.RejectedActions)
	}
}

func TestGetReputationNormalizesAndValidates(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	if _, err := service.RecordVerification(ctx, addrAlice, 40); err != nil {
		t.Fatalf("RecordVerification: %v", err)
	}

	record, err := service.GetReputation(ctx, "0x2C7536E3605D9C16a7a3D7b1898e529396a65c23")
	if err != nil {
		t.Fatalf("GetReputation mixed case: %v", err)
	}
	if record.Address != addrAlice {
		t.Fatalf("address not normalized: %s", record.Address)
	}

	if _, err := service.GetReputation(ctx, "not-an-address"); !errors.Is(err, domainerrors.ErrInvalidAddress) {
		t.Fatalf("invalid address err = %v", err)
	}
	if _, err := service.GetReputation(ctx, addrBob); !errors.Is(err, domainerrors.ErrReputationNotFound) {
		t.Fatalf("unknown address err = %v", err)
	}
}

func TestLeaderboardRanksAndViewer(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	if _, err := service.RecordVerification(ctx, addrAlice, 300); err != nil {
		t.Fatalf("RecordVerification: %v", err)
	}
	if _, err := service.RecordVerification(ctx, addrBob, 900); err != nil {
		t.Fatalf("RecordVerification: %v", err)
	}
	if _, err := service.RecordVerification(ctx, addrCarol, 50); err != nil {
		t.Fatalf("RecordVerification: %v", err)
	}

	board, err := service.GetLeaderboard(ctx, ports.LeaderboardFilter{ViewerAddress: addrCarol})
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}
	if board.TotalVolunteers != 3 || board.YourRank != 3 {
		t.Fatalf("total %d rank %d", board.TotalVolunteers, board.YourRank)
	}
	if len(board.Entries) != 3 || board.Entries[0].Address != addrBob {
		t.Fatalf("unexpected ordering: %+v", board.Entries)
	}
	if board.Entries[0].Tier != ports.TierGold {
		t.Fatalf("top tier = %s, want gold", board.Entries[0].Tier)
	}

	silverOnly, err := service.GetLeaderboard(ctx, ports.LeaderboardFilter{Tier: ports.TierSilver})
	if err != nil {
		t.Fatalf("GetLeaderboard tier filter: %v", err)
	}
	if len(silverOnly.Entries) != 1 || silverOnly.Entries[0].Address != addrAlice {
		t.Fatalf("silver filter entries: %+v", silverOnly.Entries)
	}

	if _, err := service.GetLeaderboard(ctx, ports.LeaderboardFilter{Tier: "diamond"}); !errors.Is(err, domainerrors.ErrInvalidRequest) {
		t.Fatalf("invalid tier err = %v", err)
	}
}
