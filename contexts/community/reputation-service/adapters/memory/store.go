package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainerrors "satin/contexts/community/reputation-service/domain/errors"
	"satin/contexts/community/reputation-service/ports"
)

// Store is the in-memory reputation repository.
type Store struct {
	mu      sync.RWMutex
	records map[string]ports.VolunteerReputation

	NowFunc func() time.Time
}

func NewStore() *Store {
	return &Store{
		records: make(map[string]ports.VolunteerReputation),
	}
}

var (
	_ ports.Repository = (*Store)(nil)
	_ ports.Clock      = (*Store)(nil)
)

func (s *Store) GetReputation(_ context.Context, address string) (ports.VolunteerReputation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[address]
	if !ok {
		return ports.VolunteerReputation{}, domainerrors.ErrReputationNotFound
	}
	return record, nil
}

func (s *Store) GetLeaderboard(_ context.Context, filter ports.LeaderboardFilter) (ports.Leaderboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := make([]ports.VolunteerReputation, 0, len(s.records))
	for _, record := range s.records {
		ordered = append(ordered, record)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Score == ordered[j].Score {
			return ordered[i].Address < ordered[j].Address
		}
		return ordered[i].Score > ordered[j].Score
	})

	board := ports.Leaderboard{TotalVolunteers: len(ordered)}
	rank := 0
	matched := 0
	for _, record := range ordered {
		rank++
		if record.Address == filter.ViewerAddress {
			board.YourRank = rank
		}
		if filter.Tier != "" && record.Tier != filter.Tier {
			continue
		}
		matched++
		if matched <= filter.Offset {
			continue
		}
		if filter.Limit > 0 && len(board.Entries) >= filter.Limit {
			continue
		}
		board.Entries = append(board.Entries, ports.LeaderboardEntry{
			Rank:            rank,
			Address:         record.Address,
			Tier:            record.Tier,
			Score:           record.Score,
			VerifiedActions: record.VerifiedActions,
		})
	}
	return board, nil
}

func (s *Store) ApplyVerification(_ context.Context, address string, points float64, at time.Time) (ports.VolunteerReputation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.records[address]
	record.Address = address
	record.Score += points
	record.VerifiedActions++
	record.LastVerifiedAt = at
	record.UpdatedAt = at
	finalizeTier(&record)
	s.records[address] = record
	return record, nil
}

func (s *Store) ApplyRejection(_ context.Context, address string, at time.Time) (ports.VolunteerReputation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.records[address]
	record.Address = address
	record.RejectedActions++
	record.UpdatedAt = at
	finalizeTier(&record)
	s.records[address] = record
	return record, nil
}

func (s *Store) Now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

func finalizeTier(record *ports.VolunteerReputation) {
	record.Tier = ports.TierForScore(record.Score)
	next := ports.NextTierFloor(record.Tier)
	record.TierProgress = ports.TierProgress{
		CurrentPoints:  record.Score,
		NextTierPoints: next,
	}
	if next > 0 {
		record.TierProgress.PointsToNext = next - record.Score
	}
}
