package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"satin/contexts/verification/integrity-service/domain/entities"
	"satin/contexts/verification/integrity-service/ports"

	"github.com/google/uuid"
)

type reservation struct {
	agentAddress string
	eventID      string
	reservedAt   time.Time
}

// Store is the in-memory adapter behind every integrity port. All
// operations take the single mutex, which gives the check-and-reserve and
// counter updates their atomicity.
type Store struct {
	mu sync.Mutex

	reservations map[string]reservation
	submissions  map[string][]time.Time
	fingerprints []entities.Fingerprint
	abuse        map[string]entities.AbuseState

	NowFunc func() time.Time
}

func NewStore() *Store {
	return &Store{
		reservations: make(map[string]reservation),
		submissions:  make(map[string][]time.Time),
		abuse:        make(map[string]entities.AbuseState),
	}
}

// SetAbuseState seeds misconduct state for tests.
func (s *Store) SetAbuseState(state entities.AbuseState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abuse[strings.ToLower(strings.TrimSpace(state.AgentAddress))] = state
}

func (s *Store) Reserve(_ context.Context, contentHash string, agentAddress string, eventID string, now time.Time) (ports.ReserveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(contentHash))
	if existing, found := s.reservations[key]; found {
		return ports.ReserveResult{Reserved: false, ExistingAgent: existing.agentAddress}, nil
	}
	s.reservations[key] = reservation{
		agentAddress: strings.ToLower(strings.TrimSpace(agentAddress)),
		eventID:      eventID,
		reservedAt:   now,
	}
	return ports.ReserveResult{Reserved: true}, nil
}

func (s *Store) Append(_ context.Context, agentAddress string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(agentAddress))
	s.submissions[key] = append(s.submissions[key], at)
	return nil
}

func (s *Store) CountSince(_ context.Context, agentAddress string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, at := range s.submissions[strings.ToLower(strings.TrimSpace(agentAddress))] {
		if !at.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *Store) OldestSince(_ context.Context, agentAddress string, since time.Time) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest time.Time
	found := false
	for _, at := range s.submissions[strings.ToLower(strings.TrimSpace(agentAddress))] {
		if at.Before(since) {
			continue
		}
		if !found || at.Before(oldest) {
			oldest = at
			found = true
		}
	}
	return oldest, found, nil
}

func (s *Store) PruneBefore(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, times := range s.submissions {
		kept := times[:0]
		for _, at := range times {
			if !at.Before(cutoff) {
				kept = append(kept, at)
			}
		}
		if len(kept) == 0 {
			delete(s.submissions, key)
			continue
		}
		s.submissions[key] = kept
	}

	keptFP := s.fingerprints[:0]
	for _, fp := range s.fingerprints {
		if !fp.CreatedAt.Before(cutoff) {
			keptFP = append(keptFP, fp)
		}
	}
	s.fingerprints = keptFP
	return nil
}

func (s *Store) Save(_ context.Context, fp entities.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp.AgentAddress = strings.ToLower(strings.TrimSpace(fp.AgentAddress))
	s.fingerprints = append(s.fingerprints, fp)
	return nil
}

func (s *Store) ListSince(_ context.Context, since time.Time) ([]entities.Fingerprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.Fingerprint, 0, len(s.fingerprints))
	for _, fp := range s.fingerprints {
		if !fp.CreatedAt.Before(since) {
			out = append(out, fp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) Get(_ context.Context, agentAddress string) (entities.AbuseState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, found := s.abuse[strings.ToLower(strings.TrimSpace(agentAddress))]
	return state, found, nil
}

func (s *Store) RecordRejection(_ context.Context, agentAddress string, banThreshold int, now time.Time) (entities.AbuseState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(agentAddress))
	state := s.abuse[key]
	state.AgentAddress = key
	state.RejectionStreak++
	state.UpdatedAt = now
	if banThreshold > 0 && state.RejectionStreak >= banThreshold && !state.Banned {
		state.Banned = true
		bannedAt := now
		state.BannedAt = &bannedAt
	}
	s.abuse[key] = state
	return state, nil
}

func (s *Store) RecordManipulation(_ context.Context, agentAddress string, now time.Time) (entities.AbuseState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(agentAddress))
	state := s.abuse[key]
	state.AgentAddress = key
	state.ManipulationCount++
	state.UpdatedAt = now
	s.abuse[key] = state
	return state, nil
}

func (s *Store) Clear(_ context.Context, agentAddress string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(agentAddress))
	state := s.abuse[key]
	state.AgentAddress = key
	state.RejectionStreak = 0
	state.ManipulationCount = 0
	state.Banned = false
	state.BannedAt = nil
	state.UpdatedAt = now
	s.abuse[key] = state
	return nil
}

func (s *Store) Now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

func (s *Store) NewID(context.Context) (string, error) {
	return uuid.NewString(), nil
}
