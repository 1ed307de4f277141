package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"satin/contexts/verification/impact-oracle/domain/entities"
	domainerrors "satin/contexts/verification/impact-oracle/domain/errors"
	"satin/contexts/verification/impact-oracle/domain/services"
	"satin/contexts/verification/impact-oracle/ports"

	"github.com/google/uuid"
)

// Store keeps evaluations in memory, newest last. It also serves as the
// clock, id source, and outbox for local wiring and tests.
type Store struct {
	mu          sync.Mutex
	evaluations []entities.Evaluation
	byEventID   map[string]int
	outbox      []ports.OutboxMessage

	NowFunc func() time.Time
}

var (
	_ ports.AttestationStore = (*Store)(nil)
	_ ports.Outbox           = (*Store)(nil)
	_ ports.Clock            = (*Store)(nil)
	_ ports.IDGenerator      = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{byEventID: make(map[string]int)}
}

func (s *Store) SaveEvaluation(_ context.Context, eval entities.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(eval.EventID)
	if idx, found := s.byEventID[key]; found {
		s.evaluations[idx] = eval
	} else {
		s.byEventID[key] = len(s.evaluations)
		s.evaluations = append(s.evaluations, eval)
	}
	if eventType, payload, ok := services.OutboxEventFor(eval); ok {
		s.outbox = append(s.outbox, ports.OutboxMessage{
			ID:        uuid.NewString(),
			EventType: eventType,
			EntityID:  key,
			Payload:   payload,
		})
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.outbox) {
		limit = len(s.outbox)
	}
	out := make([]ports.OutboxMessage, limit)
	copy(out, s.outbox[:limit])
	return out, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, id string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, message := range s.outbox {
		if message.ID == id {
			s.outbox = append(s.outbox[:i], s.outbox[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) MarkOutboxFailed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].ID == id {
			s.outbox[i].RetryCount++
			return nil
		}
	}
	return nil
}

func (s *Store) GetEvaluation(_ context.Context, eventID string) (entities.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, found := s.byEventID[strings.TrimSpace(eventID)]
	if !found {
		return entities.Evaluation{}, domainerrors.ErrEvaluationNotFound
	}
	return s.evaluations[idx], nil
}

func (s *Store) ListRecent(_ context.Context, limit int) ([]entities.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.evaluations) {
		limit = len(s.evaluations)
	}
	out := make([]entities.Evaluation, 0, limit)
	for i := len(s.evaluations) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.evaluations[i])
	}
	return out, nil
}

func (s *Store) Now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

func (s *Store) NewID() string {
	return uuid.NewString()
}
