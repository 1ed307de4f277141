package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"satin/contexts/community/review-service/domain/entities"
	domainerrors "satin/contexts/community/review-service/domain/errors"
	"satin/contexts/community/review-service/ports"

	"github.com/google/uuid"
)

// Store keeps review cases in memory. The single mutex is held across
// every Mutate callback, which gives vote casting its atomicity.
type Store struct {
	mu      sync.Mutex
	cases   map[string]*entities.ReviewCase
	byEvent map[string]string
	order   []string

	NowFunc func() time.Time
}

var (
	_ ports.CaseStore   = (*Store)(nil)
	_ ports.Clock       = (*Store)(nil)
	_ ports.IDGenerator = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		cases:   make(map[string]*entities.ReviewCase),
		byEvent: make(map[string]string),
	}
}

func (s *Store) Create(_ context.Context, c entities.ReviewCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.byEvent[c.EventID]; found {
		return domainerrors.ErrCaseExists
	}
	stored := cloneCase(c)
	s.cases[c.CaseID] = &stored
	s.byEvent[c.EventID] = c.CaseID
	s.order = append(s.order, c.CaseID)
	return nil
}

func (s *Store) Get(_ context.Context, caseID string) (entities.ReviewCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, found := s.cases[strings.TrimSpace(caseID)]
	if !found {
		return entities.ReviewCase{}, domainerrors.ErrCaseNotFound
	}
	return cloneCase(*c), nil
}

func (s *Store) GetByEvent(_ context.Context, eventID string) (entities.ReviewCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	caseID, found := s.byEvent[strings.TrimSpace(eventID)]
	if !found {
		return entities.ReviewCase{}, domainerrors.ErrCaseNotFound
	}
	return cloneCase(*s.cases[caseID]), nil
}

func (s *Store) Mutate(_ context.Context, caseID string, fn func(*entities.ReviewCase) error) (entities.ReviewCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, found := s.cases[strings.TrimSpace(caseID)]
	if !found {
		return entities.ReviewCase{}, domainerrors.ErrCaseNotFound
	}
	working := cloneCase(*c)
	if err := fn(&working); err != nil {
		return entities.ReviewCase{}, err
	}
	*c = cloneCase(working)
	return working, nil
}

func (s *Store) ListOpen(_ context.Context) ([]entities.ReviewCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.ReviewCase
	for _, caseID := range s.order {
		if c := s.cases[caseID]; c.Outcome == "" {
			out = append(out, cloneCase(*c))
		}
	}
	return out, nil
}

func (s *Store) ListRecent(_ context.Context, limit int) ([]entities.ReviewCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]entities.ReviewCase, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, cloneCase(*s.cases[s.order[i]]))
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

func cloneCase(c entities.ReviewCase) entities.ReviewCase {
	votes := make(map[string]entities.Vote, len(c.Votes))
	for k, v := range c.Votes {
		votes[k] = v
	}
	c.Votes = votes
	if c.ClosedAt != nil {
		closedAt := *c.ClosedAt
		c.ClosedAt = &closedAt
	}
	return c
}
