package queries

import (
	"context"
	"log/slog"
	"strings"

	"satin/contexts/community/review-service/domain/entities"
	domainerrors "satin/contexts/community/review-service/domain/errors"
	"satin/contexts/community/review-service/ports"
)

const defaultFeedLimit = 50

// Tally is the public view of one case's voting state.
type Tally struct {
	Case       entities.ReviewCase
	Phase      entities.Phase
	Approvals  int
	Rejections int
}

// ReviewQueries answers read-side requests over the case store.
type ReviewQueries struct {
	Cases  ports.CaseStore
	Clock  ports.Clock
	Logger *slog.Logger
}

// CaseTally returns one case with its live tally and phase.
func (q *ReviewQueries) CaseTally(ctx context.Context, caseID string) (Tally, error) {
	c, err := q.Cases.Get(ctx, strings.TrimSpace(caseID))
	if err != nil {
		return Tally{}, err
	}
	return q.tally(c), nil
}

// EventTally resolves a case by the event it reviews.
func (q *ReviewQueries) EventTally(ctx context.Context, eventID string) (Tally, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return Tally{}, domainerrors.ErrInvalidCaseInput
	}
	c, err := q.Cases.GetByEvent(ctx, eventID)
	if err != nil {
		return Tally{}, err
	}
	return q.tally(c), nil
}

// OpenCases lists cases still accepting votes.
func (q *ReviewQueries) OpenCases(ctx context.Context) ([]Tally, error) {
	cases, err := q.Cases.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Tally, 0, len(cases))
	for _, c := range cases {
		out = append(out, q.tally(c))
	}
	return out, nil
}

// Feed lists the most recent cases, newest first, open or closed.
func (q *ReviewQueries) Feed(ctx context.Context, limit int) ([]Tally, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	cases, err := q.Cases.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Tally, 0, len(cases))
	for _, c := range cases {
		out = append(out, q.tally(c))
	}
	return out, nil
}

func (q *ReviewQueries) tally(c entities.ReviewCase) Tally {
	approvals, rejections := c.Tally()
	return Tally{
		Case:       c,
		Phase:      c.Phase(q.Clock.Now()),
		Approvals:  approvals,
		Rejections: rejections,
	}
}
