package commands_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	reviewservice "satin/contexts/community/review-service"
	"satin/contexts/community/review-service/adapters/memory"
	"satin/contexts/community/review-service/application/commands"
	"satin/contexts/community/review-service/domain/entities"
	domainerrors "satin/contexts/community/review-service/domain/errors"
)

type reputationStub struct {
	scores map[string]float64
	err    error
}

func (r *reputationStub) Score(_ context.Context, voter string) (float64, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.scores[voter], nil
}

type minterStub struct {
	minted []entities.ReviewCase
	err    error
}

func (m *minterStub) MintMinimum(_ context.Context, c entities.ReviewCase) error {
	m.minted = append(m.minted, c)
	return m.err
}

type abuseStub struct {
	rejected []string
	cleared  []string
}

func (a *abuseStub) RecordRejection(_ context.Context, addr string) error {
	a.rejected = append(a.rejected, addr)
	return nil
}

func (a *abuseStub) ClearCounters(_ context.Context, addr string) error {
	a.cleared = append(a.cleared, addr)
	return nil
}

type harness struct {
	module     *reviewservice.Module
	store      *memory.Store
	reputation *reputationStub
	minter     *minterStub
	abuse      *abuseStub
	now        time.Time
}

func newHarness(t *testing.T, quorum int) *harness {
	t.Helper()
	h := &harness{
		store:      memory.NewStore(),
		reputation: &reputationStub{scores: map[string]float64{}},
		minter:     &minterStub{},
		abuse:      &abuseStub{},
		now:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h.store.NowFunc = func() time.Time { return h.now }
	h.module = reviewservice.NewModule(reviewservice.Dependencies{
		Cases:      h.store,
		Reputation: h.reputation,
		Minter:     h.minter,
		Abuse:      h.abuse,
		Clock:      h.store,
		IDs:        h.store,
		Quorum:     quorum,
	})
	return h
}

func (h *harness) openCase(t *testing.T, exclusive bool) entities.ReviewCase {
	t.Helper()
	c, err := h.module.Open.Open(context.Background(), commands.OpenCaseCommand{
		EventID:          "evt-123",
		SubmitterAddress: "0xsubmitter",
		ActionType:       "FOOD_DISTRIBUTION",
		RejectionReason:  "impact score below minimum threshold",
		ExclusiveAudit:   exclusive,
	})
	if err != nil {
		t.Fatalf("open case: %v", err)
	}
	return c
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

func (h *harness) vote(t *testing.T, caseID, voter string, approve bool) (entities.ReviewCase, error) {
	t.Helper()
	return h.module.Vote.CastVote(context.Background(), commands.CastVoteCommand{
		CaseID:       caseID,
		VoterAddress: voter,
		Approve:      approve,
	})
}

func TestQuorumMajorityApprovesAndMintsOnce(t *testing.T) {
	h := newHarness(t, 5)
	c := h.openCase(t, false)
	h.advance(11 * time.Minute)

	for i := 0; i < 4; i++ {
		updated, err := h.vote(t, c.CaseID, fmt.Sprintf("0xvoter%d", i), i < 3)
		if err != nil {
			t.Fatalf("vote %d: %v", i, err)
		}
		if updated.Outcome != "" {
			t.Fatalf("outcome decided at %d votes, before quorum", i+1)
		}
	}

	updated, err := h.vote(t, c.CaseID, "0xvoter4", false)
	if err != nil {
		t.Fatalf("quorum vote: %v", err)
	}
	if updated.Outcome != entities.OutcomeApproved {
		t.Fatalf("outcome = %s, want approved (3-2)", updated.Outcome)
	}
	if updated.ClosedAt == nil {
		t.Fatal("closed case has no close timestamp")
	}
	if len(h.minter.minted) != 1 {
		t.Fatalf("minted %d attestations, want exactly 1", len(h.minter.minted))
	}
	if len(h.abuse.cleared) != 1 || h.abuse.cleared[0] != "0xsubmitter" {
		t.Fatalf("abuse counters not cleared for submitter: %v", h.abuse.cleared)
	}

	if _, err := h.vote(t, c.CaseID, "0xlatecomer", true); !errors.Is(err, domainerrors.ErrCaseClosed) {
		t.Fatalf("vote on closed case: err = %v, want ErrCaseClosed", err)
	}
}

func TestQuorumTieRejects(t *testing.T) {
	h := newHarness(t, 4)
	c := h.openCase(t, false)
	h.advance(11 * time.Minute)

	var updated entities.ReviewCase
	var err error
	for i := 0; i < 4; i++ {
		updated, err = h.vote(t, c.CaseID, fmt.Sprintf("0xvoter%d", i), i%2 == 0)
		if err != nil {
			t.Fatalf("vote %d: %v", i, err)
		}
	}
	if updated.Outcome != entities.OutcomeRejected {
		t.Fatalf("outcome = %s, want rejected on 2-2 tie", updated.Outcome)
	}
	if len(h.minter.minted) != 0 {
		t.Fatal("tie minted an attestation")
	}
	if len(h.abuse.rejected) != 1 || h.abuse.rejected[0] != "0xsubmitter" {
		t.Fatalf("rejection not recorded for submitter: %v", h.abuse.rejected)
	}
}

func TestSubmitterCannotVoteOnOwnCase(t *testing.T) {
	h := newHarness(t, 5)
	c := h.openCase(t, false)
	h.advance(11 * time.Minute)

	if _, err := h.vote(t, c.CaseID, "0xSubmitter", true); !errors.Is(err, domainerrors.ErrSelfVote) {
		t.Fatalf("err = %v, want ErrSelfVote", err)
	}
}

func TestVoterCannotVoteTwice(t *testing.T) {
	h := newHarness(t, 5)
	c := h.openCase(t, false)
	h.advance(11 * time.Minute)

	if _, err := h.vote(t, c.CaseID, "0xvoter", true); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if _, err := h.vote(t, c.CaseID, "0xvoter", false); !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("err = %v, want ErrDuplicateVote", err)
	}
}

func TestPhaseOneRequiresReputation(t *testing.T) {
	h := newHarness(t, 5)
	h.reputation.scores["0xtrusted"] = 80
	h.reputation.scores["0xnewcomer"] = 5
	c := h.openCase(t, false)

	if _, err := h.vote(t, c.CaseID, "0xnewcomer", true); !errors.Is(err, domainerrors.ErrVoterNotEligible) {
		t.Fatalf("err = %v, want ErrVoterNotEligible in phase 1", err)
	}

	updated, err := h.vote(t, c.CaseID, "0xtrusted", true)
	if err != nil {
		t.Fatalf("trusted vote: %v", err)
	}
	vote := updated.Votes["0xtrusted"]
	if vote.Reputation != 80 || vote.Degraded {
		t.Fatalf("vote = %+v, want authoritative reputation 80", vote)
	}

	// Phase 2 opens the same case to the newcomer.
	h.advance(11 * time.Minute)
	if _, err := h.vote(t, c.CaseID, "0xnewcomer", true); err != nil {
		t.Fatalf("phase-2 vote: %v", err)
	}
}

func TestDegradedReputationCountsAtHalfWeight(t *testing.T) {
	h := newHarness(t, 5)
	h.reputation.err = errors.New("reputation service down")
	c := h.openCase(t, false)

	_, err := h.module.Vote.CastVote(context.Background(), commands.CastVoteCommand{
		CaseID:            c.CaseID,
		VoterAddress:      "0xclaims80",
		Approve:           true,
		ClaimedReputation: 80,
	})
	if !errors.Is(err, domainerrors.ErrVoterNotEligible) {
		t.Fatalf("err = %v, want ErrVoterNotEligible at degraded 40", err)
	}

	updated, err := h.module.Vote.CastVote(context.Background(), commands.CastVoteCommand{
		CaseID:            c.CaseID,
		VoterAddress:      "0xclaims120",
		Approve:           true,
		ClaimedReputation: 120,
	})
	if err != nil {
		t.Fatalf("degraded vote: %v", err)
	}
	vote := updated.Votes["0xclaims120"]
	if vote.Reputation != 60 || !vote.Degraded {
		t.Fatalf("vote = %+v, want degraded reputation 60", vote)
	}
}

func TestExclusiveAuditNeverLeavesPhaseOne(t *testing.T) {
	h := newHarness(t, 5)
	h.reputation.scores["0xnewcomer"] = 5
	c := h.openCase(t, true)
	h.advance(2 * time.Hour)

	if _, err := h.vote(t, c.CaseID, "0xnewcomer", true); !errors.Is(err, domainerrors.ErrVoterNotEligible) {
		t.Fatalf("err = %v, want ErrVoterNotEligible on exclusive audit", err)
	}
}

func TestOpenCaseIdempotentPerEvent(t *testing.T) {
	h := newHarness(t, 5)
	first := h.openCase(t, false)
	second := h.openCase(t, false)
	if first.CaseID != second.CaseID {
		t.Fatalf("reopening minted new case %s, want existing %s", second.CaseID, first.CaseID)
	}
}
