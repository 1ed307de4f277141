package commands

import (
	"context"
	"log/slog"
	"strings"

	"satin/contexts/community/review-service/application"
	"satin/contexts/community/review-service/domain/entities"
	domainerrors "satin/contexts/community/review-service/domain/errors"
	"satin/contexts/community/review-service/ports"
)

const (
	defaultQuorum              = 5
	defaultReputationThreshold = 50.0

	// A caller-supplied reputation is a documented weakening of the
	// phase-1 gate, never a silent equivalent of the authoritative score.
	degradedReputationFactor = 0.5
)

// CastVoteCommand is one ballot. ClaimedReputation is the caller's own
// figure, used at half weight only when the authoritative lookup fails.
type CastVoteCommand struct {
	CaseID            string
	VoterAddress      string
	Approve           bool
	ClaimedReputation float64
}

// CastVoteUseCase records ballots and finalizes the outcome the instant
// the count reaches quorum. The read-modify-write runs inside the store's
// Mutate so concurrent votes serialize; exactly one of them observes the
// transition to quorum and triggers the outcome side effects.
type CastVoteUseCase struct {
	Cases      ports.CaseStore
	Reputation ports.ReputationLookup
	Minter     ports.AttestationMinter
	Abuse      ports.AbuseReporter
	Clock      ports.Clock
	Logger     *slog.Logger

	Quorum              int
	ReputationThreshold float64
}

func (uc *CastVoteUseCase) quorum() int {
	if uc.Quorum > 0 {
		return uc.Quorum
	}
	return defaultQuorum
}

func (uc *CastVoteUseCase) reputationThreshold() float64 {
	if uc.ReputationThreshold > 0 {
		return uc.ReputationThreshold
	}
	return defaultReputationThreshold
}

func (uc *CastVoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (entities.ReviewCase, error) {
	logger := application.ResolveLogger(uc.Logger)

	caseID := strings.TrimSpace(cmd.CaseID)
	voter := strings.ToLower(strings.TrimSpace(cmd.VoterAddress))
	if caseID == "" || voter == "" {
		return entities.ReviewCase{}, domainerrors.ErrInvalidVoteInput
	}

	now := uc.Clock.Now()
	decided := entities.Outcome("")

	updated, err := uc.Cases.Mutate(ctx, caseID, func(c *entities.ReviewCase) error {
		if c.Outcome != "" {
			return domainerrors.ErrCaseClosed
		}
		if voter == c.SubmitterAddress {
			return domainerrors.ErrSelfVote
		}
		if _, voted := c.Votes[voter]; voted {
			return domainerrors.ErrDuplicateVote
		}

		vote := entities.Vote{VoterAddress: voter, Approve: cmd.Approve, CastAt: now}
		if c.Phase(now) == entities.PhaseOne {
			reputation, degraded := uc.resolveReputation(ctx, logger, voter, cmd.ClaimedReputation)
			if reputation < uc.reputationThreshold() {
				return domainerrors.ErrVoterNotEligible
			}
			vote.Reputation = reputation
			vote.Degraded = degraded
		}

		if c.Votes == nil {
			c.Votes = make(map[string]entities.Vote)
		}
		c.Votes[voter] = vote

		if len(c.Votes) >= uc.quorum() {
			decided = c.Decide(now)
		}
		return nil
	})
	if err != nil {
		return entities.ReviewCase{}, err
	}

	approvals, rejections := updated.Tally()
	logger.Info("vote recorded",
		slog.String("event", "review_vote_recorded"),
		slog.String("module", "community/review-service"),
		slog.String("layer", "application"),
		slog.String("case_id", caseID),
		slog.Int("approvals", approvals),
		slog.Int("rejections", rejections))

	if decided != "" {
		uc.applyOutcome(ctx, logger, updated)
	}
	return updated, nil
}

// resolveReputation queries the authoritative source, falling back to the
// claimed value at half weight when the lookup fails.
func (uc *CastVoteUseCase) resolveReputation(ctx context.Context, logger *slog.Logger, voter string, claimed float64) (float64, bool) {
	if uc.Reputation != nil {
		score, err := uc.Reputation.Score(ctx, voter)
		if err == nil {
			return score, false
		}
		logger.Warn("reputation lookup degraded",
			slog.String("event", "review_reputation_degraded"),
			slog.String("module", "community/review-service"),
			slog.String("layer", "application"),
			slog.String("voter", voter),
			slog.String("error", err.Error()))
	}
	return claimed * degradedReputationFactor, true
}

// applyOutcome runs the post-quorum side effects. They execute exactly
// once: only the vote that closed the case reaches here.
func (uc *CastVoteUseCase) applyOutcome(ctx context.Context, logger *slog.Logger, c entities.ReviewCase) {
	switch c.Outcome {
	case entities.OutcomeApproved:
		if uc.Minter != nil {
			if err := uc.Minter.MintMinimum(ctx, c); err != nil {
				logger.Error("minimum attestation mint failed",
					slog.String("event", "review_mint_failed"),
					slog.String("module", "community/review-service"),
					slog.String("layer", "application"),
					slog.String("case_id", c.CaseID),
					slog.String("error", err.Error()))
			}
		}
		if uc.Abuse != nil {
			if err := uc.Abuse.ClearCounters(ctx, c.SubmitterAddress); err != nil {
				logger.Error("abuse counter clear failed",
					slog.String("event", "review_abuse_clear_failed"),
					slog.String("module", "community/review-service"),
					slog.String("layer", "application"),
					slog.String("case_id", c.CaseID),
					slog.String("error", err.Error()))
			}
		}
	case entities.OutcomeRejected:
		if uc.Abuse != nil {
			if err := uc.Abuse.RecordRejection(ctx, c.SubmitterAddress); err != nil {
				logger.Error("rejection record failed",
					slog.String("event", "review_rejection_record_failed"),
					slog.String("module", "community/review-service"),
					slog.String("layer", "application"),
					slog.String("case_id", c.CaseID),
					slog.String("error", err.Error()))
			}
		}
	}

	logger.Info("review case closed",
		slog.String("event", "review_case_closed"),
		slog.String("module", "community/review-service"),
		slog.String("layer", "application"),
		slog.String("case_id", c.CaseID),
		slog.String("outcome", string(c.Outcome)))
}
