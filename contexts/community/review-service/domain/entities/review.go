package entities

import "time"

// Phase is the voting eligibility window a case is currently in.
type Phase string

const (
	PhaseOne    Phase = "open_phase1"
	PhaseTwo    Phase = "open_phase2"
	PhaseClosed Phase = "closed"
)

// Outcome is the quorum decision. Empty until quorum is reached.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

// Phase1Window is how long voting stays restricted to reputation-vetted
// addresses after a case opens.
const Phase1Window = 10 * time.Minute

// Vote is one recorded ballot. Reputation is the score that qualified the
// voter at cast time; Degraded marks a fallback value the authoritative
// lookup could not confirm.
type Vote struct {
	VoterAddress string
	Approve      bool
	Reputation   float64
	Degraded     bool
	CastAt       time.Time
}

// ReviewCase is the community fallback for an event automated
// verification would not pay out. Mutated only by vote casting; immutable
// once the outcome is recorded.
type ReviewCase struct {
	CaseID           string
	EventID          string
	SubmitterAddress string
	ActionType       string
	Description      string
	RejectionReason  string

	ImpactScore       float64
	AIConfidence      float64
	TheoreticalReward float64

	// ExclusiveAudit pins the case to phase-1 eligibility forever; the
	// open window never widens to unvetted voters.
	ExclusiveAudit bool

	OpenedAt time.Time
	ClosedAt *time.Time
	Outcome  Outcome

	Votes map[string]Vote
}

// Phase derives the current eligibility window.
func (c *ReviewCase) Phase(now time.Time) Phase {
	if c.Outcome != "" {
		return PhaseClosed
	}
	if c.ExclusiveAudit {
		return PhaseOne
	}
	if now.Before(c.OpenedAt.Add(Phase1Window)) {
		return PhaseOne
	}
	return PhaseTwo
}

// Tally counts recorded ballots.
func (c *ReviewCase) Tally() (approvals, rejections int) {
	for _, v := range c.Votes {
		if v.Approve {
			approvals++
		} else {
			rejections++
		}
	}
	return approvals, rejections
}

// Decide finalizes the outcome by simple majority; ties favor rejection.
func (c *ReviewCase) Decide(now time.Time) Outcome {
	approvals, rejections := c.Tally()
	if approvals > rejections {
		c.Outcome = OutcomeApproved
	} else {
		c.Outcome = OutcomeRejected
	}
	closedAt := now
	c.ClosedAt = &closedAt
	return c.Outcome
}
