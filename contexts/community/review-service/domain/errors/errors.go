package errors

import "errors"

var (
	ErrInvalidCaseInput = errors.New("review: invalid case input")
	ErrInvalidVoteInput = errors.New("review: invalid vote input")
	ErrCaseNotFound     = errors.New("review: case not found")
	ErrCaseExists       = errors.New("review: case already open for event")
	ErrCaseClosed       = errors.New("review: case is closed")
	ErrSelfVote         = errors.New("review: submitter may not vote on own case")
	ErrDuplicateVote    = errors.New("review: voter already voted on case")
	ErrVoterNotEligible = errors.New("review: voter reputation below phase threshold")
)
