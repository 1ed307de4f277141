package errors

import "errors"

var (
	ErrInvalidSubmission    = errors.New("impact: invalid submission")
	ErrUnknownActionType    = errors.New("impact: unknown action type")
	ErrUnknownUrgencyLevel  = errors.New("impact: unknown urgency level")
	ErrAgentBanned          = errors.New("impact: agent banned from submitting")
	ErrRateLimited          = errors.New("impact: submission rate limit exceeded")
	ErrDuplicateEvidence    = errors.New("impact: duplicate evidence")
	ErrAttestationNotFound  = errors.New("impact: attestation not found")
	ErrEvaluationNotFound   = errors.New("impact: evaluation not found")
	ErrSignerUnavailable    = errors.New("impact: oracle signer unavailable")
	ErrUnhandledInputShape  = errors.New("impact: unhandled parameter input shape")
)
