package errors

import "errors"

var (
	ErrInvalidScreenInput = errors.New("invalid screening input")
	ErrAgentBanned        = errors.New("agent address is banned")
	ErrRateLimited        = errors.New("submission rate limit exceeded")
	ErrDuplicateContent   = errors.New("duplicate evidence content")
	ErrImageReuse         = errors.New("near-duplicate image detected")
	ErrAbuseStateNotFound = errors.New("abuse state not found")
)
