package errors

import "errors"

var (
	ErrInvalidAddress        = errors.New("invalid volunteer address")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrReputationNotFound    = errors.New("reputation not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
