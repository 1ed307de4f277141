package errors

import "errors"

var (
	ErrInvalidValidateInput = errors.New("plausibility: invalid validation input")
	ErrAuditorUnavailable   = errors.New("plausibility: consistency auditor unavailable")
	ErrDeducerUnavailable   = errors.New("plausibility: parameter deducer unavailable")
	ErrMalformedJudgment    = errors.New("plausibility: malformed model judgment")
)
