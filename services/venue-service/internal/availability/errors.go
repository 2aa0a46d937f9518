package availability

import "errors"

// Input validation failures. They are returned before any computation and are
// meant to be surfaced to the caller as-is.
var (
	ErrInvalidTimeFormat = errors.New("invalid time format")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidRange      = errors.New("invalid date range")
)
