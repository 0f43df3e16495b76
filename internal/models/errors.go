package models

import "errors"

// Custom errors
var (
	ErrNoData            = errors.New("no data available")
	ErrMissingPrevClose  = errors.New("previous close unavailable")
	ErrInvalidSnapshot   = errors.New("invalid range snapshot")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrUnknownDirection  = errors.New("unknown signal direction")
	ErrUnknownExitPolicy = errors.New("unknown exit policy")
	ErrNotFound          = errors.New("record not found")
)
