package model

import "errors"

// Sentinel errors shared by the engine packages. The core package re-exports
// them so callers only need to import core.
var (
	// ErrInvalidInput is returned when a caller passes malformed input, such
	// as an empty user ID or an out-of-range rating.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPredictionFailed marks a timing prediction that fell back to the
	// original trigger time.
	ErrPredictionFailed = errors.New("prediction failed")
)
