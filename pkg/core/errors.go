// Package core provides the RemindSense client that wires pattern learning,
// context analysis and timing strategy into one engine.
package core

import (
	"errors"
	"fmt"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// Predefined errors for common failure scenarios.
var (
	// ErrInvalidInput indicates that an argument was missing or out of range.
	ErrInvalidInput = model.ErrInvalidInput

	// ErrNotFound indicates that requested state does not exist.
	ErrNotFound = model.ErrNotFound

	// ErrPredictionFailed marks a timing prediction that fell back to the
	// original trigger time.
	ErrPredictionFailed = model.ErrPredictionFailed

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStorageOperation indicates that a storage operation failed.
	ErrStorageOperation = errors.New("storage operation failed")

	// ErrCancelled indicates that the operation's context was done before
	// it completed.
	ErrCancelled = errors.New("operation cancelled")
)

// EngineError wraps errors with operation context.
//
// Example:
//
//	err := &EngineError{
//	    Op:  "AdaptReminderStrategy",
//	    Err: ErrInvalidInput,
//	}
//	// Error() returns: "remindsense: AdaptReminderStrategy: invalid input"
type EngineError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "remindsense: <Op>: <Err>"
func (e *EngineError) Error() string {
	return fmt.Sprintf("remindsense: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error so errors.Is and errors.As see
// through EngineError.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError creates a new EngineError wrapping err. It returns nil
// when err is nil.
//
// Parameters:
//   - op: Name of the operation (e.g., "LearnFromContext")
//   - err: The underlying error to wrap
func NewEngineError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Op: op, Err: err}
}
