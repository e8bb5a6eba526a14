package redcell

import (
	"errors"
	"fmt"
)

// Sentinel errors for common engine error conditions.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrScoring indicates the target profile was malformed or incomplete.
	// Scoring errors are fatal: the run aborts before any attempt is issued,
	// since partial scoring would silently bias technique selection.
	ErrScoring = errors.New("relevance scoring failed")

	// ErrGeneration indicates no template (specific or generic) could produce
	// a payload for a technique. The technique is skipped and the run continues.
	ErrGeneration = errors.New("payload generation failed")

	// ErrTargetUnreachable indicates the target could not be reached after all
	// retries were exhausted. The attempt is marked INDETERMINATE.
	ErrTargetUnreachable = errors.New("target unreachable")

	// ErrClassificationAmbiguous indicates a response matched neither the
	// blocked pattern nor the executed pattern. The attempt is marked
	// INDETERMINATE and flagged for the validation pass.
	ErrClassificationAmbiguous = errors.New("classification ambiguous")

	// ErrAllocation indicates no arms remain eligible for selection. The
	// allocator falls back to a uniform-random choice rather than aborting.
	ErrAllocation = errors.New("no eligible arms")

	// ErrInvalidConfig indicates the provided configuration is invalid or incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Error kinds categorize errors by their type.
const (
	// KindValidation represents errors related to input validation.
	KindValidation = "validation"

	// KindScoring represents fatal relevance-scoring errors.
	KindScoring = "scoring"

	// KindGeneration represents attempt-scoped payload generation errors.
	KindGeneration = "generation"

	// KindNetwork represents errors related to network operations.
	KindNetwork = "network"

	// KindClassification represents ambiguous outcome classification.
	KindClassification = "classification"

	// KindAllocation represents bandit allocation errors.
	KindAllocation = "allocation"

	// KindConfiguration represents errors related to configuration.
	KindConfiguration = "configuration"

	// KindInternal represents internal engine errors.
	KindInternal = "internal"
)

// Error is a structured error type that wraps underlying errors with
// additional context about the operation that failed and the category
// of error.
//
// Error implements the error interface and supports error unwrapping,
// making it compatible with errors.Is() and errors.As().
//
// Example usage:
//
//	err := &redcell.Error{
//		Op:   "Scorer.Score",
//		Kind: redcell.KindScoring,
//		Err:  redcell.ErrScoring,
//	}
type Error struct {
	// Op is the operation that failed (e.g., "Scorer.Score", "Client.Invoke").
	Op string

	// Kind categorizes the error (e.g., KindScoring, KindNetwork).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional context about the error (optional).
	// This can include technique IDs, attempt IDs, or other debugging
	// information.
	Context map[string]any
}

// Error implements the error interface, returning a formatted message that
// includes the operation, kind, and underlying error.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("redcell: %s: %s", e.Op, e.Kind)
	}

	if len(e.Context) > 0 {
		return fmt.Sprintf("redcell: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}

	return fmt.Sprintf("redcell: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error, allowing errors.Is() and errors.As()
// to work correctly with wrapped errors.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error matching for Error, allowing comparison based on the
// underlying error or on Op/Kind of another *Error.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if t, ok := target.(*Error); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}

	return errors.Is(e.Err, target)
}

// WithContext returns a copy of the error with the provided context merged
// in. The original error's context is never modified.
func (e *Error) WithContext(ctx map[string]any) *Error {
	newErr := *e
	newErr.Context = make(map[string]any, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		newErr.Context[k] = v
	}
	for k, v := range ctx {
		newErr.Context[k] = v
	}
	return &newErr
}

// Fatal reports whether the error should abort the whole run.
// Only scoring errors are fatal; every other error is attempt-scoped and
// recorded in the run summary's error tally.
func Fatal(err error) bool {
	return errors.Is(err, ErrScoring)
}

// NewScoringError creates a new Error with KindScoring wrapping ErrScoring.
func NewScoringError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindScoring, Err: fmt.Errorf("%w: %w", ErrScoring, err)}
}

// NewGenerationError creates a new Error with KindGeneration wrapping ErrGeneration.
func NewGenerationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindGeneration, Err: fmt.Errorf("%w: %w", ErrGeneration, err)}
}

// NewNetworkError creates a new Error with KindNetwork.
func NewNetworkError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindNetwork, Err: err}
}

// NewConfigurationError creates a new Error with KindConfiguration.
func NewConfigurationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindConfiguration, Err: err}
}
