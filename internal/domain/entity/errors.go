package entity

import (
	"errors"
	"fmt"
)

// DuplicateActionError: an action name was registered twice.
type DuplicateActionError struct {
	Name string
}

func (e *DuplicateActionError) Error() string {
	return fmt.Sprintf("action %q is already registered", e.Name)
}

// UnknownActionError: a decision chose an action that is not registered.
// Defensive only; schema generation should make this unreachable.
type UnknownActionError struct {
	Name string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q", e.Name)
}

// DecisionValidationError: model output did not match the decision schema.
// Raw carries the offending payload for diagnostic logging.
type DecisionValidationError struct {
	Field string
	Raw   string
}

func (e *DecisionValidationError) Error() string {
	return fmt.Sprintf("field %q is missing or invalid", e.Field)
}

// RateLimitError: the model provider signalled throttling.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	if e.Err == nil {
		return "rate limited by provider"
	}
	return "rate limited by provider: " + e.Err.Error()
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// ObservationError: the environment failed to produce a snapshot.
type ObservationError struct {
	Err error
}

func (e *ObservationError) Error() string {
	return "failed to observe browser state: " + e.Err.Error()
}

func (e *ObservationError) Unwrap() error { return e.Err }

const (
	validationErrorMessage = "Invalid model output format. Please follow the correct schema."
	rateLimitErrorMessage  = "Rate limit reached. Waiting before retry."
)

// FormatError turns a step-level failure into the uniform message used for
// the log line, the recovery message, and ActionResult.Error. The output is
// stable; golden tests depend on it.
func FormatError(err error) string {
	var validationErr *DecisionValidationError
	if errors.As(err, &validationErr) {
		return validationErrorMessage + "\nDetails: " + err.Error()
	}
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return rateLimitErrorMessage + "\nDetails: " + err.Error()
	}
	return "Unexpected error: " + err.Error()
}
