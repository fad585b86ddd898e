package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors surfaced by roundtable components. Callers should match
// them with errors.Is since most are wrapped with additional context.
var (
	// ErrInvalidConfiguration is returned when a session request or the
	// constraints attached to it cannot be satisfied.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInsufficientPersonas is returned when a registry cannot supply the
	// requested number of distinct personas.
	ErrInsufficientPersonas = errors.New("insufficient personas")
	// ErrGenerationTimeout indicates a remote generation call exceeded its deadline.
	ErrGenerationTimeout = errors.New("generation timeout")
	// ErrGenerationFailure indicates a remote generation call failed or
	// returned a malformed response.
	ErrGenerationFailure = errors.New("generation failure")
	// ErrTurnFailed indicates a participant turn exhausted its retry budget.
	ErrTurnFailed = errors.New("turn failed")
	// ErrLengthViolation indicates generated text stayed outside its length bounds.
	ErrLengthViolation = errors.New("length violation")
	// ErrBudgetExceeded indicates the session ran out of remote generation calls.
	ErrBudgetExceeded = errors.New("model call budget exceeded")
	// ErrNotFound is returned by registries and stores for unknown keys.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when adding a duplicate persona or category.
	ErrAlreadyExists = errors.New("already exists")
)

// ConfigError collects every problem found while validating a configuration.
// It unwraps to ErrInvalidConfiguration.
type ConfigError struct {
	Problems []string
}

// Addf records a formatted problem.
func (e *ConfigError) Addf(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Err returns nil when no problem was recorded, otherwise the receiver.
func (e *ConfigError) Err() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidConfiguration, strings.Join(e.Problems, "; "))
}

// Unwrap returns ErrInvalidConfiguration.
func (e *ConfigError) Unwrap() error { return ErrInvalidConfiguration }

// TurnError describes a participant turn that could not be completed.
// It matches both ErrTurnFailed and the underlying cause.
type TurnError struct {
	Speaker  string
	Round    int
	Attempts int
	Err      error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn failed for %s in round %d after %d attempts: %v", e.Speaker, e.Round, e.Attempts, e.Err)
}

// Unwrap exposes ErrTurnFailed and the underlying cause.
func (e *TurnError) Unwrap() []error { return []error{ErrTurnFailed, e.Err} }
