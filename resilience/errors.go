package resilience

import (
	"errors"
	"fmt"
)

var (
	// ErrAllProvidersFailed is wrapped by every CascadeError
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrNoProviders is returned when a cascade is run with an empty list
	ErrNoProviders = errors.New("no providers configured")

	// ErrUnacceptable marks a provider response rejected by the acceptance predicate
	ErrUnacceptable = errors.New("response not acceptable")

	// ErrRetriesExhausted is wrapped by every RetryError
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// ProviderFailure records why one provider in a cascade was skipped
type ProviderFailure struct {
	Provider string
	Err      error
}

// CascadeError is returned when every provider failed. Its message names the
// last failure; Failures keeps the full history in call order.
type CascadeError struct {
	Capability string
	Failures   []ProviderFailure
}

func (e *CascadeError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("%s: %v", e.Capability, ErrAllProvidersFailed)
	}
	last := e.Failures[len(e.Failures)-1]
	return fmt.Sprintf("%s: %v (%d tried, last %s: %v)",
		e.Capability, ErrAllProvidersFailed, len(e.Failures), last.Provider, last.Err)
}

// Unwrap exposes both the sentinel and the last provider error
func (e *CascadeError) Unwrap() []error {
	errs := []error{ErrAllProvidersFailed}
	if len(e.Failures) > 0 {
		errs = append(errs, e.Failures[len(e.Failures)-1].Err)
	}
	return errs
}

// Last returns the final provider error, or nil
func (e *CascadeError) Last() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[len(e.Failures)-1].Err
}

// RetryError is returned when every attempt failed
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%v after %d attempt(s): %v", ErrRetriesExhausted, e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() []error {
	return []error{ErrRetriesExhausted, e.Err}
}
