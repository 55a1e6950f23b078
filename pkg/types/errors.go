package types

import (
	"errors"
	"fmt"
)

// ProviderErrorKind is the closed set of provider-independent failure kinds.
// Adapters translate provider-specific error shapes into these; nothing
// outside an adapter inspects raw provider errors.
type ProviderErrorKind string

const (
	ProviderErrFetch       ProviderErrorKind = "fetch_failed"
	ProviderErrSend        ProviderErrorKind = "send_failed"
	ProviderErrRateLimited ProviderErrorKind = "rate_limited"
)

// ProviderError wraps a failure from a mail provider adapter
type ProviderError struct {
	Provider ProviderName
	Kind     ProviderErrorKind
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Provider, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Op, e.Kind)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError builds a ProviderError for the given operation
func NewProviderError(provider ProviderName, kind ProviderErrorKind, op string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Op: op, Err: err}
}

// IsRateLimited reports whether err is a provider rate-limit failure
func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == ProviderErrRateLimited
}

// GenerationError wraps a reply generator failure
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("reply generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
