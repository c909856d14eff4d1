package llm

import (
	"encoding/json"
	"fmt"
	"time"
)

// ErrNotConfigured indicates the routed provider has no credentials.
// Fatal: surfaced immediately, never retried, no fallback substitutes.
type ErrNotConfigured struct {
	Provider string
}

func (e *ErrNotConfigured) Error() string {
	return fmt.Sprintf("provider %q is not configured (missing credentials)", e.Provider)
}

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates a transport-class failure: 5xx, timeout,
// connection reset. Retryable within the current variant.
type ErrProviderUnavailable struct {
	Status int
	Err    error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable (status %d): %v", e.Status, e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrFormatRejected indicates the provider rejected the requested response
// format or payload size (400/413/414/415/422 class), or returned schema-mode
// content that fails local validation. Not retried as-is; the orchestrator
// advances to a less strict variant instead.
type ErrFormatRejected struct {
	Status int
	Err    error
}

func (e *ErrFormatRejected) Error() string {
	return fmt.Sprintf("request format rejected (status %d): %v", e.Status, e.Err)
}

func (e *ErrFormatRejected) Unwrap() error { return e.Err }

// ErrEmptyResponse indicates the provider returned no usable content.
type ErrEmptyResponse struct {
	Content json.RawMessage
}

func (e *ErrEmptyResponse) Error() string {
	return "empty LLM response"
}
