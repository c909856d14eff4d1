package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// retryableStatuses is the fixed transport/rate-limit/server class.
var retryableStatuses = map[int]bool{
	http.StatusRequestTimeout:      true, // 408
	http.StatusTooManyRequests:     true, // 429
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
	522:                            true, // connection timed out (CDN)
	524:                            true, // origin timeout (CDN)
}

// formatStatuses is the fixed set suggesting the response format or payload
// size was rejected.
var formatStatuses = map[int]bool{
	http.StatusBadRequest:            true, // 400
	http.StatusRequestEntityTooLarge: true, // 413
	http.StatusRequestURITooLong:     true, // 414
	http.StatusUnsupportedMediaType:  true, // 415
	http.StatusUnprocessableEntity:   true, // 422
}

var retryablePhrases = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"econnreset",
	"etimedout",
	"broken pipe",
	"overloaded",
}

var formatPhrases = []string{
	"response_format",
	"json_schema",
	"invalid",
}

// Retryable reports whether an error is worth retrying on the same variant
// with backoff. Context cancellation is never retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var rl *ErrRateLimit
	if errors.As(err, &rl) {
		return true
	}
	var unavail *ErrProviderUnavailable
	if errors.As(err, &unavail) {
		return unavail.Status == 0 || retryableStatuses[unavail.Status]
	}

	return matchesAny(err.Error(), retryablePhrases)
}

// FormatRejected reports whether an error suggests the requested response
// mode or payload was refused, so a less strict variant may succeed.
// Checked after Retryable: the retryable class wins on overlap.
func FormatRejected(err error) bool {
	if err == nil {
		return false
	}

	var fr *ErrFormatRejected
	if errors.As(err, &fr) {
		return true
	}

	return matchesAny(err.Error(), formatPhrases)
}

// mapStatusError converts an HTTP status from a provider SDK into the
// error taxonomy. Status 0 means the SDK exposed no status code.
func mapStatusError(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &ErrRateLimit{Err: err}
	case formatStatuses[status]:
		return &ErrFormatRejected{Status: status, Err: err}
	case status >= 500 || status == http.StatusRequestTimeout:
		return &ErrProviderUnavailable{Status: status, Err: err}
	default:
		return &ErrProviderUnavailable{Status: status, Err: err}
	}
}

func matchesAny(msg string, phrases []string) bool {
	msg = strings.ToLower(msg)
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
