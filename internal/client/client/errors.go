package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable marks transient transport failures: timeouts,
	// connection resets, 5xx and throttling responses. Safe to retry.
	ErrUnavailable = errors.New("server unavailable")

	// ErrUnauthorized marks 401/403 responses. Never retried automatically;
	// the caller must reauthenticate first.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation marks other 4xx responses. Permanent for the given
	// payload; retrying without a change will not help.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks 404 responses. A delete hitting it is treated as
	// already confirmed.
	ErrNotFound = errors.New("not found")

	ErrLocalDataNotAvailable = errors.New("local data unavailable")
)

// mapStatus converts an HTTP status code into one of the sentinel kinds.
// detail is the server-provided message, kept for user-visible summaries.
func mapStatus(code int, detail string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, code, detail)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrValidation, code, detail)
	}
}

// Err converts a bulk per-item failure into the sentinel taxonomy. Items
// reported without a status class are assumed transient.
func (e ItemError) Err() error {
	if e.StatusCode == 0 {
		return fmt.Errorf("%w: %s", ErrUnavailable, e.Error)
	}
	return mapStatus(e.StatusCode, e.Error)
}
