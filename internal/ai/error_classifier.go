package ai

import (
	"context"
	"errors"
	"strings"
)

// isTransientError checks if error is transient and worth another attempt
// on the same provider.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if IsRateLimited(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == 429
	}

	// Network errors (connection issues, timeouts)
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "eof")
}

// isFatalError checks if error cannot be fixed by asking again.
func isFatalError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMissingAPIKey) {
		return true
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 && httpErr.StatusCode != 429
	}
	return false
}

// resultLabel names the outcome of a provider call for metrics.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsRateLimited(err):
		return "rate_limited"
	case IsContentRefused(err):
		return "content_refused"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case isTransientError(err):
		return "transient"
	case isFatalError(err):
		return "fatal"
	}
	return "unknown"
}
