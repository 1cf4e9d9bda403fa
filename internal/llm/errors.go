package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrUnknownProvider reports a provider name outside the supported set.
// It is a configuration error and is never retried.
var ErrUnknownProvider = errors.New("unknown provider")

// errEmptyResponse marks an invocation that returned no output text.
// Providers occasionally truncate to nothing under load, so this is
// treated as transient and retried like a 5xx.
var errEmptyResponse = errors.New("empty response text")

// ProviderError is a classified provider API failure.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string

	// RetryAfter is the provider-supplied wait hint, zero when absent.
	RetryAfter time.Duration
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether the failure is transient: rate limited,
// service unavailable, or overloaded.
func (e *ProviderError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, 529:
		return true
	}
	return false
}

func isRetryable(err error) bool {
	if errors.Is(err, errEmptyResponse) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}

// retryAfterHeader parses a Retry-After value in seconds from a provider
// response. Zero when absent or unparseable.
func retryAfterHeader(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
