package llm

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProviderErrorRetryable(t *testing.T) {
	testCases := []struct {
		status    int
		retryable bool
	}{
		{status: 429, retryable: true},
		{status: 503, retryable: true},
		{status: 529, retryable: true},
		{status: 400, retryable: false},
		{status: 401, retryable: false},
		{status: 404, retryable: false},
		{status: 500, retryable: false},
		{status: 502, retryable: false},
	}

	for _, tc := range testCases {
		pe := &ProviderError{Provider: ProviderAnthropic, StatusCode: tc.status}
		require.Equal(t, tc.retryable, pe.Retryable(), "status %d", tc.status)
	}
}

func TestProviderErrorMessage(t *testing.T) {
	pe := &ProviderError{Provider: ProviderOpenAI, StatusCode: 429, Message: "slow down"}
	require.Equal(t, "openai: status 429: slow down", pe.Error())
}

func TestRetryAfterHeader(t *testing.T) {
	header := func(v string) *http.Response {
		resp := &http.Response{Header: http.Header{}}
		if v != "" {
			resp.Header.Set("Retry-After", v)
		}
		return resp
	}

	require.Equal(t, 30*time.Second, retryAfterHeader(header("30")))
	require.Equal(t, 1500*time.Millisecond, retryAfterHeader(header("1.5")))
	require.Zero(t, retryAfterHeader(header("")))
	require.Zero(t, retryAfterHeader(header("soon")))
	require.Zero(t, retryAfterHeader(header("-5")))
	require.Zero(t, retryAfterHeader(nil))
}

func TestClientUnknownProvider(t *testing.T) {
	client := NewClient()

	_, err := client.Invoke(context.Background(), Request{Provider: "mainframe", ModelID: "cobol-1"})
	require.ErrorIs(t, err, ErrUnknownProvider)
	require.ErrorContains(t, err, "mainframe")
}
