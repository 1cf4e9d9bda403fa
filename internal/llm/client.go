package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// DefaultMaxTokens is the completion budget used when a request does not set one.
const DefaultMaxTokens = 16384

// Request describes a single model invocation.
type Request struct {
	Provider string
	ModelID  string
	System   string
	User     string

	// MaxTokens caps the completion; zero means DefaultMaxTokens.
	MaxTokens int

	// Temperature is passed through only when set; providers use their
	// own default otherwise.
	Temperature *float64

	// ReasoningEffort applies to openai reasoning models only.
	ReasoningEffort string
}

// Response is the outcome of a successful invocation.
type Response struct {
	Text           string
	InputTokens    int
	OutputTokens   int
	ElapsedSeconds float64 // wall time including retries, rounded to 2 decimals
}

// Invoker executes model calls against a provider.
//
//go:generate go tool mockgen -source=client.go -destination=mock_invoker.go -package=llm
type Invoker interface {
	// Invoke sends one system+user exchange and returns the complete response.
	Invoke(ctx context.Context, req Request) (*Response, error)

	// Stream is Invoke with incremental delivery: onChunk receives each text
	// fragment as it arrives. A non-nil error from onChunk aborts the call.
	Stream(ctx context.Context, req Request, onChunk func(chunk string) error) (*Response, error)
}

// Client is the production Invoker backed by the provider SDKs.
type Client struct {
	retry retryPolicy
}

var _ Invoker = (*Client)(nil)

// NewClient creates a Client with the default retry policy.
func NewClient() *Client {
	return &Client{retry: defaultRetryPolicy()}
}

// Invoke implements Invoker.
func (c *Client) Invoke(ctx context.Context, req Request) (*Response, error) {
	return c.call(ctx, req, nil)
}

// Stream implements Invoker.
func (c *Client) Stream(ctx context.Context, req Request, onChunk func(chunk string) error) (*Response, error) {
	return c.call(ctx, req, onChunk)
}

// providerFunc is one provider adapter. onChunk is nil for non-streaming calls.
type providerFunc func(ctx context.Context, req Request, onChunk func(string) error) (*Response, error)

func (c *Client) call(ctx context.Context, req Request, onChunk func(string) error) (*Response, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}

	var fn providerFunc
	switch req.Provider {
	case ProviderAnthropic:
		fn = invokeAnthropic
	case ProviderOpenAI:
		fn = invokeOpenAI
	case ProviderGoogle:
		fn = invokeGoogle
	case ProviderTogether:
		fn = invokeTogether
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, req.Provider)
	}

	operation := req.Provider + "/" + req.ModelID
	slog.Debug("invoking model", "operation", operation, "max_tokens", req.MaxTokens, "streaming", onChunk != nil)

	start := time.Now()
	resp, err := c.retry.do(ctx, operation, func() (*Response, error) {
		return fn(ctx, req, onChunk)
	})
	if err != nil {
		return nil, err
	}

	resp.ElapsedSeconds = math.Round(time.Since(start).Seconds()*100) / 100
	return resp, nil
}
