package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

func invokeAnthropic(ctx context.Context, req Request, onChunk func(string) error) (*Response, error) {
	// The SDK's own retry loop is disabled so the retryPolicy stays the
	// single place deciding attempts and delays.
	client := anthropic.NewClient(option.WithMaxRetries(0))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.ModelID),
		MaxTokens: int64(req.MaxTokens),
		System:    []anthropic.TextBlockParam{{Text: req.System}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	var message anthropic.Message
	if onChunk == nil {
		resp, err := client.Messages.New(ctx, params)
		if err != nil {
			return nil, anthropicError(err)
		}
		message = *resp
	} else {
		stream := client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				return nil, fmt.Errorf("accumulating stream event: %w", err)
			}
			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch deltaVariant := eventVariant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if err := onChunk(deltaVariant.Text); err != nil {
						return nil, err
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			return nil, anthropicError(err)
		}
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &Response{
		Text:         text.String(),
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func anthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider:   ProviderAnthropic,
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Error(),
			RetryAfter: retryAfterHeader(apiErr.Response),
		}
	}
	return err
}
