package llm

import (
	"context"
	"errors"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// togetherBaseURL is the OpenAI-compatible endpoint Together exposes.
const togetherBaseURL = "https://api.together.xyz/v1"

func invokeOpenAI(ctx context.Context, req Request, onChunk func(string) error) (*Response, error) {
	client := openai.NewClient(option.WithMaxRetries(0))

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.ModelID),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.ReasoningEffort != "" {
		params.ReasoningEffort = openai.ReasoningEffort(req.ReasoningEffort)
	}

	return completeChat(ctx, client, params, ProviderOpenAI, onChunk)
}

func invokeTogether(ctx context.Context, req Request, onChunk func(string) error) (*Response, error) {
	client := openai.NewClient(
		option.WithBaseURL(togetherBaseURL),
		option.WithAPIKey(os.Getenv("TOGETHER_API_KEY")),
		option.WithMaxRetries(0),
	)

	// Together's compatibility layer still expects max_tokens rather than
	// max_completion_tokens.
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.ModelID),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		MaxTokens: openai.Int(int64(req.MaxTokens)),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	return completeChat(ctx, client, params, ProviderTogether, onChunk)
}

// completeChat runs one chat completion against an OpenAI-compatible API,
// streaming when onChunk is non-nil.
func completeChat(ctx context.Context, client openai.Client, params openai.ChatCompletionNewParams, provider string, onChunk func(string) error) (*Response, error) {
	if onChunk == nil {
		completion, err := client.Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, openAIError(provider, err)
		}

		var text string
		if len(completion.Choices) > 0 {
			text = completion.Choices[0].Message.Content
		}
		return &Response{
			Text:         text,
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
		}, nil
	}

	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	stream := client.Chat.Completions.NewStreaming(ctx, params)
	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if err := onChunk(chunk.Choices[0].Delta.Content); err != nil {
				return nil, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, openAIError(provider, err)
	}

	var text string
	if len(acc.Choices) > 0 {
		text = acc.Choices[0].Message.Content
	}
	return &Response{
		Text:         text,
		InputTokens:  int(acc.Usage.PromptTokens),
		OutputTokens: int(acc.Usage.CompletionTokens),
	}, nil
}

func openAIError(provider string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider:   provider,
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Error(),
			RetryAfter: retryAfterHeader(apiErr.Response),
		}
	}
	return err
}
