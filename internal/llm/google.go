package llm

import (
	"context"
	"errors"
	"os"
	"strings"

	"google.golang.org/genai"
)

func invokeGoogle(ctx context.Context, req Request, onChunk func(string) error) (*Response, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  os.Getenv("GOOGLE_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokens),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		},
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}

	contents := genai.Text(req.User)

	if onChunk == nil {
		resp, err := client.Models.GenerateContent(ctx, req.ModelID, contents, config)
		if err != nil {
			return nil, googleError(err)
		}
		return googleResponse(resp.Text(), resp.UsageMetadata), nil
	}

	var text strings.Builder
	var usage *genai.GenerateContentResponseUsageMetadata
	for chunk, err := range client.Models.GenerateContentStream(ctx, req.ModelID, contents, config) {
		if err != nil {
			return nil, googleError(err)
		}
		if part := chunk.Text(); part != "" {
			text.WriteString(part)
			if err := onChunk(part); err != nil {
				return nil, err
			}
		}
		if chunk.UsageMetadata != nil {
			usage = chunk.UsageMetadata
		}
	}
	return googleResponse(text.String(), usage), nil
}

func googleResponse(text string, usage *genai.GenerateContentResponseUsageMetadata) *Response {
	resp := &Response{Text: text}
	if usage != nil {
		resp.InputTokens = int(usage.PromptTokenCount)
		resp.OutputTokens = int(usage.CandidatesTokenCount)
	}
	return resp
}

func googleError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		// The Gemini SDK does not surface response headers, so no
		// Retry-After hint is available here.
		return &ProviderError{
			Provider:   ProviderGoogle,
			StatusCode: apiErr.Code,
			Message:    apiErr.Error(),
		}
	}
	return err
}
