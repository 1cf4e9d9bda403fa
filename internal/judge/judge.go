package judge

import (
	"context"
	"fmt"

	"github.com/microsoft/skillcheck/internal/llm"
	"github.com/microsoft/skillcheck/internal/models"
)

// Judge scores model responses by prompting a judge model and parsing its
// structured verdict.
type Judge struct {
	invoker llm.Invoker
	catalog llm.Catalog
}

// New creates a Judge that invokes judge models through invoker and resolves
// judge keys against catalog.
func New(invoker llm.Invoker, catalog llm.Catalog) *Judge {
	return &Judge{invoker: invoker, catalog: catalog}
}

// Input bundles everything a judge needs to score one model response.
type Input struct {
	DocText      string
	Key          *models.AnswerKey
	ResponseText string

	// SystemPrompt overrides DefaultSystemPrompt when set, letting a skill
	// ship its own judging instructions.
	SystemPrompt string
}

func (in Input) systemPrompt() string {
	if in.SystemPrompt != "" {
		return in.SystemPrompt
	}
	return DefaultSystemPrompt
}

// Evaluate runs a single judge model over the response and returns its full
// score, with the composite already computed against the answer key.
func (j *Judge) Evaluate(ctx context.Context, in Input, judgeKey string) (*models.JudgeScore, error) {
	cfg, ok := j.catalog[judgeKey]
	if !ok {
		return nil, fmt.Errorf("unknown judge model %q", judgeKey)
	}

	user, err := buildUserPrompt(in.DocText, in.Key, in.ResponseText)
	if err != nil {
		return nil, err
	}

	resp, err := j.invoker.Invoke(ctx, cfg.Request(in.systemPrompt(), user))
	if err != nil {
		return nil, fmt.Errorf("judge %s: %w", judgeKey, err)
	}

	verdict, err := ParseVerdict(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("judge %s: %w", judgeKey, err)
	}

	fps := verdict.FalsePositives
	if fps == nil {
		fps = []string{}
	}

	score := &models.JudgeScore{
		JudgeModel:          judgeKey,
		Recommendation:      verdict.Recommendation,
		Issues:              verdict.Issues,
		FalsePositiveCount:  verdict.FalsePositiveCount,
		FalsePositives:      fps,
		Reasoning:           verdict.Reasoning,
		JudgeInputTokens:    resp.InputTokens,
		JudgeOutputTokens:   resp.OutputTokens,
		JudgeElapsedSeconds: resp.ElapsedSeconds,
	}
	ApplyComposite(in.Key, score)
	return score, nil
}
