package orchestration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/microsoft/skillcheck/internal/llm"
	"github.com/microsoft/skillcheck/internal/models"
)

func TestRescore(t *testing.T) {
	repo, store := newRunnerFixture(t)

	judged := savedResult("v1", "alpha", "nda", "some analysis")
	judged.JudgeScores = &models.JudgeScore{
		JudgeModel:     "judge-1",
		Recommendation: models.Recommendation{ModelSaid: "negotiate", Correct: "negotiate", Match: true},
		Issues:         map[string]int{"ISSUE-01": 1, "ISSUE-02": 0},
		FalsePositiveCount: 1,
		FalsePositives:     []string{"flagged boilerplate"},
		Reasoning:          map[string]string{"ISSUE-01": "seen in section 4"},

		// Stale derived values, recomputed by Rescore.
		CompositeScore:      0.99,
		WeightedHitRate:     12.3,
		RecommendationMatch: false,
		IssuesFound:         9,
		IssuesTotal:         9,

		JudgeInputTokens:    80,
		JudgeOutputTokens:   20,
		JudgeElapsedSeconds: 0.8,
	}
	require.NoError(t, store.Put(judged))

	require.NoError(t, store.Put(savedResult("v1", "beta", "nda", "unjudged")))

	msaJudged := savedResult("v1", "gamma", "msa", "msa analysis")
	msaJudged.JudgeScores = &models.JudgeScore{JudgeModel: "judge-1", CompositeScore: 0.5, Issues: map[string]int{}}
	require.NoError(t, store.Put(msaJudged))

	mock := scriptedInvoker(t, func(req llm.Request) (*llm.Response, error) {
		return nil, errors.New("rescore must not call any model")
	})

	runner := NewRunner(repo, store, mock, runnerCatalog())
	count, err := runner.Rescore("contract-review")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	stored, err := store.List("contract-review")
	require.NoError(t, err)
	byID := make(map[string]*models.EvaluationResult)
	for _, res := range stored {
		byID[res.EvalID] = res
	}

	score := byID["v1-alpha"].JudgeScores
	// ISSUE-01 (H, weight 3) of weight 5 detected: 60% hit rate, +10
	// recommendation bonus, -2 for the false positive.
	require.InDelta(t, 0.68, score.CompositeScore, 1e-9)
	require.InDelta(t, 60.0, score.WeightedHitRate, 1e-9)
	require.True(t, score.RecommendationMatch)
	require.Equal(t, 1, score.IssuesFound)
	require.Equal(t, 2, score.IssuesTotal)

	// Raw judge output is untouched.
	require.Equal(t, map[string]int{"ISSUE-01": 1, "ISSUE-02": 0}, score.Issues)
	require.Equal(t, 1, score.FalsePositiveCount)
	require.Equal(t, []string{"flagged boilerplate"}, score.FalsePositives)
	require.Equal(t, "judge-1", score.JudgeModel)
	require.Equal(t, map[string]string{"ISSUE-01": "seen in section 4"}, score.Reasoning)
	require.Equal(t, 80, score.JudgeInputTokens)
	require.Equal(t, 20, score.JudgeOutputTokens)

	// No answer key for msa, so its composite stays as stored.
	require.InDelta(t, 0.5, byID["v1-gamma"].JudgeScores.CompositeScore, 1e-9)
	require.False(t, byID["v1-beta"].Judged())
}

func TestRescoreEmptyStore(t *testing.T) {
	repo, store := newRunnerFixture(t)
	mock := scriptedInvoker(t, func(req llm.Request) (*llm.Response, error) {
		return nil, errors.New("unexpected call")
	})

	runner := NewRunner(repo, store, mock, runnerCatalog())
	count, err := runner.Rescore("contract-review")
	require.NoError(t, err)
	require.Zero(t, count)
}
