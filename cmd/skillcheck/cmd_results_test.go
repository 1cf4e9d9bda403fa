package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/skillcheck/internal/llm"
	"github.com/microsoft/skillcheck/internal/models"
	"github.com/microsoft/skillcheck/internal/results"
)

func TestResultsCommand_Matrix(t *testing.T) {
	clearProviderKeys(t)
	skillsD := writeSkillTree(t)
	resultsD := t.TempDir()

	store := results.NewFileStore(resultsD)
	seedResult(t, store, "v1", "claude-sonnet", 0.9, map[string]int{"ISSUE-01": 1, "ISSUE-02": 1})
	seedResult(t, store, "v2", "claude-sonnet", 0.8, map[string]int{"ISSUE-01": 1, "ISSUE-02": 0})
	require.NoError(t, store.Put(&models.EvaluationResult{
		EvalID:   "v1-gpt-5",
		SkillID:  "contract-review",
		Version:  "v1",
		DocName:  "nda",
		ModelKey: "gpt-5",
		Err:      "rate limited",
	}))

	cmd := newRootCommand()
	cmd.SetArgs([]string{
		"results", "--skill", "contract-review",
		"--skills-dir", skillsD, "--results-dir", resultsD,
	})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	out := captureStdout(t, func() {
		require.NoError(t, cmd.Execute())
	})

	assert.Contains(t, out, "Document: nda")
	assert.Contains(t, out, "Claude Sonnet 4.5")
	assert.Contains(t, out, "GPT-5")
	// (1000×3.00 + 500×15.00) / 1e6
	assert.Contains(t, out, "90% $0.0105 3.2s")
	assert.Contains(t, out, "80% $0.0105 3.2s")
	assert.Contains(t, out, "failed")
	// the v2 / gpt-5 cell has no result
	assert.Contains(t, out, "-")
}

func TestResultsCommand_NoResults(t *testing.T) {
	clearProviderKeys(t)

	cmd := newRootCommand()
	cmd.SetArgs([]string{
		"results", "--skill", "contract-review",
		"--skills-dir", t.TempDir(), "--results-dir", t.TempDir(),
	})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	out := captureStdout(t, func() {
		require.NoError(t, cmd.Execute())
	})

	assert.Contains(t, out, "No results for skill contract-review")
}

func TestResultsCommand_DocFilterMiss(t *testing.T) {
	clearProviderKeys(t)
	resultsD := t.TempDir()
	seedResult(t, results.NewFileStore(resultsD), "v1", "claude-sonnet", 0.9, map[string]int{"ISSUE-01": 1})

	cmd := newRootCommand()
	cmd.SetArgs([]string{
		"results", "--skill", "contract-review", "--doc", "other-doc",
		"--skills-dir", t.TempDir(), "--results-dir", resultsD,
	})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	out := captureStdout(t, func() {
		require.NoError(t, cmd.Execute())
	})

	assert.Contains(t, out, "No results for contract-review/other-doc")
}

// Wide-rune display names from a catalog override must still align: the
// column width counts terminal cells, not bytes or runes.
func TestPrintResultsMatrix_WideRunes(t *testing.T) {
	catalog := llm.Catalog{
		"local-model": {DisplayName: "日本語モデル", CostIn: 1.0, CostOut: 1.0},
	}
	cells := map[results.Key]*models.EvaluationResult{
		{Version: "v1", ModelKey: "local-model"}: {
			Version:        "v1",
			ModelKey:       "local-model",
			ElapsedSeconds: 1.5,
			JudgeScores:    &models.JudgeScore{CompositeScore: 0.75},
		},
	}

	var buf bytes.Buffer
	printResultsMatrix(&buf, catalog, cells, []string{"local-model"})
	out := buf.String()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Version  "))
	assert.True(t, strings.HasPrefix(lines[1], "v1       "))
	assert.Contains(t, lines[0], "日本語モデル")
	assert.Contains(t, lines[1], "75% $0.0000 1.5s")
}

func TestResultCell(t *testing.T) {
	catalog := llm.DefaultCatalog()

	tests := []struct {
		name   string
		result *models.EvaluationResult
		want   string
	}{
		{"absent", nil, "-"},
		{"failed", &models.EvaluationResult{Err: "boom"}, "failed"},
		{
			"unjudged",
			&models.EvaluationResult{ElapsedSeconds: 2.5},
			"unjudged 2.5s",
		},
		{
			"judged with pricing",
			&models.EvaluationResult{
				ModelKey:       "claude-sonnet",
				InputTokens:    1000,
				OutputTokens:   500,
				ElapsedSeconds: 3.2,
				JudgeScores:    &models.JudgeScore{CompositeScore: 0.7},
			},
			"70% $0.0105 3.2s",
		},
		{
			"judged external has no pricing",
			&models.EvaluationResult{
				ModelKey:    models.ModelKeyExternal,
				JudgeScores: &models.JudgeScore{CompositeScore: 0.85},
			},
			"85% 0.0s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resultCell(catalog, tt.result))
		})
	}
}
