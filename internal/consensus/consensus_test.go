package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/microsoft/skillcheck/internal/llm"
	"github.com/microsoft/skillcheck/internal/models"
)

func consensusCatalog() llm.Catalog {
	return llm.Catalog{
		"alpha": {Provider: llm.ProviderAnthropic, ModelID: "alpha-1", DisplayName: "Alpha"},
		"beta":  {Provider: llm.ProviderOpenAI, ModelID: "beta-1", DisplayName: "Beta"},
		"gamma": {Provider: llm.ProviderGoogle, ModelID: "gamma-1", DisplayName: "Gamma"},
	}
}

func consensusKey() *models.AnswerKey {
	return &models.AnswerKey{
		Issues: []models.Issue{
			{ID: "ISSUE-01", Title: "Unlimited liability", Severity: models.SeverityHigh, Description: "Cap is missing entirely."},
			{ID: "ISSUE-02", Title: "Auto renewal", Severity: models.SeverityMedium, Description: "Renews without notice."},
			{ID: "ISSUE-03", Title: "Notice period", Severity: models.SeverityLow, Description: "Only 10 days to terminate."},
		},
		ExpectedRecommendation: "negotiate",
	}
}

func judgedResult(version, modelKey string, composite float64, issues map[string]int) *models.EvaluationResult {
	return &models.EvaluationResult{
		EvalID:       version + "-" + modelKey,
		SkillID:      "contract-review",
		Version:      version,
		DocName:      "nda",
		ModelKey:     modelKey,
		ResponseText: "analysis from " + modelKey + "/" + version,
		JudgeScores: &models.JudgeScore{
			JudgeModel:     "judge-1",
			Issues:         issues,
			CompositeScore: composite,
		},
	}
}

// fourWayResults is a 2 version x 2 model grid where ISSUE-01 is found by
// everyone, ISSUE-02 by all but beta/v2, and ISSUE-03 only by alpha/v1.
func fourWayResults() []*models.EvaluationResult {
	return []*models.EvaluationResult{
		judgedResult("v1", "alpha", 0.9, map[string]int{"ISSUE-01": 1, "ISSUE-02": 1, "ISSUE-03": 1}),
		judgedResult("v1", "beta", 0.7, map[string]int{"ISSUE-01": 1, "ISSUE-02": 1, "ISSUE-03": 0}),
		judgedResult("v2", "alpha", 0.8, map[string]int{"ISSUE-01": 1, "ISSUE-02": 1, "ISSUE-03": 0}),
		judgedResult("v2", "beta", 0.5, map[string]int{"ISSUE-01": 1, "ISSUE-02": 0, "ISSUE-03": 0}),
	}
}

func TestBuild(t *testing.T) {
	report := Build(fourWayResults(), consensusKey(), consensusCatalog())

	require.False(t, report.Empty())
	require.Equal(t, models.ConsensusOverall{
		TotalResults:  4,
		TotalModels:   2,
		TotalVersions: 2,
		TotalIssues:   3,
		Universal:     1,
		Strong:        1,
		Disputed:      0,
		Rare:          1,
	}, report.Overall)

	require.Len(t, report.Issues, 3)

	universal := report.Issues[0]
	require.Equal(t, "ISSUE-01", universal.ID)
	require.Equal(t, "Unlimited liability", universal.Title)
	require.Equal(t, models.SeverityHigh, universal.Severity)
	require.Equal(t, 1.0, universal.DetectionRate)
	require.Equal(t, models.TierUniversal, universal.Classification)
	require.Equal(t, 4, universal.FoundCount)
	require.Equal(t, 4, universal.TotalCount)
	require.Equal(t, []models.ResultRef{
		{Version: "v1", Model: "alpha", ModelName: "Alpha"},
		{Version: "v1", Model: "beta", ModelName: "Beta"},
		{Version: "v2", Model: "alpha", ModelName: "Alpha"},
		{Version: "v2", Model: "beta", ModelName: "Beta"},
	}, universal.FoundBy)
	require.Empty(t, universal.MissedBy)

	strong := report.Issues[1]
	require.Equal(t, "ISSUE-02", strong.ID)
	require.Equal(t, 0.75, strong.DetectionRate)
	require.Equal(t, models.TierStrong, strong.Classification)
	require.Equal(t, []models.ResultRef{
		{Version: "v2", Model: "beta", ModelName: "Beta"},
	}, strong.MissedBy)

	rare := report.Issues[2]
	require.Equal(t, "ISSUE-03", rare.ID)
	require.Equal(t, 0.25, rare.DetectionRate)
	require.Equal(t, models.TierRare, rare.Classification)
	require.Equal(t, []models.ResultRef{
		{Version: "v1", Model: "alpha", ModelName: "Alpha"},
	}, rare.FoundBy)

	// Each model agrees with the majority on 5 of 6 (issue, version) cells.
	require.Len(t, report.Models, 2)
	alpha, beta := report.Models[0], report.Models[1]
	require.Equal(t, "alpha", alpha.ModelKey)
	require.Equal(t, "Alpha", alpha.ModelName)
	require.Equal(t, 2, alpha.EvalCount)
	require.Equal(t, 0.8333, alpha.MajorityAgreement)
	require.Equal(t, []string{"ISSUE-03"}, alpha.UniqueFinds)
	require.Empty(t, alpha.UniqueMisses)
	require.Equal(t, "beta", beta.ModelKey)
	require.Equal(t, 0.8333, beta.MajorityAgreement)
	require.Empty(t, beta.UniqueFinds)
	require.Empty(t, beta.UniqueMisses)

	require.Len(t, report.Versions, 2)
	v1, v2 := report.Versions[0], report.Versions[1]
	require.Equal(t, "v1", v1.Version)
	require.Equal(t, 2, v1.EvalCount)
	require.Equal(t, 0.8333, v1.MajorityAgreement)
	require.NotNil(t, v1.AvgScore)
	require.Equal(t, 80.0, *v1.AvgScore)
	require.NotNil(t, v1.ScoreCI)
	require.Equal(t, 80.0, v1.ScoreCI.Mean)
	require.Equal(t, 0.95, v1.ScoreCI.ConfidenceLevel)
	require.LessOrEqual(t, v1.ScoreCI.Lower, v1.ScoreCI.Mean)
	require.GreaterOrEqual(t, v1.ScoreCI.Upper, v1.ScoreCI.Mean)
	require.Equal(t, "v2", v2.Version)
	require.NotNil(t, v2.AvgScore)
	require.Equal(t, 65.0, *v2.AvgScore)

	require.Len(t, report.Pairwise, 1)
	pw := report.Pairwise[0]
	require.Equal(t, "alpha", pw.ModelA)
	require.Equal(t, "Alpha", pw.ModelAName)
	require.Equal(t, "beta", pw.ModelB)
	require.Equal(t, "Beta", pw.ModelBName)
	require.Equal(t, 0.6667, pw.Agreement)
}

func TestBuildEmptyInputs(t *testing.T) {
	catalog := consensusCatalog()
	key := consensusKey()

	for name, report := range map[string]*models.ConsensusReport{
		"no results": Build(nil, key, catalog),
		"nil key":    Build(fourWayResults(), nil, catalog),
		"no judged results": Build([]*models.EvaluationResult{
			{SkillID: "contract-review", Version: "v1", ModelKey: "alpha", ResponseText: "unjudged"},
		}, key, catalog),
	} {
		require.True(t, report.Empty(), name)
		require.Empty(t, report.Issues, name)
		require.Empty(t, report.Models, name)
		require.Empty(t, report.Versions, name)
		require.Empty(t, report.Pairwise, name)
	}
}

func TestBuildSkipsUnjudgedAndIncomplete(t *testing.T) {
	rs := fourWayResults()
	rs = append(rs,
		&models.EvaluationResult{SkillID: "contract-review", Version: "v1", ModelKey: "gamma", ResponseText: "unjudged"},
		judgedResult("", "gamma", 0.4, map[string]int{"ISSUE-01": 1}),
	)

	report := Build(rs, consensusKey(), consensusCatalog())

	require.Equal(t, 4, report.Overall.TotalResults)
	require.Equal(t, 2, report.Overall.TotalModels)
	for _, ms := range report.Models {
		require.NotEqual(t, "gamma", ms.ModelKey)
	}
}

func TestBuildEvenSplitIsNotMajority(t *testing.T) {
	key := &models.AnswerKey{Issues: []models.Issue{
		{ID: "ISSUE-01", Title: "Split decision", Severity: models.SeverityHigh},
	}}
	rs := []*models.EvaluationResult{
		judgedResult("v1", "alpha", 0.8, map[string]int{"ISSUE-01": 1}),
		judgedResult("v2", "alpha", 0.8, map[string]int{"ISSUE-01": 1}),
		judgedResult("v1", "beta", 0.6, map[string]int{"ISSUE-01": 0}),
		judgedResult("v2", "beta", 0.6, map[string]int{"ISSUE-01": 0}),
	}

	report := Build(rs, key, consensusCatalog())

	require.Equal(t, 0.5, report.Issues[0].DetectionRate)
	require.Equal(t, models.TierDisputed, report.Issues[0].Classification)

	// A 2-of-4 split is not a majority, so detecting the issue counts
	// against agreement and shows up as a unique find.
	require.Len(t, report.Models, 2)
	require.Equal(t, "beta", report.Models[0].ModelKey)
	require.Equal(t, 1.0, report.Models[0].MajorityAgreement)
	require.Empty(t, report.Models[0].UniqueMisses)
	require.Equal(t, "alpha", report.Models[1].ModelKey)
	require.Equal(t, 0.0, report.Models[1].MajorityAgreement)
	require.Equal(t, []string{"ISSUE-01"}, report.Models[1].UniqueFinds)
}

func TestBuildSingleResult(t *testing.T) {
	rs := []*models.EvaluationResult{
		judgedResult("v1", "alpha", 0.9, map[string]int{"ISSUE-01": 1, "ISSUE-02": 0, "ISSUE-03": 0}),
	}

	report := Build(rs, consensusKey(), consensusCatalog())

	require.Equal(t, 1, report.Overall.TotalResults)
	require.Len(t, report.Models, 1)
	require.Equal(t, 1.0, report.Models[0].MajorityAgreement)
	require.Empty(t, report.Pairwise)

	require.Len(t, report.Versions, 1)
	require.NotNil(t, report.Versions[0].AvgScore)
	require.Equal(t, 90.0, *report.Versions[0].AvgScore)
	require.Nil(t, report.Versions[0].ScoreCI)
}

func TestBuildDefaultsMissingSeverityAndTitle(t *testing.T) {
	key := &models.AnswerKey{Issues: []models.Issue{{ID: "ISSUE-01"}}}
	rs := []*models.EvaluationResult{
		judgedResult("v1", "alpha", 0.5, map[string]int{"ISSUE-01": 1}),
	}

	report := Build(rs, key, consensusCatalog())

	require.Equal(t, "ISSUE-01", report.Issues[0].Title)
	require.Equal(t, models.SeverityMedium, report.Issues[0].Severity)
}

func TestBuildUnknownModelKeyFallsBackToKey(t *testing.T) {
	rs := []*models.EvaluationResult{
		judgedResult("atty", models.ModelKeyExternal, 0.7, map[string]int{"ISSUE-01": 1, "ISSUE-02": 1, "ISSUE-03": 1}),
	}

	report := Build(rs, consensusKey(), consensusCatalog())

	require.Equal(t, "external", report.Models[0].ModelName)
	require.Equal(t, "external", report.Issues[0].FoundBy[0].ModelName)
}
