// Package consensus cross-cuts the judged results for one
// (skill, document) pair into agreement statistics: per-issue detection
// tiers, per-model and per-version majority agreement, and pairwise model
// overlap.
package consensus

import (
	"cmp"
	"slices"

	"github.com/microsoft/skillcheck/internal/llm"
	"github.com/microsoft/skillcheck/internal/models"
	"github.com/microsoft/skillcheck/internal/results"
	"github.com/microsoft/skillcheck/internal/statistics"
)

// Build computes the consensus report over a set of results that share one
// (skill, document) pair. Results lacking judge scores, a version, or a
// model key are excluded. The catalog supplies model display names. With
// no usable input the report is empty.
func Build(rs []*models.EvaluationResult, key *models.AnswerKey, catalog llm.Catalog) *models.ConsensusReport {
	report := emptyReport()
	if len(rs) == 0 || key == nil {
		return report
	}

	// Detection matrix: issue id -> (version, model) -> detected.
	detection := make(map[string]map[results.Key]bool, len(key.Issues))
	for _, issue := range key.Issues {
		detection[issue.ID] = make(map[results.Key]bool)
	}

	index := make(map[results.Key]*models.EvaluationResult)
	for _, r := range rs {
		if r.Version == "" || r.ModelKey == "" || !r.Judged() {
			continue
		}
		k := results.Key{Version: r.Version, ModelKey: r.ModelKey}
		index[k] = r
		for _, issue := range key.Issues {
			detection[issue.ID][k] = r.JudgeScores.Issues[issue.ID] != 0
		}
	}

	keys := make([]results.Key, 0, len(index))
	for k := range index {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b results.Key) int {
		if c := cmp.Compare(a.Version, b.Version); c != 0 {
			return c
		}
		return cmp.Compare(a.ModelKey, b.ModelKey)
	})
	n := len(keys)
	if n == 0 {
		return report
	}

	for _, issue := range key.Issues {
		det := detection[issue.ID]
		foundBy := []models.ResultRef{}
		missedBy := []models.ResultRef{}
		for _, k := range keys {
			ref := models.ResultRef{
				Version:   k.Version,
				Model:     k.ModelKey,
				ModelName: catalog.DisplayName(k.ModelKey),
			}
			if det[k] {
				foundBy = append(foundBy, ref)
			} else {
				missedBy = append(missedBy, ref)
			}
		}
		rate := float64(len(foundBy)) / float64(n)

		severity := issue.Severity
		if severity == "" {
			severity = models.SeverityMedium
		}
		title := issue.Title
		if title == "" {
			title = issue.ID
		}

		report.Issues = append(report.Issues, models.IssueConsensus{
			ID:             issue.ID,
			Title:          title,
			Severity:       severity,
			DetectionRate:  statistics.Round(rate, 4),
			Classification: models.ClassifyRate(rate),
			FoundCount:     len(foundBy),
			TotalCount:     n,
			FoundBy:        foundBy,
			MissedBy:       missedBy,
		})
	}
	// Broadest consensus first, then by detection rate.
	slices.SortStableFunc(report.Issues, func(a, b models.IssueConsensus) int {
		if c := cmp.Compare(a.Classification.Rank(), b.Classification.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(b.DetectionRate, a.DetectionRate)
	})

	// Strict majority per issue.
	majority := make(map[string]bool, len(key.Issues))
	for _, issue := range key.Issues {
		found := 0
		for _, k := range keys {
			if detection[issue.ID][k] {
				found++
			}
		}
		majority[issue.ID] = float64(found) > float64(n)/2
	}

	var modelsSeen, versionsSeen []string
	seenM := make(map[string]bool)
	seenV := make(map[string]bool)
	for _, k := range keys {
		if !seenM[k.ModelKey] {
			seenM[k.ModelKey] = true
			modelsSeen = append(modelsSeen, k.ModelKey)
		}
		if !seenV[k.Version] {
			seenV[k.Version] = true
			versionsSeen = append(versionsSeen, k.Version)
		}
	}
	slices.Sort(modelsSeen)
	slices.Sort(versionsSeen)

	for _, mk := range modelsSeen {
		var cells []results.Key
		for _, v := range versionsSeen {
			k := results.Key{Version: v, ModelKey: mk}
			if _, ok := index[k]; ok {
				cells = append(cells, k)
			}
		}
		if len(cells) == 0 {
			continue
		}

		agrees, total := 0, 0
		for _, issue := range key.Issues {
			for _, k := range cells {
				if detection[issue.ID][k] == majority[issue.ID] {
					agrees++
				}
				total++
			}
		}
		rate := 0.0
		if total > 0 {
			rate = float64(agrees) / float64(total)
		}

		finds := []string{}
		misses := []string{}
		for _, issue := range key.Issues {
			found := false
			for _, k := range cells {
				if detection[issue.ID][k] {
					found = true
					break
				}
			}
			switch {
			case found && !majority[issue.ID]:
				finds = append(finds, issue.ID)
			case !found && majority[issue.ID]:
				misses = append(misses, issue.ID)
			}
		}

		report.Models = append(report.Models, models.ModelSummary{
			ModelKey:          mk,
			ModelName:         catalog.DisplayName(mk),
			EvalCount:         len(cells),
			MajorityAgreement: statistics.Round(rate, 4),
			UniqueFinds:       finds,
			UniqueMisses:      misses,
		})
	}
	slices.SortStableFunc(report.Models, func(a, b models.ModelSummary) int {
		return cmp.Compare(b.MajorityAgreement, a.MajorityAgreement)
	})

	for _, v := range versionsSeen {
		var cells []results.Key
		for _, mk := range modelsSeen {
			k := results.Key{Version: v, ModelKey: mk}
			if _, ok := index[k]; ok {
				cells = append(cells, k)
			}
		}
		if len(cells) == 0 {
			continue
		}

		agrees, total := 0, 0
		for _, issue := range key.Issues {
			for _, k := range cells {
				if detection[issue.ID][k] == majority[issue.ID] {
					agrees++
				}
				total++
			}
		}
		rate := 0.0
		if total > 0 {
			rate = float64(agrees) / float64(total)
		}

		var scores []float64
		for _, k := range cells {
			scores = append(scores, index[k].JudgeScores.CompositeScore*100)
		}
		avg := statistics.Round(statistics.Mean(scores), 1)

		summary := models.VersionSummary{
			Version:           v,
			EvalCount:         len(cells),
			MajorityAgreement: statistics.Round(rate, 4),
			AvgScore:          &avg,
		}
		if len(scores) >= 2 {
			ci := statistics.BootstrapCI(scores, 0.95)
			summary.ScoreCI = &ci
		}
		report.Versions = append(report.Versions, summary)
	}
	slices.SortStableFunc(report.Versions, func(a, b models.VersionSummary) int {
		return cmp.Compare(scoreOrZero(b.AvgScore), scoreOrZero(a.AvgScore))
	})

	for i, ma := range modelsSeen {
		for _, mb := range modelsSeen[i+1:] {
			var shared []string
			for _, v := range versionsSeen {
				if _, ok := index[results.Key{Version: v, ModelKey: ma}]; !ok {
					continue
				}
				if _, ok := index[results.Key{Version: v, ModelKey: mb}]; !ok {
					continue
				}
				shared = append(shared, v)
			}
			if len(shared) == 0 {
				continue
			}

			agree, total := 0, 0
			for _, issue := range key.Issues {
				for _, v := range shared {
					da := detection[issue.ID][results.Key{Version: v, ModelKey: ma}]
					db := detection[issue.ID][results.Key{Version: v, ModelKey: mb}]
					if da == db {
						agree++
					}
					total++
				}
			}
			rate := 0.0
			if total > 0 {
				rate = float64(agree) / float64(total)
			}

			report.Pairwise = append(report.Pairwise, models.PairwiseAgreement{
				ModelA:     ma,
				ModelAName: catalog.DisplayName(ma),
				ModelB:     mb,
				ModelBName: catalog.DisplayName(mb),
				Agreement:  statistics.Round(rate, 4),
			})
		}
	}
	slices.SortStableFunc(report.Pairwise, func(a, b models.PairwiseAgreement) int {
		return cmp.Compare(b.Agreement, a.Agreement)
	})

	report.Overall = models.ConsensusOverall{
		TotalResults:  n,
		TotalModels:   len(modelsSeen),
		TotalVersions: len(versionsSeen),
		TotalIssues:   len(key.Issues),
	}
	for _, ic := range report.Issues {
		switch ic.Classification {
		case models.TierUniversal:
			report.Overall.Universal++
		case models.TierStrong:
			report.Overall.Strong++
		case models.TierDisputed:
			report.Overall.Disputed++
		case models.TierRare:
			report.Overall.Rare++
		}
	}
	return report
}

func emptyReport() *models.ConsensusReport {
	return &models.ConsensusReport{
		Issues:   []models.IssueConsensus{},
		Models:   []models.ModelSummary{},
		Versions: []models.VersionSummary{},
		Pairwise: []models.PairwiseAgreement{},
	}
}

func scoreOrZero(s *float64) float64 {
	if s == nil {
		return 0
	}
	return *s
}
