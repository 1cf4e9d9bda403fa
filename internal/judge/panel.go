package judge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/microsoft/skillcheck/internal/models"
)

// EvaluatePanel runs every judge in judgeKeys concurrently and aggregates
// their verdicts into one score:
//
//   - per-issue detection and recommendation match by majority vote, with
//     ties counting as detected / matched
//   - false positive count as the rounded mean, the items as a sorted union
//   - reasoning concatenated across judges, each tagged with its display name
//   - the composite recomputed from the aggregated verdict, tokens summed,
//     elapsed taken as the max since judges run in parallel
//
// Judges that fail are dropped from the vote; the panel only errors when
// every judge fails. A single-key panel skips aggregation entirely.
func (j *Judge) EvaluatePanel(ctx context.Context, in Input, judgeKeys []string) (*models.JudgeScore, error) {
	if len(judgeKeys) == 0 {
		return nil, errors.New("no judge models given")
	}

	if len(judgeKeys) == 1 {
		score, err := j.Evaluate(ctx, in, judgeKeys[0])
		if err != nil {
			return nil, err
		}
		score.PanelSize = 1
		score.PanelJudges = []string{judgeKeys[0]}
		return score, nil
	}

	scores := make([]*models.JudgeScore, len(judgeKeys))
	errs := make([]error, len(judgeKeys))

	// Each slot is written by exactly one goroutine, so errors are carried
	// in the slice rather than through the group.
	var g errgroup.Group
	for i, key := range judgeKeys {
		g.Go(func() error {
			scores[i], errs[i] = j.Evaluate(ctx, in, key)
			return nil
		})
	}
	_ = g.Wait()

	var voted []*models.JudgeScore
	var failures []error
	for i := range judgeKeys {
		if errs[i] != nil {
			slog.Warn("panel judge failed", "judge", judgeKeys[i], "error", errs[i])
			failures = append(failures, fmt.Errorf("%s: %w", judgeKeys[i], errs[i]))
			continue
		}
		voted = append(voted, scores[i])
	}
	if len(voted) == 0 {
		return nil, fmt.Errorf("all panel judges failed: %w", errors.Join(failures...))
	}

	return j.aggregate(in.Key, voted), nil
}

func (j *Judge) aggregate(key *models.AnswerKey, results []*models.JudgeScore) *models.JudgeScore {
	n := len(results)
	quorum := float64(n) / 2

	issueIDs := map[string]struct{}{}
	for _, r := range results {
		for id := range r.Issues {
			issueIDs[id] = struct{}{}
		}
	}

	issues := make(map[string]int, len(issueIDs))
	reasoning := map[string]string{}
	for id := range issueIDs {
		votes := 0
		for _, r := range results {
			votes += r.Issues[id]
		}
		if float64(votes) >= quorum {
			issues[id] = 1
		} else {
			issues[id] = 0
		}

		if merged := j.mergeReasoning(results, id); merged != "" {
			reasoning[id] = merged
		}
	}

	matchVotes := 0
	for _, r := range results {
		if r.RecommendationMatch {
			matchVotes++
		}
	}
	match := float64(matchVotes) >= quorum

	// Recommendation details come from the first judge on the majority side.
	rec := models.Recommendation{}
	for _, r := range results {
		if r.RecommendationMatch == match {
			rec = r.Recommendation
			break
		}
	}
	rec.Match = match

	if merged := j.mergeReasoning(results, "recommendation"); merged != "" {
		reasoning["recommendation"] = merged
	}

	fpTotal := 0
	fpSet := map[string]struct{}{}
	for _, r := range results {
		fpTotal += r.FalsePositiveCount
		for _, fp := range r.FalsePositives {
			fpSet[fp] = struct{}{}
		}
	}
	fps := make([]string, 0, len(fpSet))
	for fp := range fpSet {
		fps = append(fps, fp)
	}
	sort.Strings(fps)

	names := make([]string, n)
	panelScores := make([]models.PanelScore, n)
	totalIn, totalOut := 0, 0
	var maxElapsed float64
	for i, r := range results {
		names[i] = r.JudgeModel
		panelScores[i] = models.PanelScore{JudgeModel: r.JudgeModel, CompositeScore: r.CompositeScore}
		totalIn += r.JudgeInputTokens
		totalOut += r.JudgeOutputTokens
		maxElapsed = math.Max(maxElapsed, r.JudgeElapsedSeconds)
	}

	agg := &models.JudgeScore{
		JudgeModel:          strings.Join(names, "+"),
		Recommendation:      rec,
		Issues:              issues,
		FalsePositiveCount:  int(math.Round(float64(fpTotal) / float64(n))),
		FalsePositives:      fps,
		Reasoning:           reasoning,
		JudgeInputTokens:    totalIn,
		JudgeOutputTokens:   totalOut,
		JudgeElapsedSeconds: maxElapsed,
		PanelSize:           n,
		PanelJudges:         names,
		PanelScores:         panelScores,
	}
	ApplyComposite(key, agg)
	return agg
}

func (j *Judge) mergeReasoning(results []*models.JudgeScore, id string) string {
	var parts []string
	for _, r := range results {
		if text := r.Reasoning[id]; text != "" {
			parts = append(parts, "["+j.catalog.DisplayName(r.JudgeModel)+"] "+text)
		}
	}
	return strings.Join(parts, " | ")
}
