package judge

import (
	"math"

	"github.com/microsoft/skillcheck/internal/models"
)

// Composite score parameters. The composite is the severity-weighted hit
// rate on a 0-100 scale, plus a flat bonus for the right recommendation,
// minus a per-false-positive penalty, clamped to [0, 100] and stored as
// 0.0-1.0.
const (
	RecommendationBonus  = 10.0
	FalsePositivePenalty = 2.0
)

// ApplyComposite recomputes the derived scoring fields of score from its
// raw observations (per-issue detection, recommendation match, false
// positive count) against the answer key. Detection values for issue ids
// the key does not contain are ignored; key issues the judge skipped count
// as missed.
func ApplyComposite(key *models.AnswerKey, score *models.JudgeScore) {
	var weightedPts, weightedMax float64
	found := 0

	for _, issue := range key.Issues {
		weight := float64(issue.Severity.Weight())
		hit := score.Issues[issue.ID]
		if hit != 0 {
			found++
		}
		weightedPts += float64(hit) * weight
		weightedMax += weight
	}

	hitRate := 0.0
	if weightedMax > 0 {
		hitRate = weightedPts / weightedMax * 100
	}

	bonus := 0.0
	if score.Recommendation.Match {
		bonus = RecommendationBonus
	}
	penalty := float64(score.FalsePositiveCount) * FalsePositivePenalty

	composite := hitRate + bonus - penalty
	composite = math.Max(0, math.Min(100, composite))

	score.CompositeScore = round4(composite / 100)
	score.WeightedHitRate = round2(hitRate)
	score.RecommendationMatch = score.Recommendation.Match
	score.IssuesFound = found
	score.IssuesTotal = len(key.Issues)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
