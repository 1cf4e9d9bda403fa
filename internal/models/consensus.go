package models

import (
	"github.com/microsoft/skillcheck/internal/statistics"
)

// ConsensusTier buckets how broadly an issue was detected across all
// judged (version, model) pairs.
type ConsensusTier string

const (
	TierUniversal ConsensusTier = "universal"
	TierStrong    ConsensusTier = "strong"
	TierDisputed  ConsensusTier = "disputed"
	TierRare      ConsensusTier = "rare"
)

// ClassifyRate maps a detection rate onto a consensus tier.
func ClassifyRate(rate float64) ConsensusTier {
	switch {
	case rate >= 0.90:
		return TierUniversal
	case rate >= 0.70:
		return TierStrong
	case rate >= 0.30:
		return TierDisputed
	default:
		return TierRare
	}
}

// Rank orders tiers from broadest agreement to narrowest.
func (t ConsensusTier) Rank() int {
	switch t {
	case TierUniversal:
		return 0
	case TierStrong:
		return 1
	case TierDisputed:
		return 2
	case TierRare:
		return 3
	default:
		return 99
	}
}

// ResultRef names one (version, model) pair contributing to a consensus
// entry.
type ResultRef struct {
	Version   string `json:"version"`
	Model     string `json:"model"`
	ModelName string `json:"model_name"`
}

// IssueConsensus is the cross-result detection picture for one issue.
type IssueConsensus struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Severity       Severity      `json:"severity"`
	DetectionRate  float64       `json:"detection_rate"`
	Classification ConsensusTier `json:"classification"`
	FoundCount     int           `json:"found_count"`
	TotalCount     int           `json:"total_count"`
	FoundBy        []ResultRef   `json:"found_by"`
	MissedBy       []ResultRef   `json:"missed_by"`
}

// ModelSummary measures how closely one model tracks the per-issue
// majority. UniqueFinds are issues any version of this model detected while
// the majority missed them; UniqueMisses are the converse.
type ModelSummary struct {
	ModelKey          string   `json:"model_key"`
	ModelName         string   `json:"model_name"`
	EvalCount         int      `json:"eval_count"`
	MajorityAgreement float64  `json:"majority_agreement"`
	UniqueFinds       []string `json:"unique_finds"`
	UniqueMisses      []string `json:"unique_misses"`
}

// VersionSummary measures one skill version across models. AvgScore is the
// mean composite as a percentage, nil when no composite was recorded.
// ScoreCI is a bootstrap confidence interval over those composites,
// populated when at least two samples exist.
type VersionSummary struct {
	Version           string                         `json:"version"`
	EvalCount         int                            `json:"eval_count"`
	MajorityAgreement float64                        `json:"majority_agreement"`
	AvgScore          *float64                       `json:"avg_score"`
	ScoreCI           *statistics.ConfidenceInterval `json:"score_ci,omitempty"`
}

// PairwiseAgreement is the detection agreement between two models over the
// versions both evaluated. Pairs are unordered; each appears once.
type PairwiseAgreement struct {
	ModelA     string  `json:"model_a"`
	ModelAName string  `json:"model_a_name"`
	ModelB     string  `json:"model_b"`
	ModelBName string  `json:"model_b_name"`
	Agreement  float64 `json:"agreement"`
}

// ConsensusOverall carries the report's headline counts.
type ConsensusOverall struct {
	TotalResults  int `json:"total_results"`
	TotalModels   int `json:"total_models"`
	TotalVersions int `json:"total_versions"`
	TotalIssues   int `json:"total_issues"`
	Universal     int `json:"universal"`
	Strong        int `json:"strong"`
	Disputed      int `json:"disputed"`
	Rare          int `json:"rare"`
}

// ConsensusReport is the derived agreement analysis for one
// (skill, document) pair. It is rebuilt from persisted results on demand
// and never stored itself.
type ConsensusReport struct {
	Issues   []IssueConsensus    `json:"issue_consensus"`
	Models   []ModelSummary      `json:"model_summary"`
	Versions []VersionSummary    `json:"version_summary"`
	Pairwise []PairwiseAgreement `json:"pairwise_agreement"`
	Overall  ConsensusOverall    `json:"overall"`
}

// Empty reports whether the report was built from zero judged results.
func (r *ConsensusReport) Empty() bool {
	return r.Overall.TotalResults == 0
}
