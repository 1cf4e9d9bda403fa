package models

import (
	"time"
)

// ModelKeyExternal is the model key recorded for results loaded from a
// pre-recorded external response instead of a live model call.
const ModelKeyExternal = "external"

// EvaluationResult is one evaluation attempt, identified by the
// (skill, version, model, document) tuple. It is persisted as soon as the
// attempt completes and re-persisted once when judge scores are attached.
type EvaluationResult struct {
	EvalID         string      `json:"eval_id"`
	SkillID        string      `json:"skill_id"`
	Version        string      `json:"version"`
	DocName        string      `json:"doc_name"`
	ModelKey       string      `json:"model_key"`
	ModelName      string      `json:"model_name"`
	Timestamp      time.Time   `json:"timestamp"`
	ResponseText   string      `json:"response_text"`
	InputTokens    int         `json:"input_tokens"`
	OutputTokens   int         `json:"output_tokens"`
	ElapsedSeconds float64     `json:"elapsed_seconds"`
	JudgeScores    *JudgeScore `json:"judge_scores"`

	// Err is set instead of the response fields when the attempt failed.
	Err string `json:"error,omitempty"`
}

// Failed reports whether this result records a failed attempt.
func (r *EvaluationResult) Failed() bool {
	return r.Err != ""
}

// Judged reports whether judge scores have been attached.
func (r *EvaluationResult) Judged() bool {
	return r.JudgeScores != nil
}

// Recommendation captures the judge's reading of the model's overall
// recommendation versus the expected one.
type Recommendation struct {
	ModelSaid string `json:"model_said"`
	Correct   string `json:"correct"`
	Match     bool   `json:"match"`
}

// JudgeScore is the full scoring record produced by a single judge or by an
// aggregated judge panel. Issues maps issue id to a binary detection value.
// Reasoning is keyed by issue id, with the special key "recommendation" for
// recommendation reasoning. Panel fields are only set on panel aggregates
// (and on single-judge runs dispatched through the panel path, with size 1).
type JudgeScore struct {
	JudgeModel          string            `json:"judge_model"`
	Recommendation      Recommendation    `json:"recommendation"`
	Issues              map[string]int    `json:"issues"`
	FalsePositiveCount  int               `json:"false_positive_count"`
	FalsePositives      []string          `json:"false_positives"`
	CompositeScore      float64           `json:"composite_score"`
	WeightedHitRate     float64           `json:"weighted_hit_rate"`
	RecommendationMatch bool              `json:"recommendation_match"`
	IssuesFound         int               `json:"issues_found"`
	IssuesTotal         int               `json:"issues_total"`
	Reasoning           map[string]string `json:"reasoning,omitempty"`
	JudgeInputTokens    int               `json:"judge_input_tokens"`
	JudgeOutputTokens   int               `json:"judge_output_tokens"`
	JudgeElapsedSeconds float64           `json:"judge_elapsed_seconds"`
	PanelSize           int               `json:"panel_size,omitempty"`
	PanelJudges         []string          `json:"panel_judges,omitempty"`
	PanelScores         []PanelScore      `json:"panel_scores,omitempty"`
}

// PanelScore records one panel member's individual composite for
// transparency; it is not used in any further computation.
type PanelScore struct {
	JudgeModel     string  `json:"judge_model"`
	CompositeScore float64 `json:"composite_score"`
}
