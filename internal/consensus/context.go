package consensus

import (
	"fmt"
	"strings"

	"github.com/microsoft/skillcheck/internal/llm"
	"github.com/microsoft/skillcheck/internal/models"
)

// Individual responses are clipped so the brief stays well inside a chat
// model's context window.
const maxResponseRunes = 2000

// BuildChatContext renders the report, raw results, and answer key into the
// text brief handed to a chat model when answering questions about a run.
// Output is deterministic for fixed inputs.
func BuildChatContext(report *models.ConsensusReport, rs []*models.EvaluationResult, key *models.AnswerKey, catalog llm.Catalog, skillID, docName string) string {
	lines := []string{
		fmt.Sprintf("You are analyzing evaluation results for skill '%s', test document '%s'.", skillID, docName),
		"",
		"## Overview",
		fmt.Sprintf("- %d evaluations across %d models and %d skill versions",
			report.Overall.TotalResults, report.Overall.TotalModels, report.Overall.TotalVersions),
		fmt.Sprintf("- %d issues in the answer key", report.Overall.TotalIssues),
		fmt.Sprintf("- Consensus breakdown: %d universal, %d strong, %d disputed, %d rare",
			report.Overall.Universal, report.Overall.Strong, report.Overall.Disputed, report.Overall.Rare),
		"",
		"## Issue Consensus",
	}

	for _, ic := range report.Issues {
		found := make([]string, 0, len(ic.FoundBy))
		for _, ref := range ic.FoundBy {
			found = append(found, ref.ModelName+"/"+ref.Version)
		}
		missed := make([]string, 0, len(ic.MissedBy))
		for _, ref := range ic.MissedBy {
			missed = append(missed, ref.ModelName+"/"+ref.Version)
		}
		lines = append(lines, fmt.Sprintf(
			"- **%s** (%s) [%s]: %.0f%% detection (%s). Found by: [%s]. Missed by: [%s].",
			ic.ID, ic.Title, ic.Severity.Label(), ic.DetectionRate*100, ic.Classification,
			strings.Join(found, ", "), strings.Join(missed, ", ")))
	}

	lines = append(lines, "", "## Model Performance Summary")
	for _, ms := range report.Models {
		lines = append(lines, fmt.Sprintf("- **%s**: %.0f%% majority agreement, %d evals",
			ms.ModelName, ms.MajorityAgreement*100, ms.EvalCount))
		if len(ms.UniqueFinds) > 0 {
			lines = append(lines, "  - Unique finds (found by this model, missed by majority): "+strings.Join(ms.UniqueFinds, ", "))
		}
		if len(ms.UniqueMisses) > 0 {
			lines = append(lines, "  - Unique misses (missed by this model, found by majority): "+strings.Join(ms.UniqueMisses, ", "))
		}
	}

	lines = append(lines, "", "## Version Effectiveness")
	for _, vs := range report.Versions {
		scorePart := ""
		if vs.AvgScore != nil {
			scorePart = fmt.Sprintf(", avg score %.1f%%", *vs.AvgScore)
		}
		lines = append(lines, fmt.Sprintf("- **%s**: %.0f%% majority agreement%s",
			vs.Version, vs.MajorityAgreement*100, scorePart))
	}

	if len(report.Pairwise) > 0 {
		lines = append(lines, "", "## Pairwise Model Agreement")
		for _, pw := range report.Pairwise {
			lines = append(lines, fmt.Sprintf("- %s vs %s: %.0f%%",
				pw.ModelAName, pw.ModelBName, pw.Agreement*100))
		}
	}

	lines = append(lines, "", "## Answer Key Reference")
	if key != nil {
		for _, issue := range key.Issues {
			severity := "N/A"
			if issue.Severity != "" {
				severity = string(issue.Severity)
			}
			lines = append(lines, fmt.Sprintf("- **%s** (%s): %s [severity: %s]",
				issue.ID, issue.Title, issue.Description, severity))
		}
	}

	lines = append(lines, "", "## Individual Evaluation Results")
	for _, r := range rs {
		scoreStr := ""
		if r.Judged() {
			scoreStr = fmt.Sprintf("judge=%.0f%%", r.JudgeScores.CompositeScore*100)
		}
		lines = append(lines,
			fmt.Sprintf("\n### %s / %s (%s)", catalog.DisplayName(r.ModelKey), r.Version, scoreStr),
			truncateResponse(r.ResponseText))
	}

	return strings.Join(lines, "\n")
}

func truncateResponse(s string) string {
	runes := []rune(s)
	if len(runes) <= maxResponseRunes {
		return s
	}
	return string(runes[:maxResponseRunes]) + "\n... [truncated]"
}
