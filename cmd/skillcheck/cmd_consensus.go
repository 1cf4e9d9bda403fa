package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/microsoft/skillcheck/internal/consensus"
	"github.com/microsoft/skillcheck/internal/models"
	"github.com/microsoft/skillcheck/internal/results"
)

var (
	consensusSkillID     string
	consensusDocName     string
	consensusModels      []string
	consensusJSON        bool
	consensusShowContext bool
)

func newConsensusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consensus",
		Short: "Cross-model consensus analysis of judged results",
		Long: `Build the consensus report for one skill and test document: which
answer-key issues the evaluated models agree on, how closely each model
and version tracks the majority, and pairwise model agreement.`,
		Args: cobra.NoArgs,
		RunE: consensusCommandE,
	}

	cmd.Flags().StringVar(&consensusSkillID, "skill", "", "Skill to analyze")
	cmd.Flags().StringVar(&consensusDocName, "doc", "", "Test document name")
	cmd.Flags().StringSliceVar(&consensusModels, "models", nil, "Restrict the analysis to these model keys")
	cmd.Flags().BoolVar(&consensusJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&consensusShowContext, "show-context", false, "Print the raw context brief instead of the report")
	cmd.MarkFlagRequired("skill")
	cmd.MarkFlagRequired("doc")

	return cmd
}

func consensusCommandE(cmd *cobra.Command, args []string) error {
	deps, err := openDeps()
	if err != nil {
		return err
	}

	report, rs, key, err := loadConsensus(deps, consensusSkillID, consensusDocName, consensusModels)
	if err != nil {
		return err
	}
	if report.Empty() {
		return fmt.Errorf("no judged results for %s/%s: run and judge first", consensusSkillID, consensusDocName)
	}

	switch {
	case consensusJSON:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case consensusShowContext:
		fmt.Println(consensus.BuildChatContext(report, rs, key, deps.catalog, consensusSkillID, consensusDocName))
	default:
		printConsensusReport(os.Stdout, report, consensusSkillID, consensusDocName)
	}
	return nil
}

// loadConsensus builds the consensus report for one (skill, doc) pair from
// the stored results, returning the judged inputs alongside for context
// rendering. Results are ordered (version, model) so the output is stable.
func loadConsensus(deps *appDeps, skillID, docName string, modelKeys []string) (*models.ConsensusReport, []*models.EvaluationResult, *models.AnswerKey, error) {
	key, err := deps.repo.AnswerKey(skillID, docName)
	if err != nil {
		return nil, nil, nil, err
	}
	if key == nil {
		return nil, nil, nil, fmt.Errorf("no answer key for %s/%s: consensus needs one", skillID, docName)
	}

	cells, _, err := results.ResultsMap(deps.store, skillID, docName, modelKeys)
	if err != nil {
		return nil, nil, nil, err
	}

	rs := make([]*models.EvaluationResult, 0, len(cells))
	for _, r := range cells {
		rs = append(rs, r)
	}
	slices.SortFunc(rs, func(a, b *models.EvaluationResult) int {
		return cmp.Or(
			strings.Compare(a.Version, b.Version),
			strings.Compare(a.ModelKey, b.ModelKey),
		)
	})

	return consensus.Build(rs, key, deps.catalog), rs, key, nil
}

func printConsensusReport(w io.Writer, report *models.ConsensusReport, skillID, docName string) {
	fmt.Fprintln(w, "="+strings.Repeat("=", 60))
	fmt.Fprintf(w, " CONSENSUS: %s / %s\n", skillID, docName)
	fmt.Fprintln(w, "="+strings.Repeat("=", 60))
	fmt.Fprintln(w)

	overall := report.Overall
	fmt.Fprintf(w, "Results: %d  Models: %d  Versions: %d  Issues: %d\n",
		overall.TotalResults, overall.TotalModels, overall.TotalVersions, overall.TotalIssues)
	fmt.Fprintf(w, "Tiers:   %d universal, %d strong, %d disputed, %d rare\n",
		overall.Universal, overall.Strong, overall.Disputed, overall.Rare)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "-"+strings.Repeat("-", 60))
	fmt.Fprintln(w, " ISSUE CONSENSUS")
	fmt.Fprintln(w, "-"+strings.Repeat("-", 60))
	for _, issue := range report.Issues {
		label := issue.Severity.Label()
		if label == "" {
			label = "N/A"
		}
		fmt.Fprintf(w, "[%s] %s (%s)\n", label, issue.Title, issue.ID)
		fmt.Fprintf(w, "    %.0f%% detection (%s), found by %d of %d\n",
			issue.DetectionRate*100, issue.Classification, issue.FoundCount, issue.TotalCount)
		if len(issue.MissedBy) > 0 && len(issue.FoundBy) > 0 {
			fmt.Fprintf(w, "    missed by: %s\n", joinRefs(issue.MissedBy))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "-"+strings.Repeat("-", 60))
	fmt.Fprintln(w, " MODEL AGREEMENT")
	fmt.Fprintln(w, "-"+strings.Repeat("-", 60))
	for _, m := range report.Models {
		fmt.Fprintf(w, "%-24s %3.0f%%  (%d evals)\n", m.ModelName, m.MajorityAgreement*100, m.EvalCount)
		if len(m.UniqueFinds) > 0 {
			fmt.Fprintf(w, "    unique finds:  %s\n", strings.Join(m.UniqueFinds, ", "))
		}
		if len(m.UniqueMisses) > 0 {
			fmt.Fprintf(w, "    unique misses: %s\n", strings.Join(m.UniqueMisses, ", "))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "-"+strings.Repeat("-", 60))
	fmt.Fprintln(w, " VERSION EFFECTIVENESS")
	fmt.Fprintln(w, "-"+strings.Repeat("-", 60))
	for _, v := range report.Versions {
		line := fmt.Sprintf("%-16s %3.0f%% agreement", v.Version, v.MajorityAgreement*100)
		if v.AvgScore != nil {
			line += fmt.Sprintf("  avg score %.1f%%", *v.AvgScore)
		}
		if v.ScoreCI != nil {
			line += fmt.Sprintf("  CI95 [%.1f%%, %.1f%%]", v.ScoreCI.Lower, v.ScoreCI.Upper)
		}
		fmt.Fprintln(w, line)
	}

	if len(report.Pairwise) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "-"+strings.Repeat("-", 60))
		fmt.Fprintln(w, " PAIRWISE AGREEMENT")
		fmt.Fprintln(w, "-"+strings.Repeat("-", 60))
		for _, p := range report.Pairwise {
			fmt.Fprintf(w, "%s vs %s: %.0f%%\n", p.ModelAName, p.ModelBName, p.Agreement*100)
		}
	}
}

func joinRefs(refs []models.ResultRef) string {
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		parts = append(parts, ref.ModelName+"/"+ref.Version)
	}
	return strings.Join(parts, ", ")
}
