package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/microsoft/skillcheck/internal/llm"
	"github.com/microsoft/skillcheck/internal/models"
	"github.com/microsoft/skillcheck/internal/results"
)

var (
	resultsSkillID string
	resultsDocName string
)

func newResultsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Stored results as a version-by-model matrix",
		Args:  cobra.NoArgs,
		RunE:  resultsCommandE,
	}

	cmd.Flags().StringVar(&resultsSkillID, "skill", "", "Skill whose results to show")
	cmd.Flags().StringVar(&resultsDocName, "doc", "", "Restrict to one test document")
	cmd.MarkFlagRequired("skill")

	return cmd
}

func resultsCommandE(cmd *cobra.Command, args []string) error {
	deps, err := openDeps()
	if err != nil {
		return err
	}

	all, err := deps.store.List(resultsSkillID)
	if err != nil {
		return err
	}

	docs := make([]string, 0)
	seen := map[string]bool{}
	for _, r := range all {
		if resultsDocName != "" && r.DocName != resultsDocName {
			continue
		}
		if !seen[r.DocName] {
			seen[r.DocName] = true
			docs = append(docs, r.DocName)
		}
	}
	slices.Sort(docs)

	if len(docs) == 0 {
		if resultsDocName != "" {
			fmt.Printf("No results for %s/%s\n", resultsSkillID, resultsDocName)
		} else {
			fmt.Printf("No results for skill %s\n", resultsSkillID)
		}
		return nil
	}

	for i, doc := range docs {
		cells, modelKeys, err := results.ResultsMap(deps.store, resultsSkillID, doc, nil)
		if err != nil {
			return err
		}
		if len(cells) == 0 {
			continue
		}
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("Document: %s\n", doc)
		printResultsMatrix(os.Stdout, deps.catalog, cells, modelKeys)
	}
	return nil
}

// printResultsMatrix renders version rows against model columns. Column
// widths use display width, not byte length, so wide-rune model names from
// a catalog override stay aligned.
func printResultsMatrix(w io.Writer, catalog llm.Catalog, cells map[results.Key]*models.EvaluationResult, modelKeys []string) {
	versions := make([]string, 0)
	seen := map[string]bool{}
	for k := range cells {
		if !seen[k.Version] {
			seen[k.Version] = true
			versions = append(versions, k.Version)
		}
	}
	slices.Sort(versions)

	headers := []string{"Version"}
	for _, key := range modelKeys {
		headers = append(headers, catalog.DisplayName(key))
	}

	rows := [][]string{headers}
	for _, version := range versions {
		row := []string{version}
		for _, key := range modelKeys {
			row = append(row, resultCell(catalog, cells[results.Key{Version: version, ModelKey: key}]))
		}
		rows = append(rows, row)
	}

	widths := make([]int, len(headers))
	for _, row := range rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	for _, row := range rows {
		padded := make([]string, len(row))
		for i, cell := range row {
			padded[i] = runewidth.FillRight(cell, widths[i])
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(padded, "  "), " "))
	}
}

// resultCell summarizes one stored result: judged composite, estimated
// cost, and elapsed time.
func resultCell(catalog llm.Catalog, r *models.EvaluationResult) string {
	switch {
	case r == nil:
		return "-"
	case r.Failed():
		return "failed"
	case !r.Judged():
		return fmt.Sprintf("unjudged %.1fs", r.ElapsedSeconds)
	}

	cell := fmt.Sprintf("%.0f%%", r.JudgeScores.CompositeScore*100)
	if cfg, ok := catalog[r.ModelKey]; ok {
		cell += fmt.Sprintf(" $%.4f", cfg.EstimateCost(r.InputTokens, r.OutputTokens))
	}
	return cell + fmt.Sprintf(" %.1fs", r.ElapsedSeconds)
}
