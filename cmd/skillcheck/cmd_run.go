package main

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/microsoft/skillcheck/internal/llm"
	"github.com/microsoft/skillcheck/internal/models"
	"github.com/microsoft/skillcheck/internal/orchestration"
	"github.com/microsoft/skillcheck/internal/results"
	"github.com/microsoft/skillcheck/internal/spinner"
	"github.com/microsoft/skillcheck/internal/wizard"
)

var (
	runSkillID  string
	runDocName  string
	runModels   []string
	runJudges   []string
	runNoJudge  bool
	runVersions []string
	runContext  string
	runWorkers  int
	runVerbose  bool
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate a skill against a test document",
		Long: `Run every version of a skill against a test document across the
requested models, judge the responses, and print a result summary.

Without --skill and --doc, an interactive wizard collects the run
parameters when stdin is a terminal.`,
		Args: cobra.NoArgs,
		RunE: runCommandE,
	}

	cmd.Flags().StringVar(&runSkillID, "skill", "", "Skill to evaluate")
	cmd.Flags().StringVar(&runDocName, "doc", "", "Test document name")
	cmd.Flags().StringSliceVar(&runModels, "models", nil, "Model keys to evaluate (default: all models with credentials)")
	cmd.Flags().StringArrayVar(&runJudges, "judge", nil, "Judge model key (can be repeated; two or more form a panel)")
	cmd.Flags().BoolVar(&runNoJudge, "no-judge", false, "Skip judging")
	cmd.Flags().StringArrayVar(&runVersions, "versions", nil, "Version glob filter (can be repeated)")
	cmd.Flags().StringVar(&runContext, "business-context", "", "Business context substituted into the skill prompt")
	cmd.Flags().IntVar(&runWorkers, "workers", 0, "Number of concurrent workers (default: 8)")
	cmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Verbose output with per-item progress")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	deps, err := openDeps()
	if err != nil {
		return err
	}

	skillID := runSkillID
	docName := runDocName
	modelKeys := runModels
	judges := runJudges
	businessContext := runContext

	// Fall back to the wizard when the selection flags are missing.
	if skillID == "" || docName == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("missing --skill or --doc; pass both flags, or run from an interactive terminal")
		}
		sel, err := wizard.Run(os.Stdin, os.Stdout, deps.repo, deps.catalog)
		if err != nil {
			return err
		}
		skillID = sel.SkillID
		docName = sel.DocName
		modelKeys = sel.ModelKeys
		judges = sel.JudgeKeys
		businessContext = sel.BusinessContext
	}

	if len(modelKeys) == 0 {
		modelKeys = deps.catalog.Available().Keys()
	}
	if len(judges) == 0 && !runNoJudge {
		judges = []string{llm.DefaultJudgeKey}
	}
	if runNoJudge {
		judges = nil
	}

	printSelfEnhancementWarnings(os.Stderr, deps.catalog, judges, modelKeys)

	listener := simpleProgressListener
	var stopSpinner func()
	switch {
	case runVerbose:
		listener = verboseProgressListener
	case term.IsTerminal(int(os.Stdout.Fd())):
		update, stop := spinner.Start(os.Stdout, "starting evaluation run")
		listener = spinnerProgressListener(update)
		stopSpinner = stop
	}

	opts := []orchestration.RunnerOption{
		orchestration.WithProgressListener(listener),
		orchestration.WithJudges(judges...),
		orchestration.WithVersionFilter(runVersions...),
		orchestration.WithBusinessContext(businessContext),
	}
	if runWorkers > 0 {
		opts = append(opts, orchestration.WithWorkers(runWorkers))
	}
	runner := orchestration.NewRunner(deps.repo, deps.store, llm.NewClient(), deps.catalog, opts...)

	fmt.Printf("Skill: %s\n", skillID)
	fmt.Printf("Document: %s\n", docName)
	if len(modelKeys) > 0 {
		fmt.Printf("Models: %s\n", strings.Join(modelKeys, ", "))
	}
	if len(judges) > 0 {
		fmt.Printf("Judges: %s\n", strings.Join(judges, ", "))
	}
	fmt.Println()

	start := time.Now()
	updates, err := runner.Run(cmd.Context(), orchestration.Request{
		SkillID:   skillID,
		DocName:   docName,
		ModelKeys: modelKeys,
	})
	if err != nil {
		if stopSpinner != nil {
			stopSpinner()
		}
		return err
	}

	// A phase-2 update replaces the phase-1 entry for the same cell, so the
	// summary sees the judged record.
	final := make(map[results.Key]*models.EvaluationResult)
	for update := range updates {
		final[results.Key{Version: update.Version, ModelKey: update.ModelKey}] = update.Result
	}
	if stopSpinner != nil {
		stopSpinner()
	}

	failed := printRunSummary(os.Stdout, deps.catalog, final, time.Since(start))
	if failed > 0 {
		return &EvalFailureError{
			Message: fmt.Sprintf("run completed with %d failed item(s)", failed),
		}
	}
	return nil
}

// printSelfEnhancementWarnings surfaces judge/model provider-family overlap
// before the run so inflated scores do not come as a surprise.
func printSelfEnhancementWarnings(w io.Writer, catalog llm.Catalog, judges, modelKeys []string) {
	seen := map[string]bool{}
	for _, judgeKey := range judges {
		for _, modelKey := range modelKeys {
			msg := catalog.SelfEnhancementRisk(judgeKey, modelKey)
			if msg == "" || seen[msg] {
				continue
			}
			seen[msg] = true
			fmt.Fprintf(w, "Warning: %s\n", msg)
		}
	}
}

func verboseProgressListener(event orchestration.ProgressEvent) {
	switch event.EventType {
	case orchestration.EventRunStart:
		fmt.Printf("Starting run: %d evaluation item(s)\n\n", event.Total)
	case orchestration.EventEvalStart:
		fmt.Printf("  Evaluating %s / %s...\n", event.Version, event.ModelKey)
	case orchestration.EventEvalComplete:
		fmt.Printf("[%d/%d] %s / %s complete\n", event.Completed, event.Total, event.Version, event.ModelKey)
	case orchestration.EventExternalLoaded:
		fmt.Printf("[%d/%d] %s loaded from recorded response\n", event.Completed, event.Total, event.Version)
	case orchestration.EventItemFailed:
		// Judge-phase failures carry no completion counter.
		if event.Completed > 0 {
			fmt.Printf("[%d/%d] %s / %s FAILED: %v\n", event.Completed, event.Total, event.Version, event.ModelKey, event.Err)
		} else {
			fmt.Printf("  Judging %s / %s FAILED: %v\n", event.Version, event.ModelKey, event.Err)
		}
	case orchestration.EventJudgeStart:
		fmt.Printf("  Judging %s / %s...\n", event.Version, event.ModelKey)
	case orchestration.EventJudgeComplete:
		fmt.Printf("[%d/%d] %s / %s judged\n", event.Completed, event.Total, event.Version, event.ModelKey)
	case orchestration.EventRunComplete:
		fmt.Printf("\nRun complete: %d item(s)\n", event.Completed)
	}
}

func simpleProgressListener(event orchestration.ProgressEvent) {
	switch event.EventType {
	case orchestration.EventEvalComplete, orchestration.EventExternalLoaded:
		fmt.Printf("✓ [%d/%d] %s / %s\n", event.Completed, event.Total, event.Version, event.ModelKey)
	case orchestration.EventJudgeComplete:
		fmt.Printf("✓ [%d/%d] judged %s / %s\n", event.Completed, event.Total, event.Version, event.ModelKey)
	case orchestration.EventItemFailed:
		if event.Completed > 0 {
			fmt.Printf("✗ [%d/%d] %s / %s: %v\n", event.Completed, event.Total, event.Version, event.ModelKey, event.Err)
		} else {
			fmt.Printf("✗ judging %s / %s: %v\n", event.Version, event.ModelKey, event.Err)
		}
	}
}

// spinnerProgressListener folds progress events into a single-line spinner
// message.
func spinnerProgressListener(update func(string)) orchestration.ProgressListener {
	return func(event orchestration.ProgressEvent) {
		switch event.EventType {
		case orchestration.EventRunStart:
			update(fmt.Sprintf("evaluating %d item(s)", event.Total))
		case orchestration.EventEvalComplete, orchestration.EventExternalLoaded:
			update(fmt.Sprintf("%d/%d evaluations complete", event.Completed, event.Total))
		case orchestration.EventItemFailed:
			if event.Completed > 0 {
				update(fmt.Sprintf("%d/%d evaluations complete", event.Completed, event.Total))
			}
		case orchestration.EventJudgeComplete:
			update(fmt.Sprintf("%d/%d judgments complete", event.Completed, event.Total))
		}
	}
}

// printRunSummary renders the per-cell result table and returns the number
// of failed items.
func printRunSummary(w io.Writer, catalog llm.Catalog, final map[results.Key]*models.EvaluationResult, elapsed time.Duration) int {
	keys := make([]results.Key, 0, len(final))
	for k := range final {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b results.Key) int {
		return cmp.Or(
			strings.Compare(a.Version, b.Version),
			strings.Compare(a.ModelKey, b.ModelKey),
		)
	})

	fmt.Fprintln(w, "="+strings.Repeat("=", 60))
	fmt.Fprintln(w, " EVALUATION RESULTS")
	fmt.Fprintln(w, "="+strings.Repeat("=", 60))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-16s %-24s %-8s %-10s %s\n", "Version", "Model", "Score", "Cost", "Time")
	fmt.Fprintln(w, "-"+strings.Repeat("-", 60))

	failed := 0
	totalCost := 0.0
	for _, k := range keys {
		r := final[k]

		name := r.ModelName
		if name == "" {
			name = k.ModelKey
		}

		score := "-"
		switch {
		case r.Failed():
			score = "failed"
			failed++
		case r.Judged():
			score = fmt.Sprintf("%.0f%%", r.JudgeScores.CompositeScore*100)
		}

		cost := "-"
		if cfg, ok := catalog[k.ModelKey]; ok && !r.Failed() {
			c := cfg.EstimateCost(r.InputTokens, r.OutputTokens)
			totalCost += c
			cost = fmt.Sprintf("$%.4f", c)
		}

		fmt.Fprintf(w, "%-16s %-24s %-8s %-10s %.1fs\n", k.Version, name, score, cost, r.ElapsedSeconds)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total:     %d item(s), %d failed\n", len(keys), failed)
	fmt.Fprintf(w, "Est. cost: $%.4f\n", totalCost)
	fmt.Fprintf(w, "Elapsed:   %s\n", elapsed.Round(100*time.Millisecond))
	return failed
}
