package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/microsoft/skillcheck/internal/llm"
	"github.com/microsoft/skillcheck/internal/orchestration"
)

var (
	judgeSkillID string
	judgeJudges  []string
)

func newJudgeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "judge",
		Short: "Judge saved results that lack scores",
		Long: `Score every stored result for a skill that has no judge scores yet.
Already-judged results are left alone, so the command is safe to re-run.`,
		Args: cobra.NoArgs,
		RunE: judgeCommandE,
	}

	cmd.Flags().StringVar(&judgeSkillID, "skill", "", "Skill whose saved results to judge")
	cmd.Flags().StringArrayVar(&judgeJudges, "judge", nil, "Judge model key (can be repeated; two or more form a panel)")
	cmd.MarkFlagRequired("skill")

	return cmd
}

func judgeCommandE(cmd *cobra.Command, args []string) error {
	deps, err := openDeps()
	if err != nil {
		return err
	}

	judges := judgeJudges
	if len(judges) == 0 {
		judges = []string{llm.DefaultJudgeKey}
	}

	runner := orchestration.NewRunner(deps.repo, deps.store, llm.NewClient(), deps.catalog,
		orchestration.WithJudges(judges...))

	updates, err := runner.JudgeSaved(cmd.Context(), judgeSkillID)
	if err != nil {
		return err
	}

	judged, failed := 0, 0
	for update := range updates {
		if update.Result != nil {
			judged++
			fmt.Printf("✓ [%d/%d] %s / %s\n", update.Completed, update.Total, update.Result.Version, update.Result.ModelKey)
		} else {
			failed++
			fmt.Printf("✗ [%d/%d] judging failed\n", update.Completed, update.Total)
		}
	}

	fmt.Printf("Judged %d result(s), %d failure(s)\n", judged, failed)
	if failed > 0 {
		return &EvalFailureError{
			Message: fmt.Sprintf("judging completed with %d failure(s)", failed),
		}
	}
	return nil
}
