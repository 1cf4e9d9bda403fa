package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/microsoft/skillcheck/internal/llm"
	"github.com/microsoft/skillcheck/internal/orchestration"
)

var rescoreSkillID string

func newRescoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rescore",
		Short: "Recompute composite scores from stored judge output",
		Long: `Recompute the derived composite fields of every judged result for a
skill from its stored raw judge output. No model is called; useful after
changing scoring weights or an answer key's severities.`,
		Args: cobra.NoArgs,
		RunE: rescoreCommandE,
	}

	cmd.Flags().StringVar(&rescoreSkillID, "skill", "", "Skill whose results to rescore")
	cmd.MarkFlagRequired("skill")

	return cmd
}

func rescoreCommandE(cmd *cobra.Command, args []string) error {
	deps, err := openDeps()
	if err != nil {
		return err
	}

	runner := orchestration.NewRunner(deps.repo, deps.store, llm.NewClient(), deps.catalog)
	count, err := runner.Rescore(rescoreSkillID)
	if err != nil {
		return err
	}

	fmt.Printf("Rescored %d result(s)\n", count)
	return nil
}
