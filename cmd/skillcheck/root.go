package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// version is set via ldflags at build time
var version = "dev"

var (
	debugMode  bool
	skillsDir  string
	resultsDir string
)

func execute() error {
	return newRootCommand().Execute()
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "skillcheck",
		Short: "Skillcheck - skill evaluation engine",
		Long: `Skillcheck runs skill versions against test documents across multiple
models, scores the outputs with LLM judges, and compares the results.`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debugMode {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&skillsDir, "skills-dir", "skills", "Directory containing skill definitions")
	rootCmd.PersistentFlags().StringVar(&resultsDir, "results-dir", "results", "Directory for persisted evaluation results")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newJudgeCommand())
	rootCmd.AddCommand(newRescoreCommand())
	rootCmd.AddCommand(newConsensusCommand())
	rootCmd.AddCommand(newAskCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newModelsCommand())
	rootCmd.AddCommand(newResultsCommand())
	rootCmd.AddCommand(newExportCommand())

	return rootCmd
}
