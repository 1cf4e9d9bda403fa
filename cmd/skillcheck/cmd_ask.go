package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/microsoft/skillcheck/internal/consensus"
	"github.com/microsoft/skillcheck/internal/llm"
)

var (
	askSkillID  string
	askDocName  string
	askModelKey string
)

// askSystemPrompt frames the one-shot question; the context brief is
// appended below it.
const askSystemPrompt = `You are an analyst helping a user understand skill evaluation results.
Answer using only the evaluation data provided below. Cite issue ids,
versions, and model names from the data. Say when the data cannot answer
the question.`

func newAskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a one-shot question about judged results",
		Long: `Answer a single free-form question about the judged results for one
skill and test document. The consensus report is serialized into a context
brief and sent with the question; the answer streams to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: askCommandE,
	}

	cmd.Flags().StringVar(&askSkillID, "skill", "", "Skill to ask about")
	cmd.Flags().StringVar(&askDocName, "doc", "", "Test document name")
	cmd.Flags().StringVar(&askModelKey, "model", llm.DefaultJudgeKey, "Model that answers the question")
	cmd.MarkFlagRequired("skill")
	cmd.MarkFlagRequired("doc")

	return cmd
}

func askCommandE(cmd *cobra.Command, args []string) error {
	question := args[0]

	deps, err := openDeps()
	if err != nil {
		return err
	}

	cfg, ok := deps.catalog[askModelKey]
	if !ok {
		return fmt.Errorf("unknown model key %q", askModelKey)
	}

	report, rs, key, err := loadConsensus(deps, askSkillID, askDocName, nil)
	if err != nil {
		return err
	}
	if report.Empty() {
		return fmt.Errorf("no judged results for %s/%s: run and judge first", askSkillID, askDocName)
	}

	brief := consensus.BuildChatContext(report, rs, key, deps.catalog, askSkillID, askDocName)
	system := askSystemPrompt + "\n\n" + brief

	client := llm.NewClient()
	_, err = client.Stream(cmd.Context(), cfg.Request(system, question), func(chunk string) error {
		fmt.Print(chunk)
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Println()
	return nil
}
