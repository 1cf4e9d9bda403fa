package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskCommand_RequiresQuestionArg(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"ask", "--skill", "contract-review", "--doc", "nda"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	require.Error(t, cmd.Execute())
}

func TestAskCommand_UnknownModel(t *testing.T) {
	clearProviderKeys(t)
	skillsD := writeSkillTree(t)

	cmd := newRootCommand()
	cmd.SetArgs([]string{
		"ask", "which version won?",
		"--skill", "contract-review", "--doc", "nda", "--model", "nonexistent-model",
		"--skills-dir", skillsD, "--results-dir", t.TempDir(),
	})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown model key "nonexistent-model"`)
}

func TestAskCommand_NoJudgedResults(t *testing.T) {
	clearProviderKeys(t)
	skillsD := writeSkillTree(t)

	cmd := newRootCommand()
	cmd.SetArgs([]string{
		"ask", "which version won?",
		"--skill", "contract-review", "--doc", "nda",
		"--skills-dir", skillsD, "--results-dir", t.TempDir(),
	})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no judged results")
}

func TestAskCommand_ModelDefaultsToJudge(t *testing.T) {
	cmd := newAskCommand()
	require.NoError(t, cmd.ParseFlags(nil))

	val, err := cmd.Flags().GetString("model")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet", val)
}
