package orchestration

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/microsoft/skillcheck/internal/skills"
)

func TestBuildPrompts(t *testing.T) {
	meta := &skills.Meta{
		SystemPromptPrefix: "You are a reviewer.",
		UserPromptTemplate: "Context: {business_context}\n\nDoc:\n{document}\n\nAgain: {document}",
	}

	system, user := BuildPrompts(meta, "Use the checklist.", "THE DOC", "vendor lock-in")
	require.Equal(t,
		"You are a reviewer.\n\n--- SKILL INSTRUCTIONS ---\n\nApply the following analysis methodology:\n\nUse the checklist.",
		system)
	require.Equal(t, "Context: vendor lock-in\n\nDoc:\nTHE DOC\n\nAgain: THE DOC", user)
}

func TestBuildPromptsEmptyContext(t *testing.T) {
	meta := &skills.Meta{
		SystemPromptPrefix: "Prefix.",
		UserPromptTemplate: "[{business_context}] {document}",
	}

	_, user := BuildPrompts(meta, "text", "doc body", "")
	require.Equal(t, "[] doc body", user)
}
