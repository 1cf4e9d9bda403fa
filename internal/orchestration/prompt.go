package orchestration

import (
	"strings"

	"github.com/microsoft/skillcheck/internal/skills"
)

const skillInstructionsHeader = "--- SKILL INSTRUCTIONS ---\n\nApply the following analysis methodology:\n\n"

// BuildPrompts assembles the system and user prompts for one evaluation.
// The system prompt is the skill's prefix followed by the version's
// instruction text; the user prompt template substitutes {document} and
// {business_context}.
func BuildPrompts(meta *skills.Meta, versionText, docText, businessContext string) (system, user string) {
	system = meta.SystemPromptPrefix + "\n\n" + skillInstructionsHeader + versionText
	user = strings.NewReplacer(
		"{document}", docText,
		"{business_context}", businessContext,
	).Replace(meta.UserPromptTemplate)
	return system, user
}
