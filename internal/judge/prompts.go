// Package judge scores model responses against answer keys using an LLM
// judge, either standalone or as an aggregated panel.
//
// The panel path follows the PoLL methodology (Verga et al., 2024): several
// judges from different model families vote, which correlates better with
// human judgment than a single large judge and dampens self-preference bias.
package judge

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/microsoft/skillcheck/internal/models"
)

// DefaultSystemPrompt instructs the judge to reason before scoring, to score
// detection as strict binary against each rubric, and to ignore response
// length. The output contract is a single JSON object.
//
//go:embed system_prompt.md
var DefaultSystemPrompt string

// buildUserPrompt renders the document, answer key, and candidate response
// into the judge's user turn. The answer key goes in as indented JSON so the
// judge sees ids, severities, and rubrics verbatim.
func buildUserPrompt(docText string, key *models.AnswerKey, responseText string) (string, error) {
	keyJSON, err := json.MarshalIndent(key, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling answer key: %w", err)
	}

	return "## Document Under Review\n\n" +
		docText + "\n\n" +
		"## Answer Key\n\n" +
		"```json\n" + string(keyJSON) + "\n```\n\n" +
		"## Model Response to Evaluate\n\n" +
		responseText, nil
}
