package orchestration

import (
	"fmt"
	"log/slog"

	"github.com/microsoft/skillcheck/internal/judge"
	"github.com/microsoft/skillcheck/internal/models"
)

// Rescore recomputes the derived composite fields of every stored judged
// result from its raw judge output, without calling any model. Useful
// after changing scoring weights. Returns the number of results updated.
func (r *Runner) Rescore(skillID string) (int, error) {
	all, err := r.store.List(skillID)
	if err != nil {
		return 0, err
	}

	keys := make(map[string]*models.AnswerKey)
	count := 0
	for _, result := range all {
		if !result.Judged() {
			continue
		}

		key, ok := keys[result.DocName]
		if !ok {
			key, err = r.repo.AnswerKey(skillID, result.DocName)
			if err != nil {
				slog.Warn("skipping rescore with invalid answer key",
					"skill", skillID, "doc", result.DocName, "error", err)
				key = nil
			}
			keys[result.DocName] = key
		}
		if key == nil {
			continue
		}

		judge.ApplyComposite(key, result.JudgeScores)
		if err := r.store.Put(result); err != nil {
			return count, fmt.Errorf("saving rescored result: %w", err)
		}
		count++
	}
	return count, nil
}
