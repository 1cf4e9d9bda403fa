package results

import (
	"slices"

	"github.com/microsoft/skillcheck/internal/models"
)

// Key identifies one cell of the results matrix.
type Key struct {
	Version  string
	ModelKey string
}

// ResultsMap indexes a skill's stored results by (version, model) and
// returns the sorted set of model keys seen. docName narrows the map to a
// single document; modelFilter, when non-empty, keeps only those model
// keys. Results missing a version or model key are ignored.
func ResultsMap(store Store, skillID, docName string, modelFilter []string) (map[Key]*models.EvaluationResult, []string, error) {
	all, err := store.List(skillID)
	if err != nil {
		return nil, nil, err
	}

	out := make(map[Key]*models.EvaluationResult)
	seen := make(map[string]bool)
	for _, r := range all {
		if docName != "" && r.DocName != docName {
			continue
		}
		if r.Version == "" || r.ModelKey == "" {
			continue
		}
		if len(modelFilter) > 0 && !slices.Contains(modelFilter, r.ModelKey) {
			continue
		}
		out[Key{Version: r.Version, ModelKey: r.ModelKey}] = r
		seen[r.ModelKey] = true
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return out, keys, nil
}
