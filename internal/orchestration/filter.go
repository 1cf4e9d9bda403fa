package orchestration

import (
	"fmt"
	"path/filepath"
)

// FilterVersions returns the subset of versions matching at least one of
// the given glob patterns. An empty patterns slice returns all versions
// unchanged.
func FilterVersions(versions []string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return versions, nil
	}

	var matched []string
	for _, version := range versions {
		ok, err := matchesAny(version, patterns)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, version)
		}
	}
	return matched, nil
}

// matchesAny reports whether a version id matches any pattern.
func matchesAny(version string, patterns []string) (bool, error) {
	for _, p := range patterns {
		ok, err := filepath.Match(p, version)
		if err != nil {
			return false, fmt.Errorf("invalid version filter pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
