// Package skills loads skill definitions from the skills directory: metadata,
// versioned instruction texts, test documents, answer keys, and pre-recorded
// external responses.
//
// Layout, rooted at the repository dir:
//
//	<skill_id>/skill.json                     metadata
//	<skill_id>/<version>.skill.md             version instruction text
//	<skill_id>/tests/<doc>.md                 test document
//	<skill_id>/tests/<doc>.json               answer key
//	<skill_id>/responses/<version>/<doc>.md   external response (.txt fallback)
package skills

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/microsoft/skillcheck/internal/models"
	"github.com/microsoft/skillcheck/internal/validation"
)

// skillMetaFile is the metadata file that marks a directory as a skill.
const skillMetaFile = "skill.json"

// versionSuffix marks version instruction files; the version name is the
// filename with this suffix stripped.
const versionSuffix = ".skill.md"

// VersionInfo is per-version metadata from skill.json.
type VersionInfo struct {
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`

	// External marks versions whose responses are pre-recorded under
	// responses/<version>/ instead of produced by a model call.
	External bool   `json:"external,omitempty"`
	Source   string `json:"source,omitempty"`
	Authors  string `json:"authors,omitempty"`
	License  string `json:"license,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Meta is a skill's metadata as stored in skill.json.
type Meta struct {
	SkillID            string                 `json:"skill_id"`
	DisplayName        string                 `json:"display_name"`
	Description        string                 `json:"description,omitempty"`
	SystemPromptPrefix string                 `json:"system_prompt_prefix"`
	UserPromptTemplate string                 `json:"user_prompt_template"`
	Versions           map[string]VersionInfo `json:"versions,omitempty"`

	// Filled by Discover from the filesystem, not part of skill.json.
	VersionCount int `json:"-"`
	DocCount     int `json:"-"`
}

// IsExternal reports whether version is marked external in the metadata.
func (m *Meta) IsExternal(version string) bool {
	return m != nil && m.Versions[version].External
}

// VersionDisplayName resolves a version's display name, falling back to the
// version id.
func (m *Meta) VersionDisplayName(version string) string {
	if m != nil {
		if name := m.Versions[version].DisplayName; name != "" {
			return name
		}
	}
	return version
}

// Repository reads skills from a directory tree.
type Repository struct {
	dir string
}

// NewRepository creates a Repository rooted at dir. The directory does not
// need to exist yet; lookups against a missing tree simply find nothing.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the repository root.
func (r *Repository) Dir() string {
	return r.dir
}

func (r *Repository) skillDir(skillID string) string {
	return filepath.Join(r.dir, skillID)
}

// Discover scans the repository for directories containing skill.json and
// returns their metadata sorted by directory name, with version and doc
// counts attached. Directories with invalid metadata are skipped with a
// warning so one broken skill does not hide the rest.
func (r *Repository) Discover() ([]*Meta, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading skills dir: %w", err)
	}

	var skills []*Meta
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := r.Meta(entry.Name())
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			slog.Warn("skipping skill with invalid metadata", "skill", entry.Name(), "error", err)
			continue
		}

		versions, err := r.Versions(entry.Name())
		if err != nil {
			return nil, err
		}
		docs, err := r.Docs(entry.Name())
		if err != nil {
			return nil, err
		}
		meta.VersionCount = len(versions)
		meta.DocCount = len(docs)
		skills = append(skills, meta)
	}
	return skills, nil
}

// Meta loads and validates skill.json for one skill. A missing file reports
// fs.ErrNotExist.
func (r *Repository) Meta(skillID string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(r.skillDir(skillID), skillMetaFile))
	if err != nil {
		return nil, fmt.Errorf("skill %s: %w", skillID, err)
	}

	if errs := validation.ValidateSkillMetaBytes(data); len(errs) > 0 {
		return nil, fmt.Errorf("skill %s: invalid %s: %s", skillID, skillMetaFile, strings.Join(errs, "; "))
	}

	meta := &Meta{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, fmt.Errorf("skill %s: parsing %s: %w", skillID, skillMetaFile, err)
	}
	return meta, nil
}

// Versions lists a skill's version names: stems of *.skill.md files plus
// versions marked external in the metadata, sorted.
func (r *Repository) Versions(skillID string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(r.skillDir(skillID), "*"+versionSuffix))
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	for _, path := range matches {
		name := strings.TrimSuffix(filepath.Base(path), versionSuffix)
		seen[name] = struct{}{}
	}

	if meta, err := r.Meta(skillID); err == nil {
		for name, info := range meta.Versions {
			if info.External {
				seen[name] = struct{}{}
			}
		}
	}

	versions := make([]string, 0, len(seen))
	for name := range seen {
		versions = append(versions, name)
	}
	sort.Strings(versions)
	return versions, nil
}

// VersionText reads one version's instruction text.
func (r *Repository) VersionText(skillID, version string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.skillDir(skillID), version+versionSuffix))
	if err != nil {
		return "", fmt.Errorf("version %s: %w", version, err)
	}
	return string(data), nil
}

// VersionTitle returns the first markdown heading of a version's instruction
// text, falling back to the metadata display name, then the version id.
func (r *Repository) VersionTitle(skillID, version string) string {
	if text, err := r.VersionText(skillID, version); err == nil {
		if title := firstHeading([]byte(text)); title != "" {
			return title
		}
	}
	meta, err := r.Meta(skillID)
	if err != nil {
		return version
	}
	return meta.VersionDisplayName(version)
}

// Docs lists a skill's test document names: stems of tests/*.md, sorted.
func (r *Repository) Docs(skillID string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(r.skillDir(skillID), "tests", "*.md"))
	if err != nil {
		return nil, err
	}

	docs := make([]string, 0, len(matches))
	for _, path := range matches {
		docs = append(docs, strings.TrimSuffix(filepath.Base(path), ".md"))
	}
	sort.Strings(docs)
	return docs, nil
}

// DocText reads one test document.
func (r *Repository) DocText(skillID, docName string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.skillDir(skillID), "tests", docName+".md"))
	if err != nil {
		return "", fmt.Errorf("doc %s: %w", docName, err)
	}
	return string(data), nil
}

// AnswerKey loads and validates the answer key for a test document. A
// missing key is not an error: judging is simply skipped without one, so the
// caller gets (nil, nil).
func (r *Repository) AnswerKey(skillID, docName string) (*models.AnswerKey, error) {
	data, err := os.ReadFile(filepath.Join(r.skillDir(skillID), "tests", docName+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("answer key %s: %w", docName, err)
	}

	if errs := validation.ValidateAnswerKeyBytes(data); len(errs) > 0 {
		return nil, fmt.Errorf("answer key %s: %s", docName, strings.Join(errs, "; "))
	}

	key := &models.AnswerKey{}
	if err := json.Unmarshal(data, key); err != nil {
		return nil, fmt.Errorf("answer key %s: %w", docName, err)
	}
	return key, nil
}

// ExternalResponse reads a pre-recorded response for an external version,
// trying <doc>.md then <doc>.txt under responses/<version>/.
func (r *Repository) ExternalResponse(skillID, version, docName string) (string, error) {
	respDir := filepath.Join(r.skillDir(skillID), "responses", version)
	for _, name := range []string{docName + ".md", docName + ".txt"} {
		data, err := os.ReadFile(filepath.Join(respDir, name))
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("external response %s/%s: %w", version, name, err)
		}
	}
	return "", fmt.Errorf("response file not found: responses/%s/%s.[md|txt]: %w", version, docName, fs.ErrNotExist)
}
