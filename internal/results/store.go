// Package results persists evaluation results, one JSON file per
// (skill, version, model, document) identity.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/microsoft/skillcheck/internal/models"
)

// Store persists and retrieves evaluation results.
type Store interface {
	// Put writes one result, replacing any previous attempt with the same
	// (skill, version, model, document) identity.
	Put(result *models.EvaluationResult) error
	// List returns every stored result for a skill. Unreadable or corrupt
	// files are skipped, not fatal.
	List(skillID string) ([]*models.EvaluationResult, error)
}

// FileStore stores results as indented JSON under
// <dir>/<skill>/<version>/<model>__<doc>.json.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates a FileStore rooted at dir. The directory is created
// on first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the store root.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) skillDir(skillID string) string {
	return filepath.Join(s.dir, skillID)
}

func (s *FileStore) resultPath(r *models.EvaluationResult) string {
	filename := r.ModelKey + "__" + r.DocName + ".json"
	return filepath.Join(s.dir, r.SkillID, r.Version, filename)
}

// Put implements Store.
func (s *FileStore) Put(result *models.EvaluationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.resultPath(result)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating result dir: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}

	slog.Debug("stored result",
		"skill", result.SkillID,
		"version", result.Version,
		"model", result.ModelKey,
		"doc", result.DocName)
	return nil
}

// List implements Store.
func (s *FileStore) List(skillID string) ([]*models.EvaluationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	root := s.skillDir(skillID)
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var out []*models.EvaluationResult
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable result", "path", path, "error", err)
			return nil
		}
		result := &models.EvaluationResult{}
		if err := json.Unmarshal(data, result); err != nil {
			slog.Warn("skipping corrupt result", "path", path, "error", err)
			return nil
		}
		out = append(out, result)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing results for %s: %w", skillID, err)
	}
	return out, nil
}

// Ensure FileStore satisfies Store.
var _ Store = (*FileStore)(nil)
