// Package generated writes the output of full-stack generation to disk.
package generated

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/craftforge/forge-backend/internal/pipeline/engine"
)

// DirSink writes files under one project's output directory.
type DirSink struct {
	root string
}

// Put writes content at the given path relative to the project root, creating
// parent directories as needed. Paths escaping the root are rejected.
func (s *DirSink) Put(relativePath string, content []byte) error {
	full, err := s.resolve(relativePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", relativePath, err)
	}
	return nil
}

// EnsureDir creates a directory under the project root.
func (s *DirSink) EnsureDir(relativePath string) error {
	full, err := s.resolve(relativePath)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, 0o755)
}

func (s *DirSink) resolve(relativePath string) (string, error) {
	clean := filepath.Clean(relativePath)
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid path %q", relativePath)
	}
	return filepath.Join(s.root, clean), nil
}

// SinkFactory creates per-project sinks under a common projects directory.
type SinkFactory struct {
	projectsDir string
}

// NewSinkFactory returns a factory rooted at projectsDir.
func NewSinkFactory(projectsDir string) *SinkFactory {
	return &SinkFactory{projectsDir: projectsDir}
}

// ForProject opens the sink for one project and returns the directory path
// persisted as the project's generated output reference.
func (f *SinkFactory) ForProject(projectID int64, projectName string) (engine.FileSink, string, error) {
	dir := filepath.Join(f.projectsDir, fmt.Sprintf("%d_%s", projectID, SanitizeName(projectName)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create project dir: %w", err)
	}
	// Baseline structure every generated project gets.
	for _, sub := range []string{"docs", "config", "scripts"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, "", fmt.Errorf("create %s dir: %w", sub, err)
		}
	}
	return &DirSink{root: dir}, dir, nil
}

// SanitizeName turns a project name into a filesystem-safe directory suffix.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "project"
	}
	return out
}
