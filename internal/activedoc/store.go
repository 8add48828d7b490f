// Package activedoc stores the per-directory active context documents in a
// shadow tree under <source>/.auto-coder/active-context and parses their
// section structure.
package activedoc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// StateDirName is the per-project state directory.
	StateDirName = ".auto-coder"
	// ShadowDirName is the shadow tree root under StateDirName.
	ShadowDirName = "active-context"
	// FileName is the document file name inside each shadow directory.
	FileName = "active.md"
)

// Document is a stored active context document.
type Document struct {
	Dir         string   `json:"directory_path"`
	StoragePath string   `json:"active_md_path"`
	Content     string   `json:"content"`
	Sections    Sections `json:"sections"`
	Files       []string `json:"files"`
}

// Store maps source directories to their shadow documents.
type Store struct {
	sourceDir string
	root      string
}

// ShadowRoot returns <sourceDir>/.auto-coder/active-context.
func ShadowRoot(sourceDir string) string {
	return filepath.Join(sourceDir, StateDirName, ShadowDirName)
}

func NewStore(sourceDir string) *Store {
	abs, err := filepath.Abs(sourceDir)
	if err != nil {
		abs = filepath.Clean(sourceDir)
	}
	return &Store{sourceDir: abs, root: ShadowRoot(abs)}
}

// Root returns the shadow tree root.
func (s *Store) Root() string { return s.root }

// SourceDir returns the absolute source directory.
func (s *Store) SourceDir() string { return s.sourceDir }

// Resolve returns dir as an absolute path; relative dirs are taken relative
// to the source directory.
func (s *Store) Resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(s.sourceDir, dir)
}

// DirFor returns the shadow directory mirroring dir. When dir is not inside
// the source directory, its last two path components are used instead.
func (s *Store) DirFor(dir string) string {
	abs := s.Resolve(dir)
	rel, err := filepath.Rel(s.sourceDir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = lastComponents(abs, 2)
	}
	return filepath.Join(s.root, rel)
}

// PathFor returns the document path for dir.
func (s *Store) PathFor(dir string) string {
	return filepath.Join(s.DirFor(dir), FileName)
}

// Exists reports whether a document exists for dir.
func (s *Store) Exists(dir string) bool {
	info, err := os.Stat(s.PathFor(dir))
	return err == nil && !info.IsDir()
}

// Write replaces the document for dir, creating parent directories.
func (s *Store) Write(dir, content string) (string, error) {
	p := s.PathFor(dir)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Dir(p), err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", p, err)
	}
	return p, nil
}

// Read loads the document for dir. ok is false when none exists.
func (s *Store) Read(dir string) (Document, bool, error) {
	p := s.PathFor(dir)
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Document{}, false, nil
		}
		return Document{}, false, fmt.Errorf("read %s: %w", p, err)
	}
	content := string(b)
	return Document{
		Dir:         dir,
		StoragePath: p,
		Content:     content,
		Sections:    Parse(content),
	}, true, nil
}

func lastComponents(p string, n int) string {
	var parts []string
	for _, part := range strings.Split(filepath.ToSlash(filepath.Clean(p)), "/") {
		if part != "" && part != "." && part != ".." && !strings.HasSuffix(part, ":") {
			parts = append(parts, part)
		}
	}
	if len(parts) > n {
		parts = parts[len(parts)-n:]
	}
	if len(parts) == 0 {
		return "."
	}
	return filepath.Join(parts...)
}
