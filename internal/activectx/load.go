package activectx

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/flarebyte/active-context/internal/activedoc"
)

// FileContextsResult partitions requested files into those covered by an
// active context document and those that are not.
type FileContextsResult struct {
	Contexts      map[string]activedoc.Document `json:"contexts"`
	NotFoundFiles []string                      `json:"not_found_files"`
}

// LoadActiveContextsForFiles returns the documents of the existing parent
// directories of paths. A file is attached to every loaded document whose
// directory path occurs in the file path; the project root document only
// takes top-level files. Read failures are logged and leave the files
// unmatched.
func (m *Manager) LoadActiveContextsForFiles(paths []string) FileContextsResult {
	result := FileContextsResult{
		Contexts:      map[string]activedoc.Document{},
		NotFoundFiles: []string{},
	}
	var dirs []string
	seen := map[string]bool{}
	for _, p := range paths {
		dir := filepath.Dir(p)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if info, err := os.Stat(m.docs.Resolve(dir)); err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, dir)
	}

	found := map[string]bool{}
	for _, dir := range dirs {
		doc, ok, err := m.docs.Read(dir)
		if err != nil {
			m.log.Error("load active context failed", "dir", dir, "error", err)
			continue
		}
		if !ok {
			continue
		}
		related := []string{}
		for _, p := range paths {
			if coveredBy(p, dir) {
				related = append(related, p)
				found[p] = true
			}
		}
		doc.Files = related
		result.Contexts[dir] = doc
	}
	for _, p := range paths {
		if !found[p] {
			result.NotFoundFiles = append(result.NotFoundFiles, p)
		}
	}
	return result
}

// coveredBy reports whether the document of dir covers path: its directory
// name occurs in the path. The root document only covers top-level files.
func coveredBy(path, dir string) bool {
	if dir == "." {
		return filepath.Dir(path) == "."
	}
	return strings.Contains(path, dir)
}
