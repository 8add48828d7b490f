package descriptor

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Store resolves descriptors inside one project's actions directory.
type Store struct {
	dir      string
	maxBytes int
	log      *slog.Logger
}

// NewStore returns a store over <sourceDir>/actions.
func NewStore(sourceDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:      filepath.Join(sourceDir, ActionsDirName),
		maxBytes: defaultMaxYAMLBytes,
		log:      logger.With("component", "descriptor"),
	}
}

// Dir returns the actions directory.
func (s *Store) Dir() string { return s.dir }

// Names lists descriptor file names sorted by sequence number ascending,
// ties broken by name. A missing actions directory yields no names.
func (s *Store) Names() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list descriptors: %w", err)
	}
	type named struct {
		seq  int
		name string
	}
	var found []named
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		seq, ok := SeqFromName(e.Name())
		if !ok {
			continue
		}
		found = append(found, named{seq: seq, name: e.Name()})
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].seq != found[j].seq {
			return found[i].seq < found[j].seq
		}
		return found[i].name < found[j].name
	})
	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.name
	}
	return out, nil
}

// LoadByName loads a descriptor by file name. Directory components in name
// are ignored so callers cannot escape the actions directory.
func (s *Store) LoadByName(name string) (Record, error) {
	base := baseName(name)
	if base == "" || base == "." || base == ".." {
		return Record{}, fmt.Errorf("%w: empty descriptor name", ErrNotFound)
	}
	return load(filepath.Join(s.dir, base), s.maxBytes)
}

// History returns the most recent descriptors, newest first. At most limit
// descriptors are considered (limit <= 0 means all); incomplete or unreadable
// ones among them are dropped, so fewer than limit records may be returned.
func (s *Store) History(limit int) ([]Record, error) {
	names, err := s.Names()
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	records := make([]Record, 0, len(names))
	for _, name := range names {
		rec, err := load(filepath.Join(s.dir, name), s.maxBytes)
		if err != nil {
			s.log.Warn("skipping descriptor", "name", name, "error", err)
			continue
		}
		if !rec.Complete() {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func baseName(name string) string {
	return filepath.Base(filepath.FromSlash(name))
}
