// Package descriptor reads the numbered task descriptor files stored under
// <source>/actions. Each descriptor records one development task: the request
// text and the files it touched.
package descriptor

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ActionsDirName is the descriptor directory under the source root.
	ActionsDirName = "actions"
	// Extension is the only descriptor file extension recognized.
	Extension = ".yml"

	defaultMaxYAMLBytes = 1048576
)

var (
	ErrNotFound = errors.New("descriptor not found")
	ErrInvalid  = errors.New("invalid descriptor")
)

// Record is one loaded task descriptor. It is never mutated after Load.
type Record struct {
	Seq            int      `json:"seq"`
	Name           string   `json:"name"`
	Path           string   `json:"path"`
	Query          string   `json:"query"`
	URLs           []string `json:"urls"`
	AddUpdatedURLs []string `json:"add_updated_urls,omitempty"`
	DynamicURLs    []string `json:"dynamic_urls,omitempty"`
}

const minSeqDigits = 3

type document struct {
	Query          string   `yaml:"query"`
	URLs           []string `yaml:"urls"`
	AddUpdatedURLs []string `yaml:"add_updated_urls"`
	DynamicURLs    []string `yaml:"dynamic_urls"`
}

// SeqFromName parses the sequence number of a descriptor file name such as
// "000012_add_cache.yml". The prefix must have at least minSeqDigits digits;
// ok is false for names that are not descriptors.
func SeqFromName(name string) (int, bool) {
	if !strings.HasSuffix(name, Extension) {
		return 0, false
	}
	prefix, _, found := strings.Cut(name, "_")
	if !found || len(prefix) < minSeqDigits {
		return 0, false
	}
	for _, r := range prefix {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Load reads and parses a single descriptor file.
func Load(path string) (Record, error) {
	return load(path, defaultMaxYAMLBytes)
}

func load(path string, maxBytes int) (Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Record{}, fmt.Errorf("%w: read error %s: %v", ErrInvalid, path, err)
	}
	if info.IsDir() {
		return Record{}, fmt.Errorf("%w: %s is a directory", ErrInvalid, path)
	}
	if info.Size() > int64(maxBytes) {
		return Record{}, fmt.Errorf("%w: %s exceeds maxYAMLBytes %d", ErrInvalid, path, maxBytes)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("%w: read error %s: %v", ErrInvalid, path, err)
	}
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return Record{}, fmt.Errorf("%w: invalid YAML %s: %v", ErrInvalid, path, err)
	}
	name := baseName(path)
	seq, _ := SeqFromName(name)
	return Record{
		Seq:            seq,
		Name:           name,
		Path:           path,
		Query:          doc.Query,
		URLs:           doc.URLs,
		AddUpdatedURLs: doc.AddUpdatedURLs,
		DynamicURLs:    doc.DynamicURLs,
	}, nil
}

// Complete reports whether the record carries both a query and touched files.
func (r Record) Complete() bool {
	return r.Query != "" && len(r.URLs) > 0
}
