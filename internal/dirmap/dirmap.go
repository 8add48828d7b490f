// Package dirmap groups a task's files by their parent directory.
package dirmap

import "path/filepath"

// FileRef is one file path as listed by a descriptor.
type FileRef struct {
	Path string `json:"path"`
}

// Context is the set of files of one task that share a parent directory.
type Context struct {
	Dir     string    `json:"directory_path"`
	Changed []FileRef `json:"changed_files"`
	Current []FileRef `json:"current_files"`
}

// Paths returns the distinct changed then current paths of c.
func (c Context) Paths() []string {
	seen := make(map[string]bool, len(c.Changed)+len(c.Current))
	var out []string
	for _, group := range [][]FileRef{c.Changed, c.Current} {
		for _, f := range group {
			if seen[f.Path] {
				continue
			}
			seen[f.Path] = true
			out = append(out, f.Path)
		}
	}
	return out
}

// Map groups changed and current paths by filepath.Dir. Contexts are ordered
// by first appearance of their directory, changed paths first. A path listed
// in both inputs appears in both sets of its context; duplicates within one
// input are collapsed. Empty paths are ignored.
func Map(changed, current []string) []Context {
	var order []string
	byDir := map[string]*Context{}
	get := func(p string) *Context {
		dir := filepath.Dir(p)
		c, ok := byDir[dir]
		if !ok {
			c = &Context{Dir: dir}
			byDir[dir] = c
			order = append(order, dir)
		}
		return c
	}
	seenChanged := map[string]bool{}
	for _, p := range changed {
		if p == "" || seenChanged[p] {
			continue
		}
		seenChanged[p] = true
		c := get(p)
		c.Changed = append(c.Changed, FileRef{Path: p})
	}
	seenCurrent := map[string]bool{}
	for _, p := range current {
		if p == "" || seenCurrent[p] {
			continue
		}
		seenCurrent[p] = true
		c := get(p)
		c.Current = append(c.Current, FileRef{Path: p})
	}
	out := make([]Context, 0, len(order))
	for _, d := range order {
		out = append(out, *byDir[d])
	}
	return out
}
