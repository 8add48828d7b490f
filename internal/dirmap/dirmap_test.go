package dirmap

import (
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

func refs(paths ...string) []FileRef {
	out := make([]FileRef, 0, len(paths))
	for _, p := range paths {
		out = append(out, FileRef{Path: p})
	}
	return out
}

func TestMap_GroupsByParentInFirstSeenOrder(t *testing.T) {
	changed := []string{"pkg/a.py", "svc/x.go", "pkg/a.py"}
	current := []string{"pkg/a.py", "pkg/b.py", "docs/r.md"}
	got := Map(changed, current)
	want := []Context{
		{Dir: "pkg", Changed: refs("pkg/a.py"), Current: refs("pkg/a.py", "pkg/b.py")},
		{Dir: "svc", Changed: refs("svc/x.go")},
		{Dir: "docs", Current: refs("docs/r.md")},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected contexts\nwant: %+v\n got: %+v", want, got)
	}
}

func TestMap_UnionAndParentInvariant(t *testing.T) {
	changed := []string{"/abs/one/a", "rel/b", "c"}
	current := []string{"rel/d", "/abs/one/e", "", "c"}
	var union []string
	for _, c := range Map(changed, current) {
		for _, p := range c.Paths() {
			if filepath.Dir(p) != c.Dir {
				t.Fatalf("%s is not a child of %s", p, c.Dir)
			}
			union = append(union, p)
		}
	}
	sort.Strings(union)
	want := []string{"/abs/one/a", "/abs/one/e", "c", "rel/b", "rel/d"}
	if !reflect.DeepEqual(union, want) {
		t.Fatalf("unexpected union: %v", union)
	}
}

func TestMap_Empty(t *testing.T) {
	if got := Map(nil, nil); len(got) != 0 {
		t.Fatalf("expected no contexts, got %v", got)
	}
}
