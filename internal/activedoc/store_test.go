package activedoc

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathFor(t *testing.T) {
	src := t.TempDir()
	s := NewStore(src)
	shadow := ShadowRoot(s.SourceDir())
	cases := []struct {
		dir  string
		want string
	}{
		{filepath.Join(src, "pkg", "sub"), filepath.Join(shadow, "pkg", "sub", FileName)},
		{"pkg", filepath.Join(shadow, "pkg", FileName)},
		{src, filepath.Join(shadow, FileName)},
		{".", filepath.Join(shadow, FileName)},
		{filepath.Join(string(filepath.Separator), "elsewhere", "deep", "a", "b"), filepath.Join(shadow, "a", "b", FileName)},
		{filepath.Join("..", "outside"), filepath.Join(shadow, filepath.Base(filepath.Dir(s.SourceDir())), "outside", FileName)},
	}
	for _, tc := range cases {
		if got := s.PathFor(tc.dir); got != tc.want {
			t.Fatalf("%s: unexpected path\nwant: %s\n got: %s", tc.dir, tc.want, got)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	src := t.TempDir()
	s := NewStore(src)
	if _, ok, err := s.Read("pkg"); err != nil || ok {
		t.Fatalf("expected no document, got ok=%v err=%v", ok, err)
	}
	if s.Exists("pkg") {
		t.Fatalf("unexpected document")
	}
	content := "# pkg\n\n## 当前变更\n\nadded cache\n\n## 文档\n\nhelpers\n"
	p, err := s.Write("pkg", content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != filepath.Join(src, StateDirName, ShadowDirName, "pkg", FileName) {
		t.Fatalf("unexpected path: %s", p)
	}
	doc, ok, err := s.Read("pkg")
	if err != nil || !ok {
		t.Fatalf("expected document, got ok=%v err=%v", ok, err)
	}
	if doc.Content != content || doc.StoragePath != p || doc.Dir != "pkg" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	want := Sections{Header: "# pkg", CurrentChange: "added cache", Document: "helpers"}
	if doc.Sections != want {
		t.Fatalf("unexpected sections: %+v", doc.Sections)
	}

	if _, err := s.Write("pkg", "replaced"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "replaced" {
		t.Fatalf("expected full overwrite, got %q", string(b))
	}
}
