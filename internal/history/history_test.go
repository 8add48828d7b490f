package history

import (
	"context"
	"strings"
	"testing"

	"github.com/flarebyte/active-context/internal/descriptor"
	"github.com/flarebyte/active-context/internal/testutil"
	"github.com/flarebyte/active-context/internal/vcs"
)

func TestScan_LimitKeepsHighestSequence(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"actions/000001_a.yml": "query: first\nurls: [a.go]\n",
		"actions/000002_b.yml": "query: second\nurls: [b.go]\n",
	})
	s := NewScanner(descriptor.NewStore(dir, nil), nil, 1)
	entries, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Record.Seq != 2 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].Diff != "" {
		t.Fatalf("expected no diff without correlator")
	}
}

func TestScan_WithDiffs(t *testing.T) {
	dir := t.TempDir()
	repo := testutil.InitRepo(t, dir)
	content := "query: cache\nurls: [pkg/a.go]\n"
	repo.Commit(map[string]string{"pkg/a.go": "v1\n"}, "init")
	repo.Commit(map[string]string{
		"actions/000001_cache.yml": content,
		"pkg/a.go":                 "v2\n",
	}, vcs.Token("000001_cache.yml", []byte(content)))

	s := NewScanner(descriptor.NewStore(dir, nil), vcs.NewCorrelator(dir, vcs.Options{}), DefaultLimit)
	entries, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || !strings.Contains(entries[0].Diff, "+v2") {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestRender(t *testing.T) {
	got := Render([]Entry{
		{Record: descriptor.Record{Query: "add cache", URLs: []string{"a.go", "b.go"}}, Diff: "-x\n+y\n"},
		{Record: descriptor.Record{Query: "docs", URLs: []string{"README.md"}}},
	})
	want := "## add cache\n\n修改的文件:\n- a.go\n- b.go\n\n代码变更:\n```diff\n-x\n+y\n```\n" +
		"\n## docs\n\n修改的文件:\n- README.md\n"
	if got != want {
		t.Fatalf("unexpected render\nwant:\n%s\ngot:\n%s", want, got)
	}
}
