package version

import (
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/flarebyte/active-context/internal/buildinfo"
)

func captureStdout(t *testing.T, run func() error) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	oldStdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = oldStdout }()

	if err := run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	_ = w.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(got)
}

func resetBuildinfo(t *testing.T) {
	t.Helper()
	oldVersion, oldCommit, oldDate := buildinfo.Version, buildinfo.Commit, buildinfo.Date
	oldShort, oldJSON := flagShort, flagJSON
	t.Cleanup(func() {
		buildinfo.Version, buildinfo.Commit, buildinfo.Date = oldVersion, oldCommit, oldDate
		flagShort, flagJSON = oldShort, oldJSON
	})
	buildinfo.Version = ""
	buildinfo.Commit = ""
	buildinfo.Date = ""
	flagShort = false
	flagJSON = false
}

func TestVersionDefaultOutputStable(t *testing.T) {
	resetBuildinfo(t)
	got := captureStdout(t, func() error { return VersionCmd.RunE(VersionCmd, nil) })
	if got != "actx dev\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestVersionCommitAndDate(t *testing.T) {
	resetBuildinfo(t)
	buildinfo.Version = "1.2.0"
	buildinfo.Commit = "0123456789abcdef"
	buildinfo.Date = "2026-10-01"
	got := captureStdout(t, func() error { return VersionCmd.RunE(VersionCmd, nil) })
	if got != "actx 1.2.0 (commit=0123456, date=2026-10-01)\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestVersionJSON(t *testing.T) {
	resetBuildinfo(t)
	buildinfo.Version = "1.2.0"
	flagJSON = true
	got := captureStdout(t, func() error { return VersionCmd.RunE(VersionCmd, nil) })
	var out map[string]any
	if err := json.Unmarshal([]byte(got), &out); err != nil {
		t.Fatalf("decode %q: %v", got, err)
	}
	if out["version"] != "1.2.0" {
		t.Fatalf("unexpected version: %v", out["version"])
	}
}
