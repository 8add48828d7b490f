package history

import (
	"bytes"
	"strings"
	"testing"

	"github.com/flarebyte/active-context/internal/descriptor"
	hist "github.com/flarebyte/active-context/internal/history"
)

func TestWriteEntries_EmptyJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeEntries(&buf, nil, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "[]\n" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestWriteEntries_Render(t *testing.T) {
	entries := []hist.Entry{{Record: descriptor.Record{Query: "add cache", URLs: []string{"a.go"}}}}
	var buf bytes.Buffer
	if err := writeEntries(&buf, entries, true); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != hist.Render(entries) {
		t.Fatalf("unexpected output: %q", buf.String())
	}
	if !strings.HasPrefix(buf.String(), "## add cache\n") {
		t.Fatalf("unexpected heading: %q", buf.String())
	}
}
