package contexts

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/flarebyte/active-context/internal/activectx"
	"github.com/flarebyte/active-context/internal/activedoc"
)

func TestWriteResult_Shape(t *testing.T) {
	res := activectx.FileContextsResult{
		Contexts: map[string]activedoc.Document{
			"pkg": {Dir: "pkg", Content: "## 文档\nx", Files: []string{"pkg/a.py"}},
		},
		NotFoundFiles: []string{"other/z.py"},
	}
	var buf bytes.Buffer
	if err := writeResult(&buf, res, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Fatalf("expected a single line, got %q", buf.String())
	}
	var got struct {
		Contexts map[string]struct {
			Dir   string   `json:"directory_path"`
			Files []string `json:"files"`
		} `json:"contexts"`
		NotFound []string `json:"not_found_files"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Contexts["pkg"].Dir != "pkg" || len(got.Contexts["pkg"].Files) != 1 {
		t.Fatalf("unexpected contexts: %+v", got.Contexts)
	}
	if len(got.NotFound) != 1 || got.NotFound[0] != "other/z.py" {
		t.Fatalf("unexpected not found: %v", got.NotFound)
	}
}

func TestWriteResult_Pretty(t *testing.T) {
	var buf bytes.Buffer
	res := activectx.FileContextsResult{Contexts: map[string]activedoc.Document{}, NotFoundFiles: []string{}}
	if err := writeResult(&buf, res, true); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "{\n  \"contexts\": {},\n  \"not_found_files\": []\n}\n"
	if buf.String() != want {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}
