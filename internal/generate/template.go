package generate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/flarebyte/active-context/internal/activedoc"
)

// Template renders a document without any model: the current change section
// lists the request and files, and the document section keeps the previous
// body when there is one.
type Template struct{}

func (Template) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var change strings.Builder
	if q := strings.TrimSpace(req.Query); q != "" {
		fmt.Fprintf(&change, "%s\n", q)
	}
	if len(req.Context.Changed) > 0 {
		change.WriteString("\n变更文件:\n")
		for _, f := range req.Context.Changed {
			fmt.Fprintf(&change, "- %s%s\n", f.Path, changeStats(req, f.Path))
		}
	}

	doc := ""
	if req.HasExisting {
		doc = activedoc.Parse(req.Existing).Document
	}
	if doc == "" {
		var files strings.Builder
		files.WriteString("相关文件:\n")
		for _, p := range req.Context.Paths() {
			fmt.Fprintf(&files, "- %s\n", filepath.Base(p))
		}
		doc = files.String()
	}

	return activedoc.Render(activedoc.Sections{
		Header:        "# " + DisplayName(req.Context.Dir),
		CurrentChange: change.String(),
		Document:      doc,
	}), nil
}

// changeStats summarizes the line counts of a file's before/after contents.
func changeStats(req Request, path string) string {
	ch, ok := req.Changes[path]
	if !ok {
		return ""
	}
	return fmt.Sprintf(" (%d -> %d lines)", lineCount(ch.Before), lineCount(ch.After))
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// DisplayName names a directory for humans; the project root is
// "project root".
func DisplayName(dir string) string {
	base := filepath.Base(dir)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "project root"
	}
	return base
}
