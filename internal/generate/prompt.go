package generate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flarebyte/active-context/internal/activedoc"
	"github.com/flarebyte/active-context/internal/dirmap"
)

// Prompt renders req as instructions for a language model. The output is
// deterministic for a given request.
func Prompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You maintain the active context document of the directory %q.\n", req.Context.Dir)
	b.WriteString("It records what changed recently and documents the directory for the next developer.\n\n")
	fmt.Fprintf(&b, "Task request:\n%s\n\n", strings.TrimSpace(req.Query))

	writeFileList(&b, "Changed files", req.Context.Changed)
	writeFileList(&b, "Related files", req.Context.Current)

	if len(req.Changes) > 0 {
		b.WriteString("Code changes:\n")
		for _, path := range sortedKeys(req.Changes) {
			ch := req.Changes[path]
			fmt.Fprintf(&b, "### %s\n", path)
			if ch.Before != "" {
				fmt.Fprintf(&b, "Before:\n```\n%s\n```\n", strings.TrimRight(ch.Before, "\n"))
			}
			if ch.After != "" {
				fmt.Fprintf(&b, "After:\n```\n%s\n```\n", strings.TrimRight(ch.After, "\n"))
			}
		}
		b.WriteString("\n")
	}

	if req.HasExisting {
		fmt.Fprintf(&b, "Current document:\n<document>\n%s\n</document>\n\n", strings.TrimSpace(req.Existing))
	}

	b.WriteString("Reply with the complete markdown document only. It must contain exactly these second-level headings, in order:\n")
	fmt.Fprintf(&b, "## %s\nA summary of this change and why it was made.\n", activedoc.CurrentChangeHeading)
	fmt.Fprintf(&b, "## %s\nThe purpose, main components and usage of the directory", activedoc.DocumentHeading)
	if req.HasExisting {
		b.WriteString(", updated from the current document")
	}
	b.WriteString(".\n")
	return b.String()
}

func writeFileList(b *strings.Builder, title string, files []dirmap.FileRef) {
	if len(files) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, f := range files {
		fmt.Fprintf(b, "- %s\n", f.Path)
	}
	b.WriteString("\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
