// Package history collects recent task descriptors together with the diffs of
// their commits. The result is the input of next-task prediction.
package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/flarebyte/active-context/internal/descriptor"
	"github.com/flarebyte/active-context/internal/vcs"
)

// DefaultLimit is the number of most recent descriptors considered.
const DefaultLimit = 100

// Entry is one historical task with its recovered diff, if any.
type Entry struct {
	Record descriptor.Record `json:"record"`
	Commit string            `json:"commit,omitempty"`
	Diff   string            `json:"diff,omitempty"`
}

// Scanner reads history from a descriptor store. A nil correlator disables
// diff recovery.
type Scanner struct {
	store      *descriptor.Store
	correlator *vcs.Correlator
	limit      int
}

func NewScanner(store *descriptor.Store, correlator *vcs.Correlator, limit int) *Scanner {
	return &Scanner{store: store, correlator: correlator, limit: limit}
}

// Scan returns complete records newest first, each with its diff.
func (s *Scanner) Scan(ctx context.Context) ([]Entry, error) {
	recs, err := s.store.History(s.limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	entries := make([]Entry, len(recs))
	if s.correlator == nil {
		for i, rec := range recs {
			entries[i] = Entry{Record: rec}
		}
		return entries, nil
	}
	for i, m := range s.correlator.FindAll(ctx, recs) {
		entries[i] = Entry{Record: m.Record, Commit: m.CommitHash, Diff: m.Diff}
	}
	return entries, ctx.Err()
}

// Render formats entries as the markdown block consumed by the predictor.
func Render(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s\n\n修改的文件:\n", e.Record.Query)
		for _, u := range e.Record.URLs {
			fmt.Fprintf(&b, "- %s\n", u)
		}
		if e.Diff != "" {
			b.WriteString("\n代码变更:\n```diff\n")
			b.WriteString(strings.TrimRight(e.Diff, "\n"))
			b.WriteString("\n```\n")
		}
	}
	return b.String()
}
