// Package buildinfo exposes version metadata for actx. Values can be set with
// -ldflags on this package or, for release scripts, on the cli package.
package buildinfo

import (
	"strings"

	"github.com/flarebyte/active-context/cli"
)

var (
	// Version falls back to cli.Version, then "dev".
	Version = "dev"
	Commit  = ""
	// Date falls back to cli.Date.
	Date    = ""
	BuiltBy = ""
)

// Summary returns "<version> (commit=<short>, date=<date>)", omitting the
// parenthesis when neither is known.
func Summary() string {
	v := firstNonEmpty(Version, cli.Version, "dev")
	d := firstNonEmpty(Date, cli.Date)

	var parts []string
	if Commit != "" {
		c := Commit
		if len(c) > 7 {
			c = c[:7]
		}
		parts = append(parts, "commit="+c)
	}
	if d != "" {
		parts = append(parts, "date="+d)
	}
	if len(parts) > 0 {
		v += " (" + strings.Join(parts, ", ") + ")"
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, s := range values {
		if s != "" {
			return s
		}
	}
	return ""
}
