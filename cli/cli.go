// Package cli holds the values stamped by release builds.
package cli

// Version and Date are set at build time using ldflags, e.g.:
//
//	-ldflags "-X 'github.com/flarebyte/active-context/cli.Version=0.3.0' -X 'github.com/flarebyte/active-context/cli.Date=2026-10-01'"
var (
	Version string
	Date    string
)
