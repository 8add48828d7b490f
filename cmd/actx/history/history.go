package history

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/flarebyte/active-context/internal/app"
	hist "github.com/flarebyte/active-context/internal/history"
)

var (
	flagSource   string
	flagConfig   string
	flagLimit    int
	flagSkipDiff bool
	flagRender   bool
	flagVerbose  bool
)

// Cmd implements `actx history`.
var Cmd = &cobra.Command{
	Use:           "history",
	Short:         "Print recent task descriptors with the diffs of their commits",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(app.Options{
			SourceDir:  flagSource,
			ConfigPath: flagConfig,
			Verbose:    flagVerbose,
			LogOutput:  cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()
		entries, err := a.History(flagLimit, flagSkipDiff).Scan(cmd.Context())
		if err != nil {
			return err
		}
		return writeEntries(cmd.OutOrStdout(), entries, flagRender)
	},
}

func init() {
	Cmd.Flags().StringVarP(&flagSource, "source", "s", "", "Project source directory (default: config sourceDir or .)")
	Cmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Path to config file (.cue)")
	Cmd.Flags().IntVarP(&flagLimit, "limit", "n", 0, "Number of most recent descriptors (default: config history.limit)")
	Cmd.Flags().BoolVar(&flagSkipDiff, "skip-diff", false, "Do not look up commit diffs")
	Cmd.Flags().BoolVar(&flagRender, "render", false, "Print the markdown history block instead of JSON")
	Cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug details to stderr")
}

func writeEntries(w io.Writer, entries []hist.Entry, render bool) error {
	if render {
		_, err := fmt.Fprint(w, hist.Render(entries))
		return err
	}
	if entries == nil {
		entries = []hist.Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
