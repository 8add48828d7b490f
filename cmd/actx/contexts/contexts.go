package contexts

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/flarebyte/active-context/internal/activectx"
	"github.com/flarebyte/active-context/internal/app"
)

var (
	flagSource  string
	flagConfig  string
	flagPretty  bool
	flagVerbose bool
)

// Cmd implements `actx contexts`.
var Cmd = &cobra.Command{
	Use:           "contexts <file>...",
	Short:         "Print the active context documents covering files",
	Args:          cobra.MinimumNArgs(1),
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
		return writeResult(cmd.OutOrStdout(), a.Manager.LoadActiveContextsForFiles(args), flagPretty)
	},
}

func init() {
	Cmd.Flags().StringVarP(&flagSource, "source", "s", "", "Project source directory (default: config sourceDir or .)")
	Cmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Path to config file (.cue)")
	Cmd.Flags().BoolVar(&flagPretty, "pretty", false, "Indent the JSON output")
	Cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug details to stderr")
}

func writeResult(w io.Writer, res activectx.FileContextsResult, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(res)
}
