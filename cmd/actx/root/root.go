package root

import (
	"github.com/spf13/cobra"

	"github.com/flarebyte/active-context/cmd/actx/contexts"
	"github.com/flarebyte/active-context/cmd/actx/history"
	"github.com/flarebyte/active-context/cmd/actx/process"
	"github.com/flarebyte/active-context/cmd/actx/serve"
	"github.com/flarebyte/active-context/cmd/actx/version"
)

// NewRootCmd creates the root command for actx.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actx",
		Short: "Keep per-directory active context documents in step with task descriptors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(version.VersionCmd)
	cmd.AddCommand(process.Cmd)
	cmd.AddCommand(contexts.Cmd)
	cmd.AddCommand(history.Cmd)
	cmd.AddCommand(serve.Cmd)

	return cmd
}

// Execute runs the root command with provided args.
func Execute(args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}
