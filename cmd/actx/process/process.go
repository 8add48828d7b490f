package process

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flarebyte/active-context/internal/app"
	"github.com/flarebyte/active-context/internal/taskrun"
)

var (
	flagSource   string
	flagConfig   string
	flagWait     bool
	flagTimeout  time.Duration
	flagProgress bool
	flagVerbose  bool
)

// taskLine is printed once per started task.
type taskLine struct {
	TaskID   string `json:"task_id"`
	FileName string `json:"file_name"`
}

// Cmd represents the `actx process` command.
var Cmd = &cobra.Command{
	Use:           "process <descriptor>...",
	Short:         "Update the active context documents touched by task descriptors",
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
		return run(cmd.Context(), a, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	Cmd.Flags().StringVarP(&flagSource, "source", "s", "", "Project source directory (default: config sourceDir or .)")
	Cmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Path to config file (.cue)")
	Cmd.Flags().BoolVarP(&flagWait, "wait", "w", false, "Wait for the tasks and print their final states")
	Cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Give up waiting after this long (0 waits forever)")
	Cmd.Flags().BoolVar(&flagProgress, "progress", true, "Print progress lines to stderr while waiting")
	Cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug details to stderr")
}

// run starts one task per descriptor. Accepted tasks always run to the end
// before returning; --wait only adds their final states to the output.
func run(ctx context.Context, a *app.App, names []string, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	enc := json.NewEncoder(stdout)
	var ids []string
	for _, name := range names {
		id, err := a.Manager.ProcessChanges(ctx, name)
		if err != nil {
			return closeWith(a, runExitError{code: exitCodeExecErr, msg: taskrun.SanitizeErrorMessage(err.Error())})
		}
		ids = append(ids, id)
		st := a.Manager.TaskStatus(id)
		if err := enc.Encode(taskLine{TaskID: id, FileName: st.FileName}); err != nil {
			return closeWith(a, err)
		}
	}
	if !flagWait {
		return closeWith(a, nil)
	}

	waitCtx := ctx
	if flagTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, flagTimeout)
		defer cancel()
	}
	progress := newProgressReporter(flagProgress, stderr, a.Runner.Registry(), ids)
	progress.start()
	states, err := waitAll(waitCtx, a, ids)
	progress.stop()
	if err != nil {
		a.Runner.Abort()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out waiting for %d tasks", len(ids))
		}
		return closeWith(a, runExitError{code: exitCodeExecErr, msg: err.Error()})
	}
	for _, st := range states {
		if err := enc.Encode(st); err != nil {
			return closeWith(a, err)
		}
	}
	return closeWith(a, evaluateProcessExit(states))
}

func waitAll(ctx context.Context, a *app.App, ids []string) ([]taskrun.State, error) {
	states := make([]taskrun.State, 0, len(ids))
	for _, id := range ids {
		st, err := a.Manager.Wait(ctx, id)
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, nil
}

// closeWith drains the app and keeps err as the command result; a close
// failure is reported on stderr only when err is nil.
func closeWith(a *app.App, err error) error {
	if cerr := a.Close(); cerr != nil {
		if err == nil {
			return cerr
		}
		_, _ = fmt.Fprintln(os.Stderr, cerr)
	}
	return err
}
