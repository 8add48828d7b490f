package process

import (
	"fmt"

	"github.com/flarebyte/active-context/internal/taskrun"
)

const (
	exitCodeSuccess    = 0
	exitCodeExecErr    = 1
	exitCodeTaskFailed = 2
)

type runExitError struct {
	code int
	msg  string
}

func (e runExitError) Error() string { return e.msg }
func (e runExitError) ExitCode() int { return e.code }

func countStates(states []taskrun.State) (completed int, failed int) {
	for _, st := range states {
		switch st.Status {
		case taskrun.StatusCompleted:
			completed++
		case taskrun.StatusFailed, taskrun.StatusNotFound:
			failed++
		}
	}
	return
}

// evaluateProcessExit maps waited task states to the command result.
func evaluateProcessExit(states []taskrun.State) error {
	_, failed := countStates(states)
	if failed == 0 {
		return nil
	}
	return runExitError{code: exitCodeTaskFailed, msg: fmt.Sprintf("%d of %d tasks failed", failed, len(states))}
}
