package taskrun

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitTerminal(t *testing.T, r *Runner, id string) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := r.Wait(ctx, id)
	require.NoError(t, err)
	return st
}

func TestRunner_CompletesAndFails(t *testing.T) {
	metrics := NewCollector()
	r := NewRunner(nil, Options{Workers: 2, QueueSize: 4, Metrics: metrics})
	defer r.Close()

	require.NoError(t, r.Start(State{TaskID: "ok"}, func(ctx context.Context, sink *Sink) ([]string, error) {
		sink.Logger.Info("working")
		return []string{"pkg", "svc"}, nil
	}))
	require.NoError(t, r.Start(State{TaskID: "bad"}, func(ctx context.Context, sink *Sink) ([]string, error) {
		return nil, errors.New("write failed")
	}))

	ok := waitTerminal(t, r, "ok")
	assert.Equal(t, StatusCompleted, ok.Status)
	assert.Equal(t, []string{"pkg", "svc"}, ok.ProcessedDirs)

	bad := waitTerminal(t, r, "bad")
	assert.Equal(t, StatusFailed, bad.Status)
	assert.Equal(t, "write failed", bad.Error)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.started))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.completed))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failed))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.dirs))
}

func TestRunner_PanicBecomesFailure(t *testing.T) {
	r := NewRunner(nil, Options{Workers: 1})
	defer r.Close()
	require.NoError(t, r.Start(State{TaskID: "boom"}, func(ctx context.Context, sink *Sink) ([]string, error) {
		panic("kaboom")
	}))
	st := waitTerminal(t, r, "boom")
	assert.Equal(t, StatusFailed, st.Status)
	assert.Contains(t, st.Error, "kaboom")
}

func TestRunner_StartReturnsBeforeWorkRuns(t *testing.T) {
	r := NewRunner(nil, Options{Workers: 1})
	defer r.Close()
	release := make(chan struct{})
	require.NoError(t, r.Start(State{TaskID: "slow"}, func(ctx context.Context, sink *Sink) ([]string, error) {
		<-release
		return nil, nil
	}))
	status := r.Registry().Get("slow").Status
	assert.Contains(t, []Status{StatusStarting, StatusRunning}, status)
	close(release)
	assert.Equal(t, StatusCompleted, waitTerminal(t, r, "slow").Status)
}

func TestRunner_OverflowStillRunsEveryTask(t *testing.T) {
	r := NewRunner(nil, Options{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	var mu sync.Mutex
	ran := 0
	const n = 10
	for i := 0; i < n; i++ {
		id := "t" + string(rune('a'+i))
		require.NoError(t, r.Start(State{TaskID: id}, func(ctx context.Context, sink *Sink) ([]string, error) {
			<-release
			mu.Lock()
			ran++
			mu.Unlock()
			return nil, nil
		}))
	}
	close(release)
	r.Close()
	assert.Equal(t, n, ran)
	for _, st := range r.Registry().All() {
		assert.Equal(t, StatusCompleted, st.Status, st.TaskID)
	}
	assert.ErrorIs(t, r.Start(State{TaskID: "late"}, nil), ErrPoolClosed)
}

func TestRunner_DuplicateID(t *testing.T) {
	r := NewRunner(nil, Options{Workers: 1})
	defer r.Close()
	noop := func(ctx context.Context, sink *Sink) ([]string, error) { return nil, nil }
	require.NoError(t, r.Start(State{TaskID: "same"}, noop))
	assert.ErrorIs(t, r.Start(State{TaskID: "same"}, noop), ErrDuplicateTask)
}

func TestRunner_WritesTaskLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "active.log")
	r := NewRunner(nil, Options{Workers: 2, LogPath: logPath})
	for _, id := range []string{"one", "two"} {
		require.NoError(t, r.Start(State{TaskID: id}, func(ctx context.Context, sink *Sink) ([]string, error) {
			sink.Logger.Info("processing directory", "dir", "pkg")
			return []string{"pkg"}, nil
		}))
	}
	r.Close()

	b, err := os.ReadFile(logPath)
	require.NoError(t, err)
	log := string(b)
	for _, id := range []string{"one", "two"} {
		assert.Contains(t, log, "--- task "+id+" started")
		assert.Contains(t, log, "--- task "+id+" finished")
		assert.Contains(t, log, "task_id="+id)
	}
	assert.Equal(t, 2, strings.Count(log, "msg=\"processing directory\""))
}

func TestRunner_WaitHonorsContext(t *testing.T) {
	r := NewRunner(nil, Options{Workers: 1})
	release := make(chan struct{})
	defer func() {
		close(release)
		r.Close()
	}()
	require.NoError(t, r.Start(State{TaskID: "blocked"}, func(ctx context.Context, sink *Sink) ([]string, error) {
		<-release
		return nil, nil
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := r.Wait(ctx, "blocked")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunner_WaitUnknownTask(t *testing.T) {
	r := NewRunner(nil, Options{})
	defer r.Close()
	st, err := r.Wait(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, st.Status)
}
