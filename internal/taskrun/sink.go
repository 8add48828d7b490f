package taskrun

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// sinkLocks holds one mutex per log path so concurrent tasks appending to the
// same file never interleave within a record.
var sinkLocks sync.Map

func lockFor(path string) *sync.Mutex {
	mu, _ := sinkLocks.LoadOrStore(path, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Sink is the per-task log destination handed to a task body.
type Sink struct {
	Logger *slog.Logger

	taskID string
	w      io.Writer
	closer io.Closer
	once   sync.Once
}

// OpenSink appends to the log file at path, writing a start banner. The
// caller must Close the sink.
func OpenSink(path, taskID string) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open task log: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	w := &lockedWriter{mu: lockFor(abs), w: f}
	s := newSink(taskID, w, f)
	s.banner("started")
	return s, nil
}

// DiscardSink returns a sink that drops everything.
func DiscardSink(taskID string) *Sink {
	return newSink(taskID, io.Discard, nil)
}

func newSink(taskID string, w io.Writer, closer io.Closer) *Sink {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &Sink{
		Logger: slog.New(h).With("task_id", taskID),
		taskID: taskID,
		w:      w,
		closer: closer,
	}
}

func (s *Sink) banner(event string) {
	_, _ = fmt.Fprintf(s.w, "--- task %s %s %s ---\n", s.taskID, event, time.Now().Format(time.RFC3339))
}

// Close writes the finish banner and releases the file. It is safe to call
// more than once.
func (s *Sink) Close() error {
	var err error
	s.once.Do(func() {
		if s.closer == nil {
			return
		}
		s.banner("finished")
		err = s.closer.Close()
	})
	return err
}
