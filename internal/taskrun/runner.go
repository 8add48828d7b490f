package taskrun

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 64

	defaultPollInterval = 20 * time.Millisecond
)

// Work is a task body. It returns the names of the directories it processed.
// sink is open for the whole call and closed by the runner afterwards.
type Work func(ctx context.Context, sink *Sink) ([]string, error)

// Options configures a Runner.
type Options struct {
	Workers   int
	QueueSize int
	// LogPath is the shared per-task log file. Empty discards task logs.
	LogPath string
	Logger  *slog.Logger
	Metrics *Collector
}

type job struct {
	id   string
	work Work
}

// Runner executes tasks on a fixed number of worker goroutines. Tasks are
// never rejected while the runner is open: when the queue is full, the
// enqueue is handed to a goroutine that waits for a free slot.
type Runner struct {
	registry *Registry
	logPath  string
	log      *slog.Logger
	metrics  *Collector

	queue   chan job
	workers sync.WaitGroup
	pending sync.WaitGroup

	mu     sync.Mutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRunner starts the worker goroutines. Close must be called to stop them.
func NewRunner(registry *Registry, opts Options) *Runner {
	if registry == nil {
		registry = NewRegistry()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	queueSize := opts.QueueSize
	if queueSize < 0 {
		queueSize = DefaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		registry: registry,
		logPath:  opts.LogPath,
		log:      logger.With("component", "taskrun"),
		metrics:  opts.Metrics,
		queue:    make(chan job, queueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
	r.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go r.worker()
	}
	return r
}

// Registry returns the registry the runner records into.
func (r *Runner) Registry() *Registry { return r.registry }

// Start records st as starting and schedules work. It returns without waiting
// for the task to run.
func (r *Runner) Start(st State, work Work) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrPoolClosed
	}
	if err := r.registry.Add(st); err != nil {
		return err
	}
	r.metrics.recordStarted()
	j := job{id: st.TaskID, work: work}
	select {
	case r.queue <- j:
	default:
		r.pending.Add(1)
		go func() {
			defer r.pending.Done()
			r.queue <- j
		}()
	}
	return nil
}

// Wait polls until task id reaches a terminal state or ctx is done.
func (r *Runner) Wait(ctx context.Context, id string) (State, error) {
	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()
	for {
		st := r.registry.Get(id)
		if st.Status.Terminal() {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops accepting tasks, runs everything already accepted and waits for
// the workers to exit.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.pending.Wait()
	close(r.queue)
	r.workers.Wait()
	r.cancel()
}

// Abort cancels the context passed to running task bodies, then closes.
func (r *Runner) Abort() {
	r.cancel()
	r.Close()
}

func (r *Runner) worker() {
	defer r.workers.Done()
	for j := range r.queue {
		r.execute(j)
	}
}

func (r *Runner) execute(j job) {
	if !r.registry.SetRunning(j.id) {
		r.log.Warn("task not in starting state", "task_id", j.id)
		return
	}
	r.metrics.recordRunning(1)
	start := time.Now()
	dirs, err := r.runBody(j)
	elapsed := time.Since(start)
	r.metrics.recordRunning(-1)
	if err != nil {
		r.registry.SetFailed(j.id, err.Error())
		r.metrics.recordFailed(elapsed)
		r.log.Error("task failed", "task_id", j.id, "error", SanitizeErrorMessage(err.Error()))
		return
	}
	r.registry.SetCompleted(j.id, dirs)
	r.metrics.recordCompleted(elapsed, len(dirs))
	r.log.Info("task completed", "task_id", j.id, "dirs", len(dirs), "elapsed", elapsed)
}

func (r *Runner) runBody(j job) (dirs []string, err error) {
	sink := r.openSink(j.id)
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
			sink.Logger.Error("task panicked", "panic", fmt.Sprint(p))
		}
		if cerr := sink.Close(); cerr != nil {
			r.log.Warn("task log close failed", "task_id", j.id, "error", cerr)
		}
	}()
	dirs, err = j.work(r.ctx, sink)
	if err != nil {
		sink.Logger.Error("task failed", "error", err)
	}
	return dirs, err
}

func (r *Runner) openSink(id string) *Sink {
	if r.logPath == "" {
		return DiscardSink(id)
	}
	sink, err := OpenSink(r.logPath, id)
	if err != nil {
		r.log.Warn("task log unavailable", "task_id", id, "error", err)
		return DiscardSink(id)
	}
	return sink
}
