package process

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/flarebyte/active-context/internal/taskrun"
)

const defaultProgressInterval = 500 * time.Millisecond

// progressReporter prints a task summary line to w every interval until
// stopped, plus one final line.
type progressReporter struct {
	enabled  bool
	interval time.Duration
	w        io.Writer
	registry *taskrun.Registry
	ids      []string

	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
}

func newProgressReporter(enabled bool, w io.Writer, registry *taskrun.Registry, ids []string) *progressReporter {
	if !enabled || w == nil {
		return &progressReporter{enabled: false}
	}
	return &progressReporter{
		enabled:  true,
		interval: defaultProgressInterval,
		w:        w,
		registry: registry,
		ids:      ids,
	}
}

func (p *progressReporter) start() {
	if p == nil || !p.enabled {
		return
	}
	p.emit()
	p.done = make(chan struct{})
	ticker := time.NewTicker(p.interval)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.emit()
			case <-p.done:
				return
			}
		}
	}()
}

func (p *progressReporter) stop() {
	if p == nil || !p.enabled || p.done == nil {
		return
	}
	close(p.done)
	p.wg.Wait()
	p.done = nil
	p.emit()
}

func (p *progressReporter) snapshot() (pending, running, completed, failed int) {
	for _, id := range p.ids {
		switch p.registry.Get(id).Status {
		case taskrun.StatusStarting:
			pending++
		case taskrun.StatusRunning:
			running++
		case taskrun.StatusCompleted:
			completed++
		default:
			failed++
		}
	}
	return
}

func (p *progressReporter) emit() {
	if p == nil || !p.enabled || p.w == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	pending, running, completed, failed := p.snapshot()
	_, _ = fmt.Fprintf(p.w, "progress tasks=%d pending=%d running=%d completed=%d failed=%d\n",
		len(p.ids), pending, running, completed, failed)
}
