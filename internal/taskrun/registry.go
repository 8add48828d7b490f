// Package taskrun runs asynchronous tasks on a bounded worker pool and keeps
// an observable record of every task's lifecycle.
package taskrun

import (
	"fmt"
	"sync"
	"time"
)

// Status is a task lifecycle state.
type Status string

const (
	StatusStarting  Status = "starting"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	// StatusNotFound is reported for ids the registry never saw.
	StatusNotFound Status = "not_found"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusNotFound
}

// State is a snapshot of one task.
type State struct {
	TaskID         string     `json:"task_id"`
	Status         Status     `json:"status"`
	StartTime      time.Time  `json:"start_time"`
	CompletionTime *time.Time `json:"completion_time,omitempty"`
	Error          string     `json:"error,omitempty"`
	ProcessedDirs  []string   `json:"processed_dirs,omitempty"`
	FileName       string     `json:"file_name,omitempty"`
	Query          string     `json:"query,omitempty"`
	ChangedURLs    []string   `json:"changed_urls,omitempty"`
	CurrentURLs    []string   `json:"current_urls,omitempty"`
}

func (s State) clone() State {
	out := s
	if s.CompletionTime != nil {
		t := *s.CompletionTime
		out.CompletionTime = &t
	}
	out.ProcessedDirs = cloneStrings(s.ProcessedDirs)
	out.ChangedURLs = cloneStrings(s.ChangedURLs)
	out.CurrentURLs = cloneStrings(s.CurrentURLs)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// Registry is the in-memory task table. Readers always receive copies.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*State
	order []string
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*State), now: time.Now}
}

// Add records a new task in the starting state.
func (r *Registry) Add(st State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[st.TaskID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, st.TaskID)
	}
	st = st.clone()
	st.Status = StatusStarting
	st.CompletionTime = nil
	st.Error = ""
	st.ProcessedDirs = nil
	if st.StartTime.IsZero() {
		st.StartTime = r.now()
	}
	r.tasks[st.TaskID] = &st
	r.order = append(r.order, st.TaskID)
	return nil
}

// Has reports whether id is known.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tasks[id]
	return ok
}

// Get returns a copy of the task, or a not_found state for unknown ids.
func (r *Registry) Get(id string) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.tasks[id]
	if !ok {
		return State{TaskID: id, Status: StatusNotFound}
	}
	return st.clone()
}

// All returns every task in insertion order.
func (r *Registry) All() []State {
	return r.filter(func(*State) bool { return true })
}

// Running returns the tasks currently in the running state.
func (r *Registry) Running() []State {
	return r.filter(func(st *State) bool { return st.Status == StatusRunning })
}

func (r *Registry) filter(keep func(*State) bool) []State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]State, 0, len(r.order))
	for _, id := range r.order {
		if st := r.tasks[id]; keep(st) {
			out = append(out, st.clone())
		}
	}
	return out
}

// SetRunning moves a starting task to running.
func (r *Registry) SetRunning(id string) bool {
	return r.transition(id, func(st *State) bool {
		if st.Status != StatusStarting {
			return false
		}
		st.Status = StatusRunning
		return true
	})
}

// SetCompleted moves a running task to completed with its processed dirs.
func (r *Registry) SetCompleted(id string, dirs []string) bool {
	return r.transition(id, func(st *State) bool {
		if st.Status != StatusRunning {
			return false
		}
		now := r.now()
		st.Status = StatusCompleted
		st.CompletionTime = &now
		st.ProcessedDirs = cloneStrings(dirs)
		if st.ProcessedDirs == nil {
			st.ProcessedDirs = []string{}
		}
		return true
	})
}

// SetFailed moves a non-terminal task to failed. An empty message is
// replaced so failed tasks always carry error text.
func (r *Registry) SetFailed(id, msg string) bool {
	return r.transition(id, func(st *State) bool {
		if st.Status.Terminal() {
			return false
		}
		now := r.now()
		st.Status = StatusFailed
		st.CompletionTime = &now
		st.Error = SanitizeErrorMessage(msg)
		return true
	})
}

func (r *Registry) transition(id string, apply func(*State) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.tasks[id]
	if !ok {
		return false
	}
	return apply(st)
}
