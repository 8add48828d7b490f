// Package activectx maintains the active context documents of a project:
// it turns a task descriptor into per-directory document updates run in the
// background, and reads documents back for a set of files.
package activectx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/flarebyte/active-context/internal/activedoc"
	"github.com/flarebyte/active-context/internal/descriptor"
	"github.com/flarebyte/active-context/internal/dirmap"
	"github.com/flarebyte/active-context/internal/generate"
	"github.com/flarebyte/active-context/internal/taskrun"
	"github.com/flarebyte/active-context/internal/vcs"
)

const taskIDPrefix = "active_context_"

// LogFileName is the task log file under the shadow root.
const LogFileName = "active.log"

// LogPath returns <sourceDir>/.auto-coder/active-context/active.log.
func LogPath(sourceDir string) string {
	return filepath.Join(activedoc.ShadowRoot(sourceDir), LogFileName)
}

// Options wires a Manager. Runner and Generator are required; the stores
// default to ones rooted at SourceDir. A nil Correlator disables commit
// correlation.
type Options struct {
	SourceDir   string
	Descriptors *descriptor.Store
	Correlator  *vcs.Correlator
	Docs        *activedoc.Store
	Runner      *taskrun.Runner
	Generator   generate.Generator
	Logger      *slog.Logger
	Now         func() time.Time
}

// Manager composes descriptor loading, commit correlation, directory mapping,
// generation and document storage.
type Manager struct {
	sourceDir   string
	descriptors *descriptor.Store
	correlator  *vcs.Correlator
	docs        *activedoc.Store
	runner      *taskrun.Runner
	gen         generate.Generator
	log         *slog.Logger
	now         func() time.Time
}

func New(opts Options) (*Manager, error) {
	if opts.Runner == nil {
		return nil, errors.New("activectx: missing runner")
	}
	if opts.Generator == nil {
		return nil, errors.New("activectx: missing generator")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		sourceDir:   opts.SourceDir,
		descriptors: opts.Descriptors,
		correlator:  opts.Correlator,
		docs:        opts.Docs,
		runner:      opts.Runner,
		gen:         opts.Generator,
		log:         logger.With("component", "activectx"),
		now:         opts.Now,
	}
	if m.descriptors == nil {
		m.descriptors = descriptor.NewStore(opts.SourceDir, logger)
	}
	if m.docs == nil {
		m.docs = activedoc.NewStore(opts.SourceDir)
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// ProcessChanges loads the descriptor fileName and starts a background task
// updating the documents of every directory it touches. It returns the task
// id without waiting. Descriptor errors are returned and record no task.
func (m *Manager) ProcessChanges(ctx context.Context, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rec, err := m.descriptors.LoadByName(fileName)
	if err != nil {
		return "", fmt.Errorf("process changes: %w", err)
	}
	changed := append([]string(nil), rec.AddUpdatedURLs...)
	current := make([]string, 0, len(rec.URLs)+len(rec.DynamicURLs))
	current = append(current, rec.URLs...)
	current = append(current, rec.DynamicURLs...)

	start := m.now()
	st := taskrun.State{
		TaskID:      fmt.Sprintf("%s%d_%s", taskIDPrefix, start.Unix(), rec.Name),
		StartTime:   start,
		FileName:    rec.Name,
		Query:       rec.Query,
		ChangedURLs: changed,
		CurrentURLs: current,
	}
	work := func(ctx context.Context, sink *taskrun.Sink) ([]string, error) {
		return m.process(ctx, sink.Logger, rec, changed, current)
	}
	err = m.runner.Start(st, work)
	if errors.Is(err, taskrun.ErrDuplicateTask) {
		st.TaskID += "_" + uuid.NewString()[:8]
		err = m.runner.Start(st, work)
	}
	if err != nil {
		return "", fmt.Errorf("process changes: %w", err)
	}
	m.log.Info("task started", "task_id", st.TaskID, "changed", len(changed), "current", len(current))
	return st.TaskID, nil
}

func (m *Manager) process(ctx context.Context, log *slog.Logger, rec descriptor.Record, changed, current []string) ([]string, error) {
	log.Info("processing task", "file_name", rec.Name, "changed", len(changed), "current", len(current))
	changes := m.fileChanges(ctx, log, rec)
	contexts := dirmap.Map(changed, current)
	dirs := make([]string, 0, len(contexts))
	for _, dc := range contexts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := m.processDirectory(ctx, log, dc, rec.Query, changes); err != nil {
			log.Error("directory failed", "dir", dc.Dir, "error", err)
			return nil, fmt.Errorf("directory %s: %w", dc.Dir, err)
		}
		dirs = append(dirs, generate.DisplayName(dc.Dir))
	}
	log.Info("task processed", "dirs", len(dirs))
	return dirs, nil
}

// fileChanges maps the correlated commit's changes to absolute paths.
func (m *Manager) fileChanges(ctx context.Context, log *slog.Logger, rec descriptor.Record) map[string]vcs.FileChange {
	if m.correlator == nil {
		return nil
	}
	changes := m.correlator.FileChanges(ctx, rec)
	if len(changes) == 0 {
		return nil
	}
	root := m.correlator.RepoRoot()
	out := make(map[string]vcs.FileChange, len(changes))
	for rel, ch := range changes {
		out[filepath.Join(root, filepath.FromSlash(rel))] = ch
	}
	log.Info("retrieved file changes", "count", len(out))
	return out
}

func (m *Manager) processDirectory(ctx context.Context, log *slog.Logger, dc dirmap.Context, query string, changes map[string]vcs.FileChange) error {
	if err := os.MkdirAll(m.docs.DirFor(dc.Dir), 0o755); err != nil {
		return err
	}
	existing, hasExisting, err := m.docs.Read(dc.Dir)
	if err != nil {
		return err
	}
	log.Info("generating document", "dir", dc.Dir, "existing", hasExisting)

	req := generate.Request{
		Context:     dc,
		Query:       query,
		Existing:    existing.Content,
		HasExisting: hasExisting,
		Changes:     m.changesFor(dc, changes),
	}
	content, err := m.gen.Generate(ctx, req)
	if err != nil {
		return err
	}
	p, err := m.docs.Write(dc.Dir, content)
	if err != nil {
		return err
	}
	log.Info("document updated", "dir", dc.Dir, "path", p)
	return nil
}

// changesFor selects the changes of files listed in dc, keyed by the path as
// listed.
func (m *Manager) changesFor(dc dirmap.Context, changes map[string]vcs.FileChange) map[string]vcs.FileChange {
	out := map[string]vcs.FileChange{}
	if len(changes) == 0 {
		return out
	}
	for _, p := range dc.Paths() {
		if ch, ok := changes[m.docs.Resolve(p)]; ok {
			out[p] = ch
		}
	}
	return out
}

// TaskStatus returns the state of a task; unknown ids report not_found.
func (m *Manager) TaskStatus(id string) taskrun.State {
	return m.runner.Registry().Get(id)
}

// AllTasks returns every task in start order.
func (m *Manager) AllTasks() []taskrun.State {
	return m.runner.Registry().All()
}

// RunningTasks returns the tasks currently running.
func (m *Manager) RunningTasks() []taskrun.State {
	return m.runner.Registry().Running()
}

// Wait blocks until task id is terminal or ctx is done.
func (m *Manager) Wait(ctx context.Context, id string) (taskrun.State, error) {
	return m.runner.Wait(ctx, id)
}
