// Package app assembles the active context components from a source
// directory and its configuration.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/flarebyte/active-context/internal/activectx"
	"github.com/flarebyte/active-context/internal/activedoc"
	"github.com/flarebyte/active-context/internal/config"
	"github.com/flarebyte/active-context/internal/descriptor"
	"github.com/flarebyte/active-context/internal/generate"
	"github.com/flarebyte/active-context/internal/history"
	"github.com/flarebyte/active-context/internal/taskrun"
	"github.com/flarebyte/active-context/internal/vcs"
)

// Options selects the project and how it is observed. An empty SourceDir
// uses config.sourceDir, then the working directory.
type Options struct {
	SourceDir  string
	ConfigPath string
	Verbose    bool
	// LogOutput receives process logs; nil means os.Stderr.
	LogOutput io.Writer
}

// App holds the wired components of one project.
type App struct {
	Config      config.Config
	SourceDir   string
	Logger      *slog.Logger
	Descriptors *descriptor.Store
	Correlator  *vcs.Correlator
	Docs        *activedoc.Store
	Runner      *taskrun.Runner
	Metrics     *taskrun.Collector
	Manager     *activectx.Manager
}

// New loads the configuration and starts the task runner. Close must be
// called to drain it.
func New(opts Options) (*App, error) {
	src := opts.SourceDir
	if src == "" {
		src = "."
	}
	cfg, err := config.LoadOrDefault(opts.ConfigPath, src)
	if err != nil {
		return nil, err
	}
	if opts.SourceDir == "" && cfg.SourceDir != "" {
		src = cfg.SourceDir
	}
	abs, err := filepath.Abs(src)
	if err != nil {
		return nil, fmt.Errorf("source dir: %w", err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("source dir is not a directory: %s", abs)
	}

	logger := newLogger(opts.LogOutput, opts.Verbose)
	if cfg.Generator.Kind == "lua" && cfg.Generator.Script != "" && !filepath.IsAbs(cfg.Generator.Script) {
		cfg.Generator.Script = filepath.Join(abs, cfg.Generator.Script)
	}
	gen, err := generate.New(cfg.Generator)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:      cfg,
		SourceDir:   abs,
		Logger:      logger,
		Descriptors: descriptor.NewStore(abs, logger),
		Correlator:  vcs.NewCorrelator(abs, vcs.Options{Logger: logger}),
		Docs:        activedoc.NewStore(abs),
		Metrics:     taskrun.NewCollector(),
	}
	a.Runner = taskrun.NewRunner(nil, taskrun.Options{
		Workers:   cfg.Tasks.Workers,
		QueueSize: cfg.Tasks.QueueSize,
		LogPath:   activectx.LogPath(abs),
		Logger:    logger,
		Metrics:   a.Metrics,
	})
	a.Manager, err = activectx.New(activectx.Options{
		SourceDir:   abs,
		Descriptors: a.Descriptors,
		Correlator:  a.Correlator,
		Docs:        a.Docs,
		Runner:      a.Runner,
		Generator:   gen,
		Logger:      logger,
	})
	if err != nil {
		a.Runner.Abort()
		return nil, err
	}
	return a, nil
}

// History returns a scanner over the last limit descriptors. limit <= 0 uses
// the configured limit. Diffs are skipped when skipDiff or history.skipDiff
// is set.
func (a *App) History(limit int, skipDiff bool) *history.Scanner {
	if limit <= 0 {
		limit = a.Config.History.Limit
	}
	var correlator *vcs.Correlator
	if !skipDiff && !a.Config.History.SkipDiff {
		correlator = a.Correlator
	}
	return history.NewScanner(a.Descriptors, correlator, limit)
}

// Close drains every accepted task, then writes the metrics textfile when
// one is configured.
func (a *App) Close() error {
	a.Runner.Close()
	p := a.Config.Metrics.Textfile
	if p == "" {
		return nil
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(a.SourceDir, p)
	}
	if err := a.Metrics.WriteTextfile(p); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
