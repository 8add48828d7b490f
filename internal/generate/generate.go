// Package generate produces the markdown of an active context document for
// one directory. Backends are selected by configuration: a deterministic
// template, a sandboxed Lua script, an Ollama model or an external program.
package generate

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/flarebyte/active-context/internal/config"
	"github.com/flarebyte/active-context/internal/dirmap"
	"github.com/flarebyte/active-context/internal/vcs"
)

const defaultTimeout = 60 * time.Second

// Request is everything known about one directory when its document is
// (re)generated.
type Request struct {
	Context     dirmap.Context
	Query       string
	Existing    string
	HasExisting bool
	// Changes holds before/after contents of the context's files touched by
	// the correlated commit, keyed by path as listed in Context.
	Changes map[string]vcs.FileChange
}

// Generator turns a Request into document markdown. The result is expected
// to follow the section contract of package activedoc but is not validated.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to the Generator interface.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Generate(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// New builds the generator selected by cfg.Kind.
func New(cfg config.Generator) (Generator, error) {
	timeout := defaultTimeout
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	switch cfg.Kind {
	case "", "template":
		return Template{}, nil
	case "lua":
		if cfg.Script == "" {
			return nil, fmt.Errorf("generator lua: missing script")
		}
		b, err := os.ReadFile(cfg.Script)
		if err != nil {
			return nil, fmt.Errorf("generator lua: %w", err)
		}
		return NewLua(string(b), timeout), nil
	case "ollama":
		return NewOllama(cfg.Host, cfg.Model, cfg.System, timeout)
	case "shell":
		return NewShell(cfg.Program, cfg.Args, timeout)
	default:
		return nil, fmt.Errorf("unknown generator kind: %s", cfg.Kind)
	}
}
