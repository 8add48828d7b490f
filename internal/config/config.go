package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
)

const (
	// DefaultDirName is the per-project state directory holding the config.
	DefaultDirName  = ".auto-coder"
	// DefaultFileName is the config file looked up when no --config is given.
	DefaultFileName = "actx.cue"

	defaultHistoryLimit  = 100
	defaultWorkers       = 4
	defaultQueueSize     = 64
	defaultGeneratorKind = "template"
	defaultGenTimeoutMs  = 60000
)

// Config is the resolved configuration of the active-context tooling.
type Config struct {
	ConfigVersion string
	SourceDir     string
	History       History
	Tasks         Tasks
	Generator     Generator
	Metrics       Metrics
}

// History controls the history scan that feeds the predictor.
type History struct {
	Limit    int
	SkipDiff bool
}

// Tasks bounds the asynchronous task pool.
type Tasks struct {
	Workers   int
	QueueSize int
}

// Generator selects and parameterizes the document generation backend.
type Generator struct {
	Kind      string
	Model     string
	Host      string
	System    string
	Script    string
	Program   string
	Args      []string
	TimeoutMs int
}

// Metrics holds optional metrics export settings.
type Metrics struct {
	Textfile string
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		History:       History{Limit: defaultHistoryLimit},
		Tasks:         Tasks{Workers: defaultWorkers, QueueSize: defaultQueueSize},
		Generator:     Generator{Kind: defaultGeneratorKind, TimeoutMs: defaultGenTimeoutMs},
	}
}

// DefaultPath returns <sourceDir>/.auto-coder/actx.cue.
func DefaultPath(sourceDir string) string {
	return filepath.Join(sourceDir, DefaultDirName, DefaultFileName)
}

// LoadOrDefault loads path when set. An empty path falls back to the default
// location under sourceDir, and a missing default file yields Default().
func LoadOrDefault(path, sourceDir string) (Config, error) {
	if path != "" {
		return Load(path)
	}
	p := DefaultPath(sourceDir)
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Load(p)
}

// Load compiles and validates a CUE config file. Required fields:
//   - configVersion: string
//
// Every other field is optional and falls back to Default().
func Load(path string) (Config, error) {
	v, err := compileCUE(path)
	if err != nil {
		return Config{}, err
	}
	if err := requireStringField(v, "configVersion"); err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := v.LookupPath(cue.ParsePath("configVersion")).Decode(&cfg.ConfigVersion); err != nil {
		return Config{}, fmt.Errorf("invalid value for configVersion: %v", err)
	}
	if !IsSupportedConfigVersion(cfg.ConfigVersion) {
		return Config{}, unsupportedVersionError(cfg.ConfigVersion)
	}
	if err := optString(v, "sourceDir", &cfg.SourceDir); err != nil {
		return Config{}, err
	}
	if err := parseHistory(v, &cfg.History); err != nil {
		return Config{}, err
	}
	if err := parseTasks(v, &cfg.Tasks); err != nil {
		return Config{}, err
	}
	if err := parseGenerator(v, &cfg.Generator); err != nil {
		return Config{}, err
	}
	if err := optString(v, "metrics.textfile", &cfg.Metrics.Textfile); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseHistory(v cue.Value, h *History) error {
	if err := optInt(v, "history.limit", &h.Limit); err != nil {
		return err
	}
	return optBool(v, "history.skipDiff", &h.SkipDiff)
}

func parseTasks(v cue.Value, t *Tasks) error {
	if err := optInt(v, "tasks.workers", &t.Workers); err != nil {
		return err
	}
	if err := optInt(v, "tasks.queueSize", &t.QueueSize); err != nil {
		return err
	}
	if t.Workers < 1 {
		return fmt.Errorf("invalid value for tasks.workers: %d (expected >= 1)", t.Workers)
	}
	if t.QueueSize < 0 {
		return fmt.Errorf("invalid value for tasks.queueSize: %d (expected >= 0)", t.QueueSize)
	}
	return nil
}

func parseGenerator(v cue.Value, g *Generator) error {
	for name, dst := range map[string]*string{
		"generator.kind":    &g.Kind,
		"generator.model":   &g.Model,
		"generator.host":    &g.Host,
		"generator.system":  &g.System,
		"generator.script":  &g.Script,
		"generator.program": &g.Program,
	} {
		if err := optString(v, name, dst); err != nil {
			return err
		}
	}
	if err := optStringList(v, "generator.args", &g.Args); err != nil {
		return err
	}
	if err := optInt(v, "generator.timeoutMs", &g.TimeoutMs); err != nil {
		return err
	}
	switch g.Kind {
	case "template", "lua", "ollama", "shell":
	default:
		return fmt.Errorf("invalid value for generator.kind: %q (expected template, lua, ollama or shell)", g.Kind)
	}
	return nil
}
