package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// compileCUE loads and compiles a CUE file at the given path.
func compileCUE(path string) (cue.Value, error) {
	if filepath.Ext(path) != ".cue" {
		return cue.Value{}, errors.New("unsupported config format: expected .cue")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("failed to read config: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("invalid config: %v", err)
	}
	return v, nil
}

func requireStringField(v cue.Value, name string) error {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return fmt.Errorf("missing required field: %s", name)
	}
	if f.Kind() != cue.StringKind {
		return fmt.Errorf("invalid type for field: %s (expected string)", name)
	}
	return nil
}

// lookupOptional returns the field and whether it is present. A present field
// of the wrong kind is an error.
func lookupOptional(v cue.Value, name string, kind cue.Kind, kindName string) (cue.Value, bool, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return cue.Value{}, false, nil
	}
	if f.Kind() != kind {
		return cue.Value{}, false, fmt.Errorf("invalid type for field: %s (expected %s)", name, kindName)
	}
	return f, true, nil
}

func optString(v cue.Value, name string, dst *string) error {
	f, ok, err := lookupOptional(v, name, cue.StringKind, "string")
	if err != nil || !ok {
		return err
	}
	if err := f.Decode(dst); err != nil {
		return fmt.Errorf("invalid value for %s: %v", name, err)
	}
	return nil
}

func optInt(v cue.Value, name string, dst *int) error {
	f, ok, err := lookupOptional(v, name, cue.IntKind, "int")
	if err != nil || !ok {
		return err
	}
	if err := f.Decode(dst); err != nil {
		return fmt.Errorf("invalid value for %s: %v", name, err)
	}
	return nil
}

func optBool(v cue.Value, name string, dst *bool) error {
	f, ok, err := lookupOptional(v, name, cue.BoolKind, "bool")
	if err != nil || !ok {
		return err
	}
	if err := f.Decode(dst); err != nil {
		return fmt.Errorf("invalid value for %s: %v", name, err)
	}
	return nil
}

func optStringList(v cue.Value, name string, dst *[]string) error {
	f, ok, err := lookupOptional(v, name, cue.ListKind, "list of strings")
	if err != nil || !ok {
		return err
	}
	var out []string
	if err := f.Decode(&out); err != nil {
		return fmt.Errorf("invalid type for field: %s (expected list of strings)", name)
	}
	*dst = out
	return nil
}
