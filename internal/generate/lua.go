package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/flarebyte/active-context/internal/activedoc"
)

const (
	luaRegistrySize    = 256
	luaRegistryMaxSize = 4096
)

var errLuaTimeout = errors.New("sandbox timeout")

// Lua runs a user script in a restricted interpreter. The script sees the
// globals dir, query, existing, has_existing, changed, current and changes,
// and returns either the document markdown or a table with the fields
// header, current_change and document.
type Lua struct {
	script  string
	timeout time.Duration
}

func NewLua(script string, timeout time.Duration) *Lua {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Lua{script: script, timeout: timeout}
}

func (g *Lua) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	L := newSandboxState()
	defer L.Close()
	L.SetContext(ctx)
	setRequestGlobals(L, req)

	fn, err := L.LoadString(g.script)
	if err != nil {
		return "", fmt.Errorf("lua generator: %v", err)
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		if ctx.Err() != nil || isTimeoutError(err) {
			return "", fmt.Errorf("lua generator: %w", errLuaTimeout)
		}
		return "", fmt.Errorf("lua generator: %v", err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	return luaResult(ret)
}

func newSandboxState() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:     true,
		RegistrySize:     luaRegistrySize,
		RegistryMaxSize:  luaRegistryMaxSize,
		RegistryGrowStep: 32,
	})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.StringLibName, lua.OpenString},
		{lua.TabLibName, lua.OpenTable},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	// The base library exposes loaders that reach the filesystem.
	for _, name := range []string{"dofile", "loadfile", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

func setRequestGlobals(L *lua.LState, req Request) {
	L.SetGlobal("dir", lua.LString(req.Context.Dir))
	L.SetGlobal("query", lua.LString(req.Query))
	L.SetGlobal("existing", lua.LString(req.Existing))
	L.SetGlobal("has_existing", lua.LBool(req.HasExisting))

	changed := make([]any, 0, len(req.Context.Changed))
	for _, f := range req.Context.Changed {
		changed = append(changed, f.Path)
	}
	current := make([]any, 0, len(req.Context.Current))
	for _, f := range req.Context.Current {
		current = append(current, f.Path)
	}
	changes := make(map[string]any, len(req.Changes))
	for path, ch := range req.Changes {
		changes[path] = map[string]any{"before": ch.Before, "after": ch.After}
	}
	L.SetGlobal("changed", toLValue(L, changed))
	L.SetGlobal("current", toLValue(L, current))
	L.SetGlobal("changes", toLValue(L, changes))
}

func luaResult(v lua.LValue) (string, error) {
	switch x := v.(type) {
	case lua.LString:
		return string(x), nil
	case *lua.LTable:
		field := func(name string) string {
			if s, ok := x.RawGetString(name).(lua.LString); ok {
				return string(s)
			}
			return ""
		}
		return activedoc.Render(activedoc.Sections{
			Header:        field("header"),
			CurrentChange: field("current_change"),
			Document:      field("document"),
		}), nil
	default:
		return "", fmt.Errorf("lua generator: script must return a string or table, got %s", v.Type().String())
	}
}

func toLValue(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case string:
		return lua.LString(x)
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(float64(x))
	case float64:
		return lua.LNumber(x)
	case map[string]any:
		tbl := L.NewTable()
		for k, v2 := range x {
			tbl.RawSetString(k, toLValue(L, v2))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for i, v2 := range x {
			tbl.RawSetInt(i+1, toLValue(L, v2))
		}
		return tbl
	default:
		return lua.LNil
	}
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadline") || strings.Contains(msg, "context canceled")
}
