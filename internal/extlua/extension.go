// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

package extlua

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/shelfside/shelfside/internal/manifest"
	"github.com/shelfside/shelfside/pkg/extension"
)

// Compile-time interface check.
var _ extension.Extension = (*Extension)(nil)

// Lua global names the adapter looks up. All are optional except render.
const (
	fnOnMount       = "on_mount"
	fnOnUnmount     = "on_unmount"
	fnOnThemeChange = "on_theme_change"
	fnOnRouteChange = "on_route_change"
	fnShouldRender  = "should_render"
	fnRender        = "render"
)

// Extension wraps a Lua script as an extension.Extension. The script keeps
// one sandboxed state for its whole registration, so globals survive
// across hook calls.
type Extension struct {
	extension.Base

	name    string
	version string
	cfg     *extension.Config
	routes  []glob.Glob

	mu     sync.Mutex
	state  *lua.LState
	closed bool
}

// New loads the script named by the manifest's lua.entry under dir and
// returns it as an extension. The script is executed once at load time so
// its handler functions are defined; a syntax or runtime error here fails
// the load.
//
// Route patterns from the manifest use gobwas/glob with '/' as the
// segment separator: "/books/*" matches "/books/42" but not
// "/books/42/notes"; "/books/**" matches both.
func New(m *manifest.Manifest, dir string) (*Extension, error) {
	entryPath := filepath.Join(dir, m.Lua.Entry)
	code, err := os.ReadFile(filepath.Clean(entryPath))
	if err != nil {
		return nil, oops.In("extlua").With("extension", m.Name).With("path", entryPath).Hint("failed to read entry file").Wrap(err)
	}

	routes := make([]glob.Glob, 0, len(m.Routes))
	for _, pattern := range m.Routes {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, oops.In("extlua").With("extension", m.Name).With("pattern", pattern).Hint("invalid route pattern").Wrap(err)
		}
		routes = append(routes, g)
	}

	L, err := newState()
	if err != nil {
		return nil, oops.In("extlua").With("extension", m.Name).Hint("failed to create state").Wrap(err)
	}
	if err := L.DoString(string(code)); err != nil {
		L.Close()
		return nil, oops.In("extlua").With("extension", m.Name).With("entry", m.Lua.Entry).Hint("script error").Wrap(err)
	}

	return &Extension{
		name:    m.Name,
		version: m.Version,
		cfg:     m.Config(),
		routes:  routes,
		state:   L,
	}, nil
}

// Name returns the manifest name.
func (e *Extension) Name() string { return e.name }

// Version returns the manifest version.
func (e *Extension) Version() string { return e.version }

// Config returns the configuration built from the manifest.
func (e *Extension) Config() *extension.Config { return e.cfg }

// ShouldRender checks the manifest route patterns, then the script's
// should_render function if it defines one. A script error here is raised
// as a panic; the registry recovers it, reports the extension error, and
// excludes the extension from the active set.
func (e *Extension) ShouldRender(ctx *extension.Context) bool {
	if len(e.routes) > 0 {
		route := ""
		if ctx != nil {
			route = ctx.Route
		}
		matched := false
		for _, g := range e.routes {
			if g.Match(route) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	result, err := e.callPredicate(ctx)
	if err != nil {
		panic(err)
	}
	return result
}

// Render calls the script's render function and returns its result as a
// string renderable.
func (e *Extension) Render(ctx *extension.Context) (extension.Renderable, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, oops.In("extlua").With("extension", e.name).New("extension state is closed")
	}

	fn := e.state.GetGlobal(fnRender)
	if fn.Type() == lua.LTNil {
		return nil, oops.In("extlua").With("extension", e.name).New("script defines no render function")
	}

	if err := e.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, e.contextTable(ctx)); err != nil {
		return nil, oops.In("extlua").With("extension", e.name).With("fn", fnRender).Wrap(err)
	}

	ret := e.state.Get(-1)
	e.state.Pop(1)
	return ret.String(), nil
}

// OnMount calls the script's on_mount function if defined.
func (e *Extension) OnMount(ctx *extension.Context) error {
	return e.callHook(fnOnMount, e.contextArg(ctx))
}

// OnUnmount calls the script's on_unmount function if defined, then
// closes the Lua state. The extension cannot render after unmount.
func (e *Extension) OnUnmount(ctx *extension.Context) error {
	err := e.callHook(fnOnUnmount, e.contextArg(ctx))

	e.mu.Lock()
	if !e.closed {
		e.closed = true
		e.state.Close()
	}
	e.mu.Unlock()
	return err
}

// OnThemeChange calls the script's on_theme_change function if defined.
func (e *Extension) OnThemeChange(theme string, ctx *extension.Context) error {
	return e.callHook(fnOnThemeChange, lua.LString(theme), e.contextArg(ctx))
}

// OnRouteChange calls the script's on_route_change function if defined.
func (e *Extension) OnRouteChange(route string, ctx *extension.Context) error {
	return e.callHook(fnOnRouteChange, lua.LString(route), e.contextArg(ctx))
}

// callHook invokes a no-result script function. Undefined hooks are a
// no-op.
func (e *Extension) callHook(name string, args ...lua.LValue) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	fn := e.state.GetGlobal(name)
	if fn.Type() == lua.LTNil {
		return nil
	}

	if err := e.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		return oops.In("extlua").With("extension", e.name).With("fn", name).Wrap(err)
	}
	return nil
}

// callPredicate invokes should_render and interprets its result as a
// boolean. Undefined means true.
func (e *Extension) callPredicate(ctx *extension.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false, nil
	}
	fn := e.state.GetGlobal(fnShouldRender)
	if fn.Type() == lua.LTNil {
		return true, nil
	}

	if err := e.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, e.contextTable(ctx)); err != nil {
		return false, oops.In("extlua").With("extension", e.name).With("fn", fnShouldRender).Wrap(err)
	}

	ret := e.state.Get(-1)
	e.state.Pop(1)
	return lua.LVAsBool(ret), nil
}

// contextArg builds the context table for hook arguments. It takes the
// lock itself; hook callers evaluate it before locking.
func (e *Extension) contextArg(ctx *extension.Context) lua.LValue {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return lua.LNil
	}
	return e.contextTable(ctx)
}

// contextTable converts the host context to a Lua table. Scalar Values
// entries are included; nested structures are omitted.
func (e *Extension) contextTable(ctx *extension.Context) lua.LValue {
	if ctx == nil {
		return lua.LNil
	}
	L := e.state
	tbl := L.NewTable()

	theme := L.NewTable()
	L.SetField(theme, "variant", lua.LString(ctx.Theme.Variant))
	L.SetField(tbl, "theme", theme)

	L.SetField(tbl, "route", lua.LString(ctx.Route))

	if ctx.User != nil {
		user := L.NewTable()
		L.SetField(user, "id", lua.LString(ctx.User.ID))
		L.SetField(user, "display_name", lua.LString(ctx.User.DisplayName))
		L.SetField(tbl, "user", user)
	}

	app := L.NewTable()
	L.SetField(app, "name", lua.LString(ctx.App.Name))
	L.SetField(app, "version", lua.LString(ctx.App.Version))
	L.SetField(app, "environment", lua.LString(ctx.App.Environment))
	L.SetField(tbl, "app", app)

	if len(ctx.Values) > 0 {
		values := L.NewTable()
		for k, v := range ctx.Values {
			switch val := v.(type) {
			case string:
				L.SetField(values, k, lua.LString(val))
			case bool:
				L.SetField(values, k, lua.LBool(val))
			case int:
				L.SetField(values, k, lua.LNumber(val))
			case float64:
				L.SetField(values, k, lua.LNumber(val))
			}
		}
		L.SetField(tbl, "values", values)
	}

	return tbl
}
