// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

package runtime_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfside/shelfside/internal/runtime"
	"github.com/shelfside/shelfside/pkg/errutil"
	"github.com/shelfside/shelfside/pkg/extension"
)

// fakeExt is a scriptable extension for registry tests.
type fakeExt struct {
	extension.Base

	name string
	cfg  *extension.Config

	mountErr     error
	mountPanic   bool
	unmountErr   error
	unmountPanic bool
	themeErr     error
	routeErr     error

	renderable  extension.Renderable
	renderErr   error
	renderPanic bool

	shouldRenderFn    func(*extension.Context) bool
	shouldRenderPanic bool

	mounts   int
	unmounts int
	themes   []string
	routes   []string
}

func newFakeExt(name string, priority int) *fakeExt {
	cfg := extension.DefaultConfig()
	cfg.Priority = priority
	return &fakeExt{name: name, cfg: cfg}
}

func (f *fakeExt) Name() string              { return f.name }
func (f *fakeExt) Version() string           { return "1.0.0" }
func (f *fakeExt) Config() *extension.Config { return f.cfg }

func (f *fakeExt) ShouldRender(ctx *extension.Context) bool {
	if f.shouldRenderPanic {
		panic("should_render boom")
	}
	if f.shouldRenderFn != nil {
		return f.shouldRenderFn(ctx)
	}
	return true
}

func (f *fakeExt) Render(*extension.Context) (extension.Renderable, error) {
	if f.renderPanic {
		panic("render boom")
	}
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	if f.renderable != nil {
		return f.renderable, nil
	}
	return f.name + "-output", nil
}

func (f *fakeExt) OnMount(*extension.Context) error {
	f.mounts++
	if f.mountPanic {
		panic("mount boom")
	}
	return f.mountErr
}

func (f *fakeExt) OnUnmount(*extension.Context) error {
	f.unmounts++
	if f.unmountPanic {
		panic("unmount boom")
	}
	return f.unmountErr
}

func (f *fakeExt) OnThemeChange(theme string, _ *extension.Context) error {
	f.themes = append(f.themes, theme)
	return f.themeErr
}

func (f *fakeExt) OnRouteChange(route string, _ *extension.Context) error {
	f.routes = append(f.routes, route)
	return f.routeErr
}

// collectEvents subscribes to every event kind, appending to the returned
// slice in dispatch order.
func collectEvents(m *runtime.Manager) *[]runtime.Event {
	events := &[]runtime.Event{}
	kinds := []runtime.EventKind{
		runtime.EventExtensionMounted,
		runtime.EventExtensionUnmounted,
		runtime.EventExtensionError,
		runtime.EventThemeChanged,
		runtime.EventRouteChanged,
	}
	for _, kind := range kinds {
		m.Subscribe(kind, func(e runtime.Event) {
			*events = append(*events, e)
		})
	}
	return events
}

func kindsOf(events []runtime.Event) []runtime.EventKind {
	kinds := make([]runtime.EventKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}

func activeNames(m *runtime.Manager) []string {
	active := m.Active()
	names := make([]string, len(active))
	for i, ext := range active {
		names[i] = ext.Name()
	}
	return names
}

func TestManager_Register(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})
	events := collectEvents(m)

	ext := newFakeExt("reading-progress", 0)
	require.NoError(t, m.Register(ext))

	assert.Equal(t, 1, ext.mounts)
	got, ok := m.Get("reading-progress")
	require.True(t, ok)
	assert.Same(t, ext, got)

	// Mounted event fires synchronously, before Register returns
	require.Len(t, *events, 1)
	assert.Equal(t, runtime.EventExtensionMounted, (*events)[0].Kind)
	assert.Equal(t, "reading-progress", (*events)[0].Extension)
	assert.False(t, (*events)[0].Timestamp.IsZero())
	assert.NotZero(t, (*events)[0].ID)
}

func TestManager_Register_MountFailure(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})
	events := collectEvents(m)

	ext := newFakeExt("flaky", 0)
	ext.mountErr = errors.New("mount failed")
	require.NoError(t, m.Register(ext), "mount failure must not fail registration")

	// Still registered, but reported
	_, ok := m.Get("flaky")
	assert.True(t, ok)
	require.Len(t, *events, 1)
	assert.Equal(t, runtime.EventExtensionError, (*events)[0].Kind)
	assert.Equal(t, "flaky", (*events)[0].Extension)
	assert.ErrorContains(t, (*events)[0].Err, "mount failed")
}

func TestManager_Register_MountPanic(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})
	events := collectEvents(m)

	ext := newFakeExt("panicky", 0)
	ext.mountPanic = true
	require.NoError(t, m.Register(ext))

	require.Len(t, *events, 1)
	assert.Equal(t, runtime.EventExtensionError, (*events)[0].Kind)
	assert.ErrorContains(t, (*events)[0].Err, "mount boom")
}

func TestManager_Register_ContractViolations(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})

	err := m.Register(nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "invalid_extension")

	err = m.Register(&fakeExt{name: "", cfg: extension.DefaultConfig()})
	require.Error(t, err)

	err = m.Register(&fakeExt{name: "no-config"})
	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "extension", "no-config")

	bad := newFakeExt("bad-position", 0)
	bad.cfg.Position = "center"
	require.Error(t, m.Register(bad))

	assert.Empty(t, m.All())
}

func TestManager_Register_ReplacesSameName(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})
	events := collectEvents(m)

	first := newFakeExt("notes", 1)
	second := newFakeExt("notes", 2)
	require.NoError(t, m.Register(first))
	require.NoError(t, m.Register(second))

	// Exactly one entry for the name, the new instance
	all := m.All()
	require.Len(t, all, 1)
	assert.Same(t, second, all[0].(*fakeExt))

	// Old unmounted before new mounted
	assert.Equal(t, 1, first.unmounts)
	assert.Equal(t, 1, second.mounts)
	assert.Equal(t, []runtime.EventKind{
		runtime.EventExtensionMounted,   // first
		runtime.EventExtensionUnmounted, // first replaced
		runtime.EventExtensionMounted,   // second
	}, kindsOf(*events))
}

func TestManager_Register_ReplacementProceedsWhenUnmountThrows(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})
	events := collectEvents(m)

	first := newFakeExt("stats", 1)
	first.unmountPanic = true
	second := newFakeExt("stats", 2)
	require.NoError(t, m.Register(first))
	require.NoError(t, m.Register(second))

	all := m.All()
	require.Len(t, all, 1)
	assert.Same(t, second, all[0].(*fakeExt))
	assert.Equal(t, []runtime.EventKind{
		runtime.EventExtensionMounted,
		runtime.EventExtensionError, // first's unmount panicked
		runtime.EventExtensionMounted,
	}, kindsOf(*events))
}

func TestManager_Unregister(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})
	events := collectEvents(m)

	ext := newFakeExt("shelf-filter", 0)
	require.NoError(t, m.Register(ext))
	m.Unregister("shelf-filter")

	assert.Equal(t, 1, ext.unmounts)
	assert.Empty(t, m.All())
	assert.Equal(t, []runtime.EventKind{
		runtime.EventExtensionMounted,
		runtime.EventExtensionUnmounted,
	}, kindsOf(*events))
}

func TestManager_Unregister_RemovesEvenWhenUnmountThrows(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})

	ext := newFakeExt("stubborn", 0)
	ext.unmountPanic = true
	require.NoError(t, m.Register(ext))
	m.Unregister("stubborn")

	_, ok := m.Get("stubborn")
	assert.False(t, ok, "extension must be removed even if unmount panics")
	assert.Empty(t, m.All())
}

func TestManager_Unregister_UnknownIsNoop(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})
	events := collectEvents(m)

	assert.NotPanics(t, func() { m.Unregister("nonexistent") })
	assert.Empty(t, *events)
}

func TestManager_RegisterAll_ContinuesPastInvalid(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})

	good := newFakeExt("good", 0)
	alsoGood := newFakeExt("also-good", 0)
	err := m.RegisterAll([]extension.Extension{good, nil, alsoGood})

	require.Error(t, err, "nil element should surface as a joined error")
	assert.Len(t, m.All(), 2)
}

func TestManager_All_ReturnsSnapshot(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})
	require.NoError(t, m.Register(newFakeExt("a", 0)))

	snapshot := m.All()
	snapshot[0] = nil

	all := m.All()
	require.Len(t, all, 1)
	assert.NotNil(t, all[0])
}

func TestManager_Active_PriorityOrdering(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})

	require.NoError(t, m.Register(newFakeExt("a", 10)))
	require.NoError(t, m.Register(newFakeExt("b", 20)))
	require.NoError(t, m.Register(newFakeExt("c", 20)))

	// Descending priority; ties keep registration order
	assert.Equal(t, []string{"b", "c", "a"}, activeNames(m))

	// Deterministic across repeated calls
	assert.Equal(t, []string{"b", "c", "a"}, activeNames(m))
}

func TestManager_Active_ExcludesDisabled(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})

	ext := newFakeExt("quotes", 5)
	require.NoError(t, m.Register(ext))
	m.Disable("quotes")

	assert.Len(t, m.All(), 1, "disable must not unregister")
	assert.Empty(t, m.Active())
	assert.Equal(t, 0, ext.unmounts, "disable must not run lifecycle hooks")

	m.Enable("quotes")
	assert.Equal(t, []string{"quotes"}, activeNames(m))
}

func TestManager_EnableDisable_UnknownIsNoop(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})
	require.NoError(t, m.Register(newFakeExt("only", 0)))

	assert.NotPanics(t, func() {
		m.Enable("nonexistent")
		m.Disable("nonexistent")
	})
	assert.Equal(t, []string{"only"}, activeNames(m))
}

func TestManager_Active_ExcludesShouldRenderFalse(t *testing.T) {
	m := runtime.NewManager(&extension.Context{Route: "/books"})

	ext := newFakeExt("route-bound", 0)
	ext.shouldRenderFn = func(ctx *extension.Context) bool {
		return ctx.Route == "/notes"
	}
	require.NoError(t, m.Register(ext))

	assert.Empty(t, m.Active())

	m.SetContext(&extension.Context{Route: "/notes"})
	assert.Equal(t, []string{"route-bound"}, activeNames(m))
}

func TestManager_Active_PanickingShouldRenderIsExcludedAndReported(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})

	before := newFakeExt("before", 1)
	broken := newFakeExt("broken", 10)
	broken.shouldRenderPanic = true
	after := newFakeExt("after", 0)
	require.NoError(t, m.RegisterAll([]extension.Extension{before, broken, after}))

	events := collectEvents(m)
	assert.Equal(t, []string{"before", "after"}, activeNames(m))

	require.Len(t, *events, 1)
	assert.Equal(t, runtime.EventExtensionError, (*events)[0].Kind)
	assert.Equal(t, "broken", (*events)[0].Extension)
}

func TestManager_Active_ConditionGating(t *testing.T) {
	m := runtime.NewManager(&extension.Context{}, runtime.WithEnvironment("production"))

	devOnly := newFakeExt("theme-debug", 0)
	devOnly.cfg.Conditions = map[string]bool{"production": false, "development": true}
	everywhere := newFakeExt("clock", 0)
	require.NoError(t, m.RegisterAll([]extension.Extension{devOnly, everywhere}))

	assert.Equal(t, []string{"clock"}, activeNames(m))
}

func TestManager_SetContext_RunsNoHooks(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})
	ext := newFakeExt("observer", 0)
	require.NoError(t, m.Register(ext))

	m.SetContext(&extension.Context{Theme: extension.Theme{Variant: "dark"}, Route: "/b"})

	assert.Empty(t, ext.themes)
	assert.Empty(t, ext.routes)
}

func TestManager_NotifyThemeChange(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})
	a := newFakeExt("a", 0)
	disabled := newFakeExt("b", 0)
	failing := newFakeExt("c", 0)
	failing.themeErr = errors.New("theme hook failed")
	require.NoError(t, m.RegisterAll([]extension.Extension{a, disabled, failing}))
	m.Disable("b")

	events := collectEvents(m)
	m.NotifyThemeChange("dark")

	// Every registered extension is notified, active or not
	assert.Equal(t, []string{"dark"}, a.themes)
	assert.Equal(t, []string{"dark"}, disabled.themes)
	assert.Equal(t, []string{"dark"}, failing.themes)

	// Per-extension error, then a single theme event
	require.Len(t, *events, 2)
	assert.Equal(t, runtime.EventExtensionError, (*events)[0].Kind)
	assert.Equal(t, "c", (*events)[0].Extension)
	assert.Equal(t, runtime.EventThemeChanged, (*events)[1].Kind)
	assert.Equal(t, "dark", (*events)[1].Theme)
}

func TestManager_NotifyRouteChange(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})
	a := newFakeExt("a", 0)
	require.NoError(t, m.Register(a))

	events := collectEvents(m)
	m.NotifyRouteChange("/books/42")

	assert.Equal(t, []string{"/books/42"}, a.routes)
	require.Len(t, *events, 1)
	assert.Equal(t, runtime.EventRouteChanged, (*events)[0].Kind)
	assert.Equal(t, "/books/42", (*events)[0].Route)
}

func TestManager_Stats(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})
	top := newFakeExt("top", 10)
	top.cfg.Position = extension.PositionTopRight
	require.NoError(t, m.Register(top))
	require.NoError(t, m.Register(newFakeExt("low", 1)))
	hidden := newFakeExt("hidden", 5)
	require.NoError(t, m.Register(hidden))
	m.Disable("hidden")

	stats := m.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Enabled)
	assert.Equal(t, 2, stats.Active)
	require.Len(t, stats.ActiveList, 2)
	assert.Equal(t, runtime.ActiveExtension{Name: "top", Priority: 10, Position: extension.PositionTopRight}, stats.ActiveList[0])
	assert.Equal(t, "low", stats.ActiveList[1].Name)

	// Fresh on every call
	m.Enable("hidden")
	assert.Equal(t, 3, m.Stats().Active)
}

func TestManager_Cleanup(t *testing.T) {
	m := runtime.NewManager(&extension.Context{})
	a := newFakeExt("a", 0)
	b := newFakeExt("b", 0)
	require.NoError(t, m.RegisterAll([]extension.Extension{a, b}))

	events := collectEvents(m)
	m.Cleanup()

	assert.Empty(t, m.All())
	assert.Equal(t, 1, a.unmounts)
	assert.Equal(t, 1, b.unmounts)
	assert.Equal(t, []runtime.EventKind{
		runtime.EventExtensionUnmounted,
		runtime.EventExtensionUnmounted,
	}, kindsOf(*events))

	// Listeners are cleared; later events are not delivered
	require.NoError(t, m.Register(newFakeExt("late", 0)))
	assert.Len(t, *events, 2)

	// Idempotent
	assert.NotPanics(t, func() { m.Cleanup() })
}
