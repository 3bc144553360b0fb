// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

// Package runtime implements the Shelfside extension registry: lifecycle
// management, priority-ordered activation, event notification, and
// per-extension failure isolation.
package runtime

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/shelfside/shelfside/pkg/extension"
)

// Manager owns the set of registered extensions and decides which are
// active. No error raised inside an extension hook ever escapes the
// Manager: every hook call site is independently guarded, and a failing
// hook degrades only that one extension.
//
// Manager is safe for concurrent use, but hook invocation and event
// dispatch are synchronous on the calling goroutine.
type Manager struct {
	mu   sync.RWMutex
	exts []extension.Extension
	ctx  *extension.Context
	env  string

	bus    *eventBus
	logger *slog.Logger
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for warnings and listener failures.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithEnvironment sets the environment name checked against each
// extension's Config.Conditions during activation.
func WithEnvironment(env string) ManagerOption {
	return func(m *Manager) {
		m.env = env
	}
}

// NewManager creates a manager bound to the initial host context.
func NewManager(ctx *extension.Context, opts ...ManagerOption) *Manager {
	m := &Manager{
		ctx:    ctx,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.bus = newEventBus(m.logger)
	return m
}

// Register adds an extension to the registry and mounts it. If an
// extension with the same name is already registered, it is unregistered
// first (its unmount hook runs and an unmount event fires before the new
// instance mounts).
//
// A mount hook failure is reported as EventExtensionError and does not
// fail registration. Register returns an error only for contract
// violations: a nil extension, an empty name, a nil or invalid config.
func (m *Manager) Register(ext extension.Extension) error {
	if ext == nil {
		return oops.In("runtime").Code("invalid_extension").New("extension is nil")
	}
	name := ext.Name()
	if name == "" {
		return oops.In("runtime").Code("invalid_extension").New("extension name is empty")
	}
	cfg := ext.Config()
	if cfg == nil {
		return oops.In("runtime").Code("invalid_extension").With("extension", name).New("extension config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return oops.In("runtime").Code("invalid_extension").With("extension", name).Wrap(err)
	}

	m.mu.Lock()
	var replaced extension.Extension
	for i, existing := range m.exts {
		if existing.Name() == name {
			replaced = existing
			m.exts = append(m.exts[:i], m.exts[i+1:]...)
			break
		}
	}
	m.exts = append(m.exts, ext)
	ctx := m.ctx
	m.mu.Unlock()

	if replaced != nil {
		m.logger.Debug("replacing extension", "extension", name)
		m.unmount(replaced, ctx)
	}
	m.mount(ext, ctx)
	return nil
}

// RegisterAll registers extensions sequentially. A failure in one does not
// block the rest; the combined structural errors, if any, are joined into
// the returned error.
func (m *Manager) RegisterAll(exts []extension.Extension) error {
	var errs []error
	for _, ext := range exts {
		if err := m.Register(ext); err != nil {
			m.logger.Warn("skipping invalid extension", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Unregister removes the named extension, attempting its unmount hook
// first. The extension is removed even if the hook fails. Unknown names
// are a no-op with a warning.
func (m *Manager) Unregister(name string) {
	m.mu.Lock()
	var found extension.Extension
	for i, ext := range m.exts {
		if ext.Name() == name {
			found = ext
			m.exts = append(m.exts[:i], m.exts[i+1:]...)
			break
		}
	}
	ctx := m.ctx
	m.mu.Unlock()

	if found == nil {
		m.logger.Warn("unregister: unknown extension", "extension", name)
		return
	}
	m.unmount(found, ctx)
}

// Get returns the named extension, or false if it is not registered.
func (m *Manager) Get(name string) (extension.Extension, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ext := range m.exts {
		if ext.Name() == name {
			return ext, true
		}
	}
	return nil, false
}

// All returns a snapshot of the registered extensions in registration
// order. Mutating the returned slice does not affect the registry.
func (m *Manager) All() []extension.Extension {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := make([]extension.Extension, len(m.exts))
	copy(snapshot, m.exts)
	return snapshot
}

// Active computes the active subset: enabled, condition-eligible, and
// reporting ShouldRender true for the current context. The result is
// sorted by priority descending; equal priorities keep registration order.
// An extension whose config access or ShouldRender panics is excluded and
// reported as EventExtensionError. Computed fresh on every call.
func (m *Manager) Active() []extension.Extension {
	m.mu.RLock()
	exts := make([]extension.Extension, len(m.exts))
	copy(exts, m.exts)
	ctx := m.ctx
	env := m.env
	m.mu.RUnlock()

	type candidate struct {
		ext      extension.Extension
		priority int
	}
	var active []candidate
	for _, ext := range exts {
		eligible, priority, err := m.checkActivation(ext, ctx, env)
		if err != nil {
			m.reportError(ext.Name(), err)
			continue
		}
		if eligible {
			active = append(active, candidate{ext: ext, priority: priority})
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].priority > active[j].priority
	})

	result := make([]extension.Extension, len(active))
	for i, c := range active {
		result[i] = c.ext
	}
	return result
}

// checkActivation evaluates one extension's activation predicate with
// panic recovery, so a faulty extension cannot poison the whole pass.
func (m *Manager) checkActivation(ext extension.Extension, ctx *extension.Context, env string) (eligible bool, priority int, err error) {
	defer func() {
		if r := recover(); r != nil {
			eligible = false
			err = oops.In("runtime").With("extension", ext.Name()).With("op", "activation").Errorf("panic: %v", r)
		}
	}()

	cfg := ext.Config()
	if cfg == nil || !cfg.Enabled || !cfg.EligibleIn(env) {
		return false, 0, nil
	}
	return ext.ShouldRender(ctx), cfg.Priority, nil
}

// Enable marks the named extension eligible for activation. It does not
// run any lifecycle hook. Unknown names are a no-op with a warning.
func (m *Manager) Enable(name string) { m.setEnabled(name, true) }

// Disable removes the named extension from activation without
// unregistering it. Unknown names are a no-op with a warning.
func (m *Manager) Disable(name string) { m.setEnabled(name, false) }

func (m *Manager) setEnabled(name string, enabled bool) {
	ext, ok := m.Get(name)
	if !ok {
		m.logger.Warn("enable/disable: unknown extension",
			"extension", name,
			"enabled", enabled)
		return
	}
	if cfg := ext.Config(); cfg != nil {
		cfg.Enabled = enabled
	}
}

// SetContext replaces the stored context snapshot. It runs no hooks;
// callers trigger theme/route notifications themselves when the relevant
// fields changed.
func (m *Manager) SetContext(ctx *extension.Context) {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()
}

// Context returns the current context snapshot.
func (m *Manager) Context() *extension.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ctx
}

// NotifyThemeChange invokes OnThemeChange on every registered extension,
// active or not, reporting per-extension failures independently, then
// emits a single EventThemeChanged.
func (m *Manager) NotifyThemeChange(theme string) {
	ctx := m.Context()
	for _, ext := range m.All() {
		if err := m.safeHook(ext, "theme_change", func() error {
			return ext.OnThemeChange(theme, ctx)
		}); err != nil {
			m.reportError(ext.Name(), err)
		}
	}
	m.bus.emit(Event{Kind: EventThemeChanged, Theme: theme})
}

// NotifyRouteChange invokes OnRouteChange on every registered extension,
// then emits a single EventRouteChanged.
func (m *Manager) NotifyRouteChange(route string) {
	ctx := m.Context()
	for _, ext := range m.All() {
		if err := m.safeHook(ext, "route_change", func() error {
			return ext.OnRouteChange(route, ctx)
		}); err != nil {
			m.reportError(ext.Name(), err)
		}
	}
	m.bus.emit(Event{Kind: EventRouteChanged, Route: route})
}

// Subscribe registers a listener for the given event kind and returns a
// handle for Unsubscribe. Dispatch is synchronous and in subscription
// order.
func (m *Manager) Subscribe(kind EventKind, fn ListenerFunc) SubscriptionID {
	return m.bus.subscribe(kind, fn)
}

// Unsubscribe removes a subscription. Unknown ids are a no-op.
func (m *Manager) Unsubscribe(id SubscriptionID) {
	m.bus.unsubscribe(id)
}

// Cleanup unregisters every extension (running unmount hooks and emitting
// events per extension) and drops all event listeners. Idempotent.
func (m *Manager) Cleanup() {
	for _, ext := range m.All() {
		m.Unregister(ext.Name())
	}
	m.bus.clear()
}

// mount attempts the extension's mount hook and emits the outcome.
func (m *Manager) mount(ext extension.Extension, ctx *extension.Context) {
	name := ext.Name()
	if err := m.safeHook(ext, "mount", func() error {
		return ext.OnMount(ctx)
	}); err != nil {
		m.reportError(name, err)
		return
	}
	m.logger.Debug("extension mounted", "extension", name)
	m.bus.emit(Event{Kind: EventExtensionMounted, Extension: name})
}

// unmount attempts the extension's unmount hook and emits the outcome.
// The caller has already removed the extension from the registry.
func (m *Manager) unmount(ext extension.Extension, ctx *extension.Context) {
	name := ext.Name()
	if err := m.safeHook(ext, "unmount", func() error {
		return ext.OnUnmount(ctx)
	}); err != nil {
		m.reportError(name, err)
		return
	}
	m.logger.Debug("extension unmounted", "extension", name)
	m.bus.emit(Event{Kind: EventExtensionUnmounted, Extension: name})
}

// safeHook runs a lifecycle hook, converting a panic into an error so no
// extension fault crosses the Manager boundary.
func (m *Manager) safeHook(ext extension.Extension, hook string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oops.In("runtime").With("extension", ext.Name()).With("hook", hook).Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// reportError logs an extension failure and emits EventExtensionError.
func (m *Manager) reportError(name string, err error) {
	m.logger.Warn("extension error", "extension", name, "error", err)
	m.bus.emit(Event{Kind: EventExtensionError, Extension: name, Err: err})
}

// emit publishes an event on the manager's bus. Used by the isolation
// wrapper to attribute render failures.
func (m *Manager) emit(event Event) {
	m.bus.emit(event)
}
