// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

// Package host bridges a host session to the extension runtime. The
// Provider owns one Manager for the session's lifetime, forwards context
// changes into it, and produces the isolated output set the host displays.
package host

import (
	"log/slog"
	"sync"

	"github.com/shelfside/shelfside/internal/runtime"
	"github.com/shelfside/shelfside/pkg/extension"
)

// Option configures a Provider.
type Option func(*Provider)

// WithEnabledByDefault controls whether freshly registered extensions
// start enabled. When false, the provider disables each extension right
// after registering it. Default true.
func WithEnabledByDefault(enabled bool) Option {
	return func(p *Provider) {
		p.enabledByDefault = enabled
	}
}

// WithAutoCleanup controls whether Close runs the registry's Cleanup.
// Default true.
func WithAutoCleanup(auto bool) Option {
	return func(p *Provider) {
		p.autoCleanup = auto
	}
}

// WithProviderLogger sets the logger for the provider and its manager.
func WithProviderLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// Provider is the single long-lived owner of a Manager for one host
// session. Its forwarding surface mirrors the registry; its own logic is
// limited to context diffing, the enabled-by-default and auto-cleanup
// knobs, and keeping a live stats value.
type Provider struct {
	mgr    *runtime.Manager
	diag   *Diagnostics
	logger *slog.Logger

	enabledByDefault bool
	autoCleanup      bool

	mu        sync.Mutex
	stats     runtime.Stats
	lastTheme string
	lastRoute string
	closed    bool
}

// New creates a provider bound to the initial context and registers the
// initial extension batch. The manager's condition environment comes from
// ctx.App.Environment.
func New(ctx *extension.Context, exts []extension.Extension, opts ...Option) *Provider {
	p := &Provider{
		logger:           slog.Default(),
		enabledByDefault: true,
		autoCleanup:      true,
	}
	for _, opt := range opts {
		opt(p)
	}

	var env string
	if ctx != nil {
		env = ctx.App.Environment
		p.lastTheme = ctx.Theme.Variant
		p.lastRoute = ctx.Route
	}
	p.mgr = runtime.NewManager(ctx,
		runtime.WithEnvironment(env),
		runtime.WithLogger(p.logger))
	p.diag = newDiagnostics(p.mgr)

	for _, ext := range exts {
		if err := p.register(ext); err != nil {
			p.logger.Warn("skipping invalid extension", "error", err)
		}
	}
	p.refreshStats()
	return p
}

// UpdateContext pushes a new context snapshot into the registry and fires
// theme/route notifications for whichever fields actually changed. The two
// checks are independent.
func (p *Provider) UpdateContext(ctx *extension.Context) {
	p.mgr.SetContext(ctx)

	var theme, route string
	if ctx != nil {
		theme = ctx.Theme.Variant
		route = ctx.Route
	}

	p.mu.Lock()
	themeChanged := theme != p.lastTheme
	routeChanged := route != p.lastRoute
	p.lastTheme = theme
	p.lastRoute = route
	p.mu.Unlock()

	if themeChanged {
		p.mgr.NotifyThemeChange(theme)
	}
	if routeChanged {
		p.mgr.NotifyRouteChange(route)
	}
	p.refreshStats()
}

// Register adds an extension to the session, honoring the
// enabled-by-default knob.
func (p *Provider) Register(ext extension.Extension) error {
	err := p.register(ext)
	p.refreshStats()
	return err
}

func (p *Provider) register(ext extension.Extension) error {
	if err := p.mgr.Register(ext); err != nil {
		return err
	}
	if !p.enabledByDefault {
		p.mgr.Disable(ext.Name())
	}
	return nil
}

// Unregister removes the named extension from the session.
func (p *Provider) Unregister(name string) {
	p.mgr.Unregister(name)
	p.refreshStats()
}

// Enable marks the named extension eligible for activation.
func (p *Provider) Enable(name string) {
	p.mgr.Enable(name)
	p.refreshStats()
}

// Disable removes the named extension from activation.
func (p *Provider) Disable(name string) {
	p.mgr.Disable(name)
	p.refreshStats()
}

// ActiveExtensions returns the current active set in render order.
func (p *Provider) ActiveExtensions() []extension.Extension {
	return p.mgr.Active()
}

// Renders produces the ordered, isolated output set for the host. Each
// active extension renders under its own guard; a failing slot holds an
// attributed fallback.
func (p *Provider) Renders() []runtime.RenderResult {
	return runtime.RenderAll(p.mgr)
}

// Stats returns the live stats value, recomputed after every mutating
// call.
func (p *Provider) Stats() runtime.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Manager exposes the underlying registry for observers that need the
// subscription surface (metrics, diagnostics panels).
func (p *Provider) Manager() *runtime.Manager {
	return p.mgr
}

// Diagnostics returns the injectable diagnostics handle for this session.
// The embedding application decides whether and where to expose it.
func (p *Provider) Diagnostics() *Diagnostics {
	return p.diag
}

// Close tears the session down. With auto-cleanup enabled it runs the
// registry's Cleanup exactly once; further calls are no-ops.
func (p *Provider) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.diag.close()
	if p.autoCleanup {
		p.mgr.Cleanup()
	}
}

func (p *Provider) refreshStats() {
	stats := p.mgr.Stats()
	p.mu.Lock()
	p.stats = stats
	p.mu.Unlock()
}
