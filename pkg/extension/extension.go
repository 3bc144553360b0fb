// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

// Package extension defines the contract every Shelfside extension
// implements: identity, configuration, lifecycle hooks, and a render
// operation. The runtime in internal/runtime calls into this contract; it
// never inspects what an extension renders.
package extension

// Renderable is the opaque output artifact produced by an extension's
// Render. The runtime forwards it to the host without inspecting it.
type Renderable any

// Extension is the interface every extension must satisfy.
//
// All lifecycle hooks are optional in spirit: embed Base to inherit no-op
// implementations and override only what the extension needs. Hooks may
// return errors or panic; the runtime recovers both and isolates the
// failure to the offending extension.
type Extension interface {
	// Name is the sole identity key. Registering a second extension with
	// the same name replaces the first (unmount then mount).
	Name() string

	// Version is informational only; the runtime never compares versions.
	Version() string

	// Config returns the extension's runtime configuration. The returned
	// pointer is live: the registry's Enable/Disable operations mutate
	// Enabled through it.
	Config() *Config

	// ShouldRender reports whether the extension wants to produce output
	// for the given context. It must not mutate the context.
	ShouldRender(ctx *Context) bool

	// Render produces the extension's output artifact.
	Render(ctx *Context) (Renderable, error)

	// OnMount is called once when the extension is registered.
	OnMount(ctx *Context) error

	// OnUnmount is called when the extension is unregistered, even if
	// OnMount previously failed.
	OnUnmount(ctx *Context) error

	// OnThemeChange is called on every registered extension when the host
	// theme changes, active or not.
	OnThemeChange(theme string, ctx *Context) error

	// OnRouteChange is called on every registered extension when the host
	// route changes, active or not.
	OnRouteChange(route string, ctx *Context) error
}

// Base provides no-op lifecycle hooks and a ShouldRender that always
// returns true. Extensions embed it so they only implement the hooks they
// care about.
type Base struct{}

// ShouldRender always returns true.
func (Base) ShouldRender(*Context) bool { return true }

// OnMount is a no-op.
func (Base) OnMount(*Context) error { return nil }

// OnUnmount is a no-op.
func (Base) OnUnmount(*Context) error { return nil }

// OnThemeChange is a no-op.
func (Base) OnThemeChange(string, *Context) error { return nil }

// OnRouteChange is a no-op.
func (Base) OnRouteChange(string, *Context) error { return nil }
