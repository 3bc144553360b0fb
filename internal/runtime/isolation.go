// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

package runtime

import (
	"fmt"

	"github.com/samber/oops"

	"github.com/shelfside/shelfside/pkg/extension"
)

// Fallback is the renderable substituted for a failing extension. It is
// deliberately minimal: the host shows an attributable errored slot instead
// of a blank gap.
type Fallback struct {
	Extension string
	Err       error
}

func (f Fallback) String() string {
	return fmt.Sprintf("extension %q failed to render", f.Extension)
}

// RenderResult is one entry of the host-facing output set.
type RenderResult struct {
	Name       string
	Position   extension.Position
	Renderable extension.Renderable

	// Failed marks a slot whose renderable is a Fallback.
	Failed bool
	Err    error
}

// RenderGuard isolates a single extension's render pass. A guard starts
// clean; the first failure (returned error, panic, or a host-reported
// consumption error) moves it to failed, which is terminal for the pass.
// The next pass gets a fresh guard, so a previously failing extension
// recovers automatically.
type RenderGuard struct {
	mgr    *Manager
	ext    extension.Extension
	failed bool
}

// NewRenderGuard creates a guard for one extension and one render pass.
func NewRenderGuard(mgr *Manager, ext extension.Extension) *RenderGuard {
	return &RenderGuard{mgr: mgr, ext: ext}
}

// Failed reports whether this pass has already failed.
func (g *RenderGuard) Failed() bool { return g.failed }

// Render produces the extension's output, substituting a Fallback and
// reporting EventExtensionError if the render errors or panics.
func (g *RenderGuard) Render(ctx *extension.Context) RenderResult {
	name := g.ext.Name()
	position := g.position()

	if g.failed {
		return g.fallback(name, position, oops.In("runtime").With("extension", name).New("render pass already failed"))
	}

	renderable, err := g.renderSafe(ctx)
	if err != nil {
		return g.fail(name, position, err)
	}
	return RenderResult{Name: name, Position: position, Renderable: renderable}
}

// Fail records a host-reported failure (an error raised while consuming
// the produced renderable) and returns the fallback slot for it.
func (g *RenderGuard) Fail(err error) RenderResult {
	return g.fail(g.ext.Name(), g.position(), err)
}

func (g *RenderGuard) fail(name string, position extension.Position, err error) RenderResult {
	g.failed = true
	g.mgr.reportError(name, err)
	return g.fallback(name, position, err)
}

func (g *RenderGuard) fallback(name string, position extension.Position, err error) RenderResult {
	return RenderResult{
		Name:       name,
		Position:   position,
		Renderable: Fallback{Extension: name, Err: err},
		Failed:     true,
		Err:        err,
	}
}

// renderSafe invokes Render with panic recovery.
func (g *RenderGuard) renderSafe(ctx *extension.Context) (renderable extension.Renderable, err error) {
	defer func() {
		if r := recover(); r != nil {
			renderable = nil
			err = oops.In("runtime").With("extension", g.ext.Name()).With("op", "render").Errorf("panic: %v", r)
		}
	}()
	return g.ext.Render(ctx)
}

func (g *RenderGuard) position() extension.Position {
	if cfg := g.ext.Config(); cfg != nil && cfg.Position != "" {
		return cfg.Position
	}
	return extension.PositionInline
}

// RenderAll renders every active extension under its own fresh guard and
// returns the ordered output set. A failure in one slot never affects a
// sibling slot or the list length.
func RenderAll(m *Manager) []RenderResult {
	active := m.Active()
	ctx := m.Context()

	results := make([]RenderResult, 0, len(active))
	for _, ext := range active {
		guard := NewRenderGuard(m, ext)
		results = append(results, guard.Render(ctx))
	}
	return results
}
