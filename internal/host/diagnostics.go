// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

package host

import (
	"sync"

	"github.com/shelfside/shelfside/internal/runtime"
)

// recentEventCap bounds the diagnostics ring buffer.
const recentEventCap = 64

// Diagnostics is an explicit, injectable handle onto a session's runtime
// events. It replaces the ambient global debug registry the web client
// used to hang off the window object: the embedding application receives
// the handle from the Provider and decides where to surface it.
type Diagnostics struct {
	mgr *runtime.Manager

	mu     sync.Mutex
	recent []runtime.Event
	counts map[runtime.EventKind]int
	subs   []runtime.SubscriptionID
}

// Snapshot is a point-in-time view for a debug panel.
type Snapshot struct {
	// Recent holds up to recentEventCap events, oldest first.
	Recent []runtime.Event

	// Counts tallies every event observed since the session started.
	Counts map[runtime.EventKind]int

	// Stats is the registry's current state.
	Stats runtime.Stats
}

func newDiagnostics(mgr *runtime.Manager) *Diagnostics {
	d := &Diagnostics{
		mgr:    mgr,
		counts: make(map[runtime.EventKind]int),
	}
	kinds := []runtime.EventKind{
		runtime.EventExtensionMounted,
		runtime.EventExtensionUnmounted,
		runtime.EventExtensionError,
		runtime.EventThemeChanged,
		runtime.EventRouteChanged,
	}
	for _, kind := range kinds {
		d.subs = append(d.subs, mgr.Subscribe(kind, d.observe))
	}
	return d
}

func (d *Diagnostics) observe(event runtime.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.counts[event.Kind]++
	d.recent = append(d.recent, event)
	if len(d.recent) > recentEventCap {
		d.recent = d.recent[len(d.recent)-recentEventCap:]
	}
}

// Snapshot returns a copy of the diagnostics state plus fresh registry
// stats.
func (d *Diagnostics) Snapshot() Snapshot {
	d.mu.Lock()
	recent := make([]runtime.Event, len(d.recent))
	copy(recent, d.recent)
	counts := make(map[runtime.EventKind]int, len(d.counts))
	for k, v := range d.counts {
		counts[k] = v
	}
	d.mu.Unlock()

	return Snapshot{
		Recent: recent,
		Counts: counts,
		Stats:  d.mgr.Stats(),
	}
}

// ErrorCount returns how many extension errors this session has seen.
func (d *Diagnostics) ErrorCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[runtime.EventExtensionError]
}

func (d *Diagnostics) close() {
	for _, id := range d.subs {
		d.mgr.Unsubscribe(id)
	}
	d.subs = nil
}
