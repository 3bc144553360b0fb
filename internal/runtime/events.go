// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

package runtime

import (
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventKind identifies the kind of runtime event.
type EventKind string

// The closed set of runtime event kinds.
const (
	EventExtensionMounted   EventKind = "extension_mounted"
	EventExtensionUnmounted EventKind = "extension_unmounted"
	EventExtensionError     EventKind = "extension_error"
	EventThemeChanged       EventKind = "theme_changed"
	EventRouteChanged       EventKind = "route_changed"
)

// Event is a runtime notification. Events are ephemeral: dispatched
// synchronously to current subscribers, never stored.
type Event struct {
	ID        ulid.ULID
	Kind      EventKind
	Timestamp time.Time

	// Extension names the affected extension for mount/unmount/error
	// events; empty for theme and route events.
	Extension string

	// Err carries the causing error for EventExtensionError.
	Err error

	// Theme carries the new theme variant for EventThemeChanged.
	Theme string

	// Route carries the new route for EventRouteChanged.
	Route string
}

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

func newEventID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// ListenerFunc receives dispatched events. It runs synchronously on the
// emitting goroutine; a panicking listener is recovered and logged without
// affecting other listeners or the emitter.
type ListenerFunc func(Event)

// SubscriptionID identifies a single subscription for later removal.
type SubscriptionID uint64

type listener struct {
	id SubscriptionID
	fn ListenerFunc
}

// eventBus dispatches events to subscribers by kind. It is internal to the
// Manager; subscription order is dispatch order.
type eventBus struct {
	mu        sync.Mutex
	listeners map[EventKind][]listener
	nextID    SubscriptionID
	logger    *slog.Logger
}

func newEventBus(logger *slog.Logger) *eventBus {
	return &eventBus{
		listeners: make(map[EventKind][]listener),
		nextID:    1,
		logger:    logger,
	}
}

// subscribe registers fn for events of the given kind and returns a handle
// for unsubscribe.
func (b *eventBus) subscribe(kind EventKind, fn ListenerFunc) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.listeners[kind] = append(b.listeners[kind], listener{id: id, fn: fn})
	return id
}

// unsubscribe removes a subscription. Unknown ids are a no-op.
func (b *eventBus) unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for kind, subs := range b.listeners {
		for i, l := range subs {
			if l.id == id {
				b.listeners[kind] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// clear drops every subscription.
func (b *eventBus) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = make(map[EventKind][]listener)
}

// emit dispatches the event to every listener registered for its kind, in
// subscription order, on the calling goroutine. Listeners registered during
// dispatch do not see the in-flight event.
func (b *eventBus) emit(event Event) {
	event.ID = newEventID()
	event.Timestamp = time.Now()

	b.mu.Lock()
	subs := make([]listener, len(b.listeners[event.Kind]))
	copy(subs, b.listeners[event.Kind])
	b.mu.Unlock()

	for _, l := range subs {
		b.invoke(l, event)
	}
}

func (b *eventBus) invoke(l listener, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked",
				"kind", string(event.Kind),
				"subscription", uint64(l.id),
				"panic", r)
		}
	}()
	l.fn(event)
}
