// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shelfside/shelfside/internal/runtime"
)

// Metrics contains Prometheus metrics for the extension runtime.
type Metrics struct {
	MountsTotal   prometheus.Counter
	UnmountsTotal prometheus.Counter
	ErrorsTotal   *prometheus.CounterVec
	EventsTotal   *prometheus.CounterVec
	ActiveGauge   prometheus.Gauge
}

// NewMetrics creates and registers runtime metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MountsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shelfside_extension_mounts_total",
			Help: "Total number of extension mounts",
		}),
		UnmountsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shelfside_extension_unmounts_total",
			Help: "Total number of extension unmounts",
		}),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelfside_extension_errors_total",
				Help: "Total number of extension errors by extension",
			},
			[]string{"extension"},
		),
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelfside_runtime_events_total",
				Help: "Total number of runtime events by kind",
			},
			[]string{"kind"},
		),
		ActiveGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shelfside_extensions_active",
			Help: "Number of extensions in the active set at last observation",
		}),
	}

	reg.MustRegister(m.MountsTotal)
	reg.MustRegister(m.UnmountsTotal)
	reg.MustRegister(m.ErrorsTotal)
	reg.MustRegister(m.EventsTotal)
	reg.MustRegister(m.ActiveGauge)

	return m
}

// Observe subscribes the metrics to a manager's event bus. Every runtime
// event updates the counters; mount/unmount/error additionally refresh the
// active-set gauge. Returns the subscription ids so callers can detach.
func (m *Metrics) Observe(mgr *runtime.Manager) []runtime.SubscriptionID {
	kinds := []runtime.EventKind{
		runtime.EventExtensionMounted,
		runtime.EventExtensionUnmounted,
		runtime.EventExtensionError,
		runtime.EventThemeChanged,
		runtime.EventRouteChanged,
	}

	subs := make([]runtime.SubscriptionID, 0, len(kinds))
	for _, kind := range kinds {
		subs = append(subs, mgr.Subscribe(kind, func(event runtime.Event) {
			m.EventsTotal.WithLabelValues(string(event.Kind)).Inc()
			switch event.Kind {
			case runtime.EventExtensionMounted:
				m.MountsTotal.Inc()
			case runtime.EventExtensionUnmounted:
				m.UnmountsTotal.Inc()
			case runtime.EventExtensionError:
				m.ErrorsTotal.WithLabelValues(event.Extension).Inc()
			}
		}))
	}
	return subs
}

// RecordActive sets the active-set gauge. Called by hosts after render
// passes; the gauge is not self-updating because Active() is computed
// fresh per call.
func (m *Metrics) RecordActive(n int) {
	m.ActiveGauge.Set(float64(n))
}
