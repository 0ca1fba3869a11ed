// Package metrics exposes Prometheus counters for the bot and the reminder dispatcher.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "khatma"

// Metrics holds every collector, registered on its own registry
type Metrics struct {
	registry *prometheus.Registry

	WebhookUpdates    *prometheus.CounterVec
	ReminderDelivered *prometheus.CounterVec
	DispatchRuns      *prometheus.CounterVec
	DispatchDuration  prometheus.Histogram
	HTTPRequests      *prometheus.CounterVec
}

// New creates and registers the collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		WebhookUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_updates_total",
			Help:      "Telegram updates received, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		ReminderDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_deliveries_total",
			Help:      "Reminder delivery attempts, by type and status.",
		}, []string{"type", "status"}),
		DispatchRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_runs_total",
			Help:      "Reminder dispatch runs, by type and outcome.",
		}, []string{"type", "outcome"}),
		DispatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Wall time of a reminder dispatch run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status code.",
		}, []string{"route", "code"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveDispatch records one finished run. A nil receiver is a no-op.
func (m *Metrics) ObserveDispatch(kind, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.DispatchRuns.WithLabelValues(kind, outcome).Inc()
	m.DispatchDuration.Observe(took.Seconds())
}

// ObserveDelivery records one delivery attempt. A nil receiver is a no-op.
func (m *Metrics) ObserveDelivery(kind, status string) {
	if m == nil {
		return
	}
	m.ReminderDelivered.WithLabelValues(kind, status).Inc()
}

// ObserveUpdate records one inbound Telegram update. A nil receiver is a no-op.
func (m *Metrics) ObserveUpdate(kind, outcome string) {
	if m == nil {
		return
	}
	m.WebhookUpdates.WithLabelValues(kind, outcome).Inc()
}

// ObserveRequest records one served HTTP request. A nil receiver is a no-op.
func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
