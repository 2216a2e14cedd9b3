package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors exported by the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	MachineStatusChanges *prometheus.CounterVec
	AlertsCreated        *prometheus.CounterVec
	AlertTransitions     *prometheus.CounterVec
	MaintenanceEvents    *prometheus.CounterVec
	PushDeliveries       *prometheus.CounterVec
	SweepRuns            *prometheus.CounterVec
	EventsPublished      *prometheus.CounterVec
}

// New creates the collectors and registers them on a private registry
// together with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "machineryd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "machineryd_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		MachineStatusChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "machineryd_machine_status_changes_total",
				Help: "Machine status changes by target status",
			},
			[]string{"status", "automatic"},
		),
		AlertsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "machineryd_alerts_created_total",
				Help: "Alerts raised by type and priority",
			},
			[]string{"type", "priority"},
		),
		AlertTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "machineryd_alert_transitions_total",
				Help: "Alert lifecycle transitions by target status",
			},
			[]string{"status"},
		),
		MaintenanceEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "machineryd_maintenance_events_total",
				Help: "Scheduled maintenance lifecycle events",
			},
			[]string{"status"},
		),
		PushDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "machineryd_push_deliveries_total",
				Help: "Web push deliveries by outcome",
			},
			[]string{"outcome"},
		),
		SweepRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "machineryd_sweep_runs_total",
				Help: "Maintenance sweep runs by outcome",
			},
			[]string{"outcome"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "machineryd_events_published_total",
				Help: "Lifecycle events written to the event stream",
			},
			[]string{"type", "outcome"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.MachineStatusChanges,
		m.AlertsCreated,
		m.AlertTransitions,
		m.MaintenanceEvents,
		m.PushDeliveries,
		m.SweepRuns,
		m.EventsPublished,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) StatusChanged(status string, automatic bool) {
	if m == nil {
		return
	}
	auto := "false"
	if automatic {
		auto = "true"
	}
	m.MachineStatusChanges.WithLabelValues(status, auto).Inc()
}

func (m *Metrics) AlertCreated(alertType, priority string) {
	if m == nil {
		return
	}
	m.AlertsCreated.WithLabelValues(alertType, priority).Inc()
}

func (m *Metrics) AlertTransitioned(status string) {
	if m == nil {
		return
	}
	m.AlertTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) MaintenanceEvent(status string) {
	if m == nil {
		return
	}
	m.MaintenanceEvents.WithLabelValues(status).Inc()
}

func (m *Metrics) PushDelivered(outcome string) {
	if m == nil {
		return
	}
	m.PushDeliveries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SweepFinished(outcome string) {
	if m == nil {
		return
	}
	m.SweepRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) EventPublished(eventType, outcome string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType, outcome).Inc()
}
