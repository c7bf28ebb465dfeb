package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the policy daemon
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Policy metrics
	DecisionsTotal   *prometheus.CounterVec
	DecisionDuration prometheus.Histogram
	DownloadsTotal   *prometheus.CounterVec
	ProfileSwitches  *prometheus.CounterVec
	BlocklistEntries prometheus.Gauge

	// Outbound calls (feeds, clear hook)
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for the JSON stats API
	snapshot MetricsSnapshot
	mu       sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	Decisions     int64   `json:"decisions"`
	Blocks        int64   `json:"blocks"`
	TotalDuration float64 `json:"total_duration_seconds"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewMetrics creates a collector with its own registry, so several
// instances can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "krill_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "krill_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "route"},
		),

		DecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "krill_policy_decisions_total",
				Help: "Navigation decisions by action and blocking stage",
			},
			[]string{"action", "category"},
		),
		DecisionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "krill_policy_decision_duration_seconds",
				Help:    "Time spent evaluating one navigation",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
			},
		),
		DownloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "krill_policy_downloads_total",
				Help: "Download classifications by kind",
			},
			[]string{"kind", "dangerous"},
		),
		ProfileSwitches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "krill_policy_profile_switches_total",
				Help: "Profile activations",
			},
			[]string{"profile"},
		),
		BlocklistEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "krill_policy_blocklist_entries",
				Help: "Number of blocklist entries",
			},
		),

		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "krill_service_calls_total",
				Help: "Outbound calls by service and outcome",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "krill_service_duration_seconds",
				Help:    "Outbound call duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"service", "method"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "krill_uptime_seconds",
			Help: "Daemon uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordDecision records one navigation decision
func (m *Metrics) RecordDecision(action, category string, duration time.Duration) {
	if category == "" {
		category = "none"
	}
	m.DecisionsTotal.WithLabelValues(action, category).Inc()
	m.DecisionDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.Decisions++
	m.snapshot.TotalDuration += duration.Seconds()
	if action == "block" {
		m.snapshot.Blocks++
	}
	m.mu.Unlock()
}

// RecordDownload records one download classification
func (m *Metrics) RecordDownload(kind string, dangerous bool) {
	if kind == "" {
		kind = "none"
	}
	m.DownloadsTotal.WithLabelValues(kind, strconv.FormatBool(dangerous)).Inc()
}

// RecordProfileSwitch records a profile activation
func (m *Metrics) RecordProfileSwitch(profile string) {
	m.ProfileSwitches.WithLabelValues(profile).Inc()
}

// SetBlocklistEntries sets the blocklist size gauge
func (m *Metrics) SetBlocklistEntries(count int) {
	m.BlocklistEntries.Set(float64(count))
}

// RecordServiceCall records an outbound call
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// Snapshot returns the current JSON-friendly values
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	snap := m.snapshot
	m.mu.RUnlock()

	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}
