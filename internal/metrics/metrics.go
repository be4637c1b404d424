package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the collectors exported on /metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	WebhookAppends  *prometheus.CounterVec
	WebhookCleared  prometheus.Counter
	WebhookArchives *prometheus.CounterVec
	TailSubscribers prometheus.Gauge
}

// New registers the hooklog collectors plus Go/process collectors on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
			[]string{"method", "path", "status"},
		),
		WebhookAppends: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "hooklog_appends_total", Help: "Webhook log appends by result."},
			[]string{"result"},
		),
		WebhookCleared: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "hooklog_cleared_entries_total", Help: "Webhook log entries removed by clear."},
		),
		WebhookArchives: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "hooklog_archives_total", Help: "Archive uploads of cleared batches by result."},
			[]string{"result"},
		),
		TailSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "hooklog_tail_subscribers", Help: "Connected live tail subscribers."},
		),
	}
	m.Registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.WebhookAppends,
		m.WebhookCleared,
		m.WebhookArchives,
		m.TailSubscribers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveAppend(result string) {
	if m == nil {
		return
	}
	m.WebhookAppends.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveClear(n int) {
	if m == nil {
		return
	}
	m.WebhookCleared.Add(float64(n))
}

func (m *Metrics) ObserveArchive(result string) {
	if m == nil {
		return
	}
	m.WebhookArchives.WithLabelValues(result).Inc()
}

func (m *Metrics) SubscriberDelta(d float64) {
	if m == nil {
		return
	}
	m.TailSubscribers.Add(d)
}

func (m *Metrics) ObserveRequest(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPDuration.WithLabelValues(method, path, status).Observe(seconds)
}
