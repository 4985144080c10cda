// Package observability exposes Prometheus metrics for the bot.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes
const (
	OutcomeAmount   = "amount"
	OutcomeNoAmount = "no_amount"
	OutcomeError    = "error"
)

// Metrics holds all Prometheus metrics for the bot
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal       *prometheus.CounterVec
	attemptsTotal       *prometheus.CounterVec
	attemptDuration     *prometheus.HistogramVec
	preprocessFallbacks prometheus.Counter
	botConnected        prometheus.Gauge
}

// NewMetrics creates and registers all metrics on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amountbot_requests_total",
				Help: "Total number of processed images by outcome",
			},
			[]string{"source", "outcome"},
		),
		attemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amountbot_recognition_attempts_total",
				Help: "Total number of recognition attempts by profile and outcome",
			},
			[]string{"profile", "outcome"},
		),
		attemptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "amountbot_recognition_duration_seconds",
				Help:    "Recognition attempt latency in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"profile"},
		),
		preprocessFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "amountbot_preprocess_fallbacks_total",
				Help: "Times preprocessing failed and the original image was used",
			},
		),
		botConnected: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "amountbot_discord_connected",
				Help: "1 while the Discord session is open",
			},
		),
	}
}

// ObserveAttempt records one recognition attempt
func (m *Metrics) ObserveAttempt(profile, outcome string, duration time.Duration) {
	m.attemptsTotal.WithLabelValues(profile, outcome).Inc()
	m.attemptDuration.WithLabelValues(profile).Observe(duration.Seconds())
}

// ObserveRequest records one processed image
func (m *Metrics) ObserveRequest(source, outcome string) {
	m.requestsTotal.WithLabelValues(source, outcome).Inc()
}

// PreprocessFallback records a preprocessing failure
func (m *Metrics) PreprocessFallback() {
	m.preprocessFallbacks.Inc()
}

// SetConnected records the chat session state
func (m *Metrics) SetConnected(connected bool) {
	if connected {
		m.botConnected.Set(1)
		return
	}
	m.botConnected.Set(0)
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
