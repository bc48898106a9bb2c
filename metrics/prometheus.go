// Package metrics exposes evaluation client activity to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/datar-psa/evalclient/api"
	"github.com/datar-psa/evalclient/client"
)

// PrometheusMetrics implements client.MetricsRecorder.
// It tracks request outcomes, latency and billed token usage.
type PrometheusMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
// A nil reg registers with the default Prometheus registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalclient_requests_total",
				Help: "Total number of evaluation requests by outcome.",
			},
			[]string{"status"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evalclient_request_duration_seconds",
				Help:    "Duration of evaluation requests including retries.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		tokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalclient_tokens_total",
				Help: "Tokens reported by the evaluation service.",
			},
			[]string{"type"},
		),
	}
}

// ObserveRequest counts the request and records its latency under the outcome label
func (pm *PrometheusMetrics) ObserveRequest(status string, duration time.Duration) {
	pm.requests.WithLabelValues(status).Inc()
	pm.latency.WithLabelValues(status).Observe(duration.Seconds())
}

// AddUsage adds the evaluation and prompt token counts of one response.
// Totals are derived from the two series rather than trusting total_tokens.
func (pm *PrometheusMetrics) AddUsage(usage api.Usage) {
	pm.tokens.WithLabelValues("evaluation").Add(float64(usage.EvaluationTokens))
	pm.tokens.WithLabelValues("prompt").Add(float64(usage.PromptTokens))
}

// Verify that PrometheusMetrics implements client.MetricsRecorder
var _ client.MetricsRecorder = (*PrometheusMetrics)(nil)
