package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	RequestsByIntent    *prometheus.CounterVec
	AnswersByProducer   *prometheus.CounterVec
	GuardrailViolations prometheus.Counter
	Fallbacks           *prometheus.CounterVec
	ProviderErrors      *prometheus.CounterVec
	RequestStages       *prometheus.CounterVec
	BackendLatency      prometheus.Histogram
	ActiveConversations prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		RequestsByIntent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Handled requests by classified intent.",
		}, []string{"intent"}),
		AnswersByProducer: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Stored assistant answers by producing strategy.",
		}, []string{"producer"}),
		GuardrailViolations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guardrail_violations_total",
			Help:      "Citations produced by the backend that did not match the retrieved set.",
		}),
		Fallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Degraded-path activations by reason.",
		}, []string{"reason"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "External provider errors by provider and code.",
		}, []string{"provider", "code"}),
		RequestStages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_stages_total",
			Help:      "Request state machine transitions by stage.",
		}, []string{"stage"}),
		BackendLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_latency_ms",
			Help:      "Generation backend completion latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000, 20000},
		}),
		ActiveConversations: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Conversations currently known to the store.",
		}),
	}
}

func (m *Metrics) ObserveBackendLatency(d time.Duration) {
	m.BackendLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) ObserveStage(stage string) {
	m.RequestStages.WithLabelValues(stage).Inc()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
