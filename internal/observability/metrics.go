package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "relay"

// Metrics holds the relay's prometheus collectors. A nil *Metrics is valid
// and records nothing, which keeps tests and the CLI free of registries.
type Metrics struct {
	registry *prometheus.Registry

	// QuestionsTotal labels: endpoint (ask, room, cli), outcome (answered, ignored, invalid)
	QuestionsTotal *prometheus.CounterVec

	// FallbacksTotal labels: reason (unconfigured, transport, timeout, rate_limited, canceled)
	FallbacksTotal *prometheus.CounterVec

	// AgentDuration labels: provider, result (success, error, timeout)
	AgentDuration *prometheus.HistogramVec

	// AgentSessionsActive labels: provider
	AgentSessionsActive *prometheus.GaugeVec

	StreamPingsTotal prometheus.Counter
}

// NewMetrics creates a private registry with Go/process collectors and the relay metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		QuestionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "questions_total",
			Help:      "Questions received by the relay.",
		}, []string{"endpoint", "outcome"}),
		FallbacksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fallbacks_total",
			Help:      "Answers served by the topic responder instead of the remote agent.",
		}, []string{"reason"}),
		AgentDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "agent_duration_seconds",
			Help:      "Time spent waiting on the remote agent.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 20},
		}, []string{"provider", "result"}),
		AgentSessionsActive: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "agent_sessions_active",
			Help:      "AgentSessions currently waiting on the remote agent.",
		}, []string{"provider"}),
		StreamPingsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stream_pings_total",
			Help:      "Keepalive pings answered on the streaming transport.",
		}),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Question(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.QuestionsTotal.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) Fallback(reason string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(reason).Inc()
}

// AgentStarted marks an AgentSession live and returns the func that ends it.
func (m *Metrics) AgentStarted(provider string) func(result string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	g := m.AgentSessionsActive.WithLabelValues(provider)
	g.Inc()
	return func(result string) {
		g.Dec()
		m.AgentDuration.WithLabelValues(provider, result).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) StreamPing() {
	if m == nil {
		return
	}
	m.StreamPingsTotal.Inc()
}
