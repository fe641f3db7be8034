package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters exported on /metrics
type Metrics struct {
	registry *prometheus.Registry

	Transitions        *prometheus.CounterVec
	AIRequests         *prometheus.CounterVec
	EmailsSent         *prometheus.CounterVec
	ActiveSubscribers  prometheus.Gauge
	DroppedSubscribers prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
}

// New creates the metrics on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "support_match_transitions_total",
			Help: "Request and match transitions by command and result",
		}, []string{"command", "result"}),
		AIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "support_match_ai_requests_total",
			Help: "Chat completion calls by result",
		}, []string{"result"}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "support_match_emails_total",
			Help: "Notification emails by kind and result",
		}, []string{"kind", "result"}),
		ActiveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "support_match_active_subscriptions",
			Help: "Open change subscriptions",
		}),
		DroppedSubscribers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "support_match_dropped_subscriptions_total",
			Help: "Subscriptions closed because the consumer fell behind",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "support_match_http_requests_total",
			Help: "HTTP API requests by route and status",
		}, []string{"route", "status"}),
	}

	m.registry.MustRegister(
		m.Transitions,
		m.AIRequests,
		m.EmailsSent,
		m.ActiveSubscribers,
		m.DroppedSubscribers,
		m.HTTPRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// The helpers below accept a nil receiver so callers without metrics can pass nil.

func (m *Metrics) ObserveTransition(command, result string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(command, result).Inc()
}

func (m *Metrics) ObserveAIRequest(result string) {
	if m == nil {
		return
	}
	m.AIRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveEmail(kind, result string) {
	if m == nil {
		return
	}
	m.EmailsSent.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) SubscriptionOpened() {
	if m == nil {
		return
	}
	m.ActiveSubscribers.Inc()
}

func (m *Metrics) SubscriptionClosed(dropped bool) {
	if m == nil {
		return
	}
	m.ActiveSubscribers.Dec()
	if dropped {
		m.DroppedSubscribers.Inc()
	}
}

func (m *Metrics) ObserveHTTP(route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, status).Inc()
}
