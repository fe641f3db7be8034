package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveTransition("approveRequest", "ok")
	m.ObserveTransition("approveRequest", "ok")
	m.ObserveTransition("approveRequest", "conflict")
	m.SubscriptionOpened()
	m.SubscriptionOpened()
	m.SubscriptionClosed(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("approveRequest", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("approveRequest", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSubscribers))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedSubscribers))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTransition("x", "ok")
		m.ObserveAIRequest("ok")
		m.ObserveEmail("x", "ok")
		m.SubscriptionOpened()
		m.SubscriptionClosed(false)
		m.ObserveHTTP("/", "200")
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveAIRequest("ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "support_match_ai_requests_total")
}
