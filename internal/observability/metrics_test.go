package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.PollCycle("dexscreener", "ok")
		m.CandidateSeen("token")
		m.TokenBelowThreshold()
		m.DedupHit("swap")
		m.MarkedNew("swap")
		m.StoreError("get")
		m.AlertSent("token")
		m.AlertFailed("token")
		m.UpstreamAttempt("api.example.com")
		m.UpstreamFailure("api.example.com")
		m.CacheHit("global")
		m.CacheMiss("global")
		m.WebhookDelivery("unauthorized")
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Counters(t *testing.T) {
	// two instances must not collide on registration
	m := NewMetrics("test")
	_ = NewMetrics("test")

	m.AlertSent("token")
	m.AlertSent("token")
	m.AlertFailed("swap")
	m.TokenBelowThreshold()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AlertsSent.WithLabelValues("token")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsFailed.WithLabelValues("swap")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BelowThreshold))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("")
	m.CacheHit("global")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `alertflux_cache_hits_total{namespace="global"} 1`)
}
