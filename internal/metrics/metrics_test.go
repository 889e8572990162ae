package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveRequest("ok")
	m.ObserveRequest("ok")
	m.ObserveRequest("token_not_found")
	m.ObserveUpstream("page", 200, 10*time.Millisecond)
	m.ObserveUpstream("graphql", 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("token_not_found")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.upstream))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("ok")
		m.ObserveUpstream("page", 200, time.Second)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRequest("ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `entryproxy_requests_total{outcome="ok"} 1`)
}
