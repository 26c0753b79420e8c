package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

func TestCompletion(t *testing.T) {
	m := newTestMetrics()

	m.Completion(OutcomeAwarded, "advanced", 50)
	m.Completion(OutcomeAwarded, "advanced", 50)
	m.Completion(OutcomeAlreadyCompleted, "advanced", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Completions.WithLabelValues(OutcomeAwarded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Completions.WithLabelValues(OutcomeAlreadyCompleted)))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.XPAwarded.WithLabelValues("advanced")))
}

func TestResetsAndRanking(t *testing.T) {
	m := newTestMetrics()

	m.Reset(ResetMonthly)
	m.Reset(ResetManual)
	m.Reset(ResetManual)
	m.RankingRead(RankingFromCache)
	m.SetBreakerState("progress-store", 1)
	m.ObserveHTTP("GET", "GET /api/v1/ranking", 200, 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resets.WithLabelValues(ResetMonthly)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Resets.WithLabelValues(ResetManual)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RankingRequests.WithLabelValues(RankingFromCache)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("progress-store")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "GET /api/v1/ranking", "200")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveOperation("complete_scenario", time.Now().Add(-10*time.Millisecond))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "playground_operation_duration_seconds"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
