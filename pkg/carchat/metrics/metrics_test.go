package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Reply("summary")
	m.Reply("summary")
	m.Reply("stats")
	m.ModelCall("extract", "ok", 300*time.Millisecond)
	m.ModelCall("extract", "error", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.replies.WithLabelValues("summary")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replies.WithLabelValues("stats")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelCalls.WithLabelValues("extract", "error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Reply("summary")
		m.ModelCall("extract", "ok", time.Second)
		m.FallbackLevel(3)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.FallbackLevel(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "carchat_search_fallback_level_count 1"))
}
