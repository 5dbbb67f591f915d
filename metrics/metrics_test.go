package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.RecordSessionStart()
		m.RecordSessionEnd("user_hangup_normal", time.Second)
		m.RecordToolCall("update_topic", "ok")
		m.RecordEngagementTrigger("random")
	})
}

func TestMetrics(t *testing.T) {
	m := New("")

	m.RecordSessionStart()
	require.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))
	m.RecordSessionEnd("transport_error", 3*time.Second)
	require.Equal(t, 0.0, testutil.ToFloat64(m.SessionsActive))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SessionsTotal.WithLabelValues("transport_error")))

	m.RecordToolCall("schedule_callback", "ok")
	m.RecordToolCall("schedule_callback", "ok")
	require.Equal(t, 2.0, testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("schedule_callback", "ok")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "lovecall_tool_calls_total")
}
