package output

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xoelrdgz/roomwatch/internal/domain"
)

func TestPrometheusMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	internal := domain.NewPipelineMetrics()
	m := NewPrometheusMetrics("test", internal, reg)

	m.IncrementLinesProcessedByResult("event")
	m.IncrementLinesProcessedByResult("event")
	m.IncrementLinesProcessedByResult("skipped")
	m.IncrementNotifications("notify")
	m.IncrementNotifications("window")
	m.IncrementSinkErrors("transport")
	m.IncrementRotations()
	m.ObserveCycle(0.001, true)
	m.ObserveCycle(0.002, false)

	internal.IncrementLinesRead()
	internal.IncrementLinesRead()
	internal.SetCurrentFile("/logs/a.txt")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.linesByResult.WithLabelValues("event")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.linesByResult.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("window")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sinkErrors.WithLabelValues("transport")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rotations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycleFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.linesRead))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.trackingFile))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.lastSuccess))

	internal.RecordCycle(nil, time.Unix(1700000000, 0))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastSuccess))
}

func TestPrometheusMetricsServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	internal := domain.NewPipelineMetrics()
	m := NewPrometheusMetrics("roomwatch", internal, reg)
	m.IncrementRotations()

	health := NewHealthChecker(internal, DefaultHealthCheckerConfig(time.Second))
	require.NoError(t, m.StartServer(MetricsConfig{Addr: "127.0.0.1:0", HealthPath: "/ready"}, health))
	defer m.StopServer()

	addr := m.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "roomwatch_log_rotations_total 1"))

	resp, err = http.Get("http://" + addr + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestPrometheusMetricsServerBadAddr(t *testing.T) {
	m := NewPrometheusMetrics("bad", nil, prometheus.NewRegistry())
	assert.Error(t, m.StartServer(MetricsConfig{Addr: "256.0.0.1:99999"}, nil))
	assert.Empty(t, m.Addr())
	assert.NoError(t, m.StopServer())
}
