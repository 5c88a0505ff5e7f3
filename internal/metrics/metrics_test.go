package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, o.(prometheus.Metric).Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestDefaultRegistry(t *testing.T) {
	assert.Same(t, DefaultRegistry(), DefaultRegistry())
}

func TestRecordRequest(t *testing.T) {
	r := NewRegistry()
	r.RecordRequest("/api/health", 200, 10*time.Millisecond)
	r.RecordRequest("/api/health", 200, 20*time.Millisecond)
	r.RecordRequest("/api/chat", 400, time.Millisecond)

	assert.Equal(t, 2.0, counterValue(t, r.RequestsTotal.WithLabelValues("/api/health", "200")))
	assert.Equal(t, 1.0, counterValue(t, r.RequestsTotal.WithLabelValues("/api/chat", "400")))
	assert.Equal(t, uint64(2), histogramCount(t, r.RequestDuration.WithLabelValues("/api/health")))
}

func TestRecordExecution(t *testing.T) {
	r := NewRegistry()
	r.RecordExecution("success", 0.01)
	r.RecordExecution("TIMEOUT_ERROR", 10)

	assert.Equal(t, 1.0, counterValue(t, r.ExecutionsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, counterValue(t, r.ExecutionsTotal.WithLabelValues("TIMEOUT_ERROR")))
}

func TestRecordIssueAndChat(t *testing.T) {
	r := NewRegistry()
	r.RecordIssue("line_too_long")
	r.RecordIssue("line_too_long")
	r.RecordChat("greeting")
	r.RecordFlowchart("problem", 5)

	assert.Equal(t, 2.0, counterValue(t, r.IssuesTotal.WithLabelValues("line_too_long")))
	assert.Equal(t, 1.0, counterValue(t, r.ChatMessagesTotal.WithLabelValues("greeting")))
	assert.Equal(t, uint64(1), histogramCount(t, r.FlowchartNodes.WithLabelValues("problem")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.RecordChat("faq")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	assert.True(t, strings.Contains(text, `codeflow_chat_messages_total{type="faq"} 1`))
	assert.Contains(t, text, "go_goroutines")
}
