package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordExtraction("updated", 2*time.Second)
	m.RecordExtraction("transport", time.Second)
	m.RecordExtraction("no_transcript", 0)
	m.RecordStoreOperation("save_context", errors.New("boom"), time.Millisecond)
	m.RecordInteraction("viewed", nil)
	m.RecordHTTPRequest("GET", "/conversations/{id}/context", 200, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractionsTotal.WithLabelValues("updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractionsTotal.WithLabelValues("no_transcript")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperationsTotal.WithLabelValues("save_context", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InteractionsTotal.WithLabelValues("viewed", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/conversations/{id}/context", "200")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordExtraction("updated", time.Second)
		m.RecordPipelineRun("ok")
		m.RecordStoreOperation("load_context", nil, time.Millisecond)
		m.RecordInteraction("viewed", nil)
		m.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
	})
}
