package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveInference("classify", "success", time.Second)
	m.IncRetry("classify", "network")
	m.IncCacheHit()
	m.IncCacheMiss()
	m.SetTimelineEvents(5)
	assert.NoError(t, m.Start("127.0.0.1:0"))
}

func TestCounters(t *testing.T) {
	m := New(zap.NewNop())

	m.IncCacheHit()
	m.IncCacheHit()
	m.IncCacheMiss()
	m.SetTimelineEvents(7)
	m.IncRetry("classify", "model_loading")
	m.ObserveInference("classify", "success", 100*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.cacheHits), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.cacheMisses), 1e-9)
	assert.InDelta(t, 7, testutil.ToFloat64(m.timelineEvents), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.inferenceRetries.WithLabelValues("classify", "model_loading")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.inferenceRequests.WithLabelValues("classify", "success")), 1e-9)
}
