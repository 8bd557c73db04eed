package metrics

import (
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

func TestRankFallbacksCounter(t *testing.T) {
	c := RankFallbacks.WithLabelValues("metrics_test")
	before := counterValue(t, c)
	c.Inc()
	c.Inc()
	assert.Equal(t, before+2, counterValue(t, c))
}

func TestObserveStage(t *testing.T) {
	ObserveStage("metrics_test", StageDerive, time.Now().Add(-10*time.Millisecond))

	h, ok := StageDuration.WithLabelValues("metrics_test", StageDerive).(prometheus.Histogram)
	require.True(t, ok)
	var m dto.Metric
	require.NoError(t, h.Write(&m))
	assert.GreaterOrEqual(t, m.GetHistogram().GetSampleCount(), uint64(1))
	assert.Greater(t, m.GetHistogram().GetSampleSum(), 0.0)
}
