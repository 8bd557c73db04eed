// Package metrics 定义录取风险评分服务的 Prometheus 指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admit_predictions_total",
			Help: "Total number of scored applicants by track and recommendation",
		},
		[]string{"track", "recommendation"},
	)

	PredictionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admit_prediction_errors_total",
			Help: "Total number of failed predictions by track and error code",
		},
		[]string{"track", "error_code"},
	)

	RankFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admit_peer_rank_fallbacks_total",
			Help: "Total number of peer rank computations that fell back to rank 1",
		},
		[]string{"track"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admit_stage_duration_seconds",
			Help:    "Duration of scoring stages in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"track", "stage"},
	)

	BatchRows = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admit_batch_rows",
			Help:    "Number of rows per batch prediction request",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"track"},
	)
)

// Stage 名称
const (
	StageDerive = "derive"
	StageScore  = "score"
)

// ObserveStage 记录某个阶段自 start 起的耗时
func ObserveStage(track, stage string, start time.Time) {
	StageDuration.WithLabelValues(track, stage).Observe(time.Since(start).Seconds())
}
