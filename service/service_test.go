package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/admitkit/config"
	"github.com/rushteam/admitkit/core"
	"github.com/rushteam/admitkit/feature"
	"github.com/rushteam/admitkit/scorer"
	"github.com/rushteam/admitkit/store"
)

var testColumns = []string{feature.ExamScore, feature.Priority, feature.PeerRank}

func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func testStats() map[string]core.SubjectStat {
	return map[string]core.SubjectStat{
		"Math": {MeanClean: 75, FailRatio: 0.1},
	}
}

// fileTrack 写出一个 source=file 的 track：p = sigmoid(0.02*exam - 4)
func fileTrack(t *testing.T) config.TrackConfig {
	t.Helper()
	dir := t.TempDir()
	return config.TrackConfig{
		Source: config.SourceFile,
		Model: config.ModelConfig{
			Type: "lr",
			Path: writeJSON(t, dir, "lr.json", map[string]any{
				"bias":    -4,
				"weights": map[string]float64{feature.ExamScore: 0.02},
			}),
		},
		Metadata: writeJSON(t, dir, "meta.json", feature.FeatureMetadata{
			FeatureColumns: testColumns,
			Threshold:      0.5,
			ModelVersion:   "v1",
		}),
		Stats:     writeJSON(t, dir, "stats.json", testStats()),
		Penalties: writeJSON(t, dir, "penalties.json", []float64{-50, 0, 100, 5000}),
	}
}

func loadBundle(t *testing.T, tc config.TrackConfig) *TrackBundle {
	t.Helper()
	b, err := NewLoader().Load(context.Background(), core.TrackUndergraduateSpecialist, tc)
	require.NoError(t, err)
	return b
}

func newTestPredictor(t *testing.T, opts ...Option) *Predictor {
	t.Helper()
	b := loadBundle(t, fileTrack(t))
	p, err := NewPredictor(append([]Option{WithBundle(b)}, opts...)...)
	require.NoError(t, err)
	return p
}

func TestLoader_FileSource(t *testing.T) {
	b := loadBundle(t, fileTrack(t))

	assert.Equal(t, core.TrackUndergraduateSpecialist, b.Track)
	assert.Equal(t, testColumns, b.Features)
	assert.Equal(t, 0.5, b.Threshold)
	assert.Equal(t, "v1", b.ModelVersion)
	assert.Equal(t, "lr", b.Classifier.Name())
	assert.Equal(t, 1, b.Reference.Stats.Len())
	assert.Equal(t, 4, b.Reference.Population.Len())
	assert.True(t, b.Rule.IsDefault())
}

func TestLoader_ThresholdOverrideAndRule(t *testing.T) {
	tc := fileTrack(t)
	threshold := 0.8
	tc.Threshold = &threshold
	tc.Rule = "probability >= threshold && features['Приоритет'] <= 3.0"

	b := loadBundle(t, tc)
	assert.Equal(t, 0.8, b.Threshold)
	assert.False(t, b.Rule.IsDefault())
}

func TestLoader_RedisSource(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()

	track := core.TrackGraduate
	require.NoError(t, store.SaveReference(ctx, s, track, testStats(), []float64{1, 2, 3}))
	meta, err := json.Marshal(feature.FeatureMetadata{FeatureColumns: testColumns, Threshold: 0.3})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, store.MetadataKey(track), meta))

	tc := fileTrack(t)
	tc.Source = config.SourceRedis
	tc.Metadata = ""

	b, err := NewLoader(WithReferenceStore(s)).Load(ctx, track, tc)
	require.NoError(t, err)
	assert.Equal(t, 0.3, b.Threshold)
	assert.Equal(t, 3, b.Reference.Population.Len())
}

func TestLoader_RedisSourceWithoutStore(t *testing.T) {
	tc := fileTrack(t)
	tc.Source = config.SourceRedis

	_, err := NewLoader().Load(context.Background(), core.TrackGraduate, tc)
	require.Error(t, err)
}

func TestLoader_UnsupportedColumns(t *testing.T) {
	tc := fileTrack(t)
	tc.Metadata = writeJSON(t, t.TempDir(), "meta.json", feature.FeatureMetadata{
		FeatureColumns: []string{feature.ExamScore, "unknown_feature"},
		Threshold:      0.5,
	})

	_, err := NewLoader().Load(context.Background(), core.TrackUndergraduateSpecialist, tc)
	require.Error(t, err)
	assert.True(t, core.IsMissingFeature(err))
}

func TestLoader_LoadAll(t *testing.T) {
	cfg := &config.Config{Tracks: map[string]config.TrackConfig{
		"bak_spec": fileTrack(t),
	}}
	bundles, err := NewLoader().LoadAll(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	assert.Equal(t, core.TrackUndergraduateSpecialist, bundles[0].Track)
}

func TestNewPredictor_NoBundles(t *testing.T) {
	_, err := NewPredictor()
	require.Error(t, err)
}

func TestPredictor_Predict(t *testing.T) {
	p := newTestPredictor(t)
	ctx := context.Background()

	admit, err := p.Predict(ctx, core.TrackUndergraduateSpecialist, &core.ApplicantRecord{ID: "a1", ExamScore: "300"})
	require.NoError(t, err)
	assert.Equal(t, "a1", admit.ApplicantID)
	assert.NotEmpty(t, admit.RequestID)
	assert.InDelta(t, 0.8808, admit.Result.Probability, 1e-4)
	assert.Equal(t, core.RecommendAdmit, admit.Result.Recommendation)
	assert.Equal(t, 88.08, admit.Percent)
	assert.Equal(t, testColumns, admit.Features.Names())
	assert.Equal(t, "lr|v1", admit.Labels["model"].Value)
	// 无课程记录时惩罚分为 0，分布中 -50 与 0 两个值不大于它
	assert.Equal(t, "3", admit.Labels["peer_rank"].Value)

	reject, err := p.Predict(ctx, core.TrackUndergraduateSpecialist, &core.ApplicantRecord{ExamScore: "100"})
	require.NoError(t, err)
	assert.InDelta(t, 0.1192, reject.Result.Probability, 1e-4)
	assert.Equal(t, core.RecommendReject, reject.Result.Recommendation)
}

func TestPredictor_UnknownTrack(t *testing.T) {
	p := newTestPredictor(t)
	_, err := p.Predict(context.Background(), core.TrackGraduate, &core.ApplicantRecord{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTrackNotLoaded))
	assert.True(t, core.IsNotFound(err))

	assert.Equal(t, []core.Track{core.TrackUndergraduateSpecialist}, p.Tracks())
	_, ok := p.Bundle(core.TrackGraduate)
	assert.False(t, ok)
}

func TestPredictor_PredictBatchPerRow(t *testing.T) {
	p := newTestPredictor(t, WithConcurrency(2))
	records := []*core.ApplicantRecord{
		{ID: "high", ExamScore: "300"},
		{ExamScore: "100"},
		{ID: "mid", ExamScore: "200"},
	}

	out, err := p.PredictBatch(context.Background(), core.TrackUndergraduateSpecialist, records)
	require.NoError(t, err)
	require.Len(t, out.Rows, 3)
	assert.Equal(t, scorer.AggregatePerRow, out.Mode)
	assert.Nil(t, out.Aggregate)
	assert.Equal(t, 0, out.Failed())

	assert.Equal(t, "high", out.Rows[0].ID)
	assert.Equal(t, "2", out.Rows[1].ID)
	assert.Equal(t, core.RecommendAdmit, out.Rows[0].Result.Recommendation)
	assert.Equal(t, core.RecommendReject, out.Rows[1].Result.Recommendation)
	assert.InDelta(t, 0.5, out.Rows[2].Result.Probability, 1e-9)
}

func TestPredictor_PredictBatchMean(t *testing.T) {
	p := newTestPredictor(t, WithBatchMode(scorer.AggregateMean))
	records := []*core.ApplicantRecord{{ExamScore: "300"}, {ExamScore: "100"}}

	out, err := p.PredictBatch(context.Background(), core.TrackUndergraduateSpecialist, records)
	require.NoError(t, err)
	require.NotNil(t, out.Aggregate)
	assert.InDelta(t, 0.5, out.Aggregate.Probability, 1e-9)
	for _, row := range out.Rows {
		assert.Nil(t, row.Result)
		assert.NoError(t, row.Err)
	}
}

func TestPredictor_PredictBatchEmpty(t *testing.T) {
	p := newTestPredictor(t)
	out, err := p.PredictBatch(context.Background(), core.TrackUndergraduateSpecialist, nil)
	require.NoError(t, err)
	assert.Empty(t, out.Rows)
}

func TestPredictor_PredictBatchCanceled(t *testing.T) {
	p := newTestPredictor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.PredictBatch(ctx, core.TrackUndergraduateSpecialist, []*core.ApplicantRecord{{}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPredictor_PredictFeaturesRowErrors(t *testing.T) {
	p := newTestPredictor(t)

	complete := core.NewFeatureVector(3)
	complete.Set(feature.ExamScore, 300)
	complete.Set(feature.Priority, 1)
	complete.Set(feature.PeerRank, 1)
	partial := core.NewFeatureVector(1)
	partial.Set(feature.ExamScore, 300)

	out, err := p.PredictFeatures(context.Background(), core.TrackUndergraduateSpecialist,
		[]string{"ok", "broken"}, []*core.FeatureVector{complete, partial})
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)

	require.NotNil(t, out.Rows[0].Result)
	assert.Equal(t, core.RecommendAdmit, out.Rows[0].Result.Recommendation)
	assert.Nil(t, out.Rows[1].Result)
	assert.True(t, core.IsMissingFeature(out.Rows[1].Err))
	assert.Equal(t, 1, out.Failed())
}

func TestPredictor_PredictFeaturesMismatchedIDs(t *testing.T) {
	p := newTestPredictor(t)
	_, err := p.PredictFeatures(context.Background(), core.TrackUndergraduateSpecialist, []string{"a"}, nil)
	require.Error(t, err)
}
