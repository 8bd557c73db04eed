package scorer

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/admitkit/core"
	"github.com/rushteam/admitkit/model"
	"github.com/rushteam/admitkit/pkg/dsl"
)

// stubProba 把特征 "p" 原样作为概率返回
type stubProba struct {
	err error
}

func (s *stubProba) Name() string { return "stub_proba" }

func (s *stubProba) PredictProba(_ context.Context, rows []map[string]float64) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r["p"]
	}
	return out, nil
}

type stubPoint struct{}

func (stubPoint) Name() string { return "stub_point" }

func (stubPoint) Predict(_ context.Context, rows []map[string]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r["p"]
	}
	return out, nil
}

func vector(values map[string]float64) *core.FeatureVector {
	fv := core.NewFeatureVector(len(values))
	for k, v := range values {
		fv.Set(k, v)
	}
	return fv
}

func TestScore_Threshold(t *testing.T) {
	s := New()
	clf := model.NewProbabilistic(&stubProba{}).WithFeatures([]string{"p"})

	tests := []struct {
		p    float64
		want core.Recommendation
	}{
		{0.49, core.RecommendReject},
		{0.5, core.RecommendAdmit},
		{0.51, core.RecommendAdmit},
	}
	for _, tt := range tests {
		res, err := s.Score(context.Background(), vector(map[string]float64{"p": tt.p, "extra": 1}), clf, 0.5)
		require.NoError(t, err)
		assert.Equal(t, tt.want, res.Recommendation, "p=%v", tt.p)
		assert.Equal(t, tt.p, res.Probability)
	}
}

func TestScore_PointPredictionFallback(t *testing.T) {
	clf := model.NewPointPrediction(stubPoint{})
	res, err := New().Score(context.Background(), vector(map[string]float64{"p": 1}), clf, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Probability)
	assert.True(t, res.Admit())

	res, err = New().Score(context.Background(), vector(map[string]float64{"p": 3.5}), clf, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Probability)
}

func TestScore_MissingFeature(t *testing.T) {
	clf := model.NewProbabilistic(&stubProba{}).WithFeatures([]string{"p", "q", "r"})
	_, err := New().Score(context.Background(), vector(map[string]float64{"p": 0.3}), clf, 0.5)
	require.Error(t, err)

	var mf *core.MissingFeatureError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, []string{"q", "r"}, mf.Features)
}

func TestScore_ModelInferenceError(t *testing.T) {
	cause := errors.New("boom")
	clf := model.NewProbabilistic(&stubProba{err: cause})
	_, err := New().Score(context.Background(), vector(map[string]float64{"p": 0.3}), clf, 0.5)
	require.Error(t, err)
	assert.True(t, core.IsModelInference(err))
	assert.ErrorIs(t, err, cause)

	// NaN 与越界概率同样视为推理失败
	for _, p := range []float64{math.NaN(), 1.2, -0.1} {
		_, err = New().Score(context.Background(), vector(map[string]float64{"p": p}), model.NewProbabilistic(&stubProba{}), 0.5)
		assert.True(t, core.IsModelInference(err), "p=%v", p)
	}

	_, err = New().Score(context.Background(), vector(nil), model.Classifier{}, 0.5)
	assert.True(t, core.IsModelInference(err))
}

func TestScore_InvalidThreshold(t *testing.T) {
	clf := model.NewProbabilistic(&stubProba{})
	for _, th := range []float64{-0.1, 1.1, math.NaN()} {
		_, err := New().Score(context.Background(), vector(map[string]float64{"p": 0.5}), clf, th)
		assert.Error(t, err)
	}
}

func TestScoreBatch_Modes(t *testing.T) {
	clf := model.NewProbabilistic(&stubProba{})
	fvs := []*core.FeatureVector{
		vector(map[string]float64{"p": 0.2}),
		vector(map[string]float64{"p": 0.4}),
		vector(map[string]float64{"p": 0.9}),
	}

	perRow, err := New().ScoreBatch(context.Background(), fvs, clf, 0.5, AggregatePerRow)
	require.NoError(t, err)
	require.Len(t, perRow, 3)
	assert.Equal(t, []core.Recommendation{core.RecommendReject, core.RecommendReject, core.RecommendAdmit},
		[]core.Recommendation{perRow[0].Recommendation, perRow[1].Recommendation, perRow[2].Recommendation})

	mean, err := New().ScoreBatch(context.Background(), fvs, clf, 0.5, AggregateMean)
	require.NoError(t, err)
	require.Len(t, mean, 1)
	assert.InDelta(t, 0.5, mean[0].Probability, 1e-12)

	_, err = New().ScoreBatch(context.Background(), nil, clf, 0.5, AggregateMean)
	assert.Error(t, err)
}

func TestScore_Rule(t *testing.T) {
	rule, err := dsl.NewRule(`probability >= threshold || features["Целевая квота"] == 1.0`)
	require.NoError(t, err)
	s := New(WithRule(rule), WithTrack(core.TrackGraduate))
	clf := model.NewProbabilistic(&stubProba{})

	res, err := s.Score(context.Background(), vector(map[string]float64{"p": 0.1, "Целевая квота": 1}), clf, 0.5)
	require.NoError(t, err)
	assert.True(t, res.Admit())

	// 规则引用了不存在的特征
	_, err = s.Score(context.Background(), vector(map[string]float64{"p": 0.1}), clf, 0.5)
	assert.Error(t, err)

	trackRule, err := dsl.NewRule(`track == "graduate" && probability >= threshold + 0.1`)
	require.NoError(t, err)
	res, err = New(WithRule(trackRule), WithTrack(core.TrackGraduate)).Score(context.Background(), vector(map[string]float64{"p": 0.55}), clf, 0.5)
	require.NoError(t, err)
	assert.False(t, res.Admit())
}

func TestParseAggregationMode(t *testing.T) {
	m, err := ParseAggregationMode("")
	require.NoError(t, err)
	assert.Equal(t, AggregatePerRow, m)

	m, err = ParseAggregationMode(" MEAN ")
	require.NoError(t, err)
	assert.Equal(t, AggregateMean, m)

	_, err = ParseAggregationMode("median")
	assert.True(t, core.IsUnparsableInput(err))
}
