// Package scorer 把特征向量交给分类器，产出概率与 admit/reject 建议。
package scorer

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/rushteam/admitkit/core"
	"github.com/rushteam/admitkit/model"
	"github.com/rushteam/admitkit/pkg/dsl"
	"github.com/rushteam/admitkit/pkg/logger"
)

// AggregationMode 决定批量打分的输出形式
type AggregationMode string

const (
	// AggregatePerRow 每行一个结果
	AggregatePerRow AggregationMode = "per_row"
	// AggregateMean 对全部行的概率取算术平均，只给出一个建议
	AggregateMean AggregationMode = "mean"
)

// ParseAggregationMode 解析配置中的批量模式，空串取 AggregatePerRow。
func ParseAggregationMode(s string) (AggregationMode, error) {
	switch AggregationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", AggregatePerRow:
		return AggregatePerRow, nil
	case AggregateMean:
		return AggregateMean, nil
	}
	return "", &core.UnparsableInputError{Field: "batch.mode", Value: s}
}

// Scorer 按 track 打分。构造后只读，可并发使用。
type Scorer struct {
	track  core.Track
	rule   *dsl.Rule
	logger *zap.Logger
}

// Option 配置 Scorer
type Option func(*Scorer)

// WithRule 设置判定规则（CEL），nil 表示 probability >= threshold
func WithRule(rule *dsl.Rule) Option {
	return func(s *Scorer) {
		s.rule = rule
	}
}

// WithTrack 设置规则中可见的 track
func WithTrack(track core.Track) Option {
	return func(s *Scorer) {
		s.track = track
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Scorer) {
		s.logger = l
	}
}

func New(opts ...Option) *Scorer {
	s := &Scorer{}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.OrNop(s.logger)
	if s.rule != nil && s.rule.IsDefault() {
		s.rule = nil
	}
	return s
}

// Score 对单个申请人打分。
func (s *Scorer) Score(ctx context.Context, fv *core.FeatureVector, clf model.Classifier, threshold float64) (core.ScoringResult, error) {
	results, err := s.ScoreBatch(ctx, []*core.FeatureVector{fv}, clf, threshold, AggregatePerRow)
	if err != nil {
		return core.ScoringResult{}, err
	}
	return results[0], nil
}

// ScoreBatch 批量打分。AggregatePerRow 返回与 fvs 等长的结果；
// AggregateMean 返回一个结果，其概率为各行概率的算术平均。
// 任一行缺少模型特征时整批返回 MissingFeatureError（调用方按行隔离时应逐行调用）。
func (s *Scorer) ScoreBatch(ctx context.Context, fvs []*core.FeatureVector, clf model.Classifier, threshold float64, mode AggregationMode) ([]core.ScoringResult, error) {
	if len(fvs) == 0 {
		return nil, fmt.Errorf("score: empty batch")
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("score: threshold %v out of [0,1]", threshold)
	}
	if !clf.Valid() {
		return nil, &core.ModelInferenceError{Model: clf.Kind().String(), Cause: fmt.Errorf("classifier not configured")}
	}

	rows, err := modelRows(fvs, clf.Features())
	if err != nil {
		return nil, err
	}

	probs, err := clf.Infer(ctx, rows)
	if err != nil {
		return nil, &core.ModelInferenceError{Model: clf.Name(), Cause: err}
	}
	if len(probs) != len(rows) {
		return nil, &core.ModelInferenceError{Model: clf.Name(), Cause: fmt.Errorf("got %d predictions for %d rows", len(probs), len(rows))}
	}
	for i, p := range probs {
		if p, err = s.normalize(p, clf); err != nil {
			return nil, &core.ModelInferenceError{Model: clf.Name(), Cause: fmt.Errorf("row %d: %w", i, err)}
		}
		probs[i] = p
	}

	if mode == AggregateMean {
		var sum float64
		for _, p := range probs {
			sum += p
		}
		mean := sum / float64(len(probs))
		rec, err := s.decide(mean, threshold, nil)
		if err != nil {
			return nil, err
		}
		return []core.ScoringResult{{Probability: mean, Recommendation: rec}}, nil
	}

	results := make([]core.ScoringResult, len(probs))
	for i, p := range probs {
		rec, err := s.decide(p, threshold, rows[i])
		if err != nil {
			return nil, err
		}
		results[i] = core.ScoringResult{Probability: p, Recommendation: rec}
	}
	return results, nil
}

// modelRows 按模型特征列取出每行的输入；未绑定特征列时整向量送入模型。
func modelRows(fvs []*core.FeatureVector, features []string) ([]map[string]float64, error) {
	rows := make([]map[string]float64, len(fvs))
	for i, fv := range fvs {
		if fv == nil {
			fv = core.NewFeatureVector(0)
		}
		if len(features) == 0 {
			rows[i] = fv.Map()
			continue
		}
		selected, _, err := fv.Select(features)
		if err != nil {
			return nil, err
		}
		rows[i] = selected.Map()
	}
	return rows, nil
}

// normalize 校验模型输出。概率必须落在 [0,1]；点预测被截断到 [0,1]。
func (s *Scorer) normalize(p float64, clf model.Classifier) (float64, error) {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("prediction is not finite: %v", p)
	}
	if p >= 0 && p <= 1 {
		return p, nil
	}
	if clf.Kind() == model.KindPointPrediction {
		s.logger.Debug("clamping point prediction", zap.String("model", clf.Name()), zap.Float64("value", p))
		return min(max(p, 0), 1), nil
	}
	return 0, fmt.Errorf("probability %v out of [0,1]", p)
}

func (s *Scorer) decide(probability, threshold float64, features map[string]float64) (core.Recommendation, error) {
	admit := probability >= threshold
	if s.rule != nil {
		var err error
		admit, err = s.rule.Evaluate(probability, threshold, s.track.String(), features)
		if err != nil {
			return "", fmt.Errorf("decision rule %q: %w", s.rule.Expr(), err)
		}
	}
	if admit {
		return core.RecommendAdmit, nil
	}
	return core.RecommendReject, nil
}
