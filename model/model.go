package model

import (
	"context"
	"fmt"
)

// ProbabilisticClassifier 输出每行属于 admit 类的概率（二分类模型的第二列）。
// 具体实现可以是本地模型（LR）或远程 RPC 模型服务。
type ProbabilisticClassifier interface {
	Name() string
	PredictProba(ctx context.Context, rows []map[string]float64) ([]float64, error)
}

// PointPredictionClassifier 只能输出点预测（类别或分数），结果直接当作概率使用。
type PointPredictionClassifier interface {
	Name() string
	Predict(ctx context.Context, rows []map[string]float64) ([]float64, error)
}

// Kind 是分类器的变体
type Kind int

const (
	KindProbabilistic Kind = iota + 1
	KindPointPrediction
)

func (k Kind) String() string {
	switch k {
	case KindProbabilistic:
		return "probabilistic"
	case KindPointPrediction:
		return "point_prediction"
	}
	return "unknown"
}

// Classifier 是显式标注变体的分类器：恰好持有一种实现。
// 打分时按 Kind 分派，不做运行时能力探测。
type Classifier struct {
	kind     Kind
	proba    ProbabilisticClassifier
	point    PointPredictionClassifier
	features []string
}

// NewProbabilistic 包装一个概率分类器
func NewProbabilistic(c ProbabilisticClassifier) Classifier {
	return Classifier{kind: KindProbabilistic, proba: c}
}

// NewPointPrediction 包装一个点预测分类器
func NewPointPrediction(c PointPredictionClassifier) Classifier {
	return Classifier{kind: KindPointPrediction, point: c}
}

// WithFeatures 返回绑定了特征列的副本；打分前会按这些列校验输入。
func (c Classifier) WithFeatures(features []string) Classifier {
	c.features = append([]string(nil), features...)
	return c
}

func (c Classifier) Kind() Kind { return c.kind }

// Features 返回模型需要的特征列（副本）
func (c Classifier) Features() []string {
	return append([]string(nil), c.features...)
}

func (c Classifier) Name() string {
	switch c.kind {
	case KindProbabilistic:
		return c.proba.Name()
	case KindPointPrediction:
		return c.point.Name()
	}
	return ""
}

// Valid 报告分类器是否持有与 Kind 对应的实现
func (c Classifier) Valid() bool {
	switch c.kind {
	case KindProbabilistic:
		return c.proba != nil
	case KindPointPrediction:
		return c.point != nil
	}
	return false
}

// Infer 按变体调用模型，返回每行的概率（点预测直接作为概率）。
func (c Classifier) Infer(ctx context.Context, rows []map[string]float64) ([]float64, error) {
	switch c.kind {
	case KindProbabilistic:
		if c.proba != nil {
			return c.proba.PredictProba(ctx, rows)
		}
	case KindPointPrediction:
		if c.point != nil {
			return c.point.Predict(ctx, rows)
		}
	}
	return nil, fmt.Errorf("classifier %s has no implementation", c.kind)
}
