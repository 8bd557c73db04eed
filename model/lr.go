package model

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rushteam/admitkit/pkg/codec"
)

// LRModel 实现了逻辑回归 (Logistic Regression) 模型。
//
// 预测原理：
// 1. 线性加权求和: z = Bias + sum(Weight_i * Feature_i)
// 2. Sigmoid 变换: P = 1 / (1 + exp(-z))
//
// 最终输出值 P 代表录取（admit）类的概率，范围在 (0, 1) 之间。
type LRModel struct {
	Bias    float64            `json:"bias" yaml:"bias"`       // 偏置项 (Bias / Intercept)
	Weights map[string]float64 `json:"weights" yaml:"weights"` // 特征权重 (Weights / Coefficients)
}

// LoadLRModel 从 JSON 或 YAML 文件加载模型参数
func LoadLRModel(path string) (*LRModel, error) {
	var m LRModel
	if err := codec.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("load lr model: %w", err)
	}
	if len(m.Weights) == 0 {
		return nil, fmt.Errorf("load lr model: no weights in %s", path)
	}
	return &m, nil
}

func (m *LRModel) Name() string { return "lr" }

// Features 返回有权重的特征名（已排序）
func (m *LRModel) Features() []string {
	out := make([]string, 0, len(m.Weights))
	for k := range m.Weights {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (m *LRModel) predict(features map[string]float64) float64 {
	score := m.Bias
	for k, v := range features {
		if w, ok := m.Weights[k]; ok {
			score += w * v
		}
	}
	return 1 / (1 + math.Exp(-score))
}

func (m *LRModel) PredictProba(ctx context.Context, rows []map[string]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = m.predict(row)
	}
	return out, nil
}

var _ ProbabilisticClassifier = (*LRModel)(nil)
