package model

import (
	"context"
	"fmt"

	"github.com/rushteam/admitkit/pkg/codec"
)

// LinearModel 是只能给出点预测的线性决策函数：y = Intercept + sum(Coef_i * Feature_i)。
// Clip 为 true 时把输出截断到 [0,1]，便于直接当作概率与阈值比较。
type LinearModel struct {
	Intercept float64            `json:"intercept" yaml:"intercept"`
	Coef      map[string]float64 `json:"coef" yaml:"coef"`
	Clip      bool               `json:"clip" yaml:"clip"`
}

// LoadLinearModel 从 JSON 或 YAML 文件加载模型参数
func LoadLinearModel(path string) (*LinearModel, error) {
	var m LinearModel
	if err := codec.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("load linear model: %w", err)
	}
	if len(m.Coef) == 0 {
		return nil, fmt.Errorf("load linear model: no coef in %s", path)
	}
	return &m, nil
}

func (m *LinearModel) Name() string { return "linear" }

func (m *LinearModel) Predict(ctx context.Context, rows []map[string]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		y := m.Intercept
		for k, v := range row {
			y += m.Coef[k] * v
		}
		if m.Clip {
			y = min(max(y, 0), 1)
		}
		out[i] = y
	}
	return out, nil
}

var _ PointPredictionClassifier = (*LinearModel)(nil)
