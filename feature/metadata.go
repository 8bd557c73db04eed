package feature

import (
	"fmt"

	"github.com/rushteam/admitkit/pkg/codec"
)

// FeatureMetadata 是模型的特征元数据，对应训练产出的 <model>_meta.json / .yaml：
// 特征列（按顺序）与判定阈值。
type FeatureMetadata struct {
	// FeatureColumns 特征列名列表（按顺序）
	FeatureColumns []string `json:"feature_columns" yaml:"feature_columns"`
	// FeatureCount 特征数量（可选，用于校验）
	FeatureCount int `json:"feature_count,omitempty" yaml:"feature_count,omitempty"`
	// Threshold 判定阈值，概率 >= Threshold 即 admit
	Threshold float64 `json:"threshold" yaml:"threshold"`
	// ModelVersion 模型版本
	ModelVersion string `json:"model_version,omitempty" yaml:"model_version,omitempty"`
	// CreatedAt 创建时间
	CreatedAt string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// LoadFeatureMetadata 从本地 JSON/YAML 文件加载并校验特征元数据
//
// 用法：
//
//	meta, err := feature.LoadFeatureMetadata("models/rf_bak_spec_meta.json")
//	if err != nil {
//	    return err
//	}
//	fv, err := deriver.Derive(ctx, record, track, meta.FeatureColumns)
func LoadFeatureMetadata(path string) (*FeatureMetadata, error) {
	var meta FeatureMetadata
	if err := codec.DecodeFile(path, &meta); err != nil {
		return nil, fmt.Errorf("load feature metadata: %w", err)
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Validate 校验元数据：特征列非空且不重复、数量一致、阈值在 [0,1]。
func (m *FeatureMetadata) Validate() error {
	if len(m.FeatureColumns) == 0 {
		return fmt.Errorf("feature metadata: feature_columns is empty")
	}
	seen := make(map[string]struct{}, len(m.FeatureColumns))
	for _, col := range m.FeatureColumns {
		if _, ok := seen[col]; ok {
			return fmt.Errorf("feature metadata: duplicate column %q", col)
		}
		seen[col] = struct{}{}
	}
	if m.FeatureCount > 0 && m.FeatureCount != len(m.FeatureColumns) {
		return fmt.Errorf("feature metadata: feature_count %d != %d columns", m.FeatureCount, len(m.FeatureColumns))
	}
	if m.Threshold < 0 || m.Threshold > 1 {
		return fmt.Errorf("feature metadata: threshold %v out of [0,1]", m.Threshold)
	}
	return nil
}

// Unsupported 返回 Deriver 无法产出的特征列；非空说明模型与派生规则版本不匹配。
func (m *FeatureMetadata) Unsupported() []string {
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c] = struct{}{}
	}
	var out []string
	for _, col := range m.FeatureColumns {
		if _, ok := known[col]; !ok {
			out = append(out, col)
		}
	}
	return out
}
