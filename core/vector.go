package core

import (
	"encoding/json"
	"sort"
)

// FeatureVector 是模型输入：有序的 特征名 -> 数值 映射。
// 顺序只影响导出结果的可复现性，不影响模型计算。
type FeatureVector struct {
	names  []string
	values map[string]float64
}

func NewFeatureVector(capacity int) *FeatureVector {
	return &FeatureVector{
		names:  make([]string, 0, capacity),
		values: make(map[string]float64, capacity),
	}
}

// Set 写入特征；新特征追加到末尾，已存在的特征原位覆盖。
func (v *FeatureVector) Set(name string, value float64) {
	if _, ok := v.values[name]; !ok {
		v.names = append(v.names, name)
	}
	v.values[name] = value
}

func (v *FeatureVector) Get(name string) (float64, bool) {
	val, ok := v.values[name]
	return val, ok
}

func (v *FeatureVector) Has(name string) bool {
	_, ok := v.values[name]
	return ok
}

// Names 返回特征名（按写入顺序）的副本。
func (v *FeatureVector) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

func (v *FeatureVector) Len() int { return len(v.names) }

// Map 返回特征字典的副本，供模型调用使用。
func (v *FeatureVector) Map() map[string]float64 {
	out := make(map[string]float64, len(v.values))
	for k, val := range v.values {
		out[k] = val
	}
	return out
}

// Values 按 names 的顺序返回数值；缺失的特征填 0。
func (v *FeatureVector) Values(names []string) []float64 {
	out := make([]float64, len(names))
	for i, n := range names {
		out[i] = v.values[n]
	}
	return out
}

// Missing 返回 required 中本向量缺失的特征名（已排序）。
func (v *FeatureVector) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := v.values[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// Select 按 required 的顺序挑出特征，返回新向量和被丢弃的多余特征名。
// 任何 required 特征缺失时返回 MissingFeatureError。
func (v *FeatureVector) Select(required []string) (*FeatureVector, []string, error) {
	if missing := v.Missing(required); len(missing) > 0 {
		return nil, nil, NewMissingFeatureError(missing)
	}
	out := NewFeatureVector(len(required))
	keep := make(map[string]struct{}, len(required))
	for _, name := range required {
		out.Set(name, v.values[name])
		keep[name] = struct{}{}
	}
	var extra []string
	for _, name := range v.names {
		if _, ok := keep[name]; !ok {
			extra = append(extra, name)
		}
	}
	return out, extra, nil
}

// Equal 比较两个向量的键集与取值（忽略顺序）。
func (v *FeatureVector) Equal(other *FeatureVector) bool {
	if v == nil || other == nil {
		return v == other
	}
	if len(v.values) != len(other.values) {
		return false
	}
	for k, val := range v.values {
		if ov, ok := other.values[k]; !ok || ov != val {
			return false
		}
	}
	return true
}

// MarshalJSON 以对象形式输出（encoding/json 会按 key 排序）。
func (v *FeatureVector) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.values)
}

// UnmarshalJSON 读取 {"name": value} 对象；顺序按 key 排序以保证可复现。
func (v *FeatureVector) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	v.names = names
	v.values = m
	return nil
}
