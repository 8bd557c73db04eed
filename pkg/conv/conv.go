// Package conv 提供输入字段的宽松转换工具：表单/表格里的字符串 -> 数值、标签归一化等。
package conv

import (
	"math"
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ToFloat64 将 any 转为 float64。
// 支持所有数值类型和数字字符串；bool 视为 1.0/0.0；NaN/Inf 视为失败。
func ToFloat64(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if s, ok := v.(string); ok {
		return ParseFloat(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseFloat 解析数字字符串，允许首尾空白与逗号小数点（"4,5"）。
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.Replace(s, ",", ".", 1)
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseInt 解析整数字符串；"3.0" 这类带小数的值按截断处理。
// 超出 int32 范围的值视为无法解析。
func ParseInt(s string) (int, bool) {
	f, ok := ParseFloat(s)
	if !ok || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// ParseFlag 解析 0/1 标志。表单复选框提交 on/off，JSON 可能提交 true/false。
// 非零数字视为 1。
func ParseFlag(s string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "да":
		return 1, true
	case "off", "false", "no", "нет":
		return 0, true
	}
	f, ok := ParseFloat(s)
	if !ok {
		return 0, false
	}
	if f != 0 {
		return 1, true
	}
	return 0, true
}

var labelFolder = cases.Fold()

// NormalizeLabel 归一化分类标签用于比较：NFC、去首尾空白、合并内部空白、大小写折叠、ё -> е。
func NormalizeLabel(s string) string {
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	s = labelFolder.String(s)
	return strings.ReplaceAll(s, "ё", "е")
}

// ConfigGet 从 map[string]any（如 YAML/JSON 解析结果）按 key 取 T，取不到或类型不符时返回 defaultVal。
func ConfigGet[T any](m map[string]any, key string, defaultVal T) T {
	if m == nil {
		return defaultVal
	}
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	t, ok := v.(T)
	if !ok {
		return defaultVal
	}
	return t
}

// ConfigGetFloat64 从 config 取 float64。YAML/JSON 常得到 int 或 float64，此处兼容并统一。
func ConfigGetFloat64(m map[string]any, key string, defaultVal float64) float64 {
	if m == nil {
		return defaultVal
	}
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	if f, ok := ToFloat64(v); ok {
		return f
	}
	return defaultVal
}

// ConfigGetFloatMap 从 config 取 map[string]float64，不可转换的 value 被跳过。
func ConfigGetFloatMap(m map[string]any, key string) map[string]float64 {
	raw, ok := m[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		if f, ok := ToFloat64(v); ok {
			out[k] = f
		}
	}
	return out
}
