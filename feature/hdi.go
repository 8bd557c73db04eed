package feature

import "github.com/rushteam/admitkit/pkg/conv"

// defaultHDI 是各国人类发展指数（UNDP HDR 2023/2024，2022 年数据）。
// 未列出的国家取 0.0。
var defaultHDI = map[string]float64{
	"Российская Федерация":   0.821,
	"Республика Беларусь":    0.801,
	"Республика Казахстан":   0.802,
	"Республика Армения":     0.786,
	"Республика Азербайджан": 0.760,
	"Республика Молдова":     0.763,
	"Республика Узбекистан":  0.727,
	"Республика Таджикистан": 0.679,
	"Туркменистан":           0.744,
	"Киргизская Республика":  0.701,
	"Украина":                0.734,
	"Монголия":               0.741,
	"Китай":                  0.788,
	"Индия":                  0.644,
	"Вьетнам":                0.726,
	"Турция":                 0.855,
	"Иран":                   0.780,
	"Египет":                 0.728,
	"Сирия":                  0.557,
	"Афганистан":             0.462,
}

// HDITable 是 国家 -> 人类发展指数 的只读查找表，国家名按 conv.NormalizeLabel 归一化。
type HDITable struct {
	index map[string]float64
}

// NewHDITable 由 国家名 -> 指数 构建查找表。
func NewHDITable(values map[string]float64) *HDITable {
	index := make(map[string]float64, len(values))
	for country, v := range values {
		index[conv.NormalizeLabel(country)] = v
	}
	return &HDITable{index: index}
}

// DefaultHDITable 返回内置的指数表。
func DefaultHDITable() *HDITable {
	return NewHDITable(defaultHDI)
}

// Lookup 返回国家的指数；未知国家返回 0.0。
func (t *HDITable) Lookup(country string) float64 {
	if t == nil {
		return 0
	}
	return t.index[conv.NormalizeLabel(country)]
}
