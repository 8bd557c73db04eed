package utils

// Label 是评分结果的解释信息：可追踪、可透传。
// Value 与 Source 的语义由调用方决定（如 model / rule / rank）。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // derive / rank / score / rule ...
}

// MergeLabel 合并同名 Label，保留历史：
// - Value: 以 '|' 累积
// - Source: 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}

// PutLabel 向 labels 写入 Label；同名 key 按 MergeLabel 累积。nil map 会被创建。
func PutLabel(labels map[string]Label, key string, lbl Label) map[string]Label {
	if labels == nil {
		labels = make(map[string]Label)
	}
	if old, ok := labels[key]; ok {
		labels[key] = MergeLabel(old, lbl)
		return labels
	}
	labels[key] = lbl
	return labels
}
