package core

import "math"

// Recommendation 是最终的二元建议。
type Recommendation string

const (
	RecommendAdmit  Recommendation = "admit"
	RecommendReject Recommendation = "reject"
)

// ScoringResult 是一次评分的产出，创建后不再修改。
type ScoringResult struct {
	// Probability 取值 [0,1]
	Probability    float64        `json:"probability"`
	Recommendation Recommendation `json:"recommendation"`
}

// Admit 报告 Recommendation 是否为 admit。
func (r ScoringResult) Admit() bool {
	return r.Recommendation == RecommendAdmit
}

// Percent 返回百分比形式的概率，保留两位小数。
func (r ScoringResult) Percent() float64 {
	return math.Round(r.Probability*100*100) / 100
}
