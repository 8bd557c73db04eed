package rank

import (
	"math"
	"sort"

	"github.com/rushteam/admitkit/core"
)

const (
	// DefaultExponent 是惩罚分的幂次 p
	DefaultExponent = 2.0
	// DefaultFailThreshold 以下（百分制）视为接近挂科
	DefaultFailThreshold = 40.0
	// epsilon 避免挂科率为 0 时除零
	epsilon = 1e-6
)

// Estimator 计算"幂惩罚分"（power penalty score）并把它换算为参考分布中的名次。
//
// 每门同时出现在学生成绩与课程统计中的课程贡献：
//   - 分数 < 40：mean_clean^p * (1 + ln(1 / (fail_ratio + ε)))
//   - 否则：sign(mean_clean - score) * |mean_clean - score|^p * fail_ratio
//
// 惩罚分为各课程贡献的算术平均；没有匹配课程时为 0。
// 名次 = 参考分布中 <= 惩罚分的个数 + 1，惩罚越高名次越靠后。
//
// Estimator 无内部可变状态，可并发使用。
type Estimator struct {
	exponent      float64
	failThreshold float64
}

// Option 配置 Estimator
type Option func(*Estimator)

// WithExponent 设置幂次 p（默认 2.0）
func WithExponent(p float64) Option {
	return func(e *Estimator) {
		e.exponent = p
	}
}

// WithFailThreshold 设置接近挂科的分数线（默认 40）
func WithFailThreshold(threshold float64) Option {
	return func(e *Estimator) {
		e.failThreshold = threshold
	}
}

func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{
		exponent:      DefaultExponent,
		failThreshold: DefaultFailThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Estimator) Exponent() float64 { return e.exponent }

// Contribution 返回单门课程的惩罚贡献。
func (e *Estimator) Contribution(score float64, st core.SubjectStat) float64 {
	if score < e.failThreshold {
		multiplier := 1 + math.Log(1/(st.FailRatio+epsilon))
		return math.Pow(st.MeanClean, e.exponent) * multiplier
	}
	diff := st.MeanClean - score
	var sign float64
	switch {
	case diff > 0:
		sign = 1
	case diff < 0:
		sign = -1
	}
	return sign * math.Pow(math.Abs(diff), e.exponent) * st.FailRatio
}

// Penalty 计算学生的惩罚分。不在 stats 中的课程被跳过。
// 结果为 NaN/Inf 时返回 RankComputationError。
func (e *Estimator) Penalty(scores map[string]float64, stats *core.SubjectStatistics) (float64, error) {
	if stats == nil {
		return 0, &core.RankComputationError{Reason: "subject statistics not loaded"}
	}
	var (
		sum     float64
		matched int
	)
	// 按课程名顺序累加，保证同一输入的结果逐位一致
	subjects := make([]string, 0, len(scores))
	for subject := range scores {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	for _, subject := range subjects {
		st, ok := stats.Lookup(subject)
		if !ok {
			continue
		}
		sum += e.Contribution(scores[subject], st)
		matched++
	}
	if matched == 0 {
		return 0, nil
	}
	penalty := sum / float64(matched)
	if math.IsNaN(penalty) || math.IsInf(penalty, 0) {
		return 0, &core.RankComputationError{Reason: "penalty is not finite"}
	}
	return penalty, nil
}

// RankOf 把惩罚分换算为名次（>= 1）。
func (e *Estimator) RankOf(penalty float64, population *core.PenaltyPopulation) (int, error) {
	if population == nil {
		return 0, &core.RankComputationError{Reason: "penalty population not loaded"}
	}
	if math.IsNaN(penalty) {
		return 0, &core.RankComputationError{Reason: "penalty is NaN"}
	}
	return population.CountAtMost(penalty) + 1, nil
}

// Rank 计算学生在参考分布中的名次。
func (e *Estimator) Rank(scores map[string]float64, stats *core.SubjectStatistics, population *core.PenaltyPopulation) (int, error) {
	penalty, err := e.Penalty(scores, stats)
	if err != nil {
		return 0, err
	}
	return e.RankOf(penalty, population)
}
