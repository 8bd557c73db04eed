package core

import (
	"fmt"
	"math"
	"sort"
)

// SubjectStat 是单门课程的历史统计：未挂科记录的平均分与挂科率。
type SubjectStat struct {
	MeanClean float64 `json:"mean_clean" yaml:"mean_clean"`
	FailRatio float64 `json:"fail_ratio" yaml:"fail_ratio"`
}

// SubjectStatistics 是按课程名索引的只读统计表（每个 track 一份）。
// 构造后不可修改，可在请求之间并发读取。
type SubjectStatistics struct {
	stats map[string]SubjectStat
}

// NewSubjectStatistics 复制 stats 构造只读统计表。
func NewSubjectStatistics(stats map[string]SubjectStat) (*SubjectStatistics, error) {
	copied := make(map[string]SubjectStat, len(stats))
	for name, st := range stats {
		if math.IsNaN(st.MeanClean) || math.IsInf(st.MeanClean, 0) {
			return nil, fmt.Errorf("subject %q: invalid mean_clean %v", name, st.MeanClean)
		}
		if math.IsNaN(st.FailRatio) || st.FailRatio < 0 || st.FailRatio > 1 {
			return nil, fmt.Errorf("subject %q: fail_ratio %v out of [0,1]", name, st.FailRatio)
		}
		copied[name] = st
	}
	return &SubjectStatistics{stats: copied}, nil
}

func (s *SubjectStatistics) Lookup(subject string) (SubjectStat, bool) {
	if s == nil {
		return SubjectStat{}, false
	}
	st, ok := s.stats[subject]
	return st, ok
}

func (s *SubjectStatistics) Len() int {
	if s == nil {
		return 0
	}
	return len(s.stats)
}

// Subjects 返回已知课程名（已排序）。
func (s *SubjectStatistics) Subjects() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.stats))
	for name := range s.stats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PenaltyPopulation 是历史惩罚分的非递减序列，用作排名的参考分布。
// 构造时复制并排序一次，之后每次查询 O(log n)。
type PenaltyPopulation struct {
	sorted []float64
}

// NewPenaltyPopulation 复制并排序 values；NaN 会被拒绝。
func NewPenaltyPopulation(values []float64) (*PenaltyPopulation, error) {
	sorted := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("penalty population: NaN at index %d", i)
		}
		sorted[i] = v
	}
	if !sort.Float64sAreSorted(sorted) {
		sort.Float64s(sorted)
	}
	return &PenaltyPopulation{sorted: sorted}, nil
}

func (p *PenaltyPopulation) Len() int {
	if p == nil {
		return 0
	}
	return len(p.sorted)
}

// CountAtMost 返回参考分布中 <= penalty 的个数（右偏二分插入点）。
func (p *PenaltyPopulation) CountAtMost(penalty float64) int {
	if p == nil {
		return 0
	}
	return sort.Search(len(p.sorted), func(i int) bool {
		return p.sorted[i] > penalty
	})
}

// Values 返回排序后序列的副本。
func (p *PenaltyPopulation) Values() []float64 {
	if p == nil {
		return nil
	}
	out := make([]float64, len(p.sorted))
	copy(out, p.sorted)
	return out
}
