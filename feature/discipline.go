package feature

import (
	"github.com/rushteam/admitkit/core"
	"github.com/rushteam/admitkit/pkg/conv"
)

// DisciplineSummary 是申请人既往课程的纪律记录汇总。
type DisciplineSummary struct {
	TotalRetakes int
	TotalDebts   int
	// Unparsed 是无法解析、按 0 处理的重考次数字段数
	Unparsed int
}

// SummarizeDiscipline 累加重考次数，并统计成绩标签落在欠账词表中的课程数。
// 欠账只看成绩标签，与分数字段无关（"Недопуск" 即使带分数也计入）。
func SummarizeDiscipline(subjects []core.SubjectEntry) DisciplineSummary {
	var s DisciplineSummary
	for _, subj := range subjects {
		if subj.Retakes != "" {
			if n, ok := conv.ParseInt(subj.Retakes); ok && n > 0 {
				s.TotalRetakes += n
			} else if !ok {
				s.Unparsed++
			}
		}
		if IsFailingGrade(subj.Grade) {
			s.TotalDebts++
		}
	}
	return s
}
