package rank

import (
	"strings"

	"github.com/rushteam/admitkit/core"
	"github.com/rushteam/admitkit/pkg/conv"
)

// gradeScores 把成绩标签换算为代表性的百分制分数，仅在缺少原始分数时使用。
var gradeScores = map[string]float64{
	"5":                      90,
	"отлично":                90,
	"4":                      70,
	"хорошо":                 70,
	"3":                      50,
	"удовлетворительно":      50,
	"зачет":                  60,
	"2":                      20,
	"неудовлетворительно":    20,
	"незачет":                20,
	"недосдал":               20,
	"недопуск":               0,
	"неуважительная причина": 0,
}

// GradeScore 返回成绩标签对应的分数；标签经过 conv.NormalizeLabel 归一化。
func GradeScore(grade string) (float64, bool) {
	score, ok := gradeScores[conv.NormalizeLabel(grade)]
	return score, ok
}

// ScoresFromSubjects 从课程记录构建 课程 -> 分数 映射。
// 优先使用可解析的原始分数，否则按成绩标签换算；两者都没有的记录被跳过。
// 同名课程以最后一条为准。
func ScoresFromSubjects(subjects []core.SubjectEntry) map[string]float64 {
	scores := make(map[string]float64, len(subjects))
	for _, s := range subjects {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		if score, ok := conv.ParseFloat(s.Score); ok {
			scores[name] = score
			continue
		}
		if score, ok := GradeScore(s.Grade); ok {
			scores[name] = score
		}
	}
	return scores
}
