package ingest

import (
	"net/url"

	"github.com/rushteam/admitkit/core"
)

// ParseTrack 从表单的 education_level 字段解析 track（接受 bak_spec / magistr 别名）。
func ParseTrack(values url.Values) (core.Track, error) {
	return core.ParseTrack(values.Get(FieldTrack))
}

// ParseForm 把 Web 表单映射为申请记录。
//
// 课程列表使用按 track 加前缀的重复字段（本科/专家 "b_"，硕士 "m_"）：
//
//	b_subject_name[]=Math&b_subject_grade[]=Отлично&b_subject_score[]=95&b_subject_retakes[]=0
//
// 各列表按下标对齐；短缺的列表项视为未提供，没有课程名的项被跳过。
func ParseForm(values url.Values, track core.Track) *core.ApplicantRecord {
	r := &core.ApplicantRecord{ID: values.Get(FieldID)}
	for name := range scalarFields {
		setField(r, name, values.Get(name))
	}

	prefix := subjectPrefix(track)
	names := values[prefix+FieldSubjectName+"[]"]
	grades := values[prefix+FieldSubjectGrade+"[]"]
	scores := values[prefix+FieldSubjectScore+"[]"]
	retakes := values[prefix+FieldSubjectRetake+"[]"]
	for i, name := range names {
		if name == "" {
			continue
		}
		r.Subjects = append(r.Subjects, core.SubjectEntry{
			Name:    name,
			Grade:   at(grades, i),
			Score:   at(scores, i),
			Retakes: at(retakes, i),
		})
	}
	return r
}

func subjectPrefix(track core.Track) string {
	if track == core.TrackGraduate {
		return "m_"
	}
	return "b_"
}

func at(list []string, i int) string {
	if i < len(list) {
		return list[i]
	}
	return ""
}
