// Package ingest 把外部输入（Web 表单、JSON、CSV 表格）转换为 core.ApplicantRecord / 特征表，
// 并把评分结果导出为 CSV。
package ingest

import (
	"strings"

	"github.com/rushteam/admitkit/core"
)

// 字段名与 core.ApplicantRecord 的 json tag 一致，表单、JSON、CSV 共用
const (
	FieldID            = "id"
	FieldTrack         = "education_level"
	FieldSubjectName   = "subject_name"
	FieldSubjectGrade  = "subject_grade"
	FieldSubjectScore  = "subject_score"
	FieldSubjectRetake = "subject_retakes"
)

// scalarFields 把字段名映射到 ApplicantRecord 中对应的字符串字段
var scalarFields = map[string]func(r *core.ApplicantRecord) *string{
	"priority":               func(r *core.ApplicantRecord) *string { return &r.Priority },
	"exam_score":             func(r *core.ApplicantRecord) *string { return &r.ExamScore },
	"achievement":            func(r *core.ApplicantRecord) *string { return &r.Achievement },
	"contract":               func(r *core.ApplicantRecord) *string { return &r.Contract },
	"dormitory":              func(r *core.ApplicantRecord) *string { return &r.Dormitory },
	"foreign":                func(r *core.ApplicantRecord) *string { return &r.Foreign },
	"gender":                 func(r *core.ApplicantRecord) *string { return &r.Gender },
	"age":                    func(r *core.ApplicantRecord) *string { return &r.Age },
	"years_since_graduation": func(r *core.ApplicantRecord) *string { return &r.YearsSinceGraduation },
	"city":                   func(r *core.ApplicantRecord) *string { return &r.City },
	"region":                 func(r *core.ApplicantRecord) *string { return &r.Region },
	"country":                func(r *core.ApplicantRecord) *string { return &r.Country },
	"competition":            func(r *core.ApplicantRecord) *string { return &r.Competition },
	"form":                   func(r *core.ApplicantRecord) *string { return &r.StudyForm },
	"benefit":                func(r *core.ApplicantRecord) *string { return &r.Benefit },
	"direction":              func(r *core.ApplicantRecord) *string { return &r.Direction },
	"bvi":                    func(r *core.ApplicantRecord) *string { return &r.BVI },
	"bvi_category":           func(r *core.ApplicantRecord) *string { return &r.BVICategory },
	"olympiad":               func(r *core.ApplicantRecord) *string { return &r.Olympiad },
	"level":                  func(r *core.ApplicantRecord) *string { return &r.Level },
	"institution":            func(r *core.ApplicantRecord) *string { return &r.Institution },
}

// setField 写入标量字段；未知字段返回 false。空白值视为未提供。
func setField(r *core.ApplicantRecord, name, value string) bool {
	field, ok := scalarFields[name]
	if !ok {
		return false
	}
	if value = strings.TrimSpace(value); value != "" {
		*field(r) = value
	}
	return true
}

// fieldValue 返回标量字段的当前值
func fieldValue(r *core.ApplicantRecord, name string) string {
	if field, ok := scalarFields[name]; ok {
		return *field(r)
	}
	return ""
}
