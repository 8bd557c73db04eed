package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"

	"github.com/rushteam/admitkit/core"
)

// DecodeRecord 解析 JSON 申请记录。标量字段接受字符串、数字或布尔值：
//
//	{"priority": 1, "exam_score": "245", "contract": true, "country": "Китай",
//	 "subjects": [{"name": "Math", "grade": "Отлично", "score": 95, "retakes": 0}]}
//
// 未知字段被忽略。
func DecodeRecord(data []byte) (*core.ApplicantRecord, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &core.UnparsableInputError{Field: "body", Cause: err}
	}
	return RecordFromMap(raw)
}

// RecordFromMap 把已解析的 JSON 对象映射为申请记录。
func RecordFromMap(raw map[string]any) (*core.ApplicantRecord, error) {
	r := &core.ApplicantRecord{}
	for name, v := range raw {
		switch name {
		case FieldID:
			s, err := scalarString(name, v)
			if err != nil {
				return nil, err
			}
			r.ID = s
		case "subjects":
			subjects, err := subjectsFromJSON(v)
			if err != nil {
				return nil, err
			}
			r.Subjects = subjects
		default:
			if _, ok := scalarFields[name]; !ok {
				continue
			}
			s, err := scalarString(name, v)
			if err != nil {
				return nil, err
			}
			setField(r, name, s)
		}
	}
	return r, nil
}

func subjectsFromJSON(v any) ([]core.SubjectEntry, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, &core.UnparsableInputError{Field: "subjects", Value: fmt.Sprint(v)}
	}
	out := make([]core.SubjectEntry, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, &core.UnparsableInputError{Field: fmt.Sprintf("subjects[%d]", i), Value: fmt.Sprint(item)}
		}
		var e core.SubjectEntry
		for key, dst := range map[string]*string{"name": &e.Name, "grade": &e.Grade, "score": &e.Score, "retakes": &e.Retakes} {
			s, err := scalarString(fmt.Sprintf("subjects[%d].%s", i, key), m[key])
			if err != nil {
				return nil, err
			}
			*dst = s
		}
		if e.Name != "" {
			out = append(out, e)
		}
	}
	return out, nil
}

func scalarString(field string, v any) (string, error) {
	switch v.(type) {
	case nil:
		return "", nil
	case map[string]any, []any:
		return "", &core.UnparsableInputError{Field: field, Value: fmt.Sprint(v)}
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", &core.UnparsableInputError{Field: field, Value: fmt.Sprint(v), Cause: err}
	}
	return s, nil
}
