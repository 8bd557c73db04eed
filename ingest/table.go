package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rushteam/admitkit/core"
	"github.com/rushteam/admitkit/pkg/conv"
)

// ReadApplicants 读取 "每行一个 (学生, 课程)" 的 CSV，并按 id 列聚合为申请记录。
//
// 表头使用与表单相同的字段名，另加 id 与 subject_name / subject_grade /
// subject_score / subject_retakes。记录按 id 首次出现的顺序返回；
// 同一学生的标量字段取第一个非空值。id 为空的行各自成为独立记录（id 记为 "row-N"）。
func ReadApplicants(r io.Reader) ([]*core.ApplicantRecord, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	idCol, ok := header[FieldID]
	if !ok {
		return nil, core.NewMissingFeatureError([]string{FieldID})
	}

	var (
		records []*core.ApplicantRecord
		byID    = make(map[string]*core.ApplicantRecord)
	)
	for n, row := range rows {
		id := strings.TrimSpace(cell(row, idCol))
		if id == "" {
			id = "row-" + strconv.Itoa(n+1)
		}
		rec, ok := byID[id]
		if !ok {
			rec = &core.ApplicantRecord{ID: id}
			byID[id] = rec
			records = append(records, rec)
		}
		for name, col := range header {
			if _, known := scalarFields[name]; !known {
				continue
			}
			if current := fieldValue(rec, name); current == "" {
				setField(rec, name, cell(row, col))
			}
		}
		if col, ok := header[FieldSubjectName]; ok {
			if name := strings.TrimSpace(cell(row, col)); name != "" {
				rec.Subjects = append(rec.Subjects, core.SubjectEntry{
					Name:    name,
					Grade:   strings.TrimSpace(columnValue(header, row, FieldSubjectGrade)),
					Score:   strings.TrimSpace(columnValue(header, row, FieldSubjectScore)),
					Retakes: strings.TrimSpace(columnValue(header, row, FieldSubjectRetake)),
				})
			}
		}
	}
	return records, nil
}

// FeatureTable 是已经携带模型特征列的上传表格。
type FeatureTable struct {
	IDs  []string
	Rows []*core.FeatureVector
	// Extra 是模型不使用、被忽略的列
	Extra []string
}

// ReadFeatureTable 读取已含模型特征列的 CSV。
// 缺少任何 required 列时返回 MissingFeatureError；无法解析的数值按 0 处理。
// 可选的 id 列用作行标识，否则使用 1 起的行号。
func ReadFeatureTable(r io.Reader, required []string) (*FeatureTable, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, name := range required {
		if _, ok := header[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, core.NewMissingFeatureError(missing)
	}

	want := make(map[string]struct{}, len(required))
	for _, name := range required {
		want[name] = struct{}{}
	}
	table := &FeatureTable{}
	for _, name := range headerOrder(header) {
		if _, ok := want[name]; !ok && name != FieldID {
			table.Extra = append(table.Extra, name)
		}
	}

	for n, row := range rows {
		id := strings.TrimSpace(columnValue(header, row, FieldID))
		if id == "" {
			id = strconv.Itoa(n + 1)
		}
		fv := core.NewFeatureVector(len(required))
		for _, name := range required {
			v, _ := conv.ParseFloat(cell(row, header[name]))
			fv.Set(name, v)
		}
		table.IDs = append(table.IDs, id)
		table.Rows = append(table.Rows, fv)
	}
	return table, nil
}

// readCSV 读取整张表，返回 列名 -> 下标 与数据行。去掉 Excel 导出的 UTF-8 BOM。
func readCSV(r io.Reader) (map[string]int, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, &core.UnparsableInputError{Field: "csv", Cause: fmt.Errorf("empty table")}
	}
	if err != nil {
		return nil, nil, &core.UnparsableInputError{Field: "csv", Cause: err}
	}
	header := make(map[string]int, len(head))
	for i, name := range head {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if _, dup := header[name]; !dup {
			header[name] = i
		}
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, &core.UnparsableInputError{Field: "csv", Cause: err}
	}
	return header, rows, nil
}

func headerOrder(header map[string]int) []string {
	names := make([]string, 0, len(header))
	byIndex := make(map[int]string, len(header))
	maxIdx := -1
	for name, i := range header {
		byIndex[i] = name
		maxIdx = max(maxIdx, i)
	}
	for i := 0; i <= maxIdx; i++ {
		if name, ok := byIndex[i]; ok {
			names = append(names, name)
		}
	}
	return names
}

func cell(row []string, i int) string {
	if i >= 0 && i < len(row) {
		return row[i]
	}
	return ""
}

func columnValue(header map[string]int, row []string, name string) string {
	i, ok := header[name]
	if !ok {
		return ""
	}
	return cell(row, i)
}
