package ingest

import (
	"bytes"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/admitkit/core"
)

func TestParseForm(t *testing.T) {
	values := url.Values{
		"education_level":     {"bak_spec"},
		"priority":            {"2"},
		"exam_score":          {" 245 "},
		"contract":            {"on"},
		"country":             {"Китай"},
		"unknown":             {"x"},
		"b_subject_name[]":    {"Math", "", "Physics"},
		"b_subject_grade[]":   {"Отлично", "2", "Недопуск"},
		"b_subject_score[]":   {"95", "10"},
		"b_subject_retakes[]": {"0", "1", "2"},
		"m_subject_name[]":    {"Ignored"},
	}

	track, err := ParseTrack(values)
	require.NoError(t, err)
	assert.Equal(t, core.TrackUndergraduateSpecialist, track)

	r := ParseForm(values, track)
	assert.Equal(t, "2", r.Priority)
	assert.Equal(t, "245", r.ExamScore)
	assert.Equal(t, "on", r.Contract)
	assert.Equal(t, "Китай", r.Country)
	assert.Empty(t, r.Age)
	assert.Equal(t, []core.SubjectEntry{
		{Name: "Math", Grade: "Отлично", Score: "95", Retakes: "0"},
		{Name: "Physics", Grade: "Недопуск", Score: "", Retakes: "2"},
	}, r.Subjects)

	graduate := ParseForm(values, core.TrackGraduate)
	require.Len(t, graduate.Subjects, 1)
	assert.Equal(t, "Ignored", graduate.Subjects[0].Name)

	_, err = ParseTrack(url.Values{"education_level": {"phd"}})
	assert.True(t, core.IsUnparsableInput(err))
}

func TestDecodeRecord(t *testing.T) {
	r, err := DecodeRecord([]byte(`{
		"id": 17, "priority": 1, "exam_score": "245", "contract": true, "form": "Заочная",
		"subjects": [{"name": "Math", "grade": "Отлично", "score": 95, "retakes": 0}, {"grade": "2"}],
		"comment": {"free": "text"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "17", r.ID)
	assert.Equal(t, "1", r.Priority)
	assert.Equal(t, "true", r.Contract)
	assert.Equal(t, "Заочная", r.StudyForm)
	assert.Equal(t, []core.SubjectEntry{{Name: "Math", Grade: "Отлично", Score: "95", Retakes: "0"}}, r.Subjects)

	_, err = DecodeRecord([]byte(`{"priority": [1, 2]}`))
	assert.True(t, core.IsUnparsableInput(err))

	_, err = DecodeRecord([]byte(`{"subjects": "Math"}`))
	assert.True(t, core.IsUnparsableInput(err))

	_, err = DecodeRecord([]byte(`not json`))
	assert.True(t, core.IsUnparsableInput(err))
}

func TestReadApplicants(t *testing.T) {
	data := "\ufeffid,exam_score,country,subject_name,subject_grade,subject_score,subject_retakes\n" +
		"1,250,Китай,Math,Отлично,95,0\n" +
		"2,,,Math,Недопуск,,1\n" +
		"1,,,Physics,2,30,2\n" +
		"2,180,Украина,,,,\n" +
		",100,,History,Хорошо,70,\n"

	records, err := ReadApplicants(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, "250", records[0].ExamScore)
	assert.Equal(t, "Китай", records[0].Country)
	assert.Equal(t, []core.SubjectEntry{
		{Name: "Math", Grade: "Отлично", Score: "95", Retakes: "0"},
		{Name: "Physics", Grade: "2", Score: "30", Retakes: "2"},
	}, records[0].Subjects)

	assert.Equal(t, "2", records[1].ID)
	assert.Equal(t, "180", records[1].ExamScore)
	assert.Equal(t, "Украина", records[1].Country)
	assert.Len(t, records[1].Subjects, 1)

	assert.Equal(t, "row-5", records[2].ID)

	_, err = ReadApplicants(strings.NewReader("exam_score\n1\n"))
	assert.True(t, core.IsMissingFeature(err))

	_, err = ReadApplicants(strings.NewReader(""))
	assert.True(t, core.IsUnparsableInput(err))
}

func TestReadFeatureTable(t *testing.T) {
	data := "id,a,b,note\n" +
		"s1,1,2.5,x\n" +
		"s2,abc,\"3,5\",y\n"

	table, err := ReadFeatureTable(strings.NewReader(data), []string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, table.IDs)
	assert.Equal(t, []string{"note"}, table.Extra)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"b", "a"}, table.Rows[0].Names())
	assert.Equal(t, []float64{2.5, 1}, table.Rows[0].Values([]string{"b", "a"}))
	// 无法解析的值按 0 处理，逗号小数被接受
	assert.Equal(t, []float64{3.5, 0}, table.Rows[1].Values([]string{"b", "a"}))

	_, err = ReadFeatureTable(strings.NewReader(data), []string{"a", "c", "d"})
	var mf *core.MissingFeatureError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, []string{"c", "d"}, mf.Features)

	noID, err := ReadFeatureTable(strings.NewReader("a\n1\n2\n"), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, noID.IDs)
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	err := WriteResults(&buf, []ResultRow{
		{ID: "1", Result: core.ScoringResult{Probability: 0.73456, Recommendation: core.RecommendAdmit}},
		{ID: "2", Result: core.ScoringResult{Probability: 0.1, Recommendation: core.RecommendReject}},
	}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, "id,probability,above_threshold,recommendation\n1,73.46,1,admit\n2,10.00,0,reject\n", buf.String())

	buf.Reset()
	err = WriteResults(&buf, []ResultRow{
		{ID: "1", Result: core.ScoringResult{Probability: 0.5, Recommendation: core.RecommendAdmit}},
		{ID: "2", Err: errors.New("model down")},
	}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, "id,probability,above_threshold,recommendation,error\n1,50.00,1,admit,\n2,,,,model down\n", buf.String())
}

func TestWriteResults_ThresholdIndependentOfRule(t *testing.T) {
	var buf bytes.Buffer
	// 自定义规则拒绝了一个超过阈值的申请人
	err := WriteResults(&buf, []ResultRow{
		{ID: "1", Result: core.ScoringResult{Probability: 0.9, Recommendation: core.RecommendReject}},
		{ID: "2", Result: core.ScoringResult{Probability: 0.2, Recommendation: core.RecommendAdmit}},
	}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, "id,probability,above_threshold,recommendation\n1,90.00,1,reject\n2,20.00,0,admit\n", buf.String())
}
