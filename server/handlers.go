package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/rushteam/admitkit/core"
	"github.com/rushteam/admitkit/ingest"
	"github.com/rushteam/admitkit/pkg/conv"
	"github.com/rushteam/admitkit/service"
)

const (
	uploadField = "file"
	kindField   = "kind"
	kindFeature = "features"
)

type healthResponse struct {
	Status string   `json:"status"`
	Tracks []string `json:"tracks"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	for _, t := range s.predictor.Tracks() {
		resp.Tracks = append(resp.Tracks, t.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

// predict 接受 JSON 对象或表单。track 取自 education_level 字段，其次是同名查询参数。
func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	var (
		track  core.Track
		record *core.ApplicantRecord
		err    error
	)
	if isJSON(r) {
		track, record, err = decodeJSONRecord(r)
	} else {
		track, record, err = decodeFormRecord(r)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	pred, err := s.predictor.Predict(r.Context(), track, record)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

// rowResponse 中失败行没有 probability / percent；成功行即使概率为 0 也输出
type rowResponse struct {
	ID             string   `json:"id"`
	Probability    *float64 `json:"probability,omitempty"`
	Percent        *float64 `json:"percent,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	Error          string   `json:"error,omitempty"`
}

type batchResponse struct {
	RequestID string              `json:"request_id"`
	Track     core.Track          `json:"track"`
	Mode      string              `json:"mode"`
	Rows      []rowResponse       `json:"rows"`
	Aggregate *core.ScoringResult `json:"aggregate,omitempty"`
	Failed    int                 `json:"failed"`
	Ignored   []string            `json:"ignored_columns,omitempty"`
}

// predictBatch 处理 multipart CSV 上传。kind=features 时表格已是模型特征列，
// 否则按 (学生, 课程) 行聚合为申请记录后派生特征。
func (s *Server) predictBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		s.writeError(w, r, &core.UnparsableInputError{Field: uploadField, Cause: err})
		return
	}
	track, err := trackOf(r, r.FormValue(ingest.FieldTrack))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	file, _, err := r.FormFile(uploadField)
	if err != nil {
		s.writeError(w, r, &core.UnparsableInputError{Field: uploadField, Cause: err})
		return
	}
	defer file.Close()

	var (
		out     *service.BatchPrediction
		ignored []string
	)
	if r.FormValue(kindField) == kindFeature {
		bundle, ok := s.predictor.Bundle(track)
		if !ok {
			s.writeError(w, r, fmt.Errorf("%s: %w", track, service.ErrTrackNotLoaded))
			return
		}
		table, err := ingest.ReadFeatureTable(file, bundle.Features)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if len(table.Extra) > 0 {
			s.logger.Warn("ignoring columns not used by the model", zap.Strings("columns", table.Extra))
			ignored = table.Extra
		}
		out, err = s.predictor.PredictFeatures(r.Context(), track, table.IDs, table.Rows)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	} else {
		records, err := ingest.ReadApplicants(file)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out, err = s.predictor.PredictBatch(r.Context(), track, records)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	if r.URL.Query().Get("format") == "csv" {
		s.writeCSV(w, r, out)
		return
	}
	resp := batchResponse{
		RequestID: out.RequestID,
		Track:     out.Track,
		Mode:      string(out.Mode),
		Aggregate: out.Aggregate,
		Failed:    out.Failed(),
		Ignored:   ignored,
		Rows:      make([]rowResponse, len(out.Rows)),
	}
	for i, row := range out.Rows {
		resp.Rows[i] = toRowResponse(row)
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeCSV 导出结果表。mean 模式先写一行 mean 汇总，再附上失败的行（带 error 列）。
func (s *Server) writeCSV(w http.ResponseWriter, r *http.Request, out *service.BatchPrediction) {
	var threshold float64
	if bundle, ok := s.predictor.Bundle(out.Track); ok {
		threshold = bundle.Threshold
	}

	var rows []ingest.ResultRow
	if out.Aggregate != nil {
		rows = append(rows, ingest.ResultRow{ID: "mean", Result: *out.Aggregate})
		for _, row := range out.Rows {
			if row.Err != nil {
				rows = append(rows, ingest.ResultRow{ID: row.ID, Err: row.Err})
			}
		}
	} else {
		rows = make([]ingest.ResultRow, len(out.Rows))
		for i, row := range out.Rows {
			rows[i] = ingest.ResultRow{ID: row.ID, Err: row.Err}
			if row.Result != nil {
				rows[i].Result = *row.Result
			}
		}
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="predictions.csv"`)
	if err := ingest.WriteResults(w, rows, threshold); err != nil {
		s.logger.Error("write csv", zap.Error(err), zap.String("request_id", out.RequestID))
	}
}

type featuresRequest struct {
	EducationLevel string           `json:"education_level"`
	Data           []map[string]any `json:"data"`
}

type featuresResponse struct {
	Status      string    `json:"status"`
	Predictions []float64 `json:"predictions"`
	Count       int       `json:"count"`
}

// predictFeatures 兼容远程模型服务协议：data 中每行是 列名 -> 数值，
// 返回每行的概率。任一行失败则整个请求失败。
func (s *Server) predictFeatures(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	var req featuresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, &core.UnparsableInputError{Field: "body", Cause: err})
		return
	}
	track, err := trackOf(r, req.EducationLevel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Data) == 0 {
		s.writeError(w, r, &core.UnparsableInputError{Field: "data", Value: "empty"})
		return
	}

	ids := make([]string, len(req.Data))
	rows := make([]*core.FeatureVector, len(req.Data))
	for i, item := range req.Data {
		ids[i] = cast.ToString(i + 1)
		fv := core.NewFeatureVector(len(item))
		for name, v := range item {
			f, ok := conv.ToFloat64(v)
			if !ok {
				s.writeError(w, r, &core.UnparsableInputError{Field: name, Value: cast.ToString(v)})
				return
			}
			fv.Set(name, f)
		}
		rows[i] = fv
	}

	out, err := s.predictor.PredictFeatures(r.Context(), track, ids, rows)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := featuresResponse{Status: "success", Count: len(out.Rows)}
	if out.Aggregate != nil {
		resp.Predictions = []float64{out.Aggregate.Probability}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	for _, row := range out.Rows {
		if row.Err != nil {
			s.writeError(w, r, fmt.Errorf("row %s: %w", row.ID, row.Err))
			return
		}
		resp.Predictions = append(resp.Predictions, row.Result.Probability)
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeJSONRecord(r *http.Request) (core.Track, *core.ApplicantRecord, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, &core.UnparsableInputError{Field: "body", Cause: err}
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", nil, &core.UnparsableInputError{Field: "body", Cause: err}
	}
	track, err := trackOf(r, cast.ToString(raw[ingest.FieldTrack]))
	if err != nil {
		return "", nil, err
	}
	record, err := ingest.RecordFromMap(raw)
	if err != nil {
		return "", nil, err
	}
	return track, record, nil
}

func decodeFormRecord(r *http.Request) (core.Track, *core.ApplicantRecord, error) {
	if err := r.ParseForm(); err != nil {
		return "", nil, &core.UnparsableInputError{Field: "body", Cause: err}
	}
	track, err := trackOf(r, r.PostForm.Get(ingest.FieldTrack))
	if err != nil {
		return "", nil, err
	}
	return track, ingest.ParseForm(r.PostForm, track), nil
}

// trackOf 优先使用请求体中的值，为空时回退到查询参数
func trackOf(r *http.Request, fromBody string) (core.Track, error) {
	if strings.TrimSpace(fromBody) == "" {
		fromBody = r.URL.Query().Get(ingest.FieldTrack)
	}
	return core.ParseTrack(fromBody)
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func toRowResponse(row service.RowPrediction) rowResponse {
	out := rowResponse{ID: row.ID}
	if row.Err != nil {
		out.Error = row.Err.Error()
		return out
	}
	if row.Result != nil {
		prob, pct := row.Result.Probability, row.Result.Percent()
		out.Probability = &prob
		out.Percent = &pct
		out.Recommendation = string(row.Result.Recommendation)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
