package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RPCModel 通过 HTTP 调用外部模型服务，是 ProbabilisticClassifier 的远程实现。
// 远程服务按 education_level 选择模型（"bak_spec" / "magistr"）。
type RPCModel struct {
	name           string
	Endpoint       string // 例如 "http://localhost:8000/predict"
	EducationLevel string
	Timeout        time.Duration
	Client         *http.Client
}

func NewRPCModel(name, endpoint, educationLevel string, timeout time.Duration) *RPCModel {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	if name == "" {
		name = "rpc"
	}
	return &RPCModel{
		name:           name,
		Endpoint:       endpoint,
		EducationLevel: educationLevel,
		Timeout:        timeout,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (m *RPCModel) Name() string {
	return m.name
}

// PredictProba 调用远程模型服务进行批量预测。
// 请求格式（JSON）：
//
//	{"education_level": "magistr", "data": [{"Приоритет": 1, ...}, ...]}
//
// 响应格式（JSON）：
//
//	{"status": "success", "predictions": [0.85, 0.72, ...], "count": 2}
func (m *RPCModel) PredictProba(ctx context.Context, rows []map[string]float64) ([]float64, error) {
	if m.Client == nil {
		m.Client = &http.Client{Timeout: m.Timeout}
	}

	if len(rows) == 0 {
		return []float64{}, nil
	}

	// 构建请求
	reqBody := map[string]any{
		"education_level": m.EducationLevel,
		"data":            rows,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// 发送请求
	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("rpc error: status=%d, read body failed: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("rpc error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	// 解析响应
	var result struct {
		Predictions []float64 `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(result.Predictions) != len(rows) {
		return nil, fmt.Errorf("response predictions count mismatch: expected %d, got %d", len(rows), len(result.Predictions))
	}

	return result.Predictions, nil
}

var _ ProbabilisticClassifier = (*RPCModel)(nil)
