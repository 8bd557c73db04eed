package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/rushteam/admitkit/pkg/conv"
)

// KServe 协议版本
const (
	KServeV1 = "v1"
	KServeV2 = "v2"
)

// AuthConfig 认证配置
type AuthConfig struct {
	Type     string // "basic", "bearer", "api_key"
	Username string
	Password string
	Token    string
	APIKey   string
}

// KServeModel 通过 KServe V1/V2 协议调用部署在 KServe / ModelMesh 上的分类器，
// 输出 admit 类的概率。
//
// KServe V1（基于 TensorFlow Serving REST）：
//   - Predict: POST /v1/models/{model_name}:predict
//   - 请求：{"instances": [{"Приоритет": 1, ...}, ...]}
//   - 响应：{"predictions": [...]}，每项为标量或 [p0, p1]（取 p1）
//
// KServe V2（Open Inference Protocol）：
//   - Infer: POST /v2/models/{model_name}[/versions/{version}]/infer
//   - 请求：{"inputs": [{"name": "input0", "shape": [batch, dim], "datatype": "FP64", "data": [...]}]}
//   - 响应：{"outputs": [{"name": "...", "shape": [batch] 或 [batch, 2], "data": [...]}]}
//
// V2 按 Columns 的顺序展平特征（行优先）；Columns 为空时按特征名排序。
type KServeModel struct {
	// Endpoint 服务根地址，如 "http://localhost:8000"
	Endpoint     string
	ModelName    string
	ModelVersion string
	// Protocol 协议版本："v1" 或 "v2"，默认 "v2"
	Protocol   string
	InputName  string
	OutputName string
	Columns    []string
	Auth       *AuthConfig
	httpClient *http.Client
}

// KServeOption 配置 KServeModel
type KServeOption func(*KServeModel)

func WithKServeVersion(version string) KServeOption {
	return func(m *KServeModel) {
		m.ModelVersion = version
	}
}

// WithKServeProtocol 设置协议："v1" 或 "v2"
func WithKServeProtocol(protocol string) KServeOption {
	return func(m *KServeModel) {
		if protocol == KServeV1 || protocol == KServeV2 {
			m.Protocol = protocol
		}
	}
}

// WithKServeColumns 设置 V2 输入张量的列顺序
func WithKServeColumns(columns []string) KServeOption {
	return func(m *KServeModel) {
		m.Columns = append([]string(nil), columns...)
	}
}

// WithKServeOutputName 设置 V2 协议下期望的输出张量名称（解析响应时优先匹配）
func WithKServeOutputName(name string) KServeOption {
	return func(m *KServeModel) {
		m.OutputName = name
	}
}

func WithKServeTimeout(timeout time.Duration) KServeOption {
	return func(m *KServeModel) {
		m.httpClient = &http.Client{Timeout: timeout}
	}
}

func WithKServeAuth(auth *AuthConfig) KServeOption {
	return func(m *KServeModel) {
		m.Auth = auth
	}
}

// NewKServeModel 创建 KServe 模型客户端。endpoint 为根地址，modelName 为模型名。
func NewKServeModel(endpoint, modelName string, opts ...KServeOption) *KServeModel {
	m := &KServeModel{
		Endpoint:  endpoint,
		ModelName: modelName,
		Protocol:  KServeV2,
		InputName: "input0",
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.httpClient == nil {
		m.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return m
}

func (m *KServeModel) Name() string { return "kserve:" + m.ModelName }

func (m *KServeModel) PredictProba(ctx context.Context, rows []map[string]float64) ([]float64, error) {
	if len(rows) == 0 {
		return []float64{}, nil
	}
	var (
		url  string
		body any
	)
	if m.Protocol == KServeV1 {
		url = fmt.Sprintf("%s/v1/models/%s:predict", m.Endpoint, m.ModelName)
		body = map[string]any{"instances": rows}
	} else {
		path := fmt.Sprintf("%s/v2/models/%s", m.Endpoint, m.ModelName)
		if m.ModelVersion != "" {
			path = fmt.Sprintf("%s/versions/%s", path, m.ModelVersion)
		}
		url = path + "/infer"
		body = m.v2Request(rows)
	}

	respBody, err := m.post(ctx, url, body)
	if err != nil {
		return nil, err
	}

	var predictions []float64
	if m.Protocol == KServeV1 {
		predictions, err = parseV1Predictions(respBody)
	} else {
		predictions, err = m.parseV2Outputs(respBody, len(rows))
	}
	if err != nil {
		return nil, err
	}
	if len(predictions) != len(rows) {
		return nil, fmt.Errorf("kserve %s: predictions count mismatch: expected %d, got %d", m.Protocol, len(rows), len(predictions))
	}
	return predictions, nil
}

func (m *KServeModel) v2Request(rows []map[string]float64) map[string]any {
	columns := m.Columns
	if len(columns) == 0 {
		for k := range rows[0] {
			columns = append(columns, k)
		}
		sort.Strings(columns)
	}
	data := make([]float64, 0, len(rows)*len(columns))
	for _, row := range rows {
		for _, c := range columns {
			data = append(data, row[c])
		}
	}
	return map[string]any{
		"inputs": []map[string]any{
			{
				"name":     m.InputName,
				"shape":    []int{len(rows), len(columns)},
				"datatype": "FP64",
				"data":     data,
			},
		},
	}
}

func (m *KServeModel) post(ctx context.Context, url string, body any) ([]byte, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("kserve %s marshal request: %w", m.Protocol, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("kserve %s create request: %w", m.Protocol, err)
	}
	req.Header.Set("Content-Type", "application/json")
	m.addAuth(req)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kserve %s request failed: %w", m.Protocol, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kserve %s read response: %w", m.Protocol, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kserve %s error: status=%d, body=%s", m.Protocol, resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// parseV1Predictions 解析 V1 响应；二分类输出 [p0, p1] 时取 p1。
func parseV1Predictions(body []byte) ([]float64, error) {
	var out struct {
		Predictions []any `json:"predictions"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("kserve v1 parse response: %w", err)
	}
	predictions := make([]float64, 0, len(out.Predictions))
	for i, v := range out.Predictions {
		if arr, ok := v.([]any); ok {
			if len(arr) == 0 {
				return nil, fmt.Errorf("kserve v1: empty prediction at %d", i)
			}
			v = arr[len(arr)-1]
		}
		f, ok := conv.ToFloat64(v)
		if !ok {
			return nil, fmt.Errorf("kserve v1: non-numeric prediction at %d: %v", i, v)
		}
		predictions = append(predictions, f)
	}
	return predictions, nil
}

type v2InferResponse struct {
	ModelName    string           `json:"model_name"`
	ModelVersion string           `json:"model_version"`
	Outputs      []v2OutputTensor `json:"outputs"`
}

type v2OutputTensor struct {
	Name     string `json:"name"`
	Shape    []int  `json:"shape"`
	Datatype string `json:"datatype"`
	Data     []any  `json:"data"`
}

// parseV2Outputs 解析 V2 响应；输出形状为 [batch, k] 时取每行最后一列（正类概率）。
func (m *KServeModel) parseV2Outputs(body []byte, rows int) ([]float64, error) {
	var out v2InferResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("kserve v2 parse response: %w", err)
	}
	if len(out.Outputs) == 0 {
		return nil, fmt.Errorf("kserve v2 empty outputs")
	}
	tensor := &out.Outputs[0]
	for i := range out.Outputs {
		if m.OutputName != "" && out.Outputs[i].Name == m.OutputName {
			tensor = &out.Outputs[i]
			break
		}
	}

	width := 1
	if len(tensor.Shape) == 2 && tensor.Shape[0] == rows && tensor.Shape[1] > 0 {
		width = tensor.Shape[1]
	}
	if len(tensor.Data) != rows*width {
		return nil, fmt.Errorf("kserve v2: output %q has %d values for %d rows", tensor.Name, len(tensor.Data), rows)
	}
	predictions := make([]float64, 0, rows)
	for r := 0; r < rows; r++ {
		v := tensor.Data[r*width+width-1]
		f, ok := conv.ToFloat64(v)
		if !ok {
			return nil, fmt.Errorf("kserve v2: non-numeric output at row %d: %v", r, v)
		}
		predictions = append(predictions, f)
	}
	return predictions, nil
}

func (m *KServeModel) addAuth(req *http.Request) {
	if m.Auth == nil {
		return
	}
	switch m.Auth.Type {
	case "basic":
		req.SetBasicAuth(m.Auth.Username, m.Auth.Password)
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+m.Auth.Token)
	case "api_key":
		req.Header.Set("X-API-Key", m.Auth.APIKey)
	}
}

var _ ProbabilisticClassifier = (*KServeModel)(nil)
