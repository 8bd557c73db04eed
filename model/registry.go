package model

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/admitkit/pkg/conv"
)

// Builder 根据配置构建分类器。
// 各实现在 init 中调用 Register(typeName, builder) 即可被配置驱动。
type Builder func(cfg map[string]any) (Classifier, error)

var (
	defaultBuilders   = make(map[string]Builder)
	defaultBuildersMu sync.RWMutex
)

func init() {
	Register("lr", buildLR)
	Register("linear", buildLinear)
	Register("rpc", buildRPC)
	Register("kserve", buildKServe)
}

// Register 注册一种模型的构建逻辑。
func Register(typeName string, builder Builder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回当前已注册的模型类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Build 按类型构建分类器；未注册的类型返回包含已支持列表的错误。
func Build(typeName string, cfg map[string]any) (Classifier, error) {
	defaultBuildersMu.RLock()
	builder, ok := defaultBuilders[typeName]
	defaultBuildersMu.RUnlock()
	if !ok {
		return Classifier{}, fmt.Errorf("unsupported model type %q (supported: %v)", typeName, SupportedTypes())
	}
	return builder(cfg)
}

func buildLR(cfg map[string]any) (Classifier, error) {
	path := conv.ConfigGet[string](cfg, "path", "")
	if path == "" {
		return Classifier{}, fmt.Errorf("lr: path is required")
	}
	m, err := LoadLRModel(path)
	if err != nil {
		return Classifier{}, err
	}
	return NewProbabilistic(m), nil
}

func buildLinear(cfg map[string]any) (Classifier, error) {
	path := conv.ConfigGet[string](cfg, "path", "")
	if path == "" {
		return Classifier{}, fmt.Errorf("linear: path is required")
	}
	m, err := LoadLinearModel(path)
	if err != nil {
		return Classifier{}, err
	}
	if clip, ok := cfg["clip"].(bool); ok {
		m.Clip = clip
	}
	return NewPointPrediction(m), nil
}

func buildRPC(cfg map[string]any) (Classifier, error) {
	endpoint := conv.ConfigGet[string](cfg, "endpoint", "")
	if endpoint == "" {
		return Classifier{}, fmt.Errorf("rpc: endpoint is required")
	}
	timeout := time.Duration(conv.ConfigGetFloat64(cfg, "timeout_ms", 5000)) * time.Millisecond
	m := NewRPCModel(
		conv.ConfigGet[string](cfg, "name", "rpc"),
		endpoint,
		conv.ConfigGet[string](cfg, "education_level", ""),
		timeout,
	)
	return NewProbabilistic(m), nil
}

func buildKServe(cfg map[string]any) (Classifier, error) {
	endpoint := conv.ConfigGet[string](cfg, "endpoint", "")
	modelName := conv.ConfigGet[string](cfg, "model_name", "")
	if endpoint == "" || modelName == "" {
		return Classifier{}, fmt.Errorf("kserve: endpoint and model_name are required")
	}
	opts := []KServeOption{
		WithKServeProtocol(conv.ConfigGet[string](cfg, "protocol", KServeV2)),
		WithKServeVersion(conv.ConfigGet[string](cfg, "model_version", "")),
		WithKServeOutputName(conv.ConfigGet[string](cfg, "output_name", "")),
		WithKServeColumns(conv.ConfigGet[[]string](cfg, "columns", nil)),
		WithKServeTimeout(time.Duration(conv.ConfigGetFloat64(cfg, "timeout_ms", 5000)) * time.Millisecond),
	}
	if token := conv.ConfigGet[string](cfg, "bearer_token", ""); token != "" {
		opts = append(opts, WithKServeAuth(&AuthConfig{Type: "bearer", Token: token}))
	}
	return NewProbabilistic(NewKServeModel(endpoint, modelName, opts...)), nil
}
