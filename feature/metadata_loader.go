package feature

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rushteam/admitkit/core"
	"github.com/rushteam/admitkit/pkg/codec"
)

// MetadataLoader 特征元数据加载器接口
// 支持从不同来源加载特征元数据（本地文件、HTTP 接口、KV 存储）
type MetadataLoader interface {
	// Load 加载特征元数据
	// source 是数据源标识（文件路径、URL、存储 key）
	Load(ctx context.Context, source string) (*FeatureMetadata, error)
}

// FileMetadataLoader 本地文件特征元数据加载器
type FileMetadataLoader struct{}

func NewFileMetadataLoader() *FileMetadataLoader {
	return &FileMetadataLoader{}
}

// Load 从本地文件加载特征元数据
func (l *FileMetadataLoader) Load(_ context.Context, path string) (*FeatureMetadata, error) {
	return LoadFeatureMetadata(path)
}

// IsHTTPSource 报告 source 是否为 http(s) URL
func IsHTTPSource(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// HTTPMetadataLoader HTTP 接口特征元数据加载器
type HTTPMetadataLoader struct {
	client *http.Client
}

// NewHTTPMetadataLoader 创建 HTTP 接口特征元数据加载器
//
// 用法：
//
//	loader := feature.NewHTTPMetadataLoader(5 * time.Second)
//	meta, err := loader.Load(ctx, "http://models.internal/graduate/v3/meta.json")
func NewHTTPMetadataLoader(timeout time.Duration) *HTTPMetadataLoader {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPMetadataLoader{
		client: &http.Client{Timeout: timeout},
	}
}

// NewHTTPMetadataLoaderWithClient 使用自定义 HTTP 客户端创建加载器
func NewHTTPMetadataLoaderWithClient(client *http.Client) *HTTPMetadataLoader {
	return &HTTPMetadataLoader{client: client}
}

// Load 从 HTTP 接口加载特征元数据
func (l *HTTPMetadataLoader) Load(ctx context.Context, url string) (*FeatureMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("http request: status=%d, body=%s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return decodeMetadata(data, codec.FormatOf(url))
}

// StoreMetadataLoader 从 core.Store 加载特征元数据（value 为 JSON）
type StoreMetadataLoader struct {
	store core.Store
}

func NewStoreMetadataLoader(store core.Store) *StoreMetadataLoader {
	return &StoreMetadataLoader{store: store}
}

// Load 读取 key 对应的元数据
func (l *StoreMetadataLoader) Load(ctx context.Context, key string) (*FeatureMetadata, error) {
	if l.store == nil {
		return nil, fmt.Errorf("store not set")
	}
	data, err := l.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%s get %q: %w", l.store.Name(), key, err)
	}
	return decodeMetadata(data, codec.FormatJSON)
}

func decodeMetadata(data []byte, format codec.Format) (*FeatureMetadata, error) {
	var meta FeatureMetadata
	if err := codec.Decode(data, format, &meta); err != nil {
		return nil, fmt.Errorf("decode feature metadata: %w", err)
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return &meta, nil
}
