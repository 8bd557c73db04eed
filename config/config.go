// Package config 加载 admitd 的运行配置（viper + .env）。
package config

import (
	"time"

	"github.com/rushteam/admitkit/core"
)

type Config struct {
	App    AppConfig              `mapstructure:"app"`
	Log    LogConfig              `mapstructure:"log"`
	Server ServerConfig           `mapstructure:"server"`
	Redis  RedisConfig            `mapstructure:"redis"`
	Batch  BatchConfig            `mapstructure:"batch"`
	Tracks map[string]TrackConfig `mapstructure:"tracks"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxUploadMB 限制请求体大小（JSON 与批量上传）
	MaxUploadMB int64    `mapstructure:"max_upload_mb"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BatchConfig struct {
	// Mode: per_row | mean
	Mode        string `mapstructure:"mode"`
	Concurrency int    `mapstructure:"concurrency"`
	WarnExtra   bool   `mapstructure:"warn_extra"`
}

// 参考数据来源
const (
	SourceFile  = "file"
	SourceRedis = "redis"
)

// TrackConfig 是单个 track 的模型与参考数据配置。
//
// source=file 时 Stats / Penalties 为本地文件路径；source=redis 时从 store 包约定的 key 读取，
// Stats / Penalties 被忽略。Metadata 可以是本地路径或 http(s) URL；为空且 source=redis 时读
// admit:{track}:meta。
type TrackConfig struct {
	Source    string      `mapstructure:"source"`
	Model     ModelConfig `mapstructure:"model"`
	Metadata  string      `mapstructure:"metadata"`
	Stats     string      `mapstructure:"stats"`
	Penalties string      `mapstructure:"penalties"`
	// Threshold 覆盖元数据中的阈值
	Threshold *float64 `mapstructure:"threshold"`
	// Rule 是可选的 CEL 判定规则
	Rule string `mapstructure:"rule"`
}

type ModelConfig struct {
	// Type: lr | linear | rpc | kserve（见 model.SupportedTypes）
	Type      string `mapstructure:"type"`
	Path      string `mapstructure:"path"`
	Endpoint  string `mapstructure:"endpoint"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
	Clip      bool   `mapstructure:"clip"`

	// KServe
	ModelName    string `mapstructure:"model_name"`
	ModelVersion string `mapstructure:"model_version"`
	Protocol     string `mapstructure:"protocol"`
	OutputName   string `mapstructure:"output_name"`
	BearerToken  string `mapstructure:"bearer_token"`
}

// Params 转换为 model.Build 使用的参数
func (m ModelConfig) Params(track core.Track) map[string]any {
	params := map[string]any{
		"path":            m.Path,
		"endpoint":        m.Endpoint,
		"education_level": track.Alias(),
		"clip":            m.Clip,
		"model_name":      m.ModelName,
		"model_version":   m.ModelVersion,
		"protocol":        m.Protocol,
		"output_name":     m.OutputName,
		"bearer_token":    m.BearerToken,
	}
	if m.TimeoutMS > 0 {
		params["timeout_ms"] = m.TimeoutMS
	}
	return params
}

// TrackConfigs 按 track 返回配置（key 已在校验阶段解析）
func (c *Config) TrackConfigs() map[core.Track]TrackConfig {
	out := make(map[core.Track]TrackConfig, len(c.Tracks))
	for name, tc := range c.Tracks {
		track, err := core.ParseTrack(name)
		if err != nil {
			continue
		}
		out[track] = tc
	}
	return out
}
