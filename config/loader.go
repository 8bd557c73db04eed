package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rushteam/admitkit/core"
	"github.com/rushteam/admitkit/model"
	"github.com/rushteam/admitkit/scorer"
)

// EnvPrefix 是环境变量前缀，例如 ADMIT_SERVER_ADDR 覆盖 server.addr
const EnvPrefix = "ADMIT"

// Load 依次加载 .env、<dir>/config.yaml、<dir>/config.<env>.yaml，环境变量优先级最高。
// env 取自 ADMIT_APP_ENVIRONMENT，默认 development。
func Load(dir string) (*Config, error) {
	loadEnvFile(dir)

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := v.GetString("app.environment")
	v.SetConfigName("config." + env)
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading %s config: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile(dir string) {
	for _, path := range []string{filepath.Join(dir, ".env"), ".env"} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "admitd")
	v.SetDefault("app.environment", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.max_upload_mb", 16)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("batch.mode", string(scorer.AggregatePerRow))
	v.SetDefault("batch.concurrency", 8)
	v.SetDefault("batch.warn_extra", true)
}

// Validate 校验配置
func Validate(cfg *Config) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug|info|warn|error", cfg.Log.Level)
	}
	if _, err := scorer.ParseAggregationMode(cfg.Batch.Mode); err != nil {
		return fmt.Errorf("batch.mode: %w", err)
	}
	if cfg.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be positive")
	}
	if len(cfg.Tracks) == 0 {
		return fmt.Errorf("tracks: at least one track is required")
	}

	seen := make(map[core.Track]string, len(cfg.Tracks))
	for name, tc := range cfg.Tracks {
		track, err := core.ParseTrack(name)
		if err != nil {
			return fmt.Errorf("tracks.%s: %w", name, err)
		}
		if other, dup := seen[track]; dup {
			return fmt.Errorf("tracks.%s: duplicates tracks.%s", name, other)
		}
		seen[track] = name
		if err := validateTrack(tc); err != nil {
			return fmt.Errorf("tracks.%s: %w", name, err)
		}
	}
	return nil
}

func validateTrack(tc TrackConfig) error {
	switch tc.Source {
	case SourceFile:
		if tc.Metadata == "" || tc.Stats == "" || tc.Penalties == "" {
			return fmt.Errorf("source=file requires metadata, stats and penalties")
		}
	case SourceRedis:
	default:
		return fmt.Errorf("source %q is not one of %s|%s", tc.Source, SourceFile, SourceRedis)
	}

	supported := false
	for _, t := range model.SupportedTypes() {
		if t == tc.Model.Type {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("model.type %q unsupported (supported: %v)", tc.Model.Type, model.SupportedTypes())
	}
	if tc.Threshold != nil && (*tc.Threshold < 0 || *tc.Threshold > 1) {
		return fmt.Errorf("threshold %v out of [0,1]", *tc.Threshold)
	}
	return nil
}
