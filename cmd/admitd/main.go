// admitd 是录取流失风险预测服务。
//
//	admitd -config ./configs          启动 HTTP 服务
//	admitd -config ./configs -seed    把各 track 的本地参考数据写入 Redis 后退出
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/admitkit/config"
	"github.com/rushteam/admitkit/feature"
	"github.com/rushteam/admitkit/pkg/logger"
	"github.com/rushteam/admitkit/scorer"
	"github.com/rushteam/admitkit/server"
	"github.com/rushteam/admitkit/service"
	"github.com/rushteam/admitkit/store"
)

func main() {
	configDir := flag.String("config", ".", "directory containing config.yaml")
	seed := flag.Bool("seed", false, "write file-based reference data of every track to redis and exit")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *seed {
		if err := runSeed(ctx, cfg, log); err != nil {
			log.Fatal("seed failed", zap.Error(err))
		}
		return
	}
	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("admitd exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	loaderOpts := []service.LoaderOption{service.WithLoaderLogger(log.Named("loader"))}
	if usesRedis(cfg) {
		rs, err := connectRedis(ctx, cfg)
		if err != nil {
			return err
		}
		defer rs.Close()
		loaderOpts = append(loaderOpts, service.WithReferenceStore(rs))
	}

	bundles, err := service.NewLoader(loaderOpts...).LoadAll(ctx, cfg)
	if err != nil {
		return err
	}

	mode, err := scorer.ParseAggregationMode(cfg.Batch.Mode)
	if err != nil {
		return err
	}
	opts := []service.Option{
		service.WithBatchMode(mode),
		service.WithConcurrency(cfg.Batch.Concurrency),
		service.WithWarnExtra(cfg.Batch.WarnExtra),
		service.WithLogger(log.Named("predictor")),
	}
	for _, b := range bundles {
		opts = append(opts, service.WithBundle(b))
	}
	predictor, err := service.NewPredictor(opts...)
	if err != nil {
		return err
	}

	srv := server.New(predictor,
		server.WithAddr(cfg.Server.Addr),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		server.WithMaxUploadMB(cfg.Server.MaxUploadMB),
		server.WithCORSOrigins(cfg.Server.CORSOrigins),
		server.WithLogger(log.Named("http")),
	)
	return srv.Run(ctx)
}

// runSeed 对配置了本地 stats/penalties 文件的 track 执行写入
func runSeed(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	rs, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer rs.Close()

	for track, tc := range cfg.TrackConfigs() {
		if tc.Stats == "" || tc.Penalties == "" {
			log.Warn("no reference files configured, skipping", zap.String("track", track.String()))
			continue
		}
		if err := store.SeedFromFiles(ctx, rs, track, tc.Stats, tc.Penalties, localMetadata(tc)); err != nil {
			return fmt.Errorf("seed %s: %w", track, err)
		}
		log.Info("reference data written",
			zap.String("track", track.String()),
			zap.String("stats_key", store.SubjectStatsKey(track)),
			zap.String("penalties_key", store.PenaltiesKey(track)),
		)
	}
	return nil
}

func connectRedis(ctx context.Context, cfg *config.Config) (*store.RedisStore, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rs, err := store.NewRedisStore(pingCtx, store.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
	}
	return rs, nil
}

func usesRedis(cfg *config.Config) bool {
	for _, tc := range cfg.TrackConfigs() {
		if tc.Source == config.SourceRedis {
			return true
		}
	}
	return false
}

// localMetadata 只有本地文件形式的元数据才随参考数据一起写入
func localMetadata(tc config.TrackConfig) string {
	if tc.Metadata == "" || feature.IsHTTPSource(tc.Metadata) {
		return ""
	}
	return tc.Metadata
}
