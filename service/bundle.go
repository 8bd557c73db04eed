package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/admitkit/config"
	"github.com/rushteam/admitkit/core"
	"github.com/rushteam/admitkit/feature"
	"github.com/rushteam/admitkit/model"
	"github.com/rushteam/admitkit/pkg/dsl"
	"github.com/rushteam/admitkit/pkg/logger"
	"github.com/rushteam/admitkit/store"
)

// TrackBundle 是一个 track 的全部只读依赖：模型、阈值、特征列、参考数据、判定规则。
// 启动时加载一次，之后在请求之间共享。
type TrackBundle struct {
	Track      core.Track
	Classifier model.Classifier
	Threshold  float64
	// Features 是模型需要的特征列（按顺序）
	Features     []string
	Reference    feature.Reference
	Rule         *dsl.Rule
	ModelVersion string
}

// Validate 校验 bundle 完整性
func (b *TrackBundle) Validate() error {
	if !b.Track.Valid() {
		return &core.UnparsableInputError{Field: "track", Value: string(b.Track)}
	}
	if !b.Classifier.Valid() {
		return fmt.Errorf("%s: classifier not configured", b.Track)
	}
	if b.Threshold < 0 || b.Threshold > 1 {
		return fmt.Errorf("%s: threshold %v out of [0,1]", b.Track, b.Threshold)
	}
	if len(b.Features) == 0 {
		return fmt.Errorf("%s: no feature columns", b.Track)
	}
	return nil
}

// Loader 按配置加载各 track 的 bundle。
type Loader struct {
	store  core.ReferenceStore
	http   *feature.HTTPMetadataLoader
	logger *zap.Logger
}

// LoaderOption 配置 Loader
type LoaderOption func(*Loader)

// WithReferenceStore 设置 source=redis 时使用的存储
func WithReferenceStore(s core.ReferenceStore) LoaderOption {
	return func(l *Loader) {
		l.store = s
	}
}

func WithLoaderLogger(log *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = log
	}
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{http: feature.NewHTTPMetadataLoader(10 * time.Second)}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logger.OrNop(l.logger)
	return l
}

// LoadAll 加载配置中的全部 track
func (l *Loader) LoadAll(ctx context.Context, cfg *config.Config) ([]*TrackBundle, error) {
	bundles := make([]*TrackBundle, 0, len(cfg.Tracks))
	for _, track := range core.Tracks() {
		tc, ok := cfg.TrackConfigs()[track]
		if !ok {
			continue
		}
		b, err := l.Load(ctx, track, tc)
		if err != nil {
			return nil, fmt.Errorf("load track %s: %w", track, err)
		}
		bundles = append(bundles, b)
	}
	return bundles, nil
}

// Load 加载单个 track：元数据 -> 参考数据 -> 模型 -> 规则
func (l *Loader) Load(ctx context.Context, track core.Track, tc config.TrackConfig) (*TrackBundle, error) {
	meta, err := l.loadMetadata(ctx, track, tc)
	if err != nil {
		return nil, err
	}
	if unsupported := meta.Unsupported(); len(unsupported) > 0 {
		return nil, fmt.Errorf("model expects features the deriver cannot produce: %w", core.NewMissingFeatureError(unsupported))
	}

	var ref feature.Reference
	switch tc.Source {
	case config.SourceRedis:
		if l.store == nil {
			return nil, fmt.Errorf("source=redis but no reference store configured")
		}
		ref, err = store.LoadReference(ctx, l.store, track)
	default:
		ref, err = store.LoadReferenceFiles(tc.Stats, tc.Penalties)
	}
	if err != nil {
		return nil, fmt.Errorf("reference data: %w", err)
	}

	params := tc.Model.Params(track)
	params["columns"] = meta.FeatureColumns
	clf, err := model.Build(tc.Model.Type, params)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	rule, err := dsl.NewRule(tc.Rule)
	if err != nil {
		return nil, fmt.Errorf("rule: %w", err)
	}

	threshold := meta.Threshold
	if tc.Threshold != nil {
		threshold = *tc.Threshold
	}
	b := &TrackBundle{
		Track:        track,
		Classifier:   clf.WithFeatures(meta.FeatureColumns),
		Threshold:    threshold,
		Features:     meta.FeatureColumns,
		Reference:    ref,
		Rule:         rule,
		ModelVersion: meta.ModelVersion,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	l.logger.Info("track loaded",
		zap.String("track", track.String()),
		zap.String("model", clf.Name()),
		zap.String("model_version", meta.ModelVersion),
		zap.Float64("threshold", threshold),
		zap.Int("features", len(meta.FeatureColumns)),
		zap.Int("subjects", ref.Stats.Len()),
		zap.Int("penalties", ref.Population.Len()),
		zap.String("rule", rule.Expr()),
	)
	return b, nil
}

func (l *Loader) loadMetadata(ctx context.Context, track core.Track, tc config.TrackConfig) (*feature.FeatureMetadata, error) {
	var (
		loader feature.MetadataLoader
		source = tc.Metadata
	)
	switch {
	case feature.IsHTTPSource(source):
		loader = l.http
	case source == "" && tc.Source == config.SourceRedis && l.store != nil:
		loader = feature.NewStoreMetadataLoader(l.store)
		source = store.MetadataKey(track)
	case source == "":
		return nil, fmt.Errorf("metadata source not configured")
	default:
		loader = feature.NewFileMetadataLoader()
	}
	meta, err := loader.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("metadata %s: %w", source, err)
	}
	return meta, nil
}
