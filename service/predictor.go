// Package service 把派生、排名与打分串成对外的预测用例。
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/admitkit/core"
	"github.com/rushteam/admitkit/feature"
	"github.com/rushteam/admitkit/metrics"
	"github.com/rushteam/admitkit/pkg/logger"
	"github.com/rushteam/admitkit/pkg/utils"
	"github.com/rushteam/admitkit/scorer"
)

// ErrTrackNotLoaded 表示请求的 track 没有加载模型
var ErrTrackNotLoaded = core.NewDomainError(core.ModuleModel, core.ErrorCodeNotFound, "track not loaded")

// Prediction 是单个申请人的预测结果
type Prediction struct {
	RequestID   string                 `json:"request_id"`
	Track       core.Track             `json:"track"`
	ApplicantID string                 `json:"applicant_id,omitempty"`
	Result      core.ScoringResult     `json:"result"`
	Percent     float64                `json:"percent"`
	Labels      map[string]utils.Label `json:"labels,omitempty"`
	Features    *core.FeatureVector    `json:"features,omitempty"`
}

// RowPrediction 是批量预测中的一行；Err 非空表示该行失败
type RowPrediction struct {
	ID     string              `json:"id"`
	Result *core.ScoringResult `json:"result,omitempty"`
	Err    error               `json:"-"`
}

// BatchPrediction 是批量预测结果。Mode=mean 时 Aggregate 为全部成功行的平均结果，
// Rows 只携带行标识与错误。
type BatchPrediction struct {
	RequestID string                 `json:"request_id"`
	Track     core.Track             `json:"track"`
	Mode      scorer.AggregationMode `json:"mode"`
	Rows      []RowPrediction        `json:"rows"`
	Aggregate *core.ScoringResult    `json:"aggregate,omitempty"`
}

// Failed 返回失败行数
func (b *BatchPrediction) Failed() int {
	n := 0
	for _, r := range b.Rows {
		if r.Err != nil {
			n++
		}
	}
	return n
}

type trackRuntime struct {
	bundle *TrackBundle
	scorer *scorer.Scorer
}

// Predictor 持有各 track 的 bundle，构造后只读，可并发调用。
type Predictor struct {
	tracks      map[core.Track]*trackRuntime
	deriver     feature.Extractor
	batchMode   scorer.AggregationMode
	concurrency int
	warnExtra   bool
	logger      *zap.Logger
}

// Option 配置 Predictor
type Option func(*Predictor)

// WithBundle 注册一个 track
func WithBundle(b *TrackBundle) Option {
	return func(p *Predictor) {
		p.tracks[b.Track] = &trackRuntime{bundle: b}
	}
}

// WithBatchMode 设置批量聚合方式（默认 per_row）
func WithBatchMode(mode scorer.AggregationMode) Option {
	return func(p *Predictor) {
		p.batchMode = mode
	}
}

// WithConcurrency 设置批量派生的并发上限（默认 8）
func WithConcurrency(n int) Option {
	return func(p *Predictor) {
		p.concurrency = n
	}
}

// WithWarnExtra 为 true 时记录被忽略的多余特征
func WithWarnExtra(warn bool) Option {
	return func(p *Predictor) {
		p.warnExtra = warn
	}
}

// WithExtractor 替换默认的 feature.Deriver
func WithExtractor(e feature.Extractor) Option {
	return func(p *Predictor) {
		p.deriver = e
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Predictor) {
		p.logger = l
	}
}

func NewPredictor(opts ...Option) (*Predictor, error) {
	p := &Predictor{
		tracks:      make(map[core.Track]*trackRuntime),
		batchMode:   scorer.AggregatePerRow,
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logger.OrNop(p.logger)
	if len(p.tracks) == 0 {
		return nil, fmt.Errorf("predictor: no track bundles")
	}

	derivOpts := []feature.DeriverOption{
		feature.WithLogger(p.logger.Named("derive")),
		feature.WithWarnExtra(p.warnExtra),
	}
	for track, rt := range p.tracks {
		if err := rt.bundle.Validate(); err != nil {
			return nil, err
		}
		rt.scorer = scorer.New(
			scorer.WithTrack(track),
			scorer.WithRule(rt.bundle.Rule),
			scorer.WithLogger(p.logger.Named("score")),
		)
		derivOpts = append(derivOpts, feature.WithReference(track, rt.bundle.Reference))
	}
	if p.deriver == nil {
		p.deriver = feature.NewDeriver(derivOpts...)
	}
	return p, nil
}

// Tracks 返回已加载的 track
func (p *Predictor) Tracks() []core.Track {
	var out []core.Track
	for _, t := range core.Tracks() {
		if _, ok := p.tracks[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Bundle 返回 track 的 bundle
func (p *Predictor) Bundle(track core.Track) (*TrackBundle, bool) {
	rt, ok := p.tracks[track]
	if !ok {
		return nil, false
	}
	return rt.bundle, true
}

func (p *Predictor) runtime(track core.Track) (*trackRuntime, error) {
	rt, ok := p.tracks[track]
	if !ok {
		return nil, fmt.Errorf("%s: %w", track, ErrTrackNotLoaded)
	}
	return rt, nil
}

// Predict 对单个申请人派生特征并打分。
func (p *Predictor) Predict(ctx context.Context, track core.Track, record *core.ApplicantRecord) (*Prediction, error) {
	rt, err := p.runtime(track)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	log := p.logger.With(zap.String("request_id", requestID), zap.String("track", track.String()))

	fv, err := p.derive(ctx, rt, record)
	if err != nil {
		p.recordError(track, err)
		log.Warn("derive failed", zap.Error(err))
		return nil, err
	}

	start := time.Now()
	res, err := rt.scorer.Score(ctx, fv, rt.bundle.Classifier, rt.bundle.Threshold)
	metrics.ObserveStage(track.String(), metrics.StageScore, start)
	if err != nil {
		p.recordError(track, err)
		log.Error("score failed", zap.Error(err))
		return nil, err
	}
	p.recordResult(track, res)

	pred := &Prediction{
		RequestID: requestID,
		Track:     track,
		Result:    res,
		Percent:   res.Percent(),
		Features:  fv,
		Labels:    p.labels(rt, fv, res),
	}
	if record != nil {
		pred.ApplicantID = record.ID
	}
	log.Info("prediction",
		zap.String("applicant", pred.ApplicantID),
		zap.Float64("probability", res.Probability),
		zap.String("recommendation", string(res.Recommendation)),
	)
	return pred, nil
}

// PredictBatch 并发派生每条记录，再统一打分。单行失败只影响该行。
func (p *Predictor) PredictBatch(ctx context.Context, track core.Track, records []*core.ApplicantRecord) (*BatchPrediction, error) {
	rt, err := p.runtime(track)
	if err != nil {
		return nil, err
	}
	out := &BatchPrediction{
		RequestID: uuid.NewString(),
		Track:     track,
		Mode:      p.batchMode,
		Rows:      make([]RowPrediction, len(records)),
	}
	metrics.BatchRows.WithLabelValues(track.String()).Observe(float64(len(records)))
	if len(records) == 0 {
		return out, nil
	}

	fvs := make([]*core.FeatureVector, len(records))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(p.concurrency, 1))
	for i, rec := range records {
		out.Rows[i].ID = rowID(rec, i)
		eg.Go(func() error {
			fv, err := p.derive(egCtx, rt, rec)
			if err != nil {
				// 单行错误记录在行上，不中断其他行；只有取消才终止整批
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				out.Rows[i].Err = err
				p.recordError(track, err)
				return nil
			}
			fvs[i] = fv
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if err := p.scoreRows(ctx, rt, out, fvs); err != nil {
		return nil, err
	}
	if failed := out.Failed(); failed > 0 {
		p.logger.Warn("batch rows failed",
			zap.String("request_id", out.RequestID),
			zap.String("track", track.String()),
			zap.Int("failed", failed),
			zap.Int("total", len(records)),
		)
	}
	return out, nil
}

// PredictFeatures 对已经是模型特征的行打分（特征表上传、模型服务风格的 JSON 接口）。
func (p *Predictor) PredictFeatures(ctx context.Context, track core.Track, ids []string, rows []*core.FeatureVector) (*BatchPrediction, error) {
	rt, err := p.runtime(track)
	if err != nil {
		return nil, err
	}
	if len(ids) != len(rows) {
		return nil, fmt.Errorf("predict features: %d ids for %d rows", len(ids), len(rows))
	}
	out := &BatchPrediction{
		RequestID: uuid.NewString(),
		Track:     track,
		Mode:      p.batchMode,
		Rows:      make([]RowPrediction, len(rows)),
	}
	for i, id := range ids {
		out.Rows[i].ID = id
	}
	metrics.BatchRows.WithLabelValues(track.String()).Observe(float64(len(rows)))
	if len(rows) == 0 {
		return out, nil
	}
	if err := p.scoreRows(ctx, rt, out, rows); err != nil {
		return nil, err
	}
	return out, nil
}

// scoreRows 对 fvs 中非 nil 的行打分。先整批调用模型；整批失败时逐行重试，把错误定位到行。
func (p *Predictor) scoreRows(ctx context.Context, rt *trackRuntime, out *BatchPrediction, fvs []*core.FeatureVector) error {
	track := rt.bundle.Track
	var (
		idx  []int
		good []*core.FeatureVector
	)
	for i, fv := range fvs {
		if fv != nil && out.Rows[i].Err == nil {
			idx = append(idx, i)
			good = append(good, fv)
		}
	}
	if len(good) == 0 {
		return nil
	}

	start := time.Now()
	defer metrics.ObserveStage(track.String(), metrics.StageScore, start)

	if out.Mode == scorer.AggregateMean {
		results, err := rt.scorer.ScoreBatch(ctx, good, rt.bundle.Classifier, rt.bundle.Threshold, scorer.AggregateMean)
		if err != nil {
			p.recordError(track, err)
			return err
		}
		out.Aggregate = &results[0]
		p.recordResult(track, results[0])
		return nil
	}

	results, err := rt.scorer.ScoreBatch(ctx, good, rt.bundle.Classifier, rt.bundle.Threshold, scorer.AggregatePerRow)
	if err == nil {
		for j, i := range idx {
			res := results[j]
			out.Rows[i].Result = &res
			p.recordResult(track, res)
		}
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	p.logger.Warn("batch scoring failed, retrying per row", zap.String("track", track.String()), zap.Error(err))
	for j, i := range idx {
		res, err := rt.scorer.Score(ctx, good[j], rt.bundle.Classifier, rt.bundle.Threshold)
		if err != nil {
			out.Rows[i].Err = err
			p.recordError(track, err)
			continue
		}
		out.Rows[i].Result = &res
		p.recordResult(track, res)
	}
	return nil
}

func (p *Predictor) derive(ctx context.Context, rt *trackRuntime, record *core.ApplicantRecord) (*core.FeatureVector, error) {
	start := time.Now()
	defer metrics.ObserveStage(rt.bundle.Track.String(), metrics.StageDerive, start)
	return p.deriver.Derive(ctx, record, rt.bundle.Track, rt.bundle.Features)
}

func (p *Predictor) labels(rt *trackRuntime, fv *core.FeatureVector, res core.ScoringResult) map[string]utils.Label {
	var labels map[string]utils.Label
	labels = utils.PutLabel(labels, "model", utils.Label{Value: rt.bundle.Classifier.Name(), Source: "model"})
	if rt.bundle.ModelVersion != "" {
		labels = utils.PutLabel(labels, "model", utils.Label{Value: rt.bundle.ModelVersion, Source: "metadata"})
	}
	labels = utils.PutLabel(labels, "recommendation", utils.Label{Value: string(res.Recommendation), Source: "score"})
	if rt.bundle.Rule != nil && !rt.bundle.Rule.IsDefault() {
		labels = utils.PutLabel(labels, "recommendation", utils.Label{Value: rt.bundle.Rule.Expr(), Source: "rule"})
	}
	if r, ok := fv.Get(feature.PeerRank); ok {
		labels = utils.PutLabel(labels, "peer_rank", utils.Label{Value: strconv.Itoa(int(r)), Source: "rank"})
	}
	return labels
}

func (p *Predictor) recordResult(track core.Track, res core.ScoringResult) {
	metrics.PredictionsTotal.WithLabelValues(track.String(), string(res.Recommendation)).Inc()
}

func (p *Predictor) recordError(track core.Track, err error) {
	code := "INTERNAL"
	if de := core.AsDomainError(err); de != nil {
		code = de.Code
	}
	metrics.PredictionErrors.WithLabelValues(track.String(), code).Inc()
}

func rowID(rec *core.ApplicantRecord, i int) string {
	if rec != nil && rec.ID != "" {
		return rec.ID
	}
	return strconv.Itoa(i + 1)
}
