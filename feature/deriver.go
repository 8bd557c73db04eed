package feature

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/rushteam/admitkit/core"
	"github.com/rushteam/admitkit/metrics"
	"github.com/rushteam/admitkit/pkg/conv"
	"github.com/rushteam/admitkit/pkg/logger"
	"github.com/rushteam/admitkit/rank"
)

// Extractor 是特征派生器的统一接口：原始申请记录 -> 指定 track 的特征向量。
type Extractor interface {
	Derive(ctx context.Context, record *core.ApplicantRecord, track core.Track, required []string) (*core.FeatureVector, error)
}

// Reference 是某个 track 的同伴排名参考数据（进程级只读）。
type Reference struct {
	Stats      *core.SubjectStatistics
	Population *core.PenaltyPopulation
}

// Deriver 把原始申请记录转换为模型所需的定长数值特征。
//
// 派生过程：
//  1. 标量字段按整数解析，缺失或无法解析时取默认值
//  2. 分类字段按固定词表做 one-hot / 集合判断
//  3. 按 track 填充条件特征（硕士 track 使用固定常量）
//  4. 汇总重考次数与欠账数
//  5. 调用 rank.Estimator 计算同伴名次（失败时取 1，仅记录日志）
//  6. 查表得到人类发展指数
//  7. 按 required 校验并裁剪
//
// Deriver 构造后只读，可并发调用 Derive。
type Deriver struct {
	estimator  *rank.Estimator
	references map[core.Track]Reference
	hdi        *HDITable
	warnExtra  bool
	logger     *zap.Logger
}

// DeriverOption 配置 Deriver
type DeriverOption func(*Deriver)

// WithReference 设置某个 track 的课程统计与惩罚分分布
func WithReference(track core.Track, ref Reference) DeriverOption {
	return func(d *Deriver) {
		d.references[track] = ref
	}
}

// WithEstimator 设置同伴排名估计器（默认 rank.NewEstimator()）
func WithEstimator(e *rank.Estimator) DeriverOption {
	return func(d *Deriver) {
		d.estimator = e
	}
}

// WithHDITable 替换内置的人类发展指数表
func WithHDITable(t *HDITable) DeriverOption {
	return func(d *Deriver) {
		d.hdi = t
	}
}

// WithWarnExtra 为 true 时，被裁掉的多余特征以 warn 级别记录
func WithWarnExtra(warn bool) DeriverOption {
	return func(d *Deriver) {
		d.warnExtra = warn
	}
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) DeriverOption {
	return func(d *Deriver) {
		d.logger = l
	}
}

func NewDeriver(opts ...DeriverOption) *Deriver {
	d := &Deriver{
		estimator:  rank.NewEstimator(),
		references: make(map[core.Track]Reference),
		hdi:        DefaultHDITable(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logger.OrNop(d.logger)
	return d
}

var _ Extractor = (*Deriver)(nil)

// Derive 派生特征向量。返回向量的键集恰好等于 required（按 required 的顺序）；
// 任何 required 特征无法产出时返回 MissingFeatureError，列出全部缺失项。
func (d *Deriver) Derive(ctx context.Context, record *core.ApplicantRecord, track core.Track, required []string) (*core.FeatureVector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !track.Valid() {
		return nil, &core.UnparsableInputError{Field: "track", Value: string(track)}
	}
	if record == nil {
		record = &core.ApplicantRecord{}
	}
	log := d.logger.With(zap.String("track", track.String()))
	if record.ID != "" {
		log = log.With(zap.String("applicant", record.ID))
	}

	fv := core.NewFeatureVector(48)
	p := &fieldParser{log: log}

	fv.Set(Priority, float64(p.integer("priority", record.Priority, DefaultPriority)))
	fv.Set(ExamScore, float64(p.integer("exam_score", record.ExamScore, 0)))
	fv.Set(Achievement, float64(p.integer("achievement", record.Achievement, 0)))
	fv.Set(Contract, float64(p.flag("contract", record.Contract)))
	fv.Set(Dormitory, float64(p.flag("dormitory", record.Dormitory)))
	fv.Set(Foreign, float64(p.flag("foreign", record.Foreign)))
	fv.Set(Gender, float64(p.integer("gender", record.Gender, 0)))
	fv.Set(Age, float64(p.integer("age", record.Age, DefaultAge)))
	fv.Set(YearsSinceGraduation, float64(p.integer("years_since_graduation", record.YearsSinceGraduation, 0)))
	fv.Set(FromEkaterinburg, float64(p.flag("city", record.City)))
	fv.Set(FromSverdlovskRegion, float64(p.flag("region", record.Region)))

	country := orDefault(record.Country, DefaultCountry)
	setCountry(fv, country)
	competitionCategories.encode(orDefault(record.Competition, DefaultCompetition), fv)
	studyForms.encode(orDefault(record.StudyForm, DefaultStudyForm), fv)
	benefitCategories.encode(orDefault(record.Benefit, DefaultBenefit), fv)
	setDirection(fv, orDefault(record.Direction, DefaultDirection))

	switch track {
	case core.TrackUndergraduateSpecialist:
		fv.Set(BVI, float64(p.flag("bvi", record.BVI)))
		fv.Set(BVICategory, float64(p.flag("bvi_category", record.BVICategory)))
		olympiadCategories.encode(orDefault(record.Olympiad, DefaultOlympiad), fv)
		if conv.NormalizeLabel(orDefault(record.Level, DefaultLevel)) == conv.NormalizeLabel(Specialist) {
			fv.Set(Specialist, 1)
		} else {
			fv.Set(Specialist, 0)
		}
		institutionTypes.encode(orDefault(record.Institution, DefaultInstitution), fv)
	case core.TrackGraduate:
		// 硕士申请人默认已完成高等教育
		fv.Set(BVI, 0)
		fv.Set(BVICategory, 0)
		fv.Set(OlympiadAllRussian, 0)
		fv.Set(OlympiadListed, 0)
		fv.Set(Specialist, 0)
		fv.Set(MilitaryInst, 0)
		fv.Set(HigherEducation, 1)
		fv.Set(SpecializedSchool, 0)
		fv.Set(Vocational, 0)
	}

	discipline := SummarizeDiscipline(record.Subjects)
	if discipline.Unparsed > 0 {
		log.Debug("unparsable retake counts treated as 0", zap.Int("count", discipline.Unparsed))
	}
	fv.Set(TotalRetakes, float64(discipline.TotalRetakes))
	fv.Set(TotalDebts, float64(discipline.TotalDebts))

	fv.Set(PeerRank, float64(d.peerRank(record.Subjects, track, log)))
	fv.Set(HumanDevelopment, d.hdi.Lookup(country))

	out, extra, err := fv.Select(required)
	if err != nil {
		log.Error("derived vector is missing required features", zap.Error(err))
		return nil, err
	}
	if len(extra) > 0 && d.warnExtra {
		log.Warn("dropping features not used by the model", zap.Strings("features", extra))
	}
	return out, nil
}

// peerRank 计算同伴名次；任何失败都回退到 1，不向上传播。
func (d *Deriver) peerRank(subjects []core.SubjectEntry, track core.Track, log *zap.Logger) int {
	ref, ok := d.references[track]
	if !ok {
		d.rankFallback(track, log, &core.RankComputationError{Reason: "no reference data for track"})
		return 1
	}
	r, err := d.estimator.Rank(rank.ScoresFromSubjects(subjects), ref.Stats, ref.Population)
	if err != nil {
		d.rankFallback(track, log, err)
		return 1
	}
	return r
}

func (d *Deriver) rankFallback(track core.Track, log *zap.Logger, err error) {
	metrics.RankFallbacks.WithLabelValues(track.String()).Inc()
	log.Warn("peer rank failed, falling back to rank 1", zap.Error(err))
}

func setCountry(fv *core.FeatureVector, country string) {
	postSoviet := IsPostSoviet(country)
	fv.Set(PostSoviet, boolFloat(postSoviet))
	fv.Set(OtherCountry, boolFloat(!postSoviet && conv.NormalizeLabel(country) != homeCountry))
}

// setDirection 按专业代码（如 "10.03.01"）前两位和后两位设置指示特征。
func setDirection(fv *core.FeatureVector, direction string) {
	direction = strings.TrimSpace(direction)
	for _, p := range directionPrefixes {
		fv.Set(p.feature, boolFloat(strings.HasPrefix(direction, p.prefix)))
	}
	for _, s := range directionSuffixes {
		fv.Set(s.feature, boolFloat(strings.HasSuffix(direction, s.suffix)))
	}
}

// fieldParser 宽松解析标量字段：缺失取默认值，无法解析时记录 UnparsableInputError 并取默认值。
type fieldParser struct {
	log *zap.Logger
}

func (p *fieldParser) integer(field, raw string, def int) int {
	if strings.TrimSpace(raw) == "" {
		return def
	}
	v, ok := conv.ParseInt(raw)
	if !ok {
		p.log.Debug("using default for field", zap.Error(&core.UnparsableInputError{Field: field, Value: raw}), zap.Int("default", def))
		return def
	}
	return v
}

func (p *fieldParser) flag(field, raw string) int {
	if strings.TrimSpace(raw) == "" {
		return 0
	}
	v, ok := conv.ParseFlag(raw)
	if !ok {
		p.log.Debug("using default for field", zap.Error(&core.UnparsableInputError{Field: field, Value: raw}), zap.Int("default", 0))
		return 0
	}
	return v
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
