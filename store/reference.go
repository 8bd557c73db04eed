package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rushteam/admitkit/core"
	"github.com/rushteam/admitkit/feature"
	"github.com/rushteam/admitkit/pkg/codec"
)

// 参考数据在存储中的 key 布局（track 使用线上别名 bak_spec / magistr）：
//
//	admit:{track}:subject_stats  Hash   field=课程名 value={"mean_clean":..,"fail_ratio":..}
//	admit:{track}:penalties      ZSet   score=历史惩罚分
//	admit:{track}:meta           String 特征元数据 JSON
const keyPrefix = "admit"

func SubjectStatsKey(track core.Track) string {
	return keyPrefix + ":" + track.Alias() + ":subject_stats"
}

func PenaltiesKey(track core.Track) string {
	return keyPrefix + ":" + track.Alias() + ":penalties"
}

func MetadataKey(track core.Track) string {
	return keyPrefix + ":" + track.Alias() + ":meta"
}

// LoadReference 从存储读取一个 track 的课程统计与惩罚分分布。
func LoadReference(ctx context.Context, s core.ReferenceStore, track core.Track) (feature.Reference, error) {
	raw, err := s.HGetAll(ctx, SubjectStatsKey(track))
	if err != nil {
		return feature.Reference{}, fmt.Errorf("%s hgetall %s: %w", s.Name(), SubjectStatsKey(track), err)
	}
	if len(raw) == 0 {
		return feature.Reference{}, fmt.Errorf("%s: %s: %w", s.Name(), SubjectStatsKey(track), core.ErrStoreNotFound)
	}
	stats := make(map[string]core.SubjectStat, len(raw))
	for subject, data := range raw {
		var st core.SubjectStat
		if err := json.Unmarshal(data, &st); err != nil {
			return feature.Reference{}, fmt.Errorf("decode subject stat %q: %w", subject, err)
		}
		stats[subject] = st
	}

	penalties, err := s.ZScores(ctx, PenaltiesKey(track))
	if err != nil {
		return feature.Reference{}, fmt.Errorf("%s zrange %s: %w", s.Name(), PenaltiesKey(track), err)
	}
	return newReference(stats, penalties)
}

// SaveReference 把一个 track 的参考数据写入存储（覆盖旧数据）。
func SaveReference(ctx context.Context, s core.ReferenceStore, track core.Track, stats map[string]core.SubjectStat, penalties []float64) error {
	if _, err := newReference(stats, penalties); err != nil {
		return err
	}
	for _, key := range []string{SubjectStatsKey(track), PenaltiesKey(track)} {
		if err := s.Delete(ctx, key); err != nil {
			return fmt.Errorf("%s del %s: %w", s.Name(), key, err)
		}
	}
	for subject, st := range stats {
		data, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("encode subject stat %q: %w", subject, err)
		}
		if err := s.HSet(ctx, SubjectStatsKey(track), subject, data); err != nil {
			return fmt.Errorf("%s hset %s: %w", s.Name(), SubjectStatsKey(track), err)
		}
	}
	// member 只需唯一，重复的惩罚分各占一个 member
	for i, p := range penalties {
		if err := s.ZAdd(ctx, PenaltiesKey(track), p, strconv.Itoa(i)); err != nil {
			return fmt.Errorf("%s zadd %s: %w", s.Name(), PenaltiesKey(track), err)
		}
	}
	return nil
}

// LoadReferenceFiles 从本地 JSON/YAML 文件读取参考数据：
// statsPath 为 课程名 -> {mean_clean, fail_ratio}，penaltiesPath 为惩罚分数组（无需有序）。
func LoadReferenceFiles(statsPath, penaltiesPath string) (feature.Reference, error) {
	var stats map[string]core.SubjectStat
	if err := codec.DecodeFile(statsPath, &stats); err != nil {
		return feature.Reference{}, fmt.Errorf("load subject stats: %w", err)
	}
	var penalties []float64
	if err := codec.DecodeFile(penaltiesPath, &penalties); err != nil {
		return feature.Reference{}, fmt.Errorf("load penalties: %w", err)
	}
	return newReference(stats, penalties)
}

func newReference(stats map[string]core.SubjectStat, penalties []float64) (feature.Reference, error) {
	st, err := core.NewSubjectStatistics(stats)
	if err != nil {
		return feature.Reference{}, err
	}
	pop, err := core.NewPenaltyPopulation(penalties)
	if err != nil {
		return feature.Reference{}, err
	}
	return feature.Reference{Stats: st, Population: pop}, nil
}

// SeedFromFiles 把本地参考数据与特征元数据写入存储，供 source=redis 的实例加载。
// metadataPath 为空时只写参考数据。
func SeedFromFiles(ctx context.Context, s core.ReferenceStore, track core.Track, statsPath, penaltiesPath, metadataPath string) error {
	var stats map[string]core.SubjectStat
	if err := codec.DecodeFile(statsPath, &stats); err != nil {
		return fmt.Errorf("load subject stats: %w", err)
	}
	var penalties []float64
	if err := codec.DecodeFile(penaltiesPath, &penalties); err != nil {
		return fmt.Errorf("load penalties: %w", err)
	}
	if err := SaveReference(ctx, s, track, stats, penalties); err != nil {
		return err
	}
	if metadataPath == "" {
		return nil
	}

	meta, err := feature.LoadFeatureMetadata(metadataPath)
	if err != nil {
		return err
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode feature metadata: %w", err)
	}
	if err := s.Set(ctx, MetadataKey(track), data); err != nil {
		return fmt.Errorf("%s set %s: %w", s.Name(), MetadataKey(track), err)
	}
	return nil
}
