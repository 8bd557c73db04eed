package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/admitkit/core"
)

func newTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s, err := NewRedisStore(context.Background(), RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func stores(t *testing.T) map[string]core.ReferenceStore {
	mem := NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })
	return map[string]core.ReferenceStore{
		"memory": mem,
		"redis":  newTestRedis(t),
	}
}

func TestStore_KeyValue(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "missing")
			assert.ErrorIs(t, err, core.ErrStoreNotFound)

			require.NoError(t, s.Set(ctx, "k", []byte("v")))
			got, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), got)

			require.NoError(t, s.Delete(ctx, "k"))
			_, err = s.Get(ctx, "k")
			assert.True(t, core.IsNotFound(err))
		})
	}
}

func TestStore_HashAndSortedSet(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.HSet(ctx, "h", "a", []byte("1")))
			require.NoError(t, s.HSet(ctx, "h", "b", []byte("2")))
			v, err := s.HGet(ctx, "h", "a")
			require.NoError(t, err)
			assert.Equal(t, []byte("1"), v)
			_, err = s.HGet(ctx, "h", "c")
			assert.ErrorIs(t, err, core.ErrStoreNotFound)

			all, err := s.HGetAll(ctx, "h")
			require.NoError(t, err)
			assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, all)

			empty, err := s.HGetAll(ctx, "nope")
			require.NoError(t, err)
			assert.Empty(t, empty)

			require.NoError(t, s.ZAdd(ctx, "z", 3, "x"))
			require.NoError(t, s.ZAdd(ctx, "z", -1, "y"))
			require.NoError(t, s.ZAdd(ctx, "z", 2, "w"))
			scores, err := s.ZScores(ctx, "z")
			require.NoError(t, err)
			assert.Equal(t, []float64{-1, 2, 3}, scores)

			_, err = s.ZScores(ctx, "nope")
			assert.ErrorIs(t, err, core.ErrStoreNotFound)
		})
	}
}

func TestReference_SaveLoad(t *testing.T) {
	ctx := context.Background()
	stats := map[string]core.SubjectStat{
		"Math":    {MeanClean: 75, FailRatio: 0.1},
		"Physics": {MeanClean: 60, FailRatio: 0.3},
	}
	penalties := []float64{100, -50, 5000, 100, 0}

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := LoadReference(ctx, s, core.TrackGraduate)
			assert.ErrorIs(t, err, core.ErrStoreNotFound)

			require.NoError(t, SaveReference(ctx, s, core.TrackGraduate, stats, penalties))
			ref, err := LoadReference(ctx, s, core.TrackGraduate)
			require.NoError(t, err)

			assert.Equal(t, []string{"Math", "Physics"}, ref.Stats.Subjects())
			st, ok := ref.Stats.Lookup("Physics")
			require.True(t, ok)
			assert.Equal(t, 0.3, st.FailRatio)
			assert.Equal(t, []float64{-50, 0, 100, 100, 5000}, ref.Population.Values())

			// 覆盖写入不残留旧数据
			require.NoError(t, SaveReference(ctx, s, core.TrackGraduate, map[string]core.SubjectStat{"Chem": {MeanClean: 50}}, []float64{1}))
			ref, err = LoadReference(ctx, s, core.TrackGraduate)
			require.NoError(t, err)
			assert.Equal(t, []string{"Chem"}, ref.Stats.Subjects())
			assert.Equal(t, 1, ref.Population.Len())
		})
	}
}

func TestReference_SaveRejectsInvalid(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	err := SaveReference(context.Background(), s, core.TrackGraduate, map[string]core.SubjectStat{"Math": {FailRatio: 2}}, nil)
	assert.Error(t, err)
}

func TestReferenceKeys(t *testing.T) {
	assert.Equal(t, "admit:magistr:subject_stats", SubjectStatsKey(core.TrackGraduate))
	assert.Equal(t, "admit:bak_spec:penalties", PenaltiesKey(core.TrackUndergraduateSpecialist))
	assert.Equal(t, "admit:magistr:meta", MetadataKey(core.TrackGraduate))
}

func TestLoadReferenceFiles(t *testing.T) {
	dir := t.TempDir()
	statsPath := filepath.Join(dir, "subject_stats_magistr.yaml")
	penaltiesPath := filepath.Join(dir, "sorted_penalties_magistr.json")
	require.NoError(t, os.WriteFile(statsPath, []byte("Math:\n  mean_clean: 75\n  fail_ratio: 0.1\n"), 0o644))
	require.NoError(t, os.WriteFile(penaltiesPath, []byte(`[3, 1, 2]`), 0o644))

	ref, err := LoadReferenceFiles(statsPath, penaltiesPath)
	require.NoError(t, err)
	assert.Equal(t, 1, ref.Stats.Len())
	assert.Equal(t, []float64{1, 2, 3}, ref.Population.Values())

	_, err = LoadReferenceFiles(statsPath, filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestMemoryStore_SetIgnoresTTL(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	buf := []byte("v")
	require.NoError(t, s.Set(ctx, "k", buf, -1))
	buf[0] = 'x'
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestSeedFromFiles(t *testing.T) {
	dir := t.TempDir()
	statsPath := filepath.Join(dir, "stats.json")
	penaltiesPath := filepath.Join(dir, "penalties.yaml")
	metaPath := filepath.Join(dir, "meta.json")
	require.NoError(t, os.WriteFile(statsPath, []byte(`{"Math": {"mean_clean": 70, "fail_ratio": 0.2}}`), 0o644))
	require.NoError(t, os.WriteFile(penaltiesPath, []byte("- 5\n- 1\n"), 0o644))
	require.NoError(t, os.WriteFile(metaPath, []byte(`{"feature_columns": ["Приоритет"], "threshold": 0.4}`), 0o644))

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			track := core.TrackUndergraduateSpecialist
			require.NoError(t, SeedFromFiles(ctx, s, track, statsPath, penaltiesPath, metaPath))

			ref, err := LoadReference(ctx, s, track)
			require.NoError(t, err)
			assert.Equal(t, []float64{1, 5}, ref.Population.Values())

			raw, err := s.Get(ctx, MetadataKey(track))
			require.NoError(t, err)
			assert.Contains(t, string(raw), `"threshold":0.4`)
		})
	}
}
