package feature

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/admitkit/core"
)

const metaJSON = `{
  "feature_columns": ["Приоритет", "Позиция студента в рейтинге"],
  "feature_count": 2,
  "threshold": 0.42,
  "model_version": "v3"
}`

func TestLoadFeatureMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rf_bak_spec_meta.json")
	require.NoError(t, os.WriteFile(path, []byte(metaJSON), 0o644))

	meta, err := LoadFeatureMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, []string{Priority, PeerRank}, meta.FeatureColumns)
	assert.Equal(t, 0.42, meta.Threshold)
	assert.Equal(t, "v3", meta.ModelVersion)
	assert.Empty(t, meta.Unsupported())

	yamlPath := filepath.Join(dir, "meta.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("feature_columns: [Пол, Foo]\nthreshold: 0.5\n"), 0o644))
	meta, err = NewFileMetadataLoader().Load(context.Background(), yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"Foo"}, meta.Unsupported())
}

func TestFeatureMetadata_Validate(t *testing.T) {
	tests := []struct {
		name    string
		meta    FeatureMetadata
		wantErr bool
	}{
		{name: "ok", meta: FeatureMetadata{FeatureColumns: []string{"a"}, Threshold: 0.5}},
		{name: "empty columns", meta: FeatureMetadata{Threshold: 0.5}, wantErr: true},
		{name: "duplicate", meta: FeatureMetadata{FeatureColumns: []string{"a", "a"}}, wantErr: true},
		{name: "count mismatch", meta: FeatureMetadata{FeatureColumns: []string{"a"}, FeatureCount: 3}, wantErr: true},
		{name: "threshold", meta: FeatureMetadata{FeatureColumns: []string{"a"}, Threshold: 1.5}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.meta.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHTTPMetadataLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meta.json" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(metaJSON))
	}))
	defer srv.Close()

	loader := NewHTTPMetadataLoader(time.Second)
	meta, err := loader.Load(context.Background(), srv.URL+"/meta.json")
	require.NoError(t, err)
	assert.Equal(t, 0.42, meta.Threshold)

	_, err = loader.Load(context.Background(), srv.URL+"/other.json")
	assert.Error(t, err)
}

type fakeStore struct {
	data map[string][]byte
}

func (s *fakeStore) Name() string { return "fake" }

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.data[key]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	return v, nil
}

func (s *fakeStore) Set(_ context.Context, key string, value []byte, _ ...int) error {
	s.data[key] = value
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	delete(s.data, key)
	return nil
}

func (s *fakeStore) Close() error { return nil }

func TestStoreMetadataLoader(t *testing.T) {
	store := &fakeStore{data: map[string][]byte{"admit:graduate:meta": []byte(metaJSON)}}
	loader := NewStoreMetadataLoader(store)

	meta, err := loader.Load(context.Background(), "admit:graduate:meta")
	require.NoError(t, err)
	assert.Equal(t, 2, meta.FeatureCount)

	_, err = loader.Load(context.Background(), "admit:other:meta")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStoreNotFound)
}

func TestIsHTTPSource(t *testing.T) {
	assert.True(t, IsHTTPSource("http://models.internal/meta.json"))
	assert.True(t, IsHTTPSource("https://models.internal/meta.yaml"))
	assert.False(t, IsHTTPSource("models/rf_magistr_meta.json"))
	assert.False(t, IsHTTPSource(""))
}
