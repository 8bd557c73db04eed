package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInt(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"42", 42, true},
		{" 7 ", 7, true},
		{"3.9", 3, true},
		{"4,5", 4, true},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"1e30", 0, false},
		{"-1e30", 0, false},
		{"2147483647", 2147483647, true},
		{"2147483648", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseInt(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"on", 1, true},
		{"off", 0, true},
		{"TRUE", 1, true},
		{"0", 0, true},
		{"1", 1, true},
		{"2", 1, true},
		{"maybe", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseFlag(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, NormalizeLabel("Незачёт"), NormalizeLabel("незачет"))
	assert.Equal(t, NormalizeLabel("  Неуважительная   причина "), NormalizeLabel("Неуважительная причина"))
	assert.NotEqual(t, NormalizeLabel("Зачёт"), NormalizeLabel("Незачёт"))
}

func TestConfigGetFloat64(t *testing.T) {
	cfg := map[string]any{"a": 1, "b": 0.5, "c": "x"}
	assert.Equal(t, 1.0, ConfigGetFloat64(cfg, "a", 9))
	assert.Equal(t, 0.5, ConfigGetFloat64(cfg, "b", 9))
	assert.Equal(t, 9.0, ConfigGetFloat64(cfg, "c", 9))
	assert.Equal(t, 9.0, ConfigGetFloat64(nil, "a", 9))
}
