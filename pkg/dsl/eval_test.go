package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRule_Default(t *testing.T) {
	r, err := NewRule("")
	require.NoError(t, err)
	assert.True(t, r.IsDefault())

	tests := []struct {
		name        string
		probability float64
		threshold   float64
		want        bool
	}{
		{"above", 0.8, 0.5, true},
		{"equal admits", 0.5, 0.5, true},
		{"below", 0.49, 0.5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Evaluate(tt.probability, tt.threshold, "graduate", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRule_Features(t *testing.T) {
	r, err := NewRule(`probability >= threshold || features["Целевая квота"] == 1.0`)
	require.NoError(t, err)

	got, err := r.Evaluate(0.1, 0.5, "graduate", map[string]float64{"Целевая квота": 1})
	require.NoError(t, err)
	assert.True(t, got)

	got, err = r.Evaluate(0.1, 0.5, "graduate", map[string]float64{"Целевая квота": 0})
	require.NoError(t, err)
	assert.False(t, got)
}

func TestRule_Track(t *testing.T) {
	r, err := NewRule(`track == "graduate" ? probability >= threshold + 0.1 : probability >= threshold`)
	require.NoError(t, err)

	got, err := r.Evaluate(0.55, 0.5, "graduate", nil)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = r.Evaluate(0.55, 0.5, "undergraduate_specialist", nil)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestNewRule_Errors(t *testing.T) {
	_, err := NewRule("probability +")
	assert.Error(t, err)

	_, err = NewRule("probability * 2.0")
	assert.Error(t, err)
}

func TestRule_MissingFeatureKey(t *testing.T) {
	r, err := NewRule(`features["absent"] > 0.0`)
	require.NoError(t, err)
	_, err = r.Evaluate(0.5, 0.5, "graduate", map[string]float64{})
	assert.Error(t, err)
}
