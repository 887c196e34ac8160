package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZScore(t *testing.T) {
	t.Parallel()
	a, err := NewVector("a", Feature{Name: "x", Value: Numeric(1)}, Feature{Name: "c", Value: Symbolic("red")}, Feature{Name: "k", Value: Numeric(5)})
	require.NoError(t, err)
	b, err := NewVector("b", Feature{Name: "x", Value: Numeric(2)}, Feature{Name: "c", Value: Symbolic("blue")}, Feature{Name: "k", Value: Numeric(5)})
	require.NoError(t, err)
	c, err := NewVector("c", Feature{Name: "x", Value: Numeric(3)}, Feature{Name: "c", Value: Missing()}, Feature{Name: "k", Value: Numeric(5)})
	require.NoError(t, err)
	ds, err := New(a, b, c)
	require.NoError(t, err)

	normalized, err := ZScore(ds)
	require.NoError(t, err)

	// mean 2, sample deviation 1
	expected := []float64{-1, 0, 1}
	for i, want := range expected {
		x, ok := normalized.At(i).Get("x")
		require.True(t, ok)
		got, numeric := x.Float()
		require.True(t, numeric)
		assert.Equal(t, want, got)

		k, _ := normalized.At(i).Get("k")
		got, _ = k.Float()
		assert.Equal(t, 0.0, got)
	}

	color, _ := normalized.At(0).Get("c")
	assert.Equal(t, Symbolic("red"), color)
	missing, _ := normalized.At(2).Get("c")
	assert.True(t, missing.IsMissing())

	// the input is untouched
	x, _ := ds.At(0).Get("x")
	got, _ := x.Float()
	assert.Equal(t, 1.0, got)
}

func TestZScoreStats_Apply(t *testing.T) {
	train, err := New(mustFloats(t, "a", 0, 10), mustFloats(t, "b", 2, 20), mustFloats(t, "c", 4, 30))
	require.NoError(t, err)
	test, err := New(mustFloats(t, "t", 3, 25))
	require.NoError(t, err)

	stats := NewZScoreStats(train)
	assert.Equal(t, 2.0, stats.Means["x"])
	assert.Equal(t, 2.0, stats.StdDevs["x"])

	normalized, err := stats.Apply(test)
	require.NoError(t, err)
	x, _ := normalized.At(0).Get("x")
	got, _ := x.Float()
	assert.Equal(t, 0.5, got)
	y, _ := normalized.At(0).Get("y")
	got, _ = y.Float()
	assert.Equal(t, 0.5, got)
}
