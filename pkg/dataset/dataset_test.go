package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFloats(t *testing.T, id string, values ...float64) *Vector {
	t.Helper()
	v, err := FromFloats(id, []string{"x", "y"}, values)
	require.NoError(t, err)
	return v
}

func TestNew(t *testing.T) {
	t.Parallel()
	x, err := NewVector("x-only", Feature{Name: "x", Value: Numeric(1)})
	require.NoError(t, err)
	z, err := NewVector("xz", Feature{Name: "x", Value: Numeric(1)}, Feature{Name: "z", Value: Numeric(2)})
	require.NoError(t, err)

	tests := []struct {
		name        string
		vectors     []*Vector
		expectedErr error
	}{
		{name: "positive", vectors: []*Vector{mustFloats(t, "a", 0, 0), mustFloats(t, "b", 1, 1)}},
		{name: "empty", expectedErr: ErrEmpty},
		{name: "duplicate_id", vectors: []*Vector{mustFloats(t, "a", 0, 0), mustFloats(t, "a", 1, 1)}, expectedErr: ErrDuplicateID},
		{name: "feature_count", vectors: []*Vector{mustFloats(t, "a", 0, 0), x}, expectedErr: ErrIncomparableVectors},
		{name: "feature_names", vectors: []*Vector{mustFloats(t, "a", 0, 0), z}, expectedErr: ErrIncomparableVectors},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			ds, err := New(test.vectors...)
			if test.expectedErr != nil {
				assert.True(t, errors.Is(err, test.expectedErr), "got: %v, expected: %v", err, test.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(test.vectors), ds.Len())
			assert.Equal(t, []string{"x", "y"}, ds.Schema())
			i, ok := ds.IndexOf("b")
			assert.True(t, ok)
			assert.Equal(t, 1, i)
		})
	}
}

func TestNewVector_DuplicateFeature(t *testing.T) {
	_, err := NewVector("a", Feature{Name: "x", Value: Numeric(1)}, Feature{Name: "x", Value: Numeric(2)})
	assert.ErrorIs(t, err, ErrDuplicateFeature)
}

func TestVector_Equal(t *testing.T) {
	t.Parallel()
	a := mustFloats(t, "a", 1, 2)
	b := mustFloats(t, "b", 1, 2)
	c := mustFloats(t, "c", 1, 3)
	reordered, err := NewVector("r", Feature{Name: "y", Value: Numeric(2)}, Feature{Name: "x", Value: Numeric(1)})
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.True(t, a.Equal(reordered))
	assert.False(t, a.Equal(c))
}

func TestValue(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		value    Value
		kind     Kind
		expected string
	}{
		{name: "numeric", value: Numeric(1.5), kind: KindNumeric, expected: "1.5"},
		{name: "symbolic", value: Symbolic("red"), kind: KindSymbolic, expected: "red"},
		{name: "missing", value: Missing(), kind: KindMissing, expected: "?"},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, test.kind, test.value.Kind())
			assert.Equal(t, test.expected, test.value.String())
			assert.True(t, test.value.Equal(test.value))
		})
	}
	assert.False(t, Numeric(0).Equal(Missing()))
	assert.False(t, Symbolic("a").Equal(Symbolic("b")))
}

func TestIncomparableError(t *testing.T) {
	err := Incomparable("a", "b", "x", ReasonMissing)
	assert.ErrorIs(t, err, ErrIncomparableVectors)

	var detail *IncomparableError
	require.ErrorAs(t, err, &detail)
	assert.Equal(t, ReasonMissing, detail.Reason)
	assert.Contains(t, err.Error(), `"x"`)
}
