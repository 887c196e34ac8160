package cluster

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-sod/cod/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDataset(t *testing.T, points ...[2]float64) *dataset.Dataset {
	t.Helper()
	vectors := make([]*dataset.Vector, len(points))
	for i, p := range points {
		v, err := dataset.FromFloats(string(rune('a'+i)), []string{"x", "y"}, p[:])
		require.NoError(t, err)
		vectors[i] = v
	}
	ds, err := dataset.New(vectors...)
	require.NoError(t, err)
	return ds
}

func TestFromAssignments(t *testing.T) {
	t.Parallel()
	ds := newDataset(t, [2]float64{0, 0}, [2]float64{0, 2}, [2]float64{10, 10}, [2]float64{10, 12}, [2]float64{50, 50})
	mean, err := dataset.FromFloats("centroid1", []string{"x", "y"}, []float64{0, 1})
	require.NoError(t, err)
	centroids := []Centroid{Synthetic(mean), FromMember(ds, 2), FromMember(ds, 4)}

	set, err := FromAssignments(ds, centroids, []int{0, 0, 1, 1, 2})
	require.NoError(t, err, spew.Sdump(centroids))

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, 5, set.Size())

	seen := map[int]int{}
	for _, c := range set.Clusters() {
		for _, idx := range c.Indices() {
			seen[idx]++
		}
	}
	assert.Len(t, seen, ds.Len())
	for idx, n := range seen {
		assert.Equal(t, 1, n, "vector %d appears %d times", idx, n)
	}

	first, ok := set.Cluster(0)
	require.True(t, ok)
	sse, err := first.SSE()
	require.NoError(t, err)
	assert.Equal(t, 2.0, sse)

	second, _ := set.Cluster(1)
	sse, err = second.SSE()
	require.NoError(t, err)
	assert.Equal(t, 4.0, sse)
	member, ok := second.Centroid().Member()
	assert.True(t, ok)
	assert.Equal(t, 2, member)

	total, err := set.SSE()
	require.NoError(t, err)
	assert.Equal(t, 6.0, total)
}

func TestFromAssignments_Invalid(t *testing.T) {
	t.Parallel()
	ds := newDataset(t, [2]float64{0, 0}, [2]float64{1, 1})
	centroids := []Centroid{FromMember(ds, 0)}

	_, err := FromAssignments(ds, centroids, []int{0})
	assert.ErrorIs(t, err, ErrInvalidAssignment)
	_, err = FromAssignments(ds, centroids, []int{0, 1})
	assert.ErrorIs(t, err, ErrInvalidAssignment)
}

func TestSet_Subset(t *testing.T) {
	t.Parallel()
	ds := newDataset(t, [2]float64{0, 0}, [2]float64{0, 1}, [2]float64{5, 5})
	set, err := FromAssignments(ds, []Centroid{FromMember(ds, 0), FromMember(ds, 2)}, []int{0, 0, 1})
	require.NoError(t, err)

	small := set.Subset(func(c *Cluster) bool { return c.Len() < 2 })
	require.Equal(t, 1, small.Len())
	c, ok := small.Cluster(1)
	require.True(t, ok)
	assert.Equal(t, []int{2}, c.Indices())
	_, ok = small.Cluster(0)
	assert.False(t, ok)

	assert.True(t, set.Equal(set.Subset(func(*Cluster) bool { return true })))
	assert.False(t, set.Equal(small))
}

func TestSet_SSE_Incomparable(t *testing.T) {
	t.Parallel()
	ds := newDataset(t, [2]float64{0, 0}, [2]float64{0, 1})
	broken, err := dataset.NewVector("broken",
		dataset.Feature{Name: "x", Value: dataset.Numeric(0)},
		dataset.Feature{Name: "y", Value: dataset.Missing()},
	)
	require.NoError(t, err)

	set, err := FromAssignments(ds, []Centroid{Synthetic(broken)}, []int{0, 0})
	require.NoError(t, err)
	_, err = set.SSE()
	assert.ErrorIs(t, err, dataset.ErrIncomparableVectors)
}
