package kmeans

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-sod/cod/pkg/cluster"
	"github.com/go-sod/cod/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func points(t *testing.T, pts ...[2]float64) *dataset.Dataset {
	t.Helper()
	vectors := make([]*dataset.Vector, len(pts))
	for i, p := range pts {
		v, err := dataset.FromFloats(fmt.Sprintf("p%d", i), []string{"x", "y"}, p[:])
		require.NoError(t, err)
		vectors[i] = v
	}
	ds, err := dataset.New(vectors...)
	require.NoError(t, err)
	return ds
}

// threeBlobs returns three unit squares with a center point, around (0,0),
// (10,0) and (0,10).
func threeBlobs(t *testing.T) *dataset.Dataset {
	t.Helper()
	square := [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {0.5, 0.5}}
	var pts [][2]float64
	for _, shift := range [][2]float64{{0, 0}, {10, 0}, {0, 10}} {
		for _, p := range square {
			pts = append(pts, [2]float64{p[0] + shift[0], p[1] + shift[1]})
		}
	}
	return points(t, pts...)
}

func sizes(set *cluster.Set) []int {
	var out []int
	for _, c := range set.Clusters() {
		out = append(out, c.Len())
	}
	return out
}

func TestEngine_ClusterFrom_TwoGroups(t *testing.T) {
	t.Parallel()
	ds := points(t,
		[2]float64{0, 0}, [2]float64{0, 0.1}, [2]float64{0.1, 0},
		[2]float64{10, 10}, [2]float64{10, 10.1}, [2]float64{10.1, 10},
	)
	engines := map[string]*Engine{
		StrategyMean:   NewKMeans(ds),
		StrategyMedoid: NewKMedoids(ds),
	}
	for name, e := range engines {
		e := e
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			set, err := e.ClusterFrom(context.Background(), 2, []int{0, 3})
			require.NoError(t, err)
			require.Equal(t, 2, set.Len(), spew.Sdump(set))

			first, _ := set.Cluster(0)
			second, _ := set.Cluster(1)
			assert.Equal(t, []int{0, 1, 2}, first.Indices())
			assert.Equal(t, []int{3, 4, 5}, second.Indices())
			for _, c := range set.Clusters() {
				sse, err := c.SSE()
				require.NoError(t, err)
				assert.GreaterOrEqual(t, sse, 0.0)
				assert.Less(t, sse, 0.1)
			}
		})
	}
}

func TestEngine_Cluster_Partition(t *testing.T) {
	t.Parallel()
	ds := threeBlobs(t)
	for _, e := range []*Engine{NewKMeans(ds), NewKMedoids(ds)} {
		for k := 1; k <= ds.Len(); k++ {
			set, err := e.Cluster(context.Background(), k)
			require.NoError(t, err, "%s k=%d", e.Strategy().Name(), k)
			assert.Equal(t, k, set.Len())

			var all []int
			for _, c := range set.Clusters() {
				all = append(all, c.Indices()...)
			}
			sort.Ints(all)
			expected := make([]int, ds.Len())
			for i := range expected {
				expected[i] = i
			}
			assert.Equal(t, expected, all, "%s k=%d", e.Strategy().Name(), k)

			sse, err := set.SSE()
			require.NoError(t, err)
			assert.GreaterOrEqual(t, sse, 0.0)
		}
	}
}

func TestEngine_ClusterFrom_Deterministic(t *testing.T) {
	t.Parallel()
	ds := threeBlobs(t)
	e := NewKMeans(ds)
	a, err := e.ClusterFrom(context.Background(), 4, []int{2, 7, 11, 14})
	require.NoError(t, err)
	b, err := e.ClusterFrom(context.Background(), 4, []int{2, 7, 11, 14})
	require.NoError(t, err)
	assert.True(t, a.Equal(b), "%s\n%s", spew.Sdump(sizes(a)), spew.Sdump(sizes(b)))
}

func TestEngine_ClusterFrom_InvalidSeeds(t *testing.T) {
	t.Parallel()
	ds := threeBlobs(t)
	e := NewKMedoids(ds)
	tests := []struct {
		name     string
		k        int
		seeds    []int
		expected error
	}{
		{name: "count", k: 3, seeds: []int{0, 5}, expected: ErrInvalidSeeds},
		{name: "duplicate", k: 2, seeds: []int{4, 4}, expected: ErrInvalidSeeds},
		{name: "negative", k: 2, seeds: []int{-1, 4}, expected: ErrInvalidSeeds},
		{name: "range", k: 2, seeds: []int{0, 15}, expected: ErrInvalidSeeds},
		{name: "zero_k", k: 0, seeds: nil, expected: ErrInvalidK},
		{name: "k_above_size", k: 16, seeds: nil, expected: ErrInvalidK},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := e.ClusterFrom(context.Background(), tc.k, tc.seeds)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestEngine_Incomparable(t *testing.T) {
	t.Parallel()
	good, err := dataset.FromFloats("good", []string{"x", "y"}, []float64{0, 0})
	require.NoError(t, err)
	bad, err := dataset.NewVector("bad",
		dataset.Feature{Name: "x", Value: dataset.Numeric(1)},
		dataset.Feature{Name: "y", Value: dataset.Missing()},
	)
	require.NoError(t, err)
	ds, err := dataset.New(good, bad)
	require.NoError(t, err)

	_, err = NewKMeans(ds).Cluster(context.Background(), 1)
	assert.ErrorIs(t, err, dataset.ErrIncomparableVectors)
	_, err = NewKMedoids(ds).ClusterFrom(context.Background(), 2, []int{0, 1})
	assert.ErrorIs(t, err, dataset.ErrIncomparableVectors)
}

func TestEngine_Seeds(t *testing.T) {
	t.Parallel()
	seeds, err := NewKMeans(threeBlobs(t)).Seeds(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5, 10}, seeds)
}

func TestEngine_Seeds_ShrinkCap(t *testing.T) {
	t.Parallel()
	ds := points(t,
		[2]float64{0, 0}, [2]float64{0, 0}, [2]float64{0, 0}, [2]float64{0, 0},
		[2]float64{100, 0},
	)
	var rounds int
	e := NewKMedoids(ds, WithObserver(func(ev Event) {
		if ev.Kind == EventSeeded {
			rounds = ev.Rounds
		}
	}))
	seeds, err := e.Seeds(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4, 1, 2}, seeds)
	assert.Equal(t, MaxShrinkRounds+1, rounds)

	set, err := e.Cluster(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, set.Len())
	assert.Equal(t, 5, set.Size())
}

func TestEngine_DetectK(t *testing.T) {
	t.Parallel()
	ds := threeBlobs(t)
	for _, e := range []*Engine{NewKMeans(ds), NewKMedoids(ds)} {
		var best []Event
		e.opts.observer = func(ev Event) {
			if ev.Kind == EventBestK {
				best = append(best, ev)
			}
		}
		k, err := e.DetectK(context.Background(), 2, 12)
		require.NoError(t, err)
		assert.Equal(t, 3, k, e.Strategy().Name())
		require.Len(t, best, 1)
		assert.Equal(t, 3, best[0].K)
	}
}

func TestEngine_SSECurve_InvalidRange(t *testing.T) {
	t.Parallel()
	e := NewKMeans(threeBlobs(t))
	for _, r := range [][2]int{{0, 3}, {4, 3}, {2, 16}} {
		_, err := e.SSECurve(context.Background(), r[0], r[1])
		assert.ErrorIs(t, err, ErrInvalidRange, "range %v", r)
	}
}

func TestEngine_MaxIterations(t *testing.T) {
	t.Parallel()
	var iterations int
	e := NewKMeans(threeBlobs(t), WithMaxIterations(1), WithObserver(func(ev Event) {
		if ev.Kind == EventIteration {
			iterations++
		}
	}))
	_, err := e.ClusterFrom(context.Background(), 2, []int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 1, iterations)
}

func TestEngine_Canceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewKMeans(threeBlobs(t)).ClusterFrom(ctx, 2, []int{0, 5})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestElbow(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		min      int
		curve    []float64
		expected int
	}{
		{name: "sharp", min: 1, curve: []float64{100, 10, 5, 0}, expected: 2},
		{name: "linear", min: 2, curve: []float64{30, 20, 10}, expected: 2},
		{name: "tie_smaller_k", min: 1, curve: []float64{10, 4, 4, 10}, expected: 2},
		{name: "single", min: 5, curve: []float64{7}, expected: 5},
		{name: "empty", min: 3, curve: nil, expected: 3},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, Elbow(tc.min, tc.curve))
		})
	}
}

func TestRandomSeeds(t *testing.T) {
	t.Parallel()
	for i := 0; i < 50; i++ {
		seeds, err := RandomSeeds(10, 4)
		require.NoError(t, err)
		require.Len(t, seeds, 4)
		seen := map[int]bool{}
		for _, s := range seeds {
			assert.False(t, seen[s])
			assert.True(t, s >= 0 && s < 10)
			seen[s] = true
		}
	}
	_, err := RandomSeeds(3, 4)
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestEngine_WithLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := NewKMeans(threeBlobs(t), WithLogger(zap.New(core).Sugar()))

	k, err := e.DetectK(context.Background(), 2, 12)
	require.NoError(t, err)
	assert.Equal(t, 3, k)
	assert.Equal(t, 1, logs.FilterMessage("best k: 3").Len())
	assert.NotZero(t, logs.FilterMessageSnippet("finished after").Len())

	// a nil logger keeps the silent default
	_, err = NewKMeans(threeBlobs(t), WithLogger(nil)).Cluster(context.Background(), 2)
	require.NoError(t, err)
}
