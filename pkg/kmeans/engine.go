// Package kmeans partitions a dataset into k clusters by iterative centroid
// refinement.
//
// Initial centroids come either from a density heuristic (Cluster) or from
// caller supplied dataset indices (ClusterFrom). Each iteration assigns every
// vector to its nearest centroid, ties going to the lowest cluster id, and
// recomputes the centroids with the configured Strategy. The loop ends when
// the centroids stop changing or after the iteration cap.
package kmeans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sod/cod/pkg/cluster"
	"github.com/go-sod/cod/pkg/dataset"
	"github.com/go-sod/cod/pkg/geom"
	"go.uber.org/zap"
)

const DefaultMaxIterations = 50

var (
	ErrInvalidK     = errors.New("kmeans: k out of range")
	ErrInvalidSeeds = errors.New("kmeans: invalid seed indices")
	ErrInvalidRange = errors.New("kmeans: invalid k range")
)

type Option func(*options)

type options struct {
	maxIterations int
	observer      Observer
	logger        *zap.SugaredLogger
}

// WithMaxIterations caps refinement iterations. Values below 1 are ignored.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

func WithObserver(fn Observer) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithLogger sets the engine logger. Engines log nothing by default.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

type Engine struct {
	ds       *dataset.Dataset
	strategy Strategy
	opts     options
}

func New(ds *dataset.Dataset, strategy Strategy, opts ...Option) *Engine {
	e := &Engine{
		ds:       ds,
		strategy: strategy,
		opts:     options{maxIterations: DefaultMaxIterations, logger: zap.NewNop().Sugar()},
	}
	for _, f := range opts {
		f(&e.opts)
	}
	return e
}

// NewKMeans returns an engine recomputing centroids as member means.
func NewKMeans(ds *dataset.Dataset, opts ...Option) *Engine {
	return New(ds, Mean{}, opts...)
}

// NewKMedoids returns an engine recomputing centroids as member medoids.
func NewKMedoids(ds *dataset.Dataset, opts ...Option) *Engine {
	return New(ds, Medoid{}, opts...)
}

func (e *Engine) Dataset() *dataset.Dataset {
	return e.ds
}

func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// Cluster seeds k centroids by density and refines them.
func (e *Engine) Cluster(ctx context.Context, k int) (*cluster.Set, error) {
	if err := e.checkK(k); err != nil {
		return nil, err
	}
	seeds, err := e.Seeds(ctx, k)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return e.ClusterFrom(ctx, k, seeds)
}

// ClusterFrom refines k centroids starting from the vectors at the given
// 0-based dataset indices.
func (e *Engine) ClusterFrom(ctx context.Context, k int, indices []int) (*cluster.Set, error) {
	if err := e.checkK(k); err != nil {
		return nil, err
	}
	if len(indices) != k {
		return nil, fmt.Errorf("%w: %d indices for k=%d", ErrInvalidSeeds, len(indices), k)
	}
	seen := make(map[int]struct{}, k)
	centroids := make([]cluster.Centroid, k)
	for i, idx := range indices {
		if idx < 0 || idx >= e.ds.Len() {
			return nil, fmt.Errorf("%w: index %d out of range [0, %d)", ErrInvalidSeeds, idx, e.ds.Len())
		}
		if _, ok := seen[idx]; ok {
			return nil, fmt.Errorf("%w: duplicate index %d", ErrInvalidSeeds, idx)
		}
		seen[idx] = struct{}{}
		centroids[i] = cluster.FromMember(e.ds, idx)
	}
	return e.refine(ctx, centroids)
}

func (e *Engine) checkK(k int) error {
	if k < 1 || k > e.ds.Len() {
		return fmt.Errorf("%w: k=%d, dataset size %d", ErrInvalidK, k, e.ds.Len())
	}
	return nil
}

func (e *Engine) refine(ctx context.Context, centroids []cluster.Centroid) (*cluster.Set, error) {
	logger := e.opts.logger
	start := time.Now()
	k := len(centroids)

	var (
		set  *cluster.Set
		prev []cluster.Centroid
		i    int
	)
	for ; i < e.opts.maxIterations && !sameCentroids(centroids, prev); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prev = centroids
		assignments, err := e.assign(centroids)
		if err != nil {
			return nil, fmt.Errorf("assign: %w", err)
		}
		if set, err = cluster.FromAssignments(e.ds, centroids, assignments); err != nil {
			return nil, err
		}
		if centroids, err = e.update(set); err != nil {
			return nil, fmt.Errorf("update centroids: %w", err)
		}
		logger.Debugf("%s k=%d iteration %d done", e.strategy.Name(), k, i+1)
		e.notify(Event{Kind: EventIteration, Strategy: e.strategy.Name(), K: k, Iteration: i + 1})
	}

	sse, err := set.SSE()
	if err != nil {
		return nil, err
	}
	converged := sameCentroids(centroids, prev)
	logger.Infof("%s k=%d finished after %d iterations, converged: %t, sse: %.2f", e.strategy.Name(), k, i, converged, sse)
	e.notify(Event{
		Kind:      EventClustered,
		Strategy:  e.strategy.Name(),
		K:         k,
		Iteration: i,
		Converged: converged,
		SSE:       sse,
		Duration:  time.Since(start),
	})
	return set, nil
}

// assign returns the nearest centroid id for every dataset vector.
func (e *Engine) assign(centroids []cluster.Centroid) ([]int, error) {
	assignments := make([]int, e.ds.Len())
	for idx := 0; idx < e.ds.Len(); idx++ {
		vec := e.ds.At(idx)
		nearest, best := 0, 0.0
		for id, c := range centroids {
			d, err := geom.EuclideanDistance(vec, c.Vector())
			if err != nil {
				return nil, err
			}
			if id == 0 || d < best {
				nearest, best = id, d
			}
		}
		assignments[idx] = nearest
	}
	return assignments, nil
}

// update recomputes every centroid. An empty cluster keeps its centroid.
func (e *Engine) update(set *cluster.Set) ([]cluster.Centroid, error) {
	clusters := set.Clusters()
	centroids := make([]cluster.Centroid, len(clusters))
	for i, c := range clusters {
		if c.Len() == 0 {
			centroids[i] = c.Centroid()
			continue
		}
		centroid, err := e.strategy.Centroid(e.ds, c.Indices(), i+1)
		if err != nil {
			return nil, err
		}
		centroids[i] = centroid
	}
	return centroids, nil
}

func sameCentroids(a, b []cluster.Centroid) bool {
	if a == nil || b == nil || len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func (e *Engine) notify(ev Event) {
	if e.opts.observer != nil {
		e.opts.observer(ev)
	}
}
