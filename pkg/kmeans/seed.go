package kmeans

import (
	"context"
	"fmt"

	"github.com/go-sod/cod/pkg/geom"
	"github.com/go-sod/cod/pkg/pqueue"
	"github.com/valyala/fastrand"
)

const (
	// ShrinkFactor scales the separation threshold after a scan that did not
	// find k centroids.
	ShrinkFactor = 0.75
	// MaxShrinkRounds bounds the rescans. The next scan runs with a zero
	// threshold and accepts any vector not chosen yet.
	MaxShrinkRounds = 32
)

// Seeds picks k initial centroids by density.
//
// The radius r is the mean distance over all unordered pairs of distinct
// vectors, and a vector's density is the number of other vectors closer than
// r. The densest vector comes first. The others are taken in descending
// density order, dataset order breaking ties, when they lie at least the
// current threshold away from every chosen centroid. The threshold starts at
// r and shrinks by ShrinkFactor after every scan.
func (e *Engine) Seeds(ctx context.Context, k int) ([]int, error) {
	if err := e.checkK(k); err != nil {
		return nil, err
	}
	n := e.ds.Len()

	r, err := e.radius()
	if err != nil {
		return nil, err
	}
	densities, err := e.densities(r)
	if err != nil {
		return nil, err
	}

	q := pqueue.New[int](pqueue.WithOrderDesc())
	for idx, d := range densities {
		q.Push(idx, float64(d))
	}
	order := q.PopAll()

	seeds := make([]int, 0, k)
	chosen := make([]bool, n)
	seeds = append(seeds, order[0])
	chosen[order[0]] = true

	threshold := r
	round := 0
	for ; len(seeds) < k; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if round >= MaxShrinkRounds {
			threshold = 0
		}
		for _, idx := range order {
			if len(seeds) >= k {
				break
			}
			if chosen[idx] {
				continue
			}
			far, err := e.farFrom(idx, seeds, threshold)
			if err != nil {
				return nil, err
			}
			if far {
				seeds = append(seeds, idx)
				chosen[idx] = true
			}
		}
		threshold *= ShrinkFactor
	}

	e.opts.logger.Debugf("seeded k=%d with radius %.6f after %d rescans: %v", k, r, round, seeds)
	e.notify(Event{Kind: EventSeeded, Strategy: e.strategy.Name(), K: k, Rounds: round})
	return seeds, nil
}

func (e *Engine) radius() (float64, error) {
	n := e.ds.Len()
	if n < 2 {
		return 0, nil
	}
	var total float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, err := geom.EuclideanDistance(e.ds.At(i), e.ds.At(j))
			if err != nil {
				return 0, err
			}
			total += d
		}
	}
	return total / float64(n*(n-1)/2), nil
}

func (e *Engine) densities(r float64) ([]int, error) {
	n := e.ds.Len()
	densities := make([]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, err := geom.EuclideanDistance(e.ds.At(i), e.ds.At(j))
			if err != nil {
				return nil, err
			}
			if d < r {
				densities[i]++
				densities[j]++
			}
		}
	}
	return densities, nil
}

func (e *Engine) farFrom(idx int, seeds []int, threshold float64) (bool, error) {
	for _, s := range seeds {
		d, err := geom.EuclideanDistance(e.ds.At(s), e.ds.At(idx))
		if err != nil {
			return false, err
		}
		if d < threshold {
			return false, nil
		}
	}
	return true, nil
}

// RandomSeeds draws k distinct indices from [0, n).
func RandomSeeds(n, k int) ([]int, error) {
	if k < 1 || k > n {
		return nil, fmt.Errorf("%w: k=%d, dataset size %d", ErrInvalidK, k, n)
	}
	// partial Fisher-Yates over the index range
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + int(fastrand.Uint32n(uint32(n-i)))
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm[:k], nil
}
