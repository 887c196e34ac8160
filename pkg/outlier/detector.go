// Package outlier flags unusual vectors in a finished clustering.
//
// Small clusters are outliers as a whole. Inside the remaining clusters a
// member is an outlier when its distance to the centroid exceeds a multiple
// of the cluster's average member distance. The fuzzy method repeats the
// combined detection over a fixed grid of thresholds and scores each vector
// by the share of runs that flagged it.
package outlier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-sod/cod/pkg/cluster"
	"github.com/go-sod/cod/pkg/dataset"
	"github.com/go-sod/cod/pkg/geom"
	"github.com/go-sod/cod/pkg/pqueue"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats/scalar"
)

const ConfidencePlaces = 4

var ErrInvalidThreshold = errors.New("outlier: invalid threshold")

var (
	// GridClusterProportions are the size thresholds of the fuzzy grid.
	GridClusterProportions = []float64{0.025, 0.05, 0.075, 0.1}
	// GridIntraMultipliers are the distance multipliers of the fuzzy grid.
	GridIntraMultipliers = []float64{2.0, 1.9, 1.8, 1.7, 1.6, 1.5, 1.4, 1.3, 1.2, 1.1}
)

// Step describes one finished run of the fuzzy grid.
type Step struct {
	Proportion float64
	Multiplier float64
	Flagged    int
}

type Option func(*Detector)

// WithObserver receives every fuzzy grid step on the calling goroutine.
func WithObserver(fn func(Step)) Option {
	return func(d *Detector) {
		d.observer = fn
	}
}

// WithLogger sets the detector logger. Detectors log nothing by default.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

type Detector struct {
	observer func(Step)
	logger   *zap.SugaredLogger
}

func New(opts ...Option) *Detector {
	d := &Detector{logger: zap.NewNop().Sugar()}
	for _, f := range opts {
		f(d)
	}
	return d
}

// Score is the fuzzy outlier confidence of one vector.
type Score struct {
	Index      int
	Vector     *dataset.Vector
	Confidence float64
}

// DetectSmallClusters returns the clusters with fewer than t members.
func (d *Detector) DetectSmallClusters(set *cluster.Set, t int) (*cluster.Set, error) {
	if t < 0 {
		return nil, fmt.Errorf("%w: size threshold %d", ErrInvalidThreshold, t)
	}
	return set.Subset(func(c *cluster.Cluster) bool { return c.Len() < t }), nil
}

// DetectSmallClustersProportion uses ceil(p * N) as the size threshold, N
// being the number of clustered vectors.
func (d *Detector) DetectSmallClustersProportion(set *cluster.Set, p float64) (*cluster.Set, error) {
	t, err := sizeThreshold(set, p)
	if err != nil {
		return nil, err
	}
	return d.DetectSmallClusters(set, t)
}

// DetectIntraCluster returns, in dataset order, the members lying farther
// than multiplier times their cluster's average distance from the centroid.
func (d *Detector) DetectIntraCluster(set *cluster.Set, multiplier float64) ([]*dataset.Vector, error) {
	flagged, err := intraCluster(set, multiplier)
	if err != nil {
		return nil, err
	}
	return vectors(set.Dataset(), flagged), nil
}

// DetectAll flags every member of a cluster smaller than tCluster, plus the
// intra-cluster outliers of the other clusters.
func (d *Detector) DetectAll(set *cluster.Set, tCluster int, tIntra float64) ([]*dataset.Vector, error) {
	flagged, err := d.combined(set, tCluster, tIntra)
	if err != nil {
		return nil, err
	}
	return vectors(set.Dataset(), flagged), nil
}

// DetectAllProportion is DetectAll with a proportional size threshold.
func (d *Detector) DetectAllProportion(set *cluster.Set, pCluster, tIntra float64) ([]*dataset.Vector, error) {
	t, err := sizeThreshold(set, pCluster)
	if err != nil {
		return nil, err
	}
	return d.DetectAll(set, t, tIntra)
}

// DetectAllFuzzy runs the combined detection for every pair of
// GridClusterProportions and GridIntraMultipliers. A vector's confidence is
// the share of runs that flagged it, rounded to ConfidencePlaces decimals.
// Vectors with confidence below t are dropped. Scores are ordered by
// descending confidence, then dataset order.
func (d *Detector) DetectAllFuzzy(ctx context.Context, set *cluster.Set, t float64) ([]Score, error) {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return nil, fmt.Errorf("%w: confidence %v", ErrInvalidThreshold, t)
	}
	logger := d.logger

	counts := make(map[int]int)
	runs := 0
	for _, p := range GridClusterProportions {
		tCluster, err := sizeThreshold(set, p)
		if err != nil {
			return nil, err
		}
		for _, m := range GridIntraMultipliers {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			flagged, err := d.combined(set, tCluster, m)
			if err != nil {
				return nil, err
			}
			for _, idx := range flagged {
				counts[idx]++
			}
			runs++
			logger.Debugf("fuzzy step p=%.3f m=%.1f flagged %d", p, m, len(flagged))
			if d.observer != nil {
				d.observer(Step{Proportion: p, Multiplier: m, Flagged: len(flagged)})
			}
		}
	}

	scores := make([]Score, 0, len(counts))
	for idx, n := range counts {
		conf := float64(n) / float64(runs)
		if conf < t {
			continue
		}
		scores = append(scores, Score{
			Index:      idx,
			Vector:     set.Dataset().At(idx),
			Confidence: scalar.Round(conf, ConfidencePlaces),
		})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Confidence != scores[j].Confidence {
			return scores[i].Confidence > scores[j].Confidence
		}
		return scores[i].Index < scores[j].Index
	})

	logger.Infof("fuzzy detection over %d runs scored %d vectors at confidence >= %.2f", runs, len(scores), t)
	return scores, nil
}

func (d *Detector) combined(set *cluster.Set, tCluster int, tIntra float64) ([]int, error) {
	small, err := d.DetectSmallClusters(set, tCluster)
	if err != nil {
		return nil, err
	}
	remainder := set.Subset(func(c *cluster.Cluster) bool { return c.Len() >= tCluster })
	flagged, err := intraCluster(remainder, tIntra)
	if err != nil {
		return nil, err
	}
	for _, c := range small.Clusters() {
		flagged = append(flagged, c.Indices()...)
	}
	sort.Ints(flagged)
	return flagged, nil
}

// intraCluster returns sorted dataset indices. Members are scanned by
// descending distance and the scan of a cluster stops at the first member
// within the cutoff.
func intraCluster(set *cluster.Set, multiplier float64) ([]int, error) {
	if math.IsNaN(multiplier) || multiplier < 0 {
		return nil, fmt.Errorf("%w: multiplier %v", ErrInvalidThreshold, multiplier)
	}
	var flagged []int
	for _, c := range set.Clusters() {
		if c.Len() == 0 {
			continue
		}
		q := pqueue.New[int](pqueue.WithOrderDesc())
		var total float64
		for _, idx := range c.Indices() {
			dist, err := geom.EuclideanDistance(set.Dataset().At(idx), c.Centroid().Vector())
			if err != nil {
				return nil, fmt.Errorf("cluster %d: %w", c.ID(), err)
			}
			total += dist
			q.Push(idx, dist)
		}
		cutoff := multiplier * total / float64(c.Len())
		for i := 0; i < q.Len(); i++ {
			idx, dist := q.Seek(i)
			if dist <= cutoff {
				break
			}
			flagged = append(flagged, idx)
		}
	}
	sort.Ints(flagged)
	return flagged, nil
}

func sizeThreshold(set *cluster.Set, p float64) (int, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%w: proportion %v", ErrInvalidThreshold, p)
	}
	return int(math.Ceil(p * float64(set.Size()))), nil
}

func vectors(ds *dataset.Dataset, indices []int) []*dataset.Vector {
	out := make([]*dataset.Vector, len(indices))
	for i, idx := range indices {
		out[i] = ds.At(idx)
	}
	return out
}
