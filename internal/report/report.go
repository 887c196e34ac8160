// Package report writes the plain-text outlier and SSE sweep reports.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-sod/cod/internal/logging"
	"github.com/go-sod/cod/pkg/dataset"
	"github.com/go-sod/cod/pkg/kmeans"
	"github.com/go-sod/cod/pkg/outlier"
	"github.com/go-sod/cod/pkg/rworker"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"
)

const sweepPlaces = 2

var ErrInvalidConfig = errors.New("report: invalid config")

type Option func(*Reporter)

func WithEngineObserver(fn kmeans.Observer) Option {
	return func(r *Reporter) {
		r.observer = fn
	}
}

// WithStepObserver builds a fuzzy grid observer for the chosen k.
func WithStepObserver(fn func(k int) func(outlier.Step)) Option {
	return func(r *Reporter) {
		r.stepObserver = fn
	}
}

func WithSeedPlan(plan *SeedPlan) Option {
	return func(r *Reporter) {
		r.plan = plan
	}
}

type Reporter struct {
	cfg          *Config
	plan         *SeedPlan
	observer     kmeans.Observer
	stepObserver func(k int) func(outlier.Step)
}

func New(cfg *Config, opts ...Option) (*Reporter, error) {
	if cfg.MinK < 1 || cfg.MaxK < cfg.MinK {
		return nil, fmt.Errorf("%w: k range [%d, %d]", ErrInvalidConfig, cfg.MinK, cfg.MaxK)
	}
	if cfg.SweepRuns < 1 {
		return nil, fmt.Errorf("%w: sweep runs %d", ErrInvalidConfig, cfg.SweepRuns)
	}
	r := &Reporter{cfg: cfg}
	for _, f := range opts {
		f(r)
	}
	if r.plan == nil && cfg.SeedPlan != "" {
		plan, err := LoadSeedPlan(cfg.SeedPlan)
		if err != nil {
			return nil, err
		}
		r.plan = plan
	}
	return r, nil
}

// Prepare returns the dataset the sections run on, z-score normalized when
// configured.
func (r *Reporter) Prepare(ds *dataset.Dataset) (*dataset.Dataset, error) {
	if !r.cfg.Normalize {
		return ds, nil
	}
	return dataset.ZScore(ds)
}

// Write renders the k-means, COD and sweep sections of ds into w. The
// sections are computed concurrently and written in that order.
func (r *Reporter) Write(ctx context.Context, w io.Writer, ds *dataset.Dataset) error {
	ds, err := r.Prepare(ds)
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}

	var sections [3]bytes.Buffer
	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return r.kmeansSection(gctx, &sections[0], ds)
	})
	grp.Go(func() error {
		return r.codSection(gctx, &sections[1], ds)
	})
	grp.Go(func() error {
		return r.sweepSection(gctx, &sections[2], ds)
	})
	if err := grp.Wait(); err != nil {
		return err
	}

	for i := range sections {
		if _, err := sections[i].WriteTo(w); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}

func (r *Reporter) engine(ctx context.Context, ds *dataset.Dataset, strategy kmeans.Strategy) *kmeans.Engine {
	opts := []kmeans.Option{kmeans.WithLogger(logging.FromContext(ctx))}
	if r.observer != nil {
		opts = append(opts, kmeans.WithObserver(r.observer))
	}
	return kmeans.New(ds, strategy, opts...)
}

// kmeansSection lists the members of small clusters for growing k until a
// clustering yields at least MinOutliers small clusters.
func (r *Reporter) kmeansSection(ctx context.Context, w io.Writer, ds *dataset.Dataset) error {
	return WriteSmallClusters(ctx, w, r.engine(ctx, ds, kmeans.Mean{}), outlier.New(outlier.WithLogger(logging.FromContext(ctx))), r.cfg)
}

// WriteSmallClusters writes the k-means section using engine.
func WriteSmallClusters(ctx context.Context, w io.Writer, engine *kmeans.Engine, detector *outlier.Detector, cfg *Config) error {
	maxK := min(cfg.MaxK, engine.Dataset().Len()+1)

	if _, err := fmt.Fprintf(w, "k-Means method:\n\tproportional threshold: %s\n\n", formatFloat(cfg.SizeProportion)); err != nil {
		return err
	}
	numOutliers := 0
	for k := cfg.MinK; k < maxK && numOutliers < cfg.MinOutliers; k++ {
		set, err := engine.Cluster(ctx, k)
		if err != nil {
			return fmt.Errorf("k-means k=%d: %w", k, err)
		}
		small, err := detector.DetectSmallClustersProportion(set, cfg.SizeProportion)
		if err != nil {
			return fmt.Errorf("k-means k=%d: %w", k, err)
		}
		numOutliers = small.Len()

		var buf bytes.Buffer
		fmt.Fprintf(&buf, "k: %d", k)
		for _, c := range small.Clusters() {
			for _, v := range c.Members() {
				fmt.Fprintf(&buf, "\n\t%s", v.ID())
			}
		}
		buf.WriteString("\n\n")
		if _, err := buf.WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}

// codSection runs k-medoids at the elbow k and scores every vector with the
// fuzzy detector.
func (r *Reporter) codSection(ctx context.Context, w io.Writer, ds *dataset.Dataset) error {
	engine := r.engine(ctx, ds, kmeans.Medoid{})
	maxK := min(r.cfg.MaxK, ds.Len())
	k, err := engine.DetectK(ctx, r.cfg.MinK, maxK)
	if err != nil {
		return fmt.Errorf("cod: %w", err)
	}
	set, err := engine.Cluster(ctx, k)
	if err != nil {
		return fmt.Errorf("cod k=%d: %w", k, err)
	}

	opts := []outlier.Option{outlier.WithLogger(logging.FromContext(ctx))}
	if r.stepObserver != nil {
		opts = append(opts, outlier.WithObserver(r.stepObserver(k)))
	}
	scores, err := outlier.New(opts...).DetectAllFuzzy(ctx, set, r.cfg.FuzzyThreshold)
	if err != nil {
		return fmt.Errorf("cod k=%d: %w", k, err)
	}
	return WriteScores(w, scores)
}

// WriteScores writes the COD section for already computed fuzzy scores.
func WriteScores(w io.Writer, scores []outlier.Score) error {
	var buf bytes.Buffer
	buf.WriteString("COD method:\n")
	for _, s := range scores {
		fmt.Fprintf(&buf, "\n\t%s\tconfidence: %s", s.Vector.ID(), formatFloat(s.Confidence))
	}
	buf.WriteString("\n\n")
	_, err := buf.WriteTo(w)
	return err
}

// SweepRow is the SSE spread of the explicit-seed runs at one k.
type SweepRow struct {
	K    int
	Mean float64
	Low  float64
	High float64
}

// Sweep clusters the dataset Runs times per k in [1, maxK] from explicit
// seeds, then once per k from density seeds.
func (r *Reporter) Sweep(ctx context.Context, engine *kmeans.Engine) ([]SweepRow, []float64, error) {
	logger := logging.FromContext(ctx)
	n := engine.Dataset().Len()
	runs, maxK := r.cfg.SweepRuns, r.cfg.MaxK
	if r.plan != nil {
		runs, maxK = r.plan.Runs, r.plan.MaxK
	}
	maxK = min(maxK, n)

	sses := make([][]float64, maxK)
	for i := range sses {
		sses[i] = make([]float64, runs)
	}
	density := make([]float64, maxK)

	pool := rworker.New(r.cfg.SweepConcurrency)
	for k := 1; k <= maxK; k++ {
		for run := 0; run < runs; run++ {
			k, run := k, run
			pool.Go(func() error {
				seeds, err := r.seeds(n, run, k)
				if err != nil {
					return err
				}
				set, err := engine.ClusterFrom(ctx, k, seeds)
				if err != nil {
					return fmt.Errorf("sweep k=%d run=%d: %w", k, run, err)
				}
				sse, err := set.SSE()
				if err != nil {
					return fmt.Errorf("sweep k=%d run=%d: %w", k, run, err)
				}
				sses[k-1][run] = sse
				return nil
			})
		}
		k := k
		pool.Go(func() error {
			set, err := engine.Cluster(ctx, k)
			if err != nil {
				return fmt.Errorf("sweep k=%d: %w", k, err)
			}
			sse, err := set.SSE()
			if err != nil {
				return fmt.Errorf("sweep k=%d: %w", k, err)
			}
			density[k-1] = sse
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		return nil, nil, err
	}

	rows := make([]SweepRow, maxK)
	for i, values := range sses {
		mean, stdev := stat.MeanStdDev(values, nil)
		if len(values) < 2 {
			stdev = 0
		}
		mean = scalar.Round(mean, sweepPlaces)
		stdev = scalar.Round(stdev, sweepPlaces)
		rows[i] = SweepRow{
			K:    i + 1,
			Mean: mean,
			Low:  scalar.Round(mean-2*stdev, sweepPlaces),
			High: scalar.Round(mean+2*stdev, sweepPlaces),
		}
		logger.Debugf("k=%d: mean sse: %v, stdev: %v", i+1, mean, stdev)
	}
	return rows, density, nil
}

func (r *Reporter) seeds(n, run, k int) ([]int, error) {
	if r.plan != nil {
		return r.plan.Seeds(run, k), nil
	}
	return kmeans.RandomSeeds(n, k)
}

func (r *Reporter) sweepSection(ctx context.Context, w io.Writer, ds *dataset.Dataset) error {
	rows, density, err := r.Sweep(ctx, r.engine(ctx, ds, kmeans.Mean{}))
	if err != nil {
		return err
	}
	return WriteSweep(w, rows, density)
}

func WriteSweep(w io.Writer, rows []SweepRow, density []float64) error {
	var buf bytes.Buffer
	buf.WriteString("Random initialization method:\n\n")
	buf.WriteString("k, mean(k), mean(k)-2stdev(k), mean(k)+2stdev(k)\n")
	for _, row := range rows {
		fmt.Fprintf(&buf, "%d, %s, %s, %s\n", row.K, formatFloat(row.Mean), formatFloat(row.Low), formatFloat(row.High))
	}
	buf.WriteString("\nDensity initialization method:\n\n")
	buf.WriteString("k, sse\n")
	for i, sse := range density {
		fmt.Fprintf(&buf, "%d, %s\n", i+1, formatFloat(sse))
	}
	_, err := buf.WriteTo(w)
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
