// Package analyze runs clustering and outlier detection over stored
// datasets and renders the results as plain text.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-sod/cod/internal/logging"
	"github.com/go-sod/cod/internal/metrics"
	"github.com/go-sod/cod/internal/report"
	"github.com/go-sod/cod/pkg/cluster"
	"github.com/go-sod/cod/pkg/dataset"
	"github.com/go-sod/cod/pkg/kmeans"
	"github.com/go-sod/cod/pkg/outlier"
)

const (
	MethodSmall = "small"
	MethodIntra = "intra"
	MethodAll   = "all"
	MethodFuzzy = "fuzzy"
)

var ErrUnknownMethod = errors.New("analyze: unknown outlier method")

type ClusterParams struct {
	K         int    `json:"k"`
	Strategy  string `json:"strategy"`
	Seeds     []int  `json:"seeds"`
	Normalize *bool  `json:"normalize"`
}

type BestKParams struct {
	MinK      int    `json:"minK"`
	MaxK      int    `json:"maxK"`
	Strategy  string `json:"strategy"`
	Normalize *bool  `json:"normalize"`
}

// OutlierParams selects the detection method. Zero K means the elbow k of
// the configured range. Threshold is a member count for the small and all
// methods unless Proportion is set, and the minimum confidence for fuzzy.
type OutlierParams struct {
	K          int      `json:"k"`
	Strategy   string   `json:"strategy"`
	Method     string   `json:"method"`
	Threshold  *float64 `json:"threshold"`
	Proportion *float64 `json:"proportion"`
	Multiplier *float64 `json:"multiplier"`
	Normalize  *bool    `json:"normalize"`
}

type Option func(*Service)

// WithMetrics feeds engine and detector events into the metrics views.
func WithMetrics() Option {
	return func(s *Service) {
		s.instrument = true
	}
}

type Service struct {
	cfg        *report.Config
	instrument bool
}

func New(cfg *report.Config, opts ...Option) *Service {
	s := &Service{cfg: cfg}
	for _, f := range opts {
		f(s)
	}
	return s
}

func (s *Service) prepare(ds *dataset.Dataset, normalize *bool) (*dataset.Dataset, error) {
	on := s.cfg.Normalize
	if normalize != nil {
		on = *normalize
	}
	if !on {
		return ds, nil
	}
	return dataset.ZScore(ds)
}

func (s *Service) engine(ctx context.Context, ds *dataset.Dataset, name string) (*kmeans.Engine, error) {
	if name == "" {
		name = s.cfg.Strategy
	}
	strategy, err := kmeans.ParseStrategy(name)
	if err != nil {
		return nil, err
	}
	opts := []kmeans.Option{kmeans.WithLogger(logging.FromContext(ctx))}
	if s.instrument {
		opts = append(opts, kmeans.WithObserver(metrics.EngineObserver(ctx)))
	}
	return kmeans.New(ds, strategy, opts...), nil
}

func (s *Service) detector(ctx context.Context, k int) *outlier.Detector {
	opts := []outlier.Option{outlier.WithLogger(logging.FromContext(ctx))}
	if s.instrument {
		opts = append(opts, outlier.WithObserver(metrics.DetectorObserver(ctx, k)))
	}
	return outlier.New(opts...)
}

// Cluster clusters ds into p.K clusters and lists them.
func (s *Service) Cluster(ctx context.Context, w io.Writer, ds *dataset.Dataset, p ClusterParams) error {
	ds, err := s.prepare(ds, p.Normalize)
	if err != nil {
		return err
	}
	engine, err := s.engine(ctx, ds, p.Strategy)
	if err != nil {
		return err
	}
	var set *cluster.Set
	if p.Seeds != nil {
		set, err = engine.ClusterFrom(ctx, p.K, p.Seeds)
	} else {
		set, err = engine.Cluster(ctx, p.K)
	}
	if err != nil {
		return err
	}
	return report.WriteClusters(w, engine.Strategy().Name(), set)
}

// BestK writes the SSE curve over [p.MinK, p.MaxK] and its elbow. Zero
// bounds fall back to the configured range, capped at the dataset size.
func (s *Service) BestK(ctx context.Context, w io.Writer, ds *dataset.Dataset, p BestKParams) error {
	ds, err := s.prepare(ds, p.Normalize)
	if err != nil {
		return err
	}
	engine, err := s.engine(ctx, ds, p.Strategy)
	if err != nil {
		return err
	}
	minK, maxK := s.bounds(ds, p.MinK, p.MaxK)
	curve, err := engine.SSECurve(ctx, minK, maxK)
	if err != nil {
		return err
	}
	return report.WriteCurve(w, minK, curve, kmeans.Elbow(minK, curve))
}

func (s *Service) bounds(ds *dataset.Dataset, minK, maxK int) (int, int) {
	if minK == 0 {
		minK = s.cfg.MinK
	}
	if maxK == 0 {
		maxK = min(s.cfg.MaxK, ds.Len())
	}
	return minK, maxK
}

// Outliers clusters ds and writes the vectors flagged by p.Method.
func (s *Service) Outliers(ctx context.Context, w io.Writer, ds *dataset.Dataset, p OutlierParams) error {
	logger := logging.FromContext(ctx)
	switch p.Method {
	case MethodSmall, MethodIntra, MethodAll, MethodFuzzy, "":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, p.Method)
	}
	minSize, err := p.minSize()
	if err != nil {
		return err
	}
	ds, err = s.prepare(ds, p.Normalize)
	if err != nil {
		return err
	}
	engine, err := s.engine(ctx, ds, p.Strategy)
	if err != nil {
		return err
	}
	k := p.K
	if k == 0 {
		minK, maxK := s.bounds(ds, 0, 0)
		if k, err = engine.DetectK(ctx, minK, maxK); err != nil {
			return err
		}
	}
	set, err := engine.Cluster(ctx, k)
	if err != nil {
		return err
	}
	detector := s.detector(ctx, k)
	logger.Infof("detecting %s outliers with k=%d", p.Method, k)

	multiplier := s.cfg.IntraMultiplier
	if p.Multiplier != nil {
		multiplier = *p.Multiplier
	}

	switch p.Method {
	case MethodSmall:
		var small *cluster.Set
		if p.Threshold != nil && p.Proportion == nil {
			small, err = detector.DetectSmallClusters(set, minSize)
		} else {
			small, err = detector.DetectSmallClustersProportion(set, s.proportion(p.Proportion))
		}
		if err != nil {
			return err
		}
		var vectors []*dataset.Vector
		for _, c := range small.Clusters() {
			vectors = append(vectors, c.Members()...)
		}
		return report.WriteVectors(w, fmt.Sprintf("small clusters (k: %d)", k), vectors)
	case MethodIntra:
		vectors, err := detector.DetectIntraCluster(set, multiplier)
		if err != nil {
			return err
		}
		return report.WriteVectors(w, fmt.Sprintf("intra-cluster outliers (k: %d)", k), vectors)
	case MethodAll, "":
		var vectors []*dataset.Vector
		if p.Threshold != nil && p.Proportion == nil {
			vectors, err = detector.DetectAll(set, minSize, multiplier)
		} else {
			vectors, err = detector.DetectAllProportion(set, s.proportion(p.Proportion), multiplier)
		}
		if err != nil {
			return err
		}
		return report.WriteVectors(w, fmt.Sprintf("outliers (k: %d)", k), vectors)
	case MethodFuzzy:
		t := s.cfg.FuzzyThreshold
		if p.Threshold != nil {
			t = *p.Threshold
		}
		scores, err := detector.DetectAllFuzzy(ctx, set, t)
		if err != nil {
			return err
		}
		return report.WriteScores(w, scores)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, p.Method)
	}
}

// minSize is Threshold read as a member count. It is only used by the
// small and all methods when no proportion is given.
func (p OutlierParams) minSize() (int, error) {
	if p.Method == MethodIntra || p.Method == MethodFuzzy || p.Threshold == nil || p.Proportion != nil {
		return 0, nil
	}
	t := *p.Threshold
	if t != math.Trunc(t) || math.IsInf(t, 0) {
		return 0, fmt.Errorf("%w: member count %v is not a whole number", outlier.ErrInvalidThreshold, t)
	}
	return int(t), nil
}

func (s *Service) proportion(p *float64) float64 {
	if p != nil {
		return *p
	}
	return s.cfg.SizeProportion
}

// Report writes the full k-means, COD and sweep report.
func (s *Service) Report(ctx context.Context, w io.Writer, ds *dataset.Dataset) error {
	var opts []report.Option
	if s.instrument {
		opts = append(opts,
			report.WithEngineObserver(metrics.EngineObserver(ctx)),
			report.WithStepObserver(func(k int) func(outlier.Step) {
				return metrics.DetectorObserver(ctx, k)
			}),
		)
	}
	r, err := report.New(s.cfg, opts...)
	if err != nil {
		return err
	}
	return r.Write(ctx, w, ds)
}
