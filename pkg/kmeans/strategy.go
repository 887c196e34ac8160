package kmeans

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sod/cod/pkg/cluster"
	"github.com/go-sod/cod/pkg/dataset"
	"github.com/go-sod/cod/pkg/geom"
	"github.com/shopspring/decimal"
)

var ErrUnknownStrategy = errors.New("kmeans: unknown strategy")

// Strategy recomputes the centroid of one cluster from its members.
// members are dataset indices in dataset order and never empty. num is the
// 1-based position of the cluster in the current iteration.
type Strategy interface {
	Name() string
	Centroid(ds *dataset.Dataset, members []int, num int) (cluster.Centroid, error)
}

const (
	StrategyMean   = "MEAN"
	StrategyMedoid = "MEDOID"
)

func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case StrategyMean:
		return Mean{}, nil
	case StrategyMedoid, "":
		return Medoid{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Mean takes the per-feature arithmetic mean. Sums are accumulated as
// decimals so large clusters do not drift.
type Mean struct{}

func (Mean) Name() string { return StrategyMean }

func (Mean) Centroid(ds *dataset.Dataset, members []int, num int) (cluster.Centroid, error) {
	id := fmt.Sprintf("centroid%d", num)
	names := ds.Schema()
	values := make([]float64, len(names))
	count := decimal.NewFromInt(int64(len(members)))
	for i, name := range names {
		sum := decimal.Zero
		for _, idx := range members {
			vec := ds.At(idx)
			val, _ := vec.Get(name)
			f, ok := val.Float()
			if !ok {
				reason := dataset.ReasonNotNumeric
				if val.IsMissing() {
					reason = dataset.ReasonMissing
				}
				return cluster.Centroid{}, dataset.Incomparable(vec.ID(), id, name, reason)
			}
			sum = sum.Add(decimal.NewFromFloat(f))
		}
		values[i] = sum.Div(count).InexactFloat64()
	}
	vec, err := dataset.FromFloats(id, names, values)
	if err != nil {
		return cluster.Centroid{}, err
	}
	return cluster.Synthetic(vec), nil
}

// Medoid picks the member with the smallest sum of squared distances to the
// other members. The earliest member wins a tie.
type Medoid struct{}

func (Medoid) Name() string { return StrategyMedoid }

func (Medoid) Centroid(ds *dataset.Dataset, members []int, _ int) (cluster.Centroid, error) {
	best, bestErr := -1, 0.0
	for _, i := range members {
		var sse float64
		for _, j := range members {
			if i == j {
				continue
			}
			d, err := geom.SquaredDistance(ds.At(i), ds.At(j))
			if err != nil {
				return cluster.Centroid{}, err
			}
			sse += d
		}
		if best < 0 || sse < bestErr {
			best, bestErr = i, sse
		}
	}
	return cluster.FromMember(ds, best), nil
}
