package dataset

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"
)

const zscorePlaces = 2

// ZScoreStats holds per-feature means and sample standard deviations of a
// training dataset.
type ZScoreStats struct {
	Means   map[string]float64
	StdDevs map[string]float64
}

func NewZScoreStats(train *Dataset) *ZScoreStats {
	s := &ZScoreStats{
		Means:   make(map[string]float64, len(train.schema)),
		StdDevs: make(map[string]float64, len(train.schema)),
	}
	for _, name := range train.schema {
		var values []float64
		for _, v := range train.vectors {
			val, _ := v.Get(name)
			if f, ok := val.Float(); ok {
				values = append(values, f)
			}
		}
		if len(values) == 0 {
			continue
		}
		mean, std := stat.MeanStdDev(values, nil)
		if math.IsNaN(std) {
			std = 0
		}
		s.Means[name] = mean
		s.StdDevs[name] = std
	}
	return s
}

// Apply returns a normalized copy of ds. Symbolic and missing values pass
// through unchanged; a feature without spread maps to 0.
func (s *ZScoreStats) Apply(ds *Dataset) (*Dataset, error) {
	vectors := make([]*Vector, ds.Len())
	for i, v := range ds.vectors {
		features := v.Features()
		for j := range features {
			f, ok := features[j].Value.Float()
			if !ok {
				continue
			}
			mean, known := s.Means[features[j].Name]
			if !known {
				continue
			}
			z := 0.0
			if std := s.StdDevs[features[j].Name]; std != 0 {
				z = scalar.Round((f-mean)/std, zscorePlaces)
			}
			features[j].Value = Numeric(z)
		}
		nv, err := NewVector(v.ID(), features...)
		if err != nil {
			return nil, err
		}
		vectors[i] = nv
	}
	return New(vectors...)
}

// ZScore normalizes ds against its own statistics.
func ZScore(ds *Dataset) (*Dataset, error) {
	return NewZScoreStats(ds).Apply(ds)
}
