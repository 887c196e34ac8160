package geom

import (
	"github.com/go-sod/cod/pkg/dataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// DistancePlaces is the rounding applied to every distance. Tie-breaks in the
// clustering core compare rounded distances for equality.
const DistancePlaces = 6

// EuclideanDistance returns the Euclidean distance between two vectors,
// rounded to DistancePlaces decimals. Numeric features contribute their
// difference, symbolic features contribute 0 when equal and 1 otherwise.
// Vectors of different size, features of different kinds and missing values
// fail with dataset.ErrIncomparableVectors.
func EuclideanDistance(vec, vec1 *dataset.Vector) (float64, error) {
	if vec.Len() != vec1.Len() {
		return 0.0, dataset.Incomparable(vec.ID(), vec1.ID(), "", dataset.ReasonFeatureCount)
	}
	diffs := make([]float64, vec.Len())
	for i := 0; i < vec.Len(); i++ {
		name := vec.Name(i)
		other, ok := vec1.Get(name)
		if !ok {
			return 0.0, dataset.Incomparable(vec.ID(), vec1.ID(), name, dataset.ReasonUnknownFeature)
		}
		d, reason := difference(vec.At(i), other)
		if reason != "" {
			return 0.0, dataset.Incomparable(vec.ID(), vec1.ID(), name, reason)
		}
		diffs[i] = d
	}
	return scalar.Round(floats.Norm(diffs, 2), DistancePlaces), nil
}

// SquaredDistance is EuclideanDistance squared, the unit of SSE.
func SquaredDistance(vec, vec1 *dataset.Vector) (float64, error) {
	d, err := EuclideanDistance(vec, vec1)
	if err != nil {
		return 0.0, err
	}
	return d * d, nil
}

// difference returns the per-feature difference, or the reason it is undefined.
func difference(a, b dataset.Value) (float64, dataset.Reason) {
	if a.IsMissing() || b.IsMissing() {
		return 0, dataset.ReasonMissing
	}
	if a.Kind() != b.Kind() {
		return 0, dataset.ReasonFeatureKind
	}
	if x, ok := a.Float(); ok {
		y, _ := b.Float()
		return y - x, ""
	}
	if a.Equal(b) {
		return 0, ""
	}
	return 1, ""
}
