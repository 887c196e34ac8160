// Package dataset holds the feature vectors handed to the clustering core.
//
// A Dataset is ordered and immutable: clustering, seeding and outlier scoring
// only read it, and normalization returns a new Dataset.
package dataset

import (
	"fmt"
)

type Dataset struct {
	vectors []*Vector
	index   map[string]int
	schema  []string
}

// New validates that ids are unique and that every vector carries the same
// set of feature names as the first one.
func New(vectors ...*Vector) (*Dataset, error) {
	if len(vectors) == 0 {
		return nil, ErrEmpty
	}
	d := &Dataset{
		vectors: make([]*Vector, len(vectors)),
		index:   make(map[string]int, len(vectors)),
		schema:  vectors[0].Names(),
	}
	first := vectors[0]
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("dataset: nil vector at %d", i)
		}
		if _, ok := d.index[v.ID()]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, v.ID())
		}
		if v.Len() != first.Len() {
			return nil, Incomparable(first.ID(), v.ID(), "", ReasonFeatureCount)
		}
		for _, name := range d.schema {
			if _, ok := v.Get(name); !ok {
				return nil, Incomparable(first.ID(), v.ID(), name, ReasonUnknownFeature)
			}
		}
		d.index[v.ID()] = i
		d.vectors[i] = v
	}
	return d, nil
}

func (d *Dataset) Len() int {
	return len(d.vectors)
}

func (d *Dataset) At(i int) *Vector {
	return d.vectors[i]
}

func (d *Dataset) Vectors() []*Vector {
	vectors := make([]*Vector, len(d.vectors))
	copy(vectors, d.vectors)
	return vectors
}

func (d *Dataset) IndexOf(id string) (int, bool) {
	i, ok := d.index[id]
	return i, ok
}

// Schema returns the feature names in the order of the first vector.
func (d *Dataset) Schema() []string {
	schema := make([]string, len(d.schema))
	copy(schema, d.schema)
	return schema
}
