package dataset

import (
	"fmt"
	"strings"
)

type Feature struct {
	Name  string
	Value Value
}

// Vector is an identified, ordered mapping from feature name to value.
// A Vector is never modified after construction.
type Vector struct {
	id     string
	names  []string
	values []Value
	index  map[string]int
}

func NewVector(id string, features ...Feature) (*Vector, error) {
	v := &Vector{
		id:     id,
		names:  make([]string, 0, len(features)),
		values: make([]Value, 0, len(features)),
		index:  make(map[string]int, len(features)),
	}
	for _, f := range features {
		if _, ok := v.index[f.Name]; ok {
			return nil, fmt.Errorf("vector %s: %w: %q", id, ErrDuplicateFeature, f.Name)
		}
		v.index[f.Name] = len(v.names)
		v.names = append(v.names, f.Name)
		v.values = append(v.values, f.Value)
	}
	return v, nil
}

// FromFloats builds an all-numeric vector.
func FromFloats(id string, names []string, values []float64) (*Vector, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("vector %s: %d names for %d values", id, len(names), len(values))
	}
	features := make([]Feature, len(names))
	for i := range names {
		features[i] = Feature{Name: names[i], Value: Numeric(values[i])}
	}
	return NewVector(id, features...)
}

func (v *Vector) ID() string {
	return v.id
}

func (v *Vector) Len() int {
	return len(v.names)
}

func (v *Vector) Names() []string {
	names := make([]string, len(v.names))
	copy(names, v.names)
	return names
}

func (v *Vector) Name(i int) string {
	return v.names[i]
}

func (v *Vector) At(i int) Value {
	return v.values[i]
}

func (v *Vector) Get(name string) (Value, bool) {
	i, ok := v.index[name]
	if !ok {
		return Value{}, false
	}
	return v.values[i], true
}

func (v *Vector) Features() []Feature {
	features := make([]Feature, len(v.names))
	for i := range v.names {
		features[i] = Feature{Name: v.names[i], Value: v.values[i]}
	}
	return features
}

// Equal reports whether both vectors hold the same values under the same
// feature names. Ids are not compared.
func (v *Vector) Equal(o *Vector) bool {
	if v == o {
		return true
	}
	if v == nil || o == nil || len(v.names) != len(o.names) {
		return false
	}
	for i, name := range v.names {
		val, ok := o.Get(name)
		if !ok || !v.values[i].Equal(val) {
			return false
		}
	}
	return true
}

func (v *Vector) String() string {
	var b strings.Builder
	b.WriteString(v.id)
	b.WriteString("{")
	for i := range v.names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.names[i])
		b.WriteString(": ")
		b.WriteString(v.values[i].String())
	}
	b.WriteString("}")
	return b.String()
}
