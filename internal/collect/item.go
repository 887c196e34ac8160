package collect

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-sod/cod/internal/record/model"
	"github.com/go-sod/cod/pkg/dataset"
)

var ErrInvalidFeature = errors.New("collect: unsupported feature value")

// Item is one collected vector. Numbers are numeric features, strings are
// symbolic and null marks a missing value.
type Item struct {
	ID        string                 `json:"id"`
	Features  map[string]interface{} `json:"features"`
	CreatedAt time.Time              `json:"createdAt"`
}

// Vector builds the dataset vector with features in lexical name order.
func (it Item) Vector() (*dataset.Vector, error) {
	names := make([]string, 0, len(it.Features))
	for name := range it.Features {
		names = append(names, name)
	}
	sort.Strings(names)

	features := make([]dataset.Feature, 0, len(names))
	for _, name := range names {
		var value dataset.Value
		switch v := it.Features[name].(type) {
		case float64:
			value = dataset.Numeric(v)
		case string:
			value = dataset.Symbolic(v)
		case nil:
			value = dataset.Missing()
		default:
			return nil, fmt.Errorf("%w: feature %q of vector %q has type %T", ErrInvalidFeature, name, it.ID, v)
		}
		features = append(features, dataset.Feature{Name: name, Value: value})
	}
	return dataset.NewVector(it.ID, features...)
}

// Records converts items of one dataset into records ordered by creation
// time. A zero creation time becomes now plus the item position in
// nanoseconds, so undated items keep their order in storage.
func Records(datasetName string, items []Item, now time.Time) ([]model.Record, error) {
	records := make([]model.Record, 0, len(items))
	for i, it := range items {
		vec, err := it.Vector()
		if err != nil {
			return nil, err
		}
		createdAt := it.CreatedAt
		if createdAt.IsZero() {
			createdAt = now.Add(time.Duration(i))
		}
		records = append(records, model.NewRecord(datasetName, vec, createdAt))
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}
