package model

import (
	"bytes"
	"fmt"
	"time"

	xdr "github.com/davecgh/go-xdr/xdr2"
	"github.com/go-sod/cod/internal/util"
	"github.com/go-sod/cod/pkg/dataset"
	"github.com/google/uuid"
)

// Feature is one stored feature value. Kind follows dataset.Kind.
type Feature struct {
	Name   string  `json:"name"`
	Kind   int32   `json:"kind"`
	Num    float64 `json:"num,omitempty"`
	Symbol string  `json:"symbol,omitempty"`
}

// Record is a vector collected into a named dataset.
type Record struct {
	ID        uuid.UUID `json:"id"`
	Dataset   string    `json:"dataset"`
	VectorID  string    `json:"vectorId"`
	Features  []Feature `json:"features"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewRecord copies vec into a record. An empty vector id is replaced by the
// record id.
func NewRecord(datasetName string, vec *dataset.Vector, createdAt time.Time) Record {
	id := uuid.New()
	vectorID := vec.ID()
	if vectorID == "" {
		vectorID = id.String()
	}
	features := make([]Feature, 0, vec.Len())
	for _, f := range vec.Features() {
		feature := Feature{Name: f.Name, Kind: int32(f.Value.Kind())}
		switch f.Value.Kind() {
		case dataset.KindNumeric:
			feature.Num, _ = f.Value.Float()
		case dataset.KindSymbolic:
			feature.Symbol, _ = f.Value.Symbol()
		}
		features = append(features, feature)
	}
	return Record{
		ID:        id,
		Dataset:   datasetName,
		VectorID:  vectorID,
		Features:  features,
		CreatedAt: createdAt,
	}
}

// Vector rebuilds the dataset vector of the record.
func (r Record) Vector() (*dataset.Vector, error) {
	features := make([]dataset.Feature, len(r.Features))
	for i, f := range r.Features {
		var v dataset.Value
		switch dataset.Kind(f.Kind) {
		case dataset.KindNumeric:
			v = dataset.Numeric(f.Num)
		case dataset.KindSymbolic:
			v = dataset.Symbolic(f.Symbol)
		case dataset.KindMissing:
			v = dataset.Missing()
		default:
			return nil, fmt.Errorf("record %s: unknown feature kind %d", r.ID, f.Kind)
		}
		features[i] = dataset.Feature{Name: f.Name, Value: v}
	}
	return dataset.NewVector(r.VectorID, features...)
}

// Key orders records of a dataset by creation time, then id.
func (r Record) Key() []byte {
	key := make([]byte, 0, 8+len(r.ID))
	nanos := uint64(r.CreatedAt.UnixNano())
	for shift := 56; shift >= 0; shift -= 8 {
		key = append(key, byte(nanos>>uint(shift)))
	}
	return append(key, r.ID[:]...)
}

type wireRecord struct {
	ID        []byte
	Dataset   string
	VectorID  string
	Features  []Feature
	CreatedAt int64
}

// Encode serializes the record as XDR.
func Encode(r Record) ([]byte, error) {
	buf := util.GetBytesBuffer()
	defer util.PutBytesBuffer(buf)
	defer buf.Reset()

	w := wireRecord{
		ID:        r.ID[:],
		Dataset:   r.Dataset,
		VectorID:  r.VectorID,
		Features:  r.Features,
		CreatedAt: r.CreatedAt.UnixNano(),
	}
	if _, err := xdr.Marshal(buf, &w); err != nil {
		return nil, fmt.Errorf("xdr marshal: %w", err)
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func Decode(data []byte) (Record, error) {
	var w wireRecord
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &w); err != nil {
		return Record{}, fmt.Errorf("xdr unmarshal: %w", err)
	}
	id, err := uuid.FromBytes(w.ID)
	if err != nil {
		return Record{}, fmt.Errorf("record id: %w", err)
	}
	return Record{
		ID:        id,
		Dataset:   w.Dataset,
		VectorID:  w.VectorID,
		Features:  w.Features,
		CreatedAt: time.Unix(0, w.CreatedAt).UTC(),
	}, nil
}
