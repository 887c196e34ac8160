package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrIncomparableVectors is the single comparability failure of the
	// clustering core. Every error describing a schema, kind or missing value
	// mismatch matches it with errors.Is.
	ErrIncomparableVectors = errors.New("incomparable feature vectors")
	ErrDuplicateID         = errors.New("dataset: duplicate vector id")
	ErrDuplicateFeature    = errors.New("dataset: duplicate feature name")
	ErrEmpty               = errors.New("dataset: no vectors")
)

type Reason string

const (
	ReasonFeatureCount   Reason = "different number of features"
	ReasonFeatureKind    Reason = "different feature value kinds"
	ReasonMissing        Reason = "missing feature value"
	ReasonUnknownFeature Reason = "unknown feature"
	ReasonNotNumeric     Reason = "feature value is not numeric"
)

// IncomparableError carries the detail of an ErrIncomparableVectors failure.
type IncomparableError struct {
	A       string
	B       string
	Feature string
	Reason  Reason
}

func (e *IncomparableError) Error() string {
	if e.Feature == "" {
		return fmt.Sprintf("%v: %s vs %s: %s", ErrIncomparableVectors, e.A, e.B, e.Reason)
	}
	return fmt.Sprintf("%v: %s vs %s: %s %q", ErrIncomparableVectors, e.A, e.B, e.Reason, e.Feature)
}

func (e *IncomparableError) Is(target error) bool {
	return target == ErrIncomparableVectors
}

// Incomparable builds an IncomparableError for the vectors with ids a and b.
func Incomparable(a, b, feature string, reason Reason) error {
	return &IncomparableError{A: a, B: b, Feature: feature, Reason: reason}
}
