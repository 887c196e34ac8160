package kmeans

import (
	"context"
	"fmt"

	"github.com/go-sod/cod/pkg/geom"
)

// SSECurve clusters the dataset at every k in [min, max] and returns the set
// SSE per k, index 0 holding min.
func (e *Engine) SSECurve(ctx context.Context, min, max int) ([]float64, error) {
	if min < 1 || max < min || max > e.ds.Len() {
		return nil, fmt.Errorf("%w: [%d, %d] for dataset size %d", ErrInvalidRange, min, max, e.ds.Len())
	}
	curve := make([]float64, 0, max-min+1)
	for k := min; k <= max; k++ {
		set, err := e.Cluster(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("k=%d: %w", k, err)
		}
		sse, err := set.SSE()
		if err != nil {
			return nil, fmt.Errorf("k=%d: %w", k, err)
		}
		curve = append(curve, sse)
	}
	return curve, nil
}

// DetectK returns the elbow of the SSE curve over [min, max].
func (e *Engine) DetectK(ctx context.Context, min, max int) (int, error) {
	logger := e.opts.logger
	logger.Infof("detecting best k between %d and %d", min, max)

	curve, err := e.SSECurve(ctx, min, max)
	if err != nil {
		return 0, err
	}
	k := Elbow(min, curve)

	logger.Infof("best k: %d", k)
	e.notify(Event{Kind: EventBestK, Strategy: e.strategy.Name(), K: k, SSE: curve[k-min]})
	return k, nil
}

// Elbow returns the k whose (k, sse) point lies farthest from the line
// through the first and last points of the curve. curve[i] is the SSE at
// k = min+i. The smaller k wins a tie.
func Elbow(min int, curve []float64) int {
	if len(curve) == 0 {
		return min
	}
	last := len(curve) - 1
	line := geom.Line{
		A: geom.Point{X: float64(min), Y: curve[0]},
		B: geom.Point{X: float64(min + last), Y: curve[last]},
	}
	best, bestK := 0.0, min
	for i, sse := range curve {
		if d := line.Dist(geom.Point{X: float64(min + i), Y: sse}); d > best {
			best, bestK = d, min+i
		}
	}
	return bestK
}
