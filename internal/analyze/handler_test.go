package analyze

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-sod/cod/internal/collector"
	"github.com/go-sod/cod/internal/report"
	"github.com/go-sod/cod/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader map[string]*dataset.Dataset

func (f fakeLoader) Datasets() ([]string, error) {
	var names []string
	for name := range f {
		names = append(names, name)
	}
	return names, nil
}

func (f fakeLoader) Load(_ context.Context, name string) (*dataset.Dataset, error) {
	ds, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", collector.ErrUnknownDataset, name)
	}
	return ds, nil
}

func points(t *testing.T, pts ...[2]float64) *dataset.Dataset {
	t.Helper()
	vectors := make([]*dataset.Vector, len(pts))
	for i, p := range pts {
		v, err := dataset.FromFloats(fmt.Sprintf("p%d", i), []string{"x", "y"}, p[:])
		require.NoError(t, err)
		vectors[i] = v
	}
	ds, err := dataset.New(vectors...)
	require.NoError(t, err)
	return ds
}

func blobs(t *testing.T, extra ...[2]float64) *dataset.Dataset {
	t.Helper()
	square := [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {0.5, 0.5}}
	var pts [][2]float64
	for _, shift := range [][2]float64{{0, 0}, {10, 0}, {0, 10}} {
		for _, p := range square {
			pts = append(pts, [2]float64{p[0] + shift[0], p[1] + shift[1]})
		}
	}
	return points(t, append(pts, extra...)...)
}

func mixed(t *testing.T) *dataset.Dataset {
	t.Helper()
	a, err := dataset.FromFloats("a", []string{"x"}, []float64{1})
	require.NoError(t, err)
	b, err := dataset.NewVector("b", dataset.Feature{Name: "x", Value: dataset.Symbolic("red")})
	require.NoError(t, err)
	ds, err := dataset.New(a, b)
	require.NoError(t, err)
	return ds
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	cfg := &Config{
		RequestTimeout: 10 * time.Second,
		Report: report.Config{
			Strategy:         "MEDOID",
			MinK:             2,
			MaxK:             12,
			FuzzyThreshold:   0.5,
			SizeProportion:   0.05,
			IntraMultiplier:  1.5,
			MinOutliers:      50,
			SweepRuns:        2,
			SweepConcurrency: 2,
		},
	}
	loader := fakeLoader{
		"pair":  points(t, [2]float64{0, 0}, [2]float64{0, 2}, [2]float64{10, 0}),
		"blobs": blobs(t),
		"far":   blobs(t, [2]float64{100, 100}),
		"mixed": mixed(t),
	}
	h, err := NewHandler(cfg, loader)
	require.NoError(t, err)
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func TestHandler(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		path string
		body string
		code int
		want string
	}{
		{
			name: "cluster_seeds",
			path: "/cluster",
			body: `{"dataset": "pair", "k": 2, "seeds": [0, 2]}`,
			code: http.StatusOK,
			want: "MEDOID clustering:\n\tk: 2\n\tsse: 4\n" +
				"\ncluster 1: 2 members, sse: 4\n\tcentroid: p0\n\tp0\n\tp1\n" +
				"\ncluster 2: 1 members, sse: 0\n\tcentroid: p2\n\tp2\n",
		},
		{
			name: "cluster_unknown_dataset",
			path: "/cluster",
			body: `{"dataset": "nope", "k": 2}`,
			code: http.StatusNotFound,
		},
		{
			name: "cluster_no_dataset",
			path: "/cluster",
			body: `{"k": 2}`,
			code: http.StatusBadRequest,
		},
		{
			name: "cluster_invalid_k",
			path: "/cluster",
			body: `{"dataset": "pair", "k": 4}`,
			code: http.StatusBadRequest,
		},
		{
			name: "cluster_unknown_strategy",
			path: "/cluster",
			body: `{"dataset": "pair", "k": 2, "strategy": "MODE"}`,
			code: http.StatusBadRequest,
		},
		{
			name: "cluster_incomparable",
			path: "/cluster",
			body: `{"dataset": "mixed", "k": 1}`,
			code: http.StatusUnprocessableEntity,
		},
		{
			name: "bestk",
			path: "/bestk",
			body: `{"dataset": "blobs", "minK": 2, "maxK": 12, "strategy": "MEAN"}`,
			code: http.StatusOK,
			want: "best k: 3\n",
		},
		{
			name: "bestk_invalid_range",
			path: "/bestk",
			body: `{"dataset": "blobs", "minK": 5, "maxK": 3}`,
			code: http.StatusBadRequest,
		},
		{
			name: "outliers_small",
			path: "/outliers",
			body: `{"dataset": "far", "k": 2, "method": "small", "proportion": 0.1}`,
			code: http.StatusOK,
			want: "small clusters (k: 2):\n\n\tp15\n\n",
		},
		{
			name: "outliers_small_count",
			path: "/outliers",
			body: `{"dataset": "far", "k": 2, "method": "small", "threshold": 2}`,
			code: http.StatusOK,
			want: "small clusters (k: 2):\n\n\tp15\n\n",
		},
		{
			name: "outliers_fractional_count",
			path: "/outliers",
			body: `{"dataset": "far", "k": 2, "method": "small", "threshold": 2.7}`,
			code: http.StatusBadRequest,
		},
		{
			name: "outliers_all_fractional_count",
			path: "/outliers",
			body: `{"dataset": "far", "k": 2, "method": "all", "threshold": 0.5}`,
			code: http.StatusBadRequest,
		},
		{
			name: "outliers_unknown_method",
			path: "/outliers",
			body: `{"dataset": "far", "k": 2, "method": "lof"}`,
			code: http.StatusBadRequest,
		},
		{
			name: "outliers_fuzzy_threshold",
			path: "/outliers",
			body: `{"dataset": "far", "k": 2, "method": "fuzzy", "threshold": 1.5}`,
			code: http.StatusBadRequest,
		},
		{
			name: "report",
			path: "/report",
			body: `{"dataset": "blobs"}`,
			code: http.StatusOK,
			want: "COD method:\n",
		},
		{
			name: "unknown_field",
			path: "/report",
			body: `{"dataset": "blobs", "k": 2}`,
			code: http.StatusBadRequest,
		},
	}
	h := newTestHandler(t)
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tc.code, rec.Code, rec.Body.String())
			if tc.want != "" {
				assert.Contains(t, rec.Body.String(), tc.want)
			}
		})
	}
}
