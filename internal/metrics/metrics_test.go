package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-sod/cod/pkg/kmeans"
	"github.com/go-sod/cod/pkg/outlier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"
)

func TestObservers(t *testing.T) {
	require.NoError(t, Register())
	defer view.Unregister(Views...)
	ctx := context.Background()

	observe := EngineObserver(ctx)
	observe(kmeans.Event{Kind: kmeans.EventSeeded, Strategy: kmeans.StrategyMean, Rounds: 3})
	observe(kmeans.Event{Kind: kmeans.EventClustered, Strategy: kmeans.StrategyMean, Iteration: 4, Duration: 2 * time.Millisecond})
	observe(kmeans.Event{Kind: kmeans.EventBestK, Strategy: kmeans.StrategyMean, K: 3})
	observe(kmeans.Event{Kind: kmeans.EventIteration, Strategy: kmeans.StrategyMean})
	DetectorObserver(ctx, 3)(outlier.Step{Flagged: 7})
	RecordCollected(ctx, "hosts", 5)

	rows, err := view.RetrieveData("cod/clusterings")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Data.(*view.CountData).Value)

	rows, err = view.RetrieveData("cod/best_k")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3.0, rows[0].Data.(*view.LastValueData).Value)

	rows, err = view.RetrieveData("cod/collected_records")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5.0, rows[0].Data.(*view.SumData).Value)

	pe, err := NewExporter("cod")
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	pe.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "cod_clusterings"), rec.Body.String())
}
