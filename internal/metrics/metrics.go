// Package metrics exports engine and collector measurements through
// opencensus views and a prometheus endpoint.
package metrics

import (
	"context"
	"fmt"
	"strconv"

	"contrib.go.opencensus.io/exporter/prometheus"
	"github.com/go-sod/cod/internal/logging"
	"github.com/go-sod/cod/pkg/kmeans"
	"github.com/go-sod/cod/pkg/outlier"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	KeyStrategy = tag.MustNewKey("strategy")
	KeyDataset  = tag.MustNewKey("dataset")
	KeyK        = tag.MustNewKey("k")
)

var (
	MClusterings    = stats.Int64("cod/clusterings", "Finished clustering runs", stats.UnitDimensionless)
	MIterations     = stats.Int64("cod/iterations", "Refinement iterations of a clustering run", stats.UnitDimensionless)
	MClusterLatency = stats.Float64("cod/cluster_latency", "Duration of a clustering run", stats.UnitMilliseconds)
	MSeedRounds     = stats.Int64("cod/seed_rounds", "Threshold rescans needed by density seeding", stats.UnitDimensionless)
	MBestK          = stats.Int64("cod/best_k", "Selected number of clusters", stats.UnitDimensionless)
	MFuzzyFlagged   = stats.Int64("cod/fuzzy_flagged", "Vectors flagged by one fuzzy grid step", stats.UnitDimensionless)
	MCollected      = stats.Int64("cod/collected_records", "Records accepted by the collector", stats.UnitDimensionless)
)

var Views = []*view.View{
	{
		Name:        "cod/clusterings",
		Measure:     MClusterings,
		Description: "Number of finished clustering runs",
		TagKeys:     []tag.Key{KeyStrategy},
		Aggregation: view.Count(),
	},
	{
		Name:        "cod/iterations",
		Measure:     MIterations,
		Description: "Refinement iterations per clustering run",
		TagKeys:     []tag.Key{KeyStrategy},
		Aggregation: view.Distribution(1, 2, 5, 10, 20, 30, 40, 50),
	},
	{
		Name:        "cod/cluster_latency",
		Measure:     MClusterLatency,
		Description: "Clustering run latency in milliseconds",
		TagKeys:     []tag.Key{KeyStrategy},
		Aggregation: view.Distribution(1, 5, 10, 50, 100, 500, 1000, 5000, 10000),
	},
	{
		Name:        "cod/seed_rounds",
		Measure:     MSeedRounds,
		Description: "Threshold rescans per density seeding",
		Aggregation: view.Distribution(0, 1, 2, 4, 8, 16, 32, 33),
	},
	{
		Name:        "cod/best_k",
		Measure:     MBestK,
		Description: "Last selected number of clusters",
		TagKeys:     []tag.Key{KeyStrategy},
		Aggregation: view.LastValue(),
	},
	{
		Name:        "cod/fuzzy_flagged",
		Measure:     MFuzzyFlagged,
		Description: "Vectors flagged per fuzzy grid step",
		TagKeys:     []tag.Key{KeyK},
		Aggregation: view.Distribution(0, 1, 5, 10, 50, 100, 500, 1000),
	},
	{
		Name:        "cod/collected_records",
		Measure:     MCollected,
		Description: "Records accepted by the collector",
		TagKeys:     []tag.Key{KeyDataset},
		Aggregation: view.Sum(),
	},
}

// Register registers Views with opencensus.
func Register() error {
	if err := view.Register(Views...); err != nil {
		return fmt.Errorf("register views: %w", err)
	}
	return nil
}

// NewExporter returns the prometheus exporter serving registered views.
func NewExporter(namespace string) (*prometheus.Exporter, error) {
	pe, err := prometheus.NewExporter(prometheus.Options{
		Namespace: namespace,
		OnError: func(err error) {
			logging.DefaultLogger().Errorf("prometheus exporter: %v", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	return pe, nil
}

// EngineObserver records clustering progress events.
func EngineObserver(ctx context.Context) kmeans.Observer {
	logger := logging.FromContext(ctx)
	return func(ev kmeans.Event) {
		mutators := []tag.Mutator{tag.Upsert(KeyStrategy, ev.Strategy)}
		var ms []stats.Measurement
		switch ev.Kind {
		case kmeans.EventClustered:
			ms = append(ms,
				MClusterings.M(1),
				MIterations.M(int64(ev.Iteration)),
				MClusterLatency.M(float64(ev.Duration.Microseconds())/1000),
			)
		case kmeans.EventSeeded:
			ms = append(ms, MSeedRounds.M(int64(ev.Rounds)))
		case kmeans.EventBestK:
			ms = append(ms, MBestK.M(int64(ev.K)))
		default:
			return
		}
		if err := stats.RecordWithTags(ctx, mutators, ms...); err != nil {
			logger.Debugf("record %s metrics: %v", ev.Kind, err)
		}
	}
}

// DetectorObserver records fuzzy grid steps of a clustering with k clusters.
func DetectorObserver(ctx context.Context, k int) func(outlier.Step) {
	logger := logging.FromContext(ctx)
	mutators := []tag.Mutator{tag.Upsert(KeyK, strconv.Itoa(k))}
	return func(step outlier.Step) {
		if err := stats.RecordWithTags(ctx, mutators, MFuzzyFlagged.M(int64(step.Flagged))); err != nil {
			logger.Debugf("record fuzzy step metrics: %v", err)
		}
	}
}

func RecordCollected(ctx context.Context, dataset string, n int) {
	if err := stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(KeyDataset, dataset)}, MCollected.M(int64(n))); err != nil {
		logging.FromContext(ctx).Debugf("record collected metrics: %v", err)
	}
}
