package setup

import (
	"context"
	"fmt"

	"github.com/go-sod/cod/internal/analyze"
	"github.com/go-sod/cod/internal/collector"
	"github.com/go-sod/cod/internal/database"
	"github.com/go-sod/cod/internal/logging"
	"github.com/go-sod/cod/internal/report"
	"github.com/go-sod/cod/internal/srvenv"
	"github.com/kelseyhightower/envconfig"
)

type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

type CollectorConfigProvider interface {
	CollectorConfig() *collector.Config
}

type AnalyzeConfigProvider interface {
	AnalyzeConfig() *analyze.Config
}

// Setup fills config from the environment and prepares the dependencies
// its providers ask for.
func Setup(ctx context.Context, config interface{}) (*srvenv.SrvEnv, error) {
	logger := logging.FromContext(ctx)
	var serverEnvOpts []srvenv.Option
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var db *database.DB
	if dbConfigProvider, ok := config.(DatabaseConfigProvider); ok {
		logger.Info("Configuring db")
		dbFromEnv, err := database.NewFromEnv(ctx, dbConfigProvider.DatabaseConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to open database: %w", err)
		}
		db = dbFromEnv
		serverEnvOpts = append(serverEnvOpts, srvenv.WithDatabase(db))
	}

	if collectorConfigProvider, ok := config.(CollectorConfigProvider); ok {
		logger.Info("Configuring collector")
		if db == nil {
			return nil, fmt.Errorf("collector requires a database config")
		}
		provideFn, err := ProvideCollectorFor(collectorConfigProvider, db)
		if err != nil {
			return nil, fmt.Errorf("unable create collector provide function: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithCollector(provideFn))
	}

	if analyzeConfigProvider, ok := config.(AnalyzeConfigProvider); ok {
		logger.Info("Configuring analysis")
		cfg := analyzeConfigProvider.AnalyzeConfig()
		if err := ValidateReport(&cfg.Report); err != nil {
			return nil, err
		}
	}
	return srvenv.New(serverEnvOpts...), nil
}

func ProvideCollectorFor(provider CollectorConfigProvider, db *database.DB) (collector.ProvideFn, error) {
	cfg := provider.CollectorConfig()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("dont process collector env: %w", err)
	}
	return func(shutdownCh chan<- error) (collector.Manager, error) {
		return collector.New(
			db,
			shutdownCh,
			collector.WithRebuildDBTime(cfg.RebuildDBTime),
			collector.WithMaxItemsStored(cfg.MaxItemsStored),
			collector.WithMaxStorageTime(cfg.MaxStorageTime),
			collector.WithDBFlushSize(cfg.DBFlushSize),
			collector.WithDBFlushTime(cfg.DBFlushTime),
		)
	}, nil
}

// ValidateReport checks the analysis settings once at startup, loading the
// seed plan when one is configured.
func ValidateReport(cfg *report.Config) error {
	if _, err := report.New(cfg); err != nil {
		return fmt.Errorf("invalid analysis config: %w", err)
	}
	return nil
}
