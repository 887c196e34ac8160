package cod

import (
	"github.com/go-sod/cod/internal/analyze"
	"github.com/go-sod/cod/internal/collect"
	"github.com/go-sod/cod/internal/collector"
	"github.com/go-sod/cod/internal/database"
	"github.com/go-sod/cod/internal/setup"
)

var (
	_ setup.DatabaseConfigProvider  = (*Config)(nil)
	_ setup.CollectorConfigProvider = (*Config)(nil)
	_ setup.AnalyzeConfigProvider   = (*Config)(nil)
)

type Config struct {
	SrvAddr          string `envconfig:"COD_ADDR" default:":8787"`
	GRPCAddr         string `envconfig:"COD_GRPC_ADDR" default:":8788"`
	MaxConnections   int    `envconfig:"COD_MAX_CONNECTIONS" default:"256"`
	MetricsNamespace string `envconfig:"COD_METRICS_NAMESPACE" default:"cod"`
	Collector        collector.Config
	Collect          collect.Config
	Analyze          analyze.Config
	Database         database.Config
}

func (c *Config) CollectorConfig() *collector.Config {
	return &c.Collector
}

func (c *Config) DatabaseConfig() *database.Config {
	return &c.Database
}

func (c *Config) AnalyzeConfig() *analyze.Config {
	return &c.Analyze
}
