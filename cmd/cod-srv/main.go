package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-sod/cod/internal/analyze"
	"github.com/go-sod/cod/internal/buildinfo"
	"github.com/go-sod/cod/internal/collect"
	cod "github.com/go-sod/cod/internal/config"
	"github.com/go-sod/cod/internal/logging"
	"github.com/go-sod/cod/internal/metrics"
	"github.com/go-sod/cod/internal/server"
	"github.com/go-sod/cod/internal/setup"
	"github.com/go-sod/cod/internal/shutdown"
	"golang.org/x/sync/errgroup"
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	_, _ = fmt.Fprintln(os.Stdout, buildinfo.Info.String())

	ctx, done := shutdown.New()
	defer done()
	logger := logging.FromContext(ctx)
	if err := run(ctx); err != nil {
		logger.Fatal(err)
	}
}

func run(ctx context.Context) error {
	config := cod.Config{}
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer env.Close(context.Background())

	if err := metrics.Register(); err != nil {
		return fmt.Errorf("metrics.Register: %w", err)
	}
	exporter, err := metrics.NewExporter(config.MetricsNamespace)
	if err != nil {
		return fmt.Errorf("metrics.NewExporter: %w", err)
	}

	shutdownCh := make(chan error, 1)
	manager, err := env.ProvideCollector()(shutdownCh)
	if err != nil {
		return fmt.Errorf("collector provider function error: %w", err)
	}
	if err := manager.Run(ctx); err != nil {
		return fmt.Errorf("collector.Run: %w", err)
	}

	srv, err := server.New(config.SrvAddr, config.MaxConnections)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}
	grpcSrv, err := server.New(config.GRPCAddr, 0)
	if err != nil {
		return fmt.Errorf("server.New grpc: %w", err)
	}

	mux := http.NewServeMux()
	collectHandler, err := collect.NewHandler(&config.Collect, manager)
	if err != nil {
		return fmt.Errorf("collect.NewHandler: %w", err)
	}
	analyzeHandler, err := analyze.NewHandler(&config.Analyze, manager, analyze.WithMetrics())
	if err != nil {
		return fmt.Errorf("analyze.NewHandler: %w", err)
	}
	mux.Handle("/collect", collectHandler)
	analyzeHandler.Register(mux)
	mux.Handle("/health", server.HandleHealth(ctx))
	mux.Handle("/metrics", exporter)

	go func() {
		if err := http.ListenAndServe("127.0.0.1:6060", nil); err != nil {
			logging.FromContext(ctx).Warnf("pprof listener: %v", err)
		}
	}()

	grpcServer, _ := server.NewHealthGRPC()
	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return srv.ServeHTTPHandler(gctx, mux)
	})
	grp.Go(func() error {
		return grpcSrv.ServeGRPC(gctx, grpcServer)
	})

	if err := grp.Wait(); err != nil {
		manager.Stop()
		<-shutdownCh
		return err
	}
	return <-shutdownCh
}
