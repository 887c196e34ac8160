// Package main provides the cod command line driver.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-sod/cod/internal/analyze"
	"github.com/go-sod/cod/internal/buildinfo"
	"github.com/go-sod/cod/internal/database"
	"github.com/go-sod/cod/internal/logging"
	"github.com/go-sod/cod/internal/report"
	"github.com/go-sod/cod/internal/shutdown"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

func main() {
	ctx, done := shutdown.New()
	defer done()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		done()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cod",
		Short: "COD - clustering-based outlier detection",
		Long: `cod clusters stored datasets with k-means or k-medoids and reports
the vectors that lie in small clusters or far from their centroid.

Datasets live in a bbolt file shared with cod-srv.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("db", envOr("COD_DB_FILE", "cod.db"), "Database file")
	rootCmd.PersistentFlags().String("out", "", "Write the result to this file instead of stdout")
	rootCmd.PersistentFlags().Bool("normalize", true, "Z-score normalize the dataset before clustering")
	rootCmd.PersistentFlags().String("strategy", "", "Centroid strategy, MEAN or MEDOID")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.Info.String())
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "import [dataset] [file.jsonl]",
		Short: "Import vectors from a JSON lines file",
		Args:  cobra.ExactArgs(2),
		RunE:  runImport,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "datasets",
		Short: "List stored datasets",
		Args:  cobra.NoArgs,
		RunE:  runDatasets,
	})

	clusterCmd := &cobra.Command{
		Use:   "cluster [dataset]",
		Short: "Cluster a dataset into k clusters",
		Args:  cobra.ExactArgs(1),
		RunE:  runCluster,
	}
	clusterCmd.Flags().Int("k", 2, "Number of clusters")
	clusterCmd.Flags().IntSlice("seeds", nil, "0-based dataset indices of the initial centroids")
	rootCmd.AddCommand(clusterCmd)

	bestKCmd := &cobra.Command{
		Use:   "bestk [dataset]",
		Short: "Print the SSE curve and its elbow",
		Args:  cobra.ExactArgs(1),
		RunE:  runBestK,
	}
	bestKCmd.Flags().Int("min-k", 0, "Smallest k, COD_MIN_K when 0")
	bestKCmd.Flags().Int("max-k", 0, "Largest k, COD_MAX_K when 0")
	rootCmd.AddCommand(bestKCmd)

	outliersCmd := &cobra.Command{
		Use:   "outliers [dataset]",
		Short: "Detect outliers",
		Args:  cobra.ExactArgs(1),
		RunE:  runOutliers,
	}
	outliersCmd.Flags().Int("k", 0, "Number of clusters, the elbow k when 0")
	outliersCmd.Flags().String("method", analyze.MethodFuzzy, "small, intra, all or fuzzy")
	outliersCmd.Flags().Float64("threshold", 0, "Member count for small and all, minimum confidence for fuzzy")
	outliersCmd.Flags().Float64("proportion", 0, "Size threshold as a share of the vectors")
	outliersCmd.Flags().Float64("multiplier", 0, "Intra-cluster distance multiplier")
	rootCmd.AddCommand(outliersCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "report [dataset]",
		Short: "Write the k-means, COD and SSE sweep report",
		Args:  cobra.ExactArgs(1),
		RunE:  runReport,
	})

	return rootCmd
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// analysisConfig reads the analysis settings from the environment and
// applies the command line overrides.
func analysisConfig(cmd *cobra.Command) (*report.Config, error) {
	var cfg report.Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}
	if f := cmd.Flags().Lookup("normalize"); f != nil && f.Changed {
		cfg.Normalize, _ = cmd.Flags().GetBool("normalize")
	}
	if strategy, _ := cmd.Flags().GetString("strategy"); strategy != "" {
		cfg.Strategy = strings.ToUpper(strategy)
	}
	return &cfg, nil
}

// withOutput runs fn with the --out file or stdout.
func withOutput(cmd *cobra.Command, fn func(io.Writer) error) error {
	path, _ := cmd.Flags().GetString("out")
	if path == "" {
		return fn(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logging.FromContext(cmd.Context()).Infof("Output written to %s", path)
	return nil
}

func openDB(cmd *cobra.Command) (context.Context, *database.DB, error) {
	ctx := cmd.Context()
	path, _ := cmd.Flags().GetString("db")
	db, err := database.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return ctx, db, nil
}

func runCluster(cmd *cobra.Command, args []string) error {
	cfg, err := analysisConfig(cmd)
	if err != nil {
		return err
	}
	ctx, db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	ds, err := loadDataset(db, args[0])
	if err != nil {
		return err
	}
	k, _ := cmd.Flags().GetInt("k")
	seeds, _ := cmd.Flags().GetIntSlice("seeds")
	return withOutput(cmd, func(w io.Writer) error {
		return analyze.New(cfg).Cluster(ctx, w, ds, analyze.ClusterParams{K: k, Seeds: seeds})
	})
}

func runBestK(cmd *cobra.Command, args []string) error {
	cfg, err := analysisConfig(cmd)
	if err != nil {
		return err
	}
	ctx, db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	ds, err := loadDataset(db, args[0])
	if err != nil {
		return err
	}
	minK, _ := cmd.Flags().GetInt("min-k")
	maxK, _ := cmd.Flags().GetInt("max-k")
	return withOutput(cmd, func(w io.Writer) error {
		return analyze.New(cfg).BestK(ctx, w, ds, analyze.BestKParams{MinK: minK, MaxK: maxK})
	})
}

func runOutliers(cmd *cobra.Command, args []string) error {
	cfg, err := analysisConfig(cmd)
	if err != nil {
		return err
	}
	ctx, db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	ds, err := loadDataset(db, args[0])
	if err != nil {
		return err
	}
	params := analyze.OutlierParams{}
	params.K, _ = cmd.Flags().GetInt("k")
	params.Method, _ = cmd.Flags().GetString("method")
	params.Threshold = changedFloat(cmd, "threshold")
	params.Proportion = changedFloat(cmd, "proportion")
	params.Multiplier = changedFloat(cmd, "multiplier")
	return withOutput(cmd, func(w io.Writer) error {
		return analyze.New(cfg).Outliers(ctx, w, ds, params)
	})
}

func changedFloat(cmd *cobra.Command, name string) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetFloat64(name)
	return &v
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := analysisConfig(cmd)
	if err != nil {
		return err
	}
	ctx, db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	ds, err := loadDataset(db, args[0])
	if err != nil {
		return err
	}
	return withOutput(cmd, func(w io.Writer) error {
		return analyze.New(cfg).Report(ctx, w, ds)
	})
}
