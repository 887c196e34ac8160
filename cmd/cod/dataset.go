package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-sod/cod/internal/collect"
	"github.com/go-sod/cod/internal/collector"
	"github.com/go-sod/cod/internal/database"
	"github.com/go-sod/cod/internal/logging"
	recordDb "github.com/go-sod/cod/internal/record/database"
	"github.com/go-sod/cod/pkg/dataset"
	"github.com/spf13/cobra"
)

const maxLineBytes = 16 * 1024 * 1024

func runImport(cmd *cobra.Command, args []string) error {
	ctx, db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	f, err := os.Open(args[1])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[1], err)
	}
	defer f.Close()

	n, err := importItems(ctx, db, args[0], f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d vectors into %s\n", n, args[0])
	return nil
}

func runDatasets(cmd *cobra.Command, _ []string) error {
	ctx, db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	records := recordDb.New(db)
	names, err := records.Datasets()
	if err != nil {
		return err
	}
	for _, name := range names {
		count, err := records.CountByDataset(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", name, count)
	}
	return nil
}

// importItems stores one collect.Item per non-empty line of r.
func importItems(ctx context.Context, db *database.DB, name string, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var items []collect.Item
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var it collect.Item
		if err := json.Unmarshal(scanner.Bytes(), &it); err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, it)
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}

	records, err := collect.Records(name, items, time.Now())
	if err != nil {
		return 0, err
	}
	if err := recordDb.New(db).AppendMany(ctx, records); err != nil {
		return 0, fmt.Errorf("store records: %w", err)
	}
	logging.FromContext(ctx).Infof("Imported %d vectors into dataset %s", len(records), name)
	return len(records), nil
}

func loadDataset(db *database.DB, name string) (*dataset.Dataset, error) {
	records, err := recordDb.New(db).FindByDataset(name, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %q", collector.ErrUnknownDataset, name)
	}
	return collector.Build(records)
}
