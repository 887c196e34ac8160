package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-sod/cod/internal/logging"
	"github.com/go-sod/cod/internal/record/model"
)

type dbSchedulerConfig struct {
	maxItemsStored int
	maxStorageTime time.Duration
	rebuildDBTime  time.Duration
	deps           pullDependencies
}

func newDBScheduler(config dbSchedulerConfig) *dbScheduler {
	return &dbScheduler{opts: config}
}

// dbScheduler deletes old records. It can cap the number of records per
// dataset and drop records older than the retention period.
type dbScheduler struct {
	opts dbSchedulerConfig
}

// processOutdatedRecords deletes the records of a dataset created before the
// retention period.
func (s *dbScheduler) processOutdatedRecords(name string) error {
	records, err := s.opts.deps.fetchRecordsByDataset(name, func(record model.Record) bool {
		return time.Since(record.CreatedAt) > s.opts.maxStorageTime
	})
	if err != nil {
		return fmt.Errorf("unable find records of dataset %s: %w", name, err)
	}

	if err := s.opts.deps.deleteRecords(context.Background(), records); err != nil {
		return fmt.Errorf("unable delete outdated records of dataset %s: %w", name, err)
	}
	return nil
}

// processOverSizeRecords deletes the oldest records of a dataset above
// maxItemsStored.
func (s *dbScheduler) processOverSizeRecords(name string) error {
	records, err := s.opts.deps.fetchRecordsByDataset(name, nil)
	if err != nil {
		return fmt.Errorf("unable find records of dataset %s: %w", name, err)
	}
	if len(records) <= s.opts.maxItemsStored {
		return nil
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	if err := s.opts.deps.deleteRecords(context.Background(), records[:len(records)-s.opts.maxItemsStored]); err != nil {
		return fmt.Errorf("unable delete oversize records of dataset %s: %w", name, err)
	}
	return nil
}

func (s *dbScheduler) rebuildOutdated() error {
	names, err := s.opts.deps.fetchDatasets()
	if err != nil {
		return fmt.Errorf("unable to fetch dataset names: %w", err)
	}
	for i := range names {
		if err := s.processOutdatedRecords(names[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *dbScheduler) rebuildSize() error {
	names, err := s.opts.deps.fetchDatasets()
	if err != nil {
		return fmt.Errorf("unable to fetch dataset names: %w", err)
	}
	for i := range names {
		length, err := s.opts.deps.countByDataset(names[i])
		if err != nil {
			return fmt.Errorf("unable count dataset %s: %w", names[i], err)
		}
		if length > s.opts.maxItemsStored {
			if err := s.processOverSizeRecords(names[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// rebuild runs one retention pass.
func (s *dbScheduler) rebuild(ctx context.Context) {
	logger := logging.FromContext(ctx)
	if s.opts.maxItemsStored > 0 {
		if err := s.rebuildSize(); err != nil {
			logger.Errorf("unable db rebuild size: %v", err)
		}
	}
	if s.opts.maxStorageTime > 0 {
		if err := s.rebuildOutdated(); err != nil {
			logger.Errorf("unable db rebuild outdated: %v", err)
		}
	}
}

func (s *dbScheduler) schedule(ctx context.Context) {
	if s.opts.maxItemsStored <= 0 && s.opts.maxStorageTime <= 0 {
		return
	}
	ticker := time.NewTicker(s.opts.rebuildDBTime)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.rebuild(ctx)
		case <-ctx.Done():
			return
		}
	}
}
