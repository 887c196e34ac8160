package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-sod/cod/internal/logging"
	"github.com/go-sod/cod/internal/record/model"
)

func newDBTxExecutor(opts dbTxExecutorOptions, shutdownCh chan<- error) *dbTxExecutor {
	return &dbTxExecutor{opts: opts, shutdownCh: shutdownCh}
}

type dbTxExecutorOptions struct {
	flushSize int
	flushTime time.Duration
	deps      pullDependencies
}

// dbTxExecutor accumulates records and inserts them in bulk into persistent
// storage, when the buffer is full or on every flush tick.
type dbTxExecutor struct {
	mtx sync.Mutex
	// held for a whole flush, so a returning flush has seen earlier ones stored
	flushMtx sync.Mutex

	opts dbTxExecutorOptions
	//  Buffer that accumulates records for adding
	buf []model.Record
	// in-flight bulkAppend calls started by append
	pending    sync.WaitGroup
	shutdownCh chan<- error
}

// flush writes the buffer to storage synchronously.
func (tx *dbTxExecutor) flush(ctx context.Context) error {
	tx.flushMtx.Lock()
	defer tx.flushMtx.Unlock()

	tx.mtx.Lock()
	tmpBuf := make([]model.Record, len(tx.buf))
	copy(tmpBuf, tx.buf)
	tx.buf = tx.buf[:0]
	tx.mtx.Unlock()

	if len(tmpBuf) == 0 {
		return nil
	}
	if err := tx.opts.deps.appendRecords(ctx, tmpBuf); err != nil {
		return fmt.Errorf("txExecutor: append many operation failed: %w", err)
	}
	return nil
}

// append adds a record to the buffer. A full buffer is flushed in the
// background.
func (tx *dbTxExecutor) append(ctx context.Context, data model.Record) {
	tx.mtx.Lock()
	tx.buf = append(tx.buf, data)
	bufLen := len(tx.buf)
	tx.mtx.Unlock()

	if bufLen >= tx.opts.flushSize {
		tx.pending.Add(1)
		go func() {
			defer tx.pending.Done()
			tx.bulkAppend(ctx)
		}()
	}
}

func (tx *dbTxExecutor) bulkAppend(ctx context.Context) {
	if err := tx.flush(context.Background()); err != nil {
		logging.FromContext(ctx).Errorf("%v", err)
	}
}

func (tx *dbTxExecutor) size() int {
	tx.mtx.Lock()
	defer tx.mtx.Unlock()
	return len(tx.buf)
}

// flusher writes the buffer every flushTime. After ctx ends it waits for
// drained, flushes whatever is left and reports the result on shutdownCh.
func (tx *dbTxExecutor) flusher(ctx context.Context, drained <-chan struct{}) {
	defer func() {
		<-drained
		tx.pending.Wait()
		tx.shutdownCh <- tx.flush(context.Background())
	}()
	ticker := time.NewTicker(tx.opts.flushTime)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			tx.bulkAppend(ctx)
		case <-ctx.Done():
			return
		}
	}
}
