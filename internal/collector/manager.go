// Package collector accepts vectors for named datasets, persists them in
// batches and loads datasets back for analysis.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-sod/cod/internal/database"
	"github.com/go-sod/cod/internal/logging"
	recordDb "github.com/go-sod/cod/internal/record/database"
	"github.com/go-sod/cod/internal/record/model"
	"github.com/go-sod/cod/pkg/dataset"
	"github.com/go-sod/cod/pkg/iqueue"
)

var (
	ErrClosed         = errors.New("collector: shutting down")
	ErrUnknownDataset = errors.New("collector: unknown dataset")
)

// Contract for returning the Manager instance
type ProvideFn func(chan<- error) (Manager, error)

// Manager is the background service behind the collect and analysis
// handlers.
type Manager interface {
	Collector
	Loader
	// Start the background goroutines
	Run(context.Context) error
	// Stop the service. The final flush result is sent on the shutdown channel.
	Stop()
}

type Collector interface {
	// Collect queues records for persistence
	Collect(in ...model.Record) error
}

type Loader interface {
	// Datasets lists the stored dataset names
	Datasets() ([]string, error)
	// Load returns the stored vectors of a dataset, oldest first
	Load(ctx context.Context, name string) (*dataset.Dataset, error)
}

// Abstractions for getting dependencies
type (
	// function for getting the records of one dataset
	fetchRecordsByDatasetFn func(string, recordDb.FilterFn) ([]model.Record, error)
	// function for deleting multiple records
	deleteRecordsFn func(context.Context, []model.Record) error
	// function to add sets of records
	appendRecordsFn func(context.Context, []model.Record) error
	// function for getting all dataset names
	fetchDatasetsFn func() ([]string, error)
	// number of records in a dataset
	countByDatasetFn func(string) (int, error)
)

type pullDependencies struct {
	fetchRecordsByDataset fetchRecordsByDatasetFn
	deleteRecords         deleteRecordsFn
	appendRecords         appendRecordsFn
	fetchDatasets         fetchDatasetsFn
	countByDataset        countByDatasetFn
}

type Options struct {
	maxItemsStored int
	maxStorageTime time.Duration
	dbFlushTime    time.Duration
	dbFlushSize    int
	rebuildDBTime  time.Duration
}

type Option func(*manager)

func WithDBFlushTime(t time.Duration) Option {
	return func(o *manager) {
		o.opts.dbFlushTime = t
	}
}

func WithDBFlushSize(n int) Option {
	return func(o *manager) {
		o.opts.dbFlushSize = n
	}
}

func WithRebuildDBTime(t time.Duration) Option {
	return func(o *manager) {
		o.opts.rebuildDBTime = t
	}
}

func WithMaxItemsStored(n int) Option {
	return func(o *manager) {
		o.opts.maxItemsStored = n
	}
}

func WithMaxStorageTime(t time.Duration) Option {
	return func(o *manager) {
		o.opts.maxStorageTime = t
	}
}

func New(db *database.DB, shutdownCh chan<- error, opts ...Option) (*manager, error) {
	if db == nil {
		return nil, fmt.Errorf("database instance is not created")
	}
	records := recordDb.New(db)
	return newManager(pullDependencies{
		fetchRecordsByDataset: records.FindByDataset,
		deleteRecords:         records.DeleteMany,
		appendRecords:         records.AppendMany,
		fetchDatasets:         records.Datasets,
		countByDataset:        records.CountByDataset,
	}, shutdownCh, opts...), nil
}

func newManager(deps pullDependencies, shutdownCh chan<- error, opts ...Option) *manager {
	d := &manager{
		deps:       deps,
		collectCh:  make(chan intake, 1),
		done:       make(chan struct{}),
		drained:    make(chan struct{}),
		shutDownCh: shutdownCh,
		queue:      map[string]*iqueue.Queue[intake]{},
		opts: Options{
			dbFlushSize:   100,
			dbFlushTime:   time.Second,
			rebuildDBTime: time.Minute,
		},
	}

	for _, f := range opts {
		f(d)
	}

	d.dbScheduler = newDBScheduler(dbSchedulerConfig{
		deps:           deps,
		maxItemsStored: d.opts.maxItemsStored,
		maxStorageTime: d.opts.maxStorageTime,
		rebuildDBTime:  d.opts.rebuildDBTime,
	})

	d.dbTxExecutor = newDBTxExecutor(
		dbTxExecutorOptions{
			deps:      deps,
			flushTime: d.opts.dbFlushTime,
			flushSize: d.opts.dbFlushSize,
		},
		shutdownCh,
	)

	return d
}

// intake is one routed item: a record, or a sync barrier when synced is set.
type intake struct {
	record model.Record
	// closed by the dataset receiver once every earlier record is buffered
	synced chan struct{}
}

// manager routes collected records through one intake queue per dataset
// into the batching dbTxExecutor.
type manager struct {
	mtx sync.RWMutex

	opts Options
	deps pullDependencies
	// The transaction manager in the store
	dbTxExecutor *dbTxExecutor
	// Retention of data in storage
	dbScheduler *dbScheduler

	// Intake queue per dataset, owned by the collector goroutine
	queue     map[string]*iqueue.Queue[intake]
	receivers sync.WaitGroup
	// New data channel for routing
	collectCh chan intake
	// closed once the collector stops accepting records
	done chan struct{}
	// closed once every queued record reached the tx buffer
	drained    chan struct{}
	shutDownCh chan<- error

	closed bool
	cancel func()
}

func (d *manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.collector(ctx)
	go d.dbTxExecutor.flusher(ctx, d.drained)
	go d.dbScheduler.schedule(ctx)

	logging.FromContext(ctx).Infof("collector started, flush size %d, flush time %s", d.opts.dbFlushSize, d.opts.dbFlushTime)
	return nil
}

func (d *manager) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
}

// Collect hands records to the intake queues. It blocks while the router is
// busy and fails once the manager stops.
func (d *manager) Collect(data ...model.Record) error {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	if d.closed {
		return ErrClosed
	}
	for i := range data {
		select {
		case d.collectCh <- intake{record: data[i]}:
		case <-d.done:
			return ErrClosed
		}
	}
	return nil
}

func (d *manager) Datasets() ([]string, error) {
	return d.deps.fetchDatasets()
}

// Load reads the dataset back once every record collected before the call
// is stored. When a vector id was collected more than once the latest
// record wins.
func (d *manager) Load(ctx context.Context, name string) (*dataset.Dataset, error) {
	if err := d.sync(ctx, name); err != nil {
		return nil, fmt.Errorf("sync %s: %w", name, err)
	}
	if err := d.dbTxExecutor.flush(ctx); err != nil {
		return nil, fmt.Errorf("flush before load: %w", err)
	}
	records, err := d.deps.fetchRecordsByDataset(name, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	return Build(records)
}

// sync sends a barrier through the intake queue of name and waits until the
// receiver has buffered everything queued before it.
func (d *manager) sync(ctx context.Context, name string) error {
	synced := make(chan struct{})
	d.mtx.RLock()
	if d.closed {
		d.mtx.RUnlock()
		return nil
	}
	select {
	case d.collectCh <- intake{record: model.Record{Dataset: name}, synced: synced}:
	case <-d.done:
		d.mtx.RUnlock()
		return nil
	case <-ctx.Done():
		d.mtx.RUnlock()
		return ctx.Err()
	}
	d.mtx.RUnlock()

	select {
	case <-synced:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Build turns records into a dataset in record order, keeping the last
// record of every vector id.
func Build(records []model.Record) (*dataset.Dataset, error) {
	latest := make(map[string]int, len(records))
	for i, r := range records {
		latest[r.VectorID] = i
	}
	vectors := make([]*dataset.Vector, 0, len(latest))
	for i, r := range records {
		if latest[r.VectorID] != i {
			continue
		}
		vec, err := r.Vector()
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}
	return dataset.New(vectors...)
}

func (d *manager) receive(ctx context.Context, q *iqueue.Queue[intake]) {
	defer d.receivers.Done()
	for recv := range q.Receive() {
		if recv.synced != nil {
			close(recv.synced)
			continue
		}
		d.dbTxExecutor.append(ctx, recv.record)
	}
}

func (d *manager) route(ctx context.Context, in intake) {
	q, ok := d.queue[in.record.Dataset]
	if !ok && in.synced != nil {
		// nothing was ever queued for this dataset
		close(in.synced)
		return
	}
	if !ok {
		q = iqueue.New[intake]()
		go q.Loop()
		d.receivers.Add(1)
		go d.receive(ctx, q)
		d.queue[in.record.Dataset] = q
	}
	q.Send(in)
}

func (d *manager) collector(ctx context.Context) {
	logger := logging.FromContext(ctx)
	defer close(d.drained)
	for {
		select {
		case in := <-d.collectCh:
			d.route(ctx, in)
		case <-ctx.Done():
			close(d.done)
			// waits for in-flight Collect calls, which return on done
			d.mtx.Lock()
			d.closed = true
			d.mtx.Unlock()
		drain:
			for {
				select {
				case in := <-d.collectCh:
					d.route(ctx, in)
				default:
					break drain
				}
			}
			for _, q := range d.queue {
				q.Close()
			}
			d.receivers.Wait()
			logger.Debugf("collector drained %d dataset queues", len(d.queue))
			return
		}
	}
}
