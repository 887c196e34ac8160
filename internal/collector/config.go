package collector

import (
	"time"
)

type Config struct {
	// Timer for running the retention pass over the DB
	RebuildDBTime time.Duration `envconfig:"COD_REBUILD_DB_TIME" default:"1m"`
	// maximum number of records kept per dataset, 0 keeps everything
	MaxItemsStored int `envconfig:"COD_MAX_ITEMS_STORED" default:"0"`
	// maximum retention period of a record, 0 keeps records forever
	MaxStorageTime time.Duration `envconfig:"COD_MAX_STORAGE_TIME" default:"0s"`
	// buffer size at which dbTxExecutor flushes to disk
	DBFlushSize int `envconfig:"COD_DB_FLUSH_SIZE" default:"100"`
	// longest time a record waits in the dbTxExecutor buffer
	DBFlushTime time.Duration `envconfig:"COD_DB_FLUSH_TIME" default:"1s"`
}
