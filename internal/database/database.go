package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sod/cod/internal/logging"
	bolt "go.etcd.io/bbolt"
)

// DB is the bbolt file shared by the record store and the collector.
type DB struct {
	DB *bolt.DB
}

func NewFromEnv(ctx context.Context, config *Config) (*DB, error) {
	return Open(ctx, config.FileName)
}

// Open opens or creates the bbolt file at path. A second process opening
// the same file waits up to a second for the lock.
func Open(ctx context.Context, path string) (*DB, error) {
	logger := logging.FromContext(ctx)
	logger.Infof("opening db file %s", path)

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", path, err)
	}

	return &DB{DB: db}, nil
}

func (db *DB) Close(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	logger.Infof("closing db file %s", db.DB.Path())

	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}
