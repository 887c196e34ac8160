package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-sod/cod/internal/database"
	"github.com/go-sod/cod/internal/record/model"
	bolt "go.etcd.io/bbolt"
)

const (
	datasetKeys = "dataset:keys:"
	prefix      = "dataset:"
)

type FilterFn func(record model.Record) bool

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

// DB stores records in one bucket per dataset, keyed by model.Record.Key so
// a cursor walks a dataset oldest first. A separate bucket lists the
// dataset names.
type DB struct {
	sDB *database.DB
}

func (db *DB) extractKey(key string) string {
	prefixPos := strings.Index(key, prefix)

	return key[prefixPos+len(prefix):]
}

// Datasets returns the names of all datasets ever written.
func (db *DB) Datasets() ([]string, error) {
	var names []string
	err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(datasetKeys))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			names = append(names, db.extractKey(string(k)))
		}
		return nil
	})

	return names, err
}

func (db *DB) AppendMany(_ context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := db.sDB.DB.Batch(func(tx *bolt.Tx) error {
		keys, err := tx.CreateBucketIfNotExists([]byte(datasetKeys))
		if err != nil {
			return fmt.Errorf("create dataset keys bucket: %w", err)
		}
		for _, record := range records {
			b, err := tx.CreateBucketIfNotExists([]byte(prefix + record.Dataset))
			if err != nil {
				return fmt.Errorf("create bucket %s: %w", record.Dataset, err)
			}
			bytes, err := model.Encode(record)
			if err != nil {
				return err
			}
			if err := b.Put(record.Key(), bytes); err != nil {
				return fmt.Errorf("put to bucket %s: %w", record.Dataset, err)
			}
			if err := keys.Put([]byte(prefix+record.Dataset), []byte{0x0}); err != nil {
				return fmt.Errorf("put to dataset keys bucket: %w", err)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

func (db *DB) DeleteMany(_ context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := db.sDB.DB.Batch(func(tx *bolt.Tx) error {
		for _, record := range records {
			b := tx.Bucket([]byte(prefix + record.Dataset))
			if b == nil {
				continue
			}
			if err := b.Delete(record.Key()); err != nil {
				return fmt.Errorf("unable delete: %w", err)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

func (db *DB) CountByDataset(name string) (int, error) {
	var length int
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(prefix + name))
		if b == nil {
			return nil
		}
		length = b.Stats().KeyN
		return nil
	}); err != nil {
		return 0, fmt.Errorf("view transaction error: %w", err)
	}

	return length, nil
}

// FindByDataset returns the records of one dataset, oldest first.
func (db *DB) FindByDataset(name string, filter FilterFn) ([]model.Record, error) {
	var list []model.Record
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(prefix + name))
		if b == nil {
			return nil
		}
		found, err := scan(b, filter)
		list = found
		return err
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return list, nil
}

func scan(b *bolt.Bucket, filter FilterFn) ([]model.Record, error) {
	var list []model.Record
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		record, err := model.Decode(v)
		if err != nil {
			return nil, fmt.Errorf("decode record %x: %w", k, err)
		}
		if filter == nil || filter(record) {
			list = append(list, record)
		}
	}
	return list, nil
}
