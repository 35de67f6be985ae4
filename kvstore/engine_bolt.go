package kvstore

import (
	"bytes"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// All collections share one bucket; the key layout does the partitioning.
var boltBucket = []byte("seekr")

type boltEngine struct {
	db *bbolt.DB
}

func openBolt(opts Options) (*boltEngine, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("open bolt db: path is required")
	}
	db, err := bbolt.Open(opts.Path, 0o600, &bbolt.Options{
		Timeout: time.Second,
		NoSync:  !opts.SyncWrites,
	})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &boltEngine{db: db}, nil
}

func (e *boltEngine) put(key, value []byte) error {
	return e.boltErr(e.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).Put(key, value)
	}))
}

func (e *boltEngine) get(key []byte) ([]byte, bool, error) {
	var value []byte
	err := e.db.View(func(tx *bbolt.Tx) error {
		// Bolt values are only valid for the life of the transaction.
		if v := tx.Bucket(boltBucket).Get(key); v != nil {
			value = bytes.Clone(v)
		}
		return nil
	})
	if err != nil {
		return nil, false, e.boltErr(err)
	}
	return value, value != nil, nil
}

func (e *boltEngine) update(key []byte, fn func(current []byte) ([]byte, error)) error {
	return e.boltErr(e.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(boltBucket)
		var current []byte
		if v := b.Get(key); v != nil {
			current = bytes.Clone(v)
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		return b.Put(key, next)
	}))
}

// scan copies the prefix range inside one read transaction and calls fn
// after the transaction has closed. fn may write to the store: bolt
// cannot remap its file while a reader is open, so a write made under an
// open View would block forever.
func (e *boltEngine) scan(prefix []byte, fn func(key, value []byte) bool) error {
	var entries []memEntry
	err := e.boltErr(e.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			entries = append(entries, memEntry{key: bytes.Clone(k), value: bytes.Clone(v)})
		}
		return nil
	}))
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !fn(entry.key, entry.value) {
			return nil
		}
	}
	return nil
}

func (e *boltEngine) close() error {
	return e.db.Close()
}

func (e *boltEngine) boltErr(err error) error {
	if err == bbolt.ErrDatabaseNotOpen {
		return ErrClosed
	}
	return err
}
