package storage

import (
	"bytes"
	"context"
	"time"

	bolt "go.etcd.io/bbolt"
)

const defaultBucket = "fluxion"

// BoltBackend is a durable backend on a bbolt database file. Contents
// survive process restarts; one bucket holds all keys.
type BoltBackend struct {
	db     *bolt.DB
	bucket []byte
	ownsDB bool
}

// BoltOption configures a BoltBackend.
type BoltOption func(*BoltBackend)

// WithBucket sets the bucket name (default "fluxion").
func WithBucket(name string) BoltOption {
	return func(b *BoltBackend) {
		b.bucket = []byte(name)
	}
}

// OpenBolt opens (or creates) the database file at path and ensures the
// bucket exists. The returned backend owns the database handle and closes
// it on Close.
func OpenBolt(path string, opts ...BoltOption) (*BoltBackend, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	b, err := NewBoltBackend(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	b.ownsDB = true
	return b, nil
}

// NewBoltBackend wraps an already-open database. The caller keeps
// ownership of the handle; Close on the backend does not close it.
func NewBoltBackend(db *bolt.DB, opts ...BoltOption) (*BoltBackend, error) {
	b := &BoltBackend{
		db:     db,
		bucket: []byte(defaultBucket),
	}
	for _, opt := range opts {
		opt(b)
	}

	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(b.bucket)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (b *BoltBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(b.bucket).Get([]byte(key)); v != nil {
			// Bolt memory is only valid inside the transaction.
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *BoltBackend) Set(ctx context.Context, key string, data []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte(key), data)
	})
}

func (b *BoltBackend) Delete(ctx context.Context, key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Delete([]byte(key))
	})
}

func (b *BoltBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(b.bucket).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (b *BoltBackend) Name() string {
	return "bolt"
}

func (b *BoltBackend) Close() error {
	if b.ownsDB {
		return b.db.Close()
	}
	return nil
}
