// Package bbolt provides the local durable key/value backend: one BoltDB file
// standing in for the device's local storage.
package bbolt

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/jafarshop/storefront/internal/repository"
)

const documentBucket = "documents"

var _ repository.Durable = (*Store)(nil)

// Store provides a BoltDB-backed document store.
type Store struct {
	db   *bbolt.DB
	feed *repository.Broadcaster
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db, feed: repository.NewBroadcaster()}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get fetches the document stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(documentBucket))
		if bucket == nil {
			return fmt.Errorf("document bucket is missing")
		}
		payload := bucket.Get([]byte(key))
		if payload == nil {
			return repository.ErrNoData
		}
		// Bolt memory is only valid inside the transaction.
		value = append([]byte(nil), payload...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put persists a document and notifies watchers.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("document key is required")
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(documentBucket))
		if bucket == nil {
			return fmt.Errorf("document bucket is missing")
		}
		return bucket.Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	s.feed.Publish(repository.Change{Key: key, Origin: repository.OriginFrom(ctx)})
	return nil
}

// Delete removes a document and notifies watchers.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(documentBucket))
		if bucket == nil {
			return fmt.Errorf("document bucket is missing")
		}
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}

	s.feed.Publish(repository.Change{Key: key, Origin: repository.OriginFrom(ctx), Deleted: true})
	return nil
}

// Watch streams changes made through this handle until ctx is done.
func (s *Store) Watch(ctx context.Context) <-chan repository.Change {
	return s.feed.Watch(ctx)
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(documentBucket))
		if err != nil {
			return fmt.Errorf("create document bucket: %w", err)
		}
		return nil
	})
}
