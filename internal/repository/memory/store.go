// Package memory provides an in-memory key/value backend. It stands in for
// tab-scoped session storage and backs the store tests.
package memory

import (
	"context"
	"sync"

	"github.com/jafarshop/storefront/internal/repository"
)

var _ repository.Durable = (*Store)(nil)

// Store keeps documents in a map guarded by a mutex.
type Store struct {
	mu    sync.RWMutex
	data  map[string][]byte
	feed  *repository.Broadcaster
	fails map[string]error
	reads map[string]error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		data: make(map[string][]byte),
		feed: repository.NewBroadcaster(),
	}
}

// Get returns a copy of the bytes stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.reads[key]; err != nil {
		return nil, err
	}
	value, ok := s.data[key]
	if !ok {
		return nil, repository.ErrNoData
	}
	return append([]byte(nil), value...), nil
}

// Put stores a copy of value and notifies watchers.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if err := s.fails[key]; err != nil {
		s.mu.Unlock()
		return err
	}
	s.data[key] = append([]byte(nil), value...)
	s.mu.Unlock()

	s.feed.Publish(repository.Change{Key: key, Origin: repository.OriginFrom(ctx)})
	return nil
}

// Delete removes key and notifies watchers. Deleting a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if err := s.fails[key]; err != nil {
		s.mu.Unlock()
		return err
	}
	_, existed := s.data[key]
	delete(s.data, key)
	s.mu.Unlock()

	if existed {
		s.feed.Publish(repository.Change{Key: key, Origin: repository.OriginFrom(ctx), Deleted: true})
	}
	return nil
}

// Watch streams changes until ctx is done.
func (s *Store) Watch(ctx context.Context) <-chan repository.Change {
	return s.feed.Watch(ctx)
}

// Keys lists the stored keys.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	return keys
}

// FailWrites makes every later write to key return err. A nil err clears it.
func (s *Store) FailWrites(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails == nil {
		s.fails = make(map[string]error)
	}
	if err == nil {
		delete(s.fails, key)
		return
	}
	s.fails[key] = err
}

// FailReads makes every later read of key return err. A nil err clears it.
func (s *Store) FailReads(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reads == nil {
		s.reads = make(map[string]error)
	}
	if err == nil {
		delete(s.reads, key)
		return
	}
	s.reads[key] = err
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
