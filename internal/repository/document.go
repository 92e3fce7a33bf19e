package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Document is a typed view over one key of a Store.
type Document[T any] struct {
	store Store
	key   string
}

// NewDocument binds a document to key on store.
func NewDocument[T any](store Store, key string) *Document[T] {
	return &Document[T]{store: store, key: key}
}

// Key returns the logical key of the document.
func (d *Document[T]) Key() string {
	return d.key
}

// Load reads the document. An absent or undecodable value reports ok=false
// with no error; only backend failures are returned as errors.
func (d *Document[T]) Load(ctx context.Context) (T, bool, error) {
	var value T
	raw, err := d.store.Get(ctx, d.key)
	if errors.Is(err, ErrNoData) {
		return value, false, nil
	}
	if err != nil {
		return value, false, fmt.Errorf("load %s: %w", d.key, err)
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		var zero T
		return zero, false, nil
	}
	return value, true, nil
}

// Save serializes the whole value and writes it under the document key.
func (d *Document[T]) Save(ctx context.Context, value T) error {
	payload, err := Encode(value)
	if err != nil {
		return fmt.Errorf("save %s: %w", d.key, err)
	}
	if err := d.store.Put(ctx, d.key, payload); err != nil {
		return fmt.Errorf("save %s: %w", d.key, err)
	}
	return nil
}

// Clear removes the document.
func (d *Document[T]) Clear(ctx context.Context) error {
	if err := d.store.Delete(ctx, d.key); err != nil {
		return fmt.Errorf("clear %s: %w", d.key, err)
	}
	return nil
}

// Encode marshals a value the way documents are stored.
func Encode(value interface{}) ([]byte, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return payload, nil
}

// Write is one key update inside a Commit. A nil Value deletes the key.
type Write struct {
	Key   string
	Value []byte
}

// Commit applies writes in order. If one fails, the keys already written are
// restored to their previous bytes so the caller observes all or nothing.
func Commit(ctx context.Context, store Store, writes ...Write) error {
	applied := make([]priorValue, 0, len(writes))

	for _, w := range writes {
		old, err := store.Get(ctx, w.Key)
		existed := err == nil
		if err != nil && !errors.Is(err, ErrNoData) {
			rollback(ctx, store, applied)
			return fmt.Errorf("commit %s: %w", w.Key, err)
		}

		if w.Value == nil {
			err = store.Delete(ctx, w.Key)
		} else {
			err = store.Put(ctx, w.Key, w.Value)
		}
		if err != nil {
			rollback(ctx, store, applied)
			return fmt.Errorf("commit %s: %w", w.Key, err)
		}
		applied = append(applied, priorValue{key: w.Key, value: old, existed: existed})
	}
	return nil
}

type priorValue struct {
	key     string
	value   []byte
	existed bool
}

func rollback(ctx context.Context, store Store, applied []priorValue) {
	for i := len(applied) - 1; i >= 0; i-- {
		p := applied[i]
		if p.existed {
			_ = store.Put(ctx, p.key, p.value)
		} else {
			_ = store.Delete(ctx, p.key)
		}
	}
}
