// Package postgres provides the shared durable backend. Documents live in one
// table; every write raises a pg_notify so other processes using the same
// database reload the keys they watch.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/repository"
)

// ChangeChannel is the LISTEN/NOTIFY channel carrying document changes.
const ChangeChannel = "storefront_documents"

const schema = `
	CREATE TABLE IF NOT EXISTS kv_documents (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

var _ repository.Durable = (*documentRepository)(nil)

type documentRepository struct {
	db       *sql.DB
	listener *pq.Listener
	feed     *repository.Broadcaster
	logger   *zap.Logger
	done     chan struct{}
}

// NewDocumentRepository creates the documents table if needed and starts
// listening for change notifications raised by any connection.
func NewDocumentRepository(db *sql.DB, dsn string, logger *zap.Logger) (*documentRepository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create kv_documents: %w", err)
	}

	r := &documentRepository{
		db:     db,
		feed:   repository.NewBroadcaster(),
		logger: logger,
		done:   make(chan struct{}),
	}

	r.listener = pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("Document listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := r.listener.Listen(ChangeChannel); err != nil {
		r.listener.Close()
		return nil, fmt.Errorf("listen %s: %w", ChangeChannel, err)
	}

	go r.forward()
	return r, nil
}

func (r *documentRepository) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_documents WHERE key = $1`

	var value []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNoData
	}
	if err != nil {
		r.logger.Error("Failed to get document", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return value, nil
}

func (r *documentRepository) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_documents (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	return r.writeAndNotify(ctx, repository.Change{Key: key, Origin: repository.OriginFrom(ctx)}, query, key, value, time.Now())
}

func (r *documentRepository) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_documents WHERE key = $1`
	return r.writeAndNotify(ctx, repository.Change{Key: key, Origin: repository.OriginFrom(ctx), Deleted: true}, query, key)
}

// writeAndNotify runs the statement and the notification in one transaction
// so listeners only hear about committed writes.
func (r *documentRepository) writeAndNotify(ctx context.Context, change repository.Change, query string, args ...interface{}) error {
	payload, err := EncodeChange(change)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to write document", zap.String("key", change.Key), zap.Error(err))
		return err
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, ChangeChannel, payload); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return tx.Commit()
}

func (r *documentRepository) Watch(ctx context.Context) <-chan repository.Change {
	return r.feed.Watch(ctx)
}

func (r *documentRepository) Close() error {
	close(r.done)
	return r.listener.Close()
}

func (r *documentRepository) forward() {
	for {
		select {
		case <-r.done:
			return
		case n, ok := <-r.listener.Notify:
			if !ok {
				return
			}
			// A nil notification means the connection was re-established;
			// anything may have changed meanwhile.
			if n == nil {
				continue
			}
			change, err := DecodeChange(n.Extra)
			if err != nil {
				r.logger.Warn("Ignoring malformed change notification", zap.Error(err))
				continue
			}
			r.feed.Publish(change)
		}
	}
}

type changePayload struct {
	Key     string `json:"k"`
	Origin  string `json:"o,omitempty"`
	Deleted bool   `json:"d,omitempty"`
}

// EncodeChange renders a change as a NOTIFY payload. Only the key travels;
// receivers reload the document themselves.
func EncodeChange(c repository.Change) (string, error) {
	payload, err := json.Marshal(changePayload{Key: c.Key, Origin: c.Origin, Deleted: c.Deleted})
	if err != nil {
		return "", fmt.Errorf("marshal change: %w", err)
	}
	return string(payload), nil
}

// DecodeChange parses a NOTIFY payload.
func DecodeChange(payload string) (repository.Change, error) {
	var p changePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return repository.Change{}, fmt.Errorf("unmarshal change: %w", err)
	}
	if p.Key == "" {
		return repository.Change{}, fmt.Errorf("change key is empty")
	}
	return repository.Change{Key: p.Key, Origin: p.Origin, Deleted: p.Deleted}, nil
}
