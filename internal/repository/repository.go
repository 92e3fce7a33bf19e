// Package repository is the persistent store adapter every storefront store
// sits on. A backend is a flat key/value store holding one JSON document per
// logical key; stores always write the full snapshot of their collection.
//
// Backends live in subpackages: memory (tab scoped, tests), bbolt (local
// durable file) and postgres (shared durable store with cross-process change
// notifications).
package repository

import (
	"context"
	"errors"
)

// Logical keys. Each store owns its key exclusively.
const (
	KeyCart                  = "cart"
	KeyWishlist              = "wishlist"
	KeyOrders                = "orders"
	KeyProducts              = "products"
	KeyLanguage              = "language"
	KeyCurrency              = "currency"
	KeyTheme                 = "theme"
	KeySession               = "user"
	KeyPendingSellerRequests = "pendingSellerRequests"
	KeyVerificationCode      = "verificationCode"
	KeySavedAddresses        = "savedAddresses"
	KeyAuthAccounts          = "authAccounts"

	userDataPrefix = "userData_"
)

// UserDataKey is the key holding the durable profile of one user.
func UserDataKey(uid string) string {
	return userDataPrefix + uid
}

// ErrNoData is returned by Get when the key holds nothing.
var ErrNoData = errors.New("no data stored for key")

// Store is a durable key/value backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Change describes one write observed on a backend.
type Change struct {
	Key     string
	Origin  string
	Deleted bool
}

// Watcher delivers storage-change notifications until ctx is done.
type Watcher interface {
	Watch(ctx context.Context) <-chan Change
}

// Durable is a backend that also publishes its changes.
type Durable interface {
	Store
	Watcher
	Close() error
}

type originKey struct{}

// WithOrigin tags writes made with ctx so their own writer can recognise
// the resulting change notifications.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFrom returns the origin tag carried by ctx, if any.
func OriginFrom(ctx context.Context) string {
	origin, _ := ctx.Value(originKey{}).(string)
	return origin
}
