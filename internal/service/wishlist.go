package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/repository"
)

// WishlistStore owns the wishlist, a set of products keyed by id.
type WishlistStore struct {
	mu     sync.RWMutex
	items  []domain.Product
	doc    *repository.Document[[]domain.Product]
	notify NotificationSink
	text   Translator
	logger *zap.Logger
}

// NewWishlistStore restores the persisted wishlist.
func NewWishlistStore(ctx context.Context, store repository.Store, text Translator, notify NotificationSink, logger *zap.Logger) (*WishlistStore, error) {
	s := &WishlistStore{
		doc:    repository.NewDocument[[]domain.Product](store, repository.KeyWishlist),
		notify: notify,
		text:   text,
		logger: logger,
	}
	items, _, err := s.doc.Load(ctx)
	if err != nil {
		return nil, err
	}

	// Collapse duplicates a hand-edited document may contain.
	seen := make(map[string]struct{}, len(items))
	for _, p := range items {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		s.items = append(s.items, p)
	}
	return s, nil
}

// Items returns a copy of the wishlist.
func (s *WishlistStore) Items() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Product(nil), s.items...)
}

// Count is the number of wishlisted products.
func (s *WishlistStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// AddToWishlist adds product unless it is already present.
func (s *WishlistStore) AddToWishlist(ctx context.Context, product domain.Product) error {
	s.mu.Lock()
	if s.indexOf(product.ID) >= 0 {
		s.mu.Unlock()
		return nil
	}
	next := append(append([]domain.Product(nil), s.items...), product)
	if err := s.doc.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.items = next
	s.mu.Unlock()

	s.notify.Notify(ctx, Notification{Kind: NotificationToast, Key: "wishlist.added", Body: s.text.T("wishlist.added", product.Name)})
	return nil
}

// RemoveFromWishlist drops productID. Unknown ids are ignored.
func (s *WishlistStore) RemoveFromWishlist(ctx context.Context, productID string) error {
	s.mu.Lock()
	i := s.indexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	next := make([]domain.Product, 0, len(s.items)-1)
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)
	if err := s.doc.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.items = next
	s.mu.Unlock()

	s.notify.Notify(ctx, Notification{Kind: NotificationToast, Key: "wishlist.removed", Body: s.text.T("wishlist.removed")})
	return nil
}

// IsInWishlist reports membership of productID.
func (s *WishlistStore) IsInWishlist(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(productID) >= 0
}

// ClearWishlist empties the wishlist.
func (s *WishlistStore) ClearWishlist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.doc.Save(ctx, []domain.Product{}); err != nil {
		return err
	}
	s.items = nil
	return nil
}

func (s *WishlistStore) indexOf(id string) int {
	for i, p := range s.items {
		if p.ID == id {
			return i
		}
	}
	return -1
}
