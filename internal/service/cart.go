package service

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/repository"
)

// CartStore owns the cart lines, at most one per product.
type CartStore struct {
	mu     sync.RWMutex
	items  []domain.CartItem
	doc    *repository.Document[[]domain.CartItem]
	notify NotificationSink
	text   Translator
	logger *zap.Logger
}

// NewCartStore restores the persisted cart.
func NewCartStore(ctx context.Context, store repository.Store, text Translator, notify NotificationSink, logger *zap.Logger) (*CartStore, error) {
	s := &CartStore{
		doc:    repository.NewDocument[[]domain.CartItem](store, repository.KeyCart),
		notify: notify,
		text:   text,
		logger: logger,
	}

	items, _, err := s.doc.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.Quantity > 0 && item.Product.ID != "" {
			s.items = append(s.items, item)
		}
	}
	return s, nil
}

// Items returns a copy of the cart lines.
func (s *CartStore) Items() []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.CartItem(nil), s.items...)
}

// AddToCart adds quantity of product, merging with an existing line.
// Quantities below one count as one.
func (s *CartStore) AddToCart(ctx context.Context, product domain.Product, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	next := append([]domain.CartItem(nil), s.items...)
	updated := false
	for i := range next {
		if next[i].Product.ID == product.ID {
			next[i].Quantity += quantity
			updated = true
			break
		}
	}
	if !updated {
		next = append(next, domain.CartItem{Product: product, Quantity: quantity})
	}

	if err := s.doc.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.items = next
	s.mu.Unlock()

	key := "cart.added"
	if updated {
		key = "cart.updated"
	}
	s.notify.Notify(ctx, Notification{Kind: NotificationToast, Key: key, Body: s.text.T(key, product.Name)})
	return nil
}

// RemoveFromCart drops the line for productID. Unknown ids are ignored.
func (s *CartStore) RemoveFromCart(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.CartItem, 0, len(s.items))
	for _, item := range s.items {
		if item.Product.ID != productID {
			next = append(next, item)
		}
	}
	if len(next) == len(s.items) {
		return nil
	}
	return s.commit(ctx, next)
}

// UpdateQuantity overwrites the quantity of a line. Zero or less removes it.
func (s *CartStore) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveFromCart(ctx, productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := append([]domain.CartItem(nil), s.items...)
	for i := range next {
		if next[i].Product.ID == productID {
			next[i].Quantity = quantity
			return s.commit(ctx, next)
		}
	}
	return nil
}

// ClearCart empties the cart.
func (s *CartStore) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, []domain.CartItem{})
}

// TotalItems sums the quantities of all lines.
func (s *CartStore) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

// TotalPrice sums unit price times quantity in the base currency.
func (s *CartStore) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SumItems(s.items)
}

// SumItems totals price times quantity over items.
func SumItems(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (s *CartStore) commit(ctx context.Context, next []domain.CartItem) error {
	if err := s.doc.Save(ctx, next); err != nil {
		return err
	}
	s.items = next
	return nil
}
