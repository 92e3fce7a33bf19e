package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/pkg/errors"
)

// CatalogStore owns the product collection.
type CatalogStore struct {
	mu       sync.RWMutex
	products []domain.Product
	doc      *repository.Document[[]domain.Product]
	logger   *zap.Logger
	now      func() time.Time
}

// NewCatalogStore loads the persisted catalog, seeding it when nothing is stored.
func NewCatalogStore(ctx context.Context, store repository.Store, seed []domain.Product, logger *zap.Logger) (*CatalogStore, error) {
	s := &CatalogStore{
		doc:    repository.NewDocument[[]domain.Product](store, repository.KeyProducts),
		logger: logger,
		now:    time.Now,
	}

	products, ok, err := s.doc.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		products = append([]domain.Product(nil), seed...)
		if len(products) > 0 {
			if err := s.doc.Save(ctx, products); err != nil {
				return nil, err
			}
			logger.Info("Seeded catalog", zap.Int("products", len(products)))
		}
	}
	s.products = products
	return s, nil
}

// Products returns a copy of the catalog.
func (s *CatalogStore) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Product(nil), s.products...)
}

// Product looks up one product by id.
func (s *CatalogStore) Product(id string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.products[i], nil
	}
	return domain.Product{}, &errors.ErrNotFound{Resource: "product", ID: id}
}

// AddProduct appends a product. An empty id is assigned.
func (s *CatalogStore) AddProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	p.InStock = p.Inventory > 0

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(p.ID) >= 0 {
		return domain.Product{}, &errors.ErrValidationFailed{Field: "id", Message: "product id already exists"}
	}

	next := append(append([]domain.Product(nil), s.products...), p)
	if err := s.doc.Save(ctx, next); err != nil {
		return domain.Product{}, err
	}
	s.products = next
	s.logger.Info("Product added", zap.String("product_id", p.ID), zap.String("category", p.Category))
	return p, nil
}

// UpdateProduct replaces the product with the same id.
func (s *CatalogStore) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}
	p.InStock = p.Inventory > 0

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(p.ID)
	if i < 0 {
		return domain.Product{}, &errors.ErrNotFound{Resource: "product", ID: p.ID}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.products[i].CreatedAt
	}

	next := append([]domain.Product(nil), s.products...)
	next[i] = p
	if err := s.doc.Save(ctx, next); err != nil {
		return domain.Product{}, err
	}
	s.products = next
	return p, nil
}

// RemoveProduct deletes a product by id. Unknown ids are ignored.
func (s *CatalogStore) RemoveProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}

	next := make([]domain.Product, 0, len(s.products)-1)
	next = append(next, s.products[:i]...)
	next = append(next, s.products[i+1:]...)
	if err := s.doc.Save(ctx, next); err != nil {
		return err
	}
	s.products = next
	s.logger.Info("Product removed", zap.String("product_id", id))
	return nil
}

// Categories lists distinct categories in first-seen order.
func (s *CatalogStore) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Categories(s.products)
}

// Categories derives the distinct category names of products in first-seen order.
func Categories(products []domain.Product) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// ProductsByCategory filters the catalog by exact category.
func (s *CatalogStore) ProductsByCategory(category string) []domain.Product {
	return s.filter(func(p domain.Product) bool { return p.Category == category })
}

// ProductsBySeller filters the catalog by seller.
func (s *CatalogStore) ProductsBySeller(sellerID string) []domain.Product {
	return s.filter(func(p domain.Product) bool { return p.SellerID == sellerID })
}

// Search matches query case-insensitively against name, description and brand.
func (s *CatalogStore) Search(query string) []domain.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.Products()
	}
	return s.filter(func(p domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.Brand), q)
	})
}

func (s *CatalogStore) filter(keep func(domain.Product) bool) []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Product
	for _, p := range s.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *CatalogStore) indexOf(id string) int {
	for i, p := range s.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func validateProduct(p domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return &errors.ErrValidationFailed{Field: "name", Message: "is required"}
	}
	if p.Price.IsNegative() {
		return &errors.ErrValidationFailed{Field: "price", Message: "must not be negative"}
	}
	if p.Rating < 0 || p.Rating > 5 {
		return &errors.ErrValidationFailed{Field: "rating", Message: "must be between 0 and 5"}
	}
	if p.Inventory < 0 {
		return &errors.ErrValidationFailed{Field: "inventory", Message: "must not be negative"}
	}
	return nil
}

// DefaultCatalog is the catalog seeded on first launch. Prices are in SAR.
func DefaultCatalog() []domain.Product {
	created := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	price := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	old := func(s string) *decimal.Decimal { d := price(s); return &d }

	return []domain.Product{
		{ID: "1", Name: "Wireless Earbuds Pro", Description: "Noise cancelling earbuds with 30 hour battery.", Price: price("349.00"), OldPrice: old("449.00"), Image: "/images/earbuds.jpg", Category: "Electronics", Brand: "Sonic", Rating: 4.6, Inventory: 40, InStock: true, Featured: true, OnSale: true, CreatedAt: created},
		{ID: "2", Name: "Smart Watch Series 5", Description: "Fitness tracking, heart rate and GPS.", Price: price("899.00"), Image: "/images/watch.jpg", Category: "Electronics", Brand: "Pulse", Rating: 4.4, Inventory: 25, InStock: true, IsNew: true, CreatedAt: created},
		{ID: "3", Name: "Classic Oud Perfume", Description: "Long lasting oud fragrance, 100ml.", Price: price("275.00"), Image: "/images/oud.jpg", Category: "Beauty", Brand: "Arabian Oud", Rating: 4.8, Inventory: 60, InStock: true, Featured: true, CreatedAt: created},
		{ID: "4", Name: "Linen Thobe", Description: "Breathable summer thobe.", Price: price("180.00"), OldPrice: old("220.00"), Image: "/images/thobe.jpg", Category: "Fashion", Brand: "Nakheel", Rating: 4.2, Inventory: 35, InStock: true, OnSale: true, CreatedAt: created},
		{ID: "5", Name: "Arabic Coffee Set", Description: "Dallah with six finjan cups.", Price: price("150.00"), Image: "/images/coffee-set.jpg", Category: "Home", Brand: "Majlis", Rating: 4.7, Inventory: 18, InStock: true, IsNew: true, CreatedAt: created},
		{ID: "6", Name: "Running Shoes", Description: "Lightweight trainers with cushioned sole.", Price: price("320.00"), Image: "/images/shoes.jpg", Category: "Fashion", Brand: "Stride", Rating: 4.3, Inventory: 0, InStock: false, CreatedAt: created},
		{ID: "7", Name: "Premium Dates Box", Description: "Ajwa dates, 1kg gift box.", Price: price("95.00"), Image: "/images/dates.jpg", Category: "Food", Brand: "Madinah Farms", Rating: 4.9, Inventory: 120, InStock: true, Featured: true, CreatedAt: created},
	}
}
