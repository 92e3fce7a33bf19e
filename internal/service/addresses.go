package service

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/pkg/errors"
)

// AddressBook owns the saved delivery addresses. Exactly one is the default
// whenever the book is not empty.
type AddressBook struct {
	mu        sync.RWMutex
	addresses []domain.Address
	doc       *repository.Document[[]domain.Address]
	logger    *zap.Logger
}

// NewAddressBook restores saved addresses.
func NewAddressBook(ctx context.Context, store repository.Store, logger *zap.Logger) (*AddressBook, error) {
	b := &AddressBook{
		doc:    repository.NewDocument[[]domain.Address](store, repository.KeySavedAddresses),
		logger: logger,
	}
	addresses, _, err := b.doc.Load(ctx)
	if err != nil {
		return nil, err
	}
	b.addresses = addresses
	return b, nil
}

// Addresses returns a copy of the saved addresses.
func (b *AddressBook) Addresses() []domain.Address {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.Address(nil), b.addresses...)
}

// Default returns the default address, if any.
func (b *AddressBook) Default() (domain.Address, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, a := range b.addresses {
		if a.IsDefault {
			return a, true
		}
	}
	return domain.Address{}, false
}

// AddAddress saves a new address. The first address, or one flagged
// IsDefault, becomes the default.
func (b *AddressBook) AddAddress(ctx context.Context, a domain.Address) (domain.Address, error) {
	if err := ValidateAddress(a); err != nil {
		return domain.Address{}, err
	}
	a.ID = uuid.NewString()

	b.mu.Lock()
	defer b.mu.Unlock()
	next := append([]domain.Address(nil), b.addresses...)
	if len(next) == 0 {
		a.IsDefault = true
	}
	if a.IsDefault {
		for i := range next {
			next[i].IsDefault = false
		}
	}
	next = append(next, a)

	if err := b.doc.Save(ctx, next); err != nil {
		return domain.Address{}, err
	}
	b.addresses = next
	return a, nil
}

// RemoveAddress deletes an address; if it was the default, the first
// remaining one takes over.
func (b *AddressBook) RemoveAddress(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make([]domain.Address, 0, len(b.addresses))
	removedDefault := false
	for _, a := range b.addresses {
		if a.ID == id {
			removedDefault = a.IsDefault
			continue
		}
		next = append(next, a)
	}
	if len(next) == len(b.addresses) {
		return nil
	}
	if removedDefault && len(next) > 0 {
		next[0].IsDefault = true
	}

	if err := b.doc.Save(ctx, next); err != nil {
		return err
	}
	b.addresses = next
	return nil
}

// SetDefault marks id as the default address.
func (b *AddressBook) SetDefault(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := append([]domain.Address(nil), b.addresses...)
	found := false
	for i := range next {
		next[i].IsDefault = next[i].ID == id
		found = found || next[i].IsDefault
	}
	if !found {
		return &errors.ErrNotFound{Resource: "address", ID: id}
	}

	if err := b.doc.Save(ctx, next); err != nil {
		return err
	}
	b.addresses = next
	return nil
}

// ValidateAddress checks the fields a courier needs.
func ValidateAddress(a domain.Address) error {
	required := []struct {
		field string
		value string
	}{
		{"fullName", a.FullName},
		{"phone", a.Phone},
		{"street", a.Street},
		{"city", a.City},
		{"country", a.Country},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &errors.ErrValidationFailed{Field: r.field, Message: "is required"}
		}
	}
	return nil
}
