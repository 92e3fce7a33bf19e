package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/identity"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/internal/repository/memory"
	"github.com/jafarshop/storefront/internal/service"
)

// recorder collects notifications for assertions.
type recorder struct {
	mu    sync.Mutex
	notes []service.Notification
}

func (r *recorder) Notify(ctx context.Context, n service.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notes))
	for _, n := range r.notes {
		out = append(out, n.Key)
	}
	return out
}

func (r *recorder) last(key string) (service.Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.notes) - 1; i >= 0; i-- {
		if r.notes[i].Key == key {
			return r.notes[i], true
		}
	}
	return service.Notification{}, false
}

func newSettings(t *testing.T, store repository.Store) *service.SettingsStore {
	t.Helper()
	s, err := service.NewSettingsStore(context.Background(), store, service.SettingsOptions{}, zap.NewNop())
	require.NoError(t, err)
	return s
}

func product(id, name, price string) domain.Product {
	return domain.Product{
		ID:        id,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Category:  "Electronics",
		Inventory: 5,
		InStock:   true,
	}
}

func riyadh() domain.Address {
	return domain.Address{
		FullName: "Sara Ali",
		Phone:    "+966500000000",
		Street:   "King Fahd Rd",
		City:     "Riyadh",
		Country:  "SA",
	}
}

// tab is one browser tab: its own session storage and provider SDK instance,
// sharing the durable store with every other tab.
type tab struct {
	store    *service.IdentityStore
	provider *identity.Provider
	notes    *recorder
}

type codeSequence struct {
	mu    sync.Mutex
	codes []string
}

func (c *codeSequence) next() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	code := c.codes[0]
	c.codes = c.codes[1:]
	return code, nil
}

func openTab(t *testing.T, local *memory.Store, codes ...string) *tab {
	t.Helper()
	notes := &recorder{}
	settings := newSettings(t, memory.New())
	provider := identity.NewProvider(local, identity.Options{Secret: []byte("test-secret"), TTL: time.Hour}, zap.NewNop())

	opts := service.IdentityOptions{}
	if len(codes) > 0 {
		seq := &codeSequence{codes: codes}
		opts.NewCode = seq.next
	}
	store, err := service.NewIdentityStore(context.Background(), local, memory.New(), provider, settings, notes, zap.NewNop(), opts)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return &tab{store: store, provider: provider, notes: notes}
}

func register(t *testing.T, tb *tab, email string, rememberMe bool) domain.User {
	t.Helper()
	_, err := tb.store.Register(context.Background(), service.RegisterInput{
		Email:           email,
		Password:        "secret1",
		ConfirmPassword: "secret1",
		RememberMe:      rememberMe,
	})
	require.NoError(t, err)
	user, ok := tb.store.CurrentUser()
	require.True(t, ok)
	return user
}

// seedOwner creates an account whose durable profile is already an approved
// seller, the way the create-owner command does.
func seedOwner(t *testing.T, local *memory.Store, email string) {
	t.Helper()
	ctx := context.Background()
	provider := identity.NewProvider(local, identity.Options{Secret: []byte("test-secret")}, zap.NewNop())
	account, err := provider.CreateAccount(ctx, email, "secret1", "Owner")
	require.NoError(t, err)

	owner := domain.User{
		ID:          account.UID,
		Email:       email,
		DisplayName: "Owner",
		Seller:      domain.SellerProfile{IsSeller: true, SellerApproved: true, SellerVerified: true, SellerIdentityVerified: true},
	}
	require.NoError(t, repository.NewDocument[domain.User](local, repository.UserDataKey(owner.ID)).Save(ctx, owner))
}
