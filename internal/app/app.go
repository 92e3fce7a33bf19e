// Package app assembles the storefront from configuration: the storage
// backend, the identity provider, every store and the realtime hub.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/api"
	"github.com/jafarshop/storefront/internal/api/realtime"
	"github.com/jafarshop/storefront/internal/config"
	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/export"
	"github.com/jafarshop/storefront/internal/identity"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/internal/repository/bbolt"
	"github.com/jafarshop/storefront/internal/repository/memory"
	"github.com/jafarshop/storefront/internal/repository/postgres"
	"github.com/jafarshop/storefront/internal/service"
)

// App is a fully wired storefront.
type App struct {
	Local    repository.Durable
	Tab      repository.Store
	Provider *identity.Provider
	Hub      *realtime.Hub
	Stores   *api.Stores

	closers []func() error
	logger  *zap.Logger
}

// OpenStorage opens the durable backend selected by cfg.Storage.Driver.
// The returned closer releases everything the backend holds.
func OpenStorage(cfg *config.Config, logger *zap.Logger) (repository.Durable, func() error, error) {
	switch cfg.Storage.Driver {
	case "memory":
		store := memory.New()
		return store, store.Close, nil

	case "bbolt":
		store, err := bbolt.Open(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Opened local store", zap.String("path", cfg.Storage.Path))
		return store, store.Close, nil

	case "postgres":
		db, err := postgres.NewConnection(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		store, err := postgres.NewDocumentRepository(db, postgres.DSN(cfg.Database), logger)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("Opened shared store", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))
		closer := func() error {
			err := store.Close()
			if dbErr := db.Close(); err == nil {
				err = dbErr
			}
			return err
		}
		return store, closer, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Build opens storage and constructs every store.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	local, closeStorage, err := OpenStorage(cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &App{Local: local, Tab: memory.New(), closers: []func() error{closeStorage}, logger: logger}

	if err := a.build(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, cfg *config.Config) error {
	logger := a.logger
	sf := cfg.Storefront

	currencies, err := Currencies(sf)
	if err != nil {
		return err
	}
	settings, err := service.NewSettingsStore(ctx, a.Local, service.SettingsOptions{
		BaseCurrency:    sf.BaseCurrency,
		DefaultLanguage: domain.Language(sf.DefaultLanguage),
		DefaultCurrency: sf.DefaultCurrency,
		Currencies:      currencies,
	}, logger.Named("settings"))
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	a.Hub = realtime.NewHub(sf.AllowedOrigins, logger.Named("realtime"))
	notify := service.FanOut{service.LogSink{Logger: logger.Named("notify")}, a.Hub}

	a.Provider = identity.NewProvider(a.Local, identity.Options{
		Secret:  []byte(cfg.Auth.JWTSecret),
		TTL:     cfg.Auth.SessionTTL,
		Latency: cfg.Auth.Latency,
		Mailer:  notify,
		Text:    settings,
	}, logger.Named("identity"))

	catalog, err := service.NewCatalogStore(ctx, a.Local, service.DefaultCatalog(), logger.Named("catalog"))
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	cart, err := service.NewCartStore(ctx, a.Local, settings, notify, logger.Named("cart"))
	if err != nil {
		return fmt.Errorf("cart: %w", err)
	}
	wishlist, err := service.NewWishlistStore(ctx, a.Local, settings, notify, logger.Named("wishlist"))
	if err != nil {
		return fmt.Errorf("wishlist: %w", err)
	}
	addresses, err := service.NewAddressBook(ctx, a.Local, logger.Named("addresses"))
	if err != nil {
		return fmt.Errorf("addresses: %w", err)
	}
	identityStore, err := service.NewIdentityStore(ctx, a.Local, a.Tab, a.Provider, settings, notify, logger.Named("identity"), service.IdentityOptions{
		VerifyLatency: cfg.Auth.Latency,
	})
	if err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	a.closers = append(a.closers, func() error {
		identityStore.Close()
		return nil
	})

	orderOpts, err := OrderOptions(sf)
	if err != nil {
		return err
	}
	orders, err := service.NewOrderStore(ctx, a.Local, cart, settings, service.OfflinePayments{}, export.InvoiceRenderer{Text: settings}, notify, logger.Named("orders"), orderOpts)
	if err != nil {
		return fmt.Errorf("orders: %w", err)
	}

	a.Stores = &api.Stores{
		Settings:  settings,
		Catalog:   catalog,
		Cart:      cart,
		Wishlist:  wishlist,
		Addresses: addresses,
		Identity:  identityStore,
		Orders:    orders,
	}
	return nil
}

// Run starts the background loops that keep stores and clients in sync with
// the durable store. They stop when ctx is done.
func (a *App) Run(ctx context.Context) {
	go a.Stores.Identity.Run(ctx)
	go a.Hub.Run(ctx, a.Local)
}

// Close stops the stores and releases storage.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Currencies builds the currency table from configuration. The base currency
// always has rate 1; known codes keep their display symbols.
func Currencies(sf config.StorefrontConfig) ([]service.Currency, error) {
	known := make(map[string]service.Currency)
	for _, c := range service.DefaultCurrencies() {
		known[c.Code] = c
	}
	entry := func(code string, rate decimal.Decimal) service.Currency {
		c, ok := known[code]
		if !ok {
			c = service.Currency{Code: code, Symbol: code}
		}
		c.Rate = rate
		return c
	}

	base := strings.ToUpper(sf.BaseCurrency)
	out := []service.Currency{entry(base, decimal.NewFromInt(1))}
	for code, raw := range sf.CurrencyRates {
		code = strings.ToUpper(code)
		if code == base {
			continue
		}
		rate, err := decimal.NewFromString(raw)
		if err != nil || !rate.IsPositive() {
			return nil, fmt.Errorf("invalid rate %q for %s", raw, code)
		}
		out = append(out, entry(code, rate))
	}
	return out, nil
}

// OrderOptions parses the checkout pricing rules.
func OrderOptions(sf config.StorefrontConfig) (service.OrderOptions, error) {
	opts := service.OrderOptions{DeliveryDays: sf.DeliveryDays}
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"SHIPPING_FEE", sf.ShippingFee, &opts.ShippingFee},
		{"FREE_SHIPPING_THRESHOLD", sf.FreeShippingThreshold, &opts.FreeShippingThreshold},
		{"VAT_RATE", sf.VATRate, &opts.VATRate},
	}
	for _, f := range fields {
		value, err := decimal.NewFromString(f.raw)
		if err != nil || value.IsNegative() {
			return service.OrderOptions{}, fmt.Errorf("invalid %s %q", f.name, f.raw)
		}
		*f.dst = value
	}
	return opts, nil
}
