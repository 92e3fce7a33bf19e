package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "SAR", cfg.Storefront.BaseCurrency)
	assert.Equal(t, "3.75", cfg.Storefront.CurrencyRates["USD"])
	assert.Equal(t, 7, cfg.Storefront.DeliveryDays)
	assert.Equal(t, 720*time.Hour, cfg.Auth.SessionTTL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("CURRENCY_RATES", "usd=3.75, eur = 4.1")
	t.Setenv("AUTH_LATENCY", "250ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "capacitor://localhost, http://localhost")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, map[string]string{"USD": "3.75", "EUR": "4.1"}, cfg.Storefront.CurrencyRates)
	assert.Equal(t, 250*time.Millisecond, cfg.Auth.Latency)
	assert.Equal(t, []string{"capacitor://localhost", "http://localhost"}, cfg.Storefront.AllowedOrigins)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "floppy")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load()
	require.Error(t, err)
}

func TestRequireShopify(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.RequireShopify())

	cfg.Shopify = ShopifyConfig{ShopDomain: "shop.myshopify.com", AccessToken: "shpat_x"}
	assert.NoError(t, cfg.RequireShopify())
}
