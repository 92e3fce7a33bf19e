package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	Storage     StorageConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	Storefront  StorefrontConfig
	Shopify     ShopifyConfig
	LogLevel    string
}

type StorageConfig struct {
	Driver string // memory, bbolt or postgres
	Path   string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type AuthConfig struct {
	JWTSecret  string
	SessionTTL time.Duration
	Latency    time.Duration
}

type StorefrontConfig struct {
	BaseCurrency          string
	DefaultLanguage       string
	DefaultCurrency       string
	CurrencyRates         map[string]string // units of base currency per one unit of the key currency
	DeliveryDays          int
	ShippingFee           string
	FreeShippingThreshold string
	VATRate               string
	AllowedOrigins        []string
}

type ShopifyConfig struct {
	ShopDomain  string
	AccessToken string
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("STORAGE_DRIVER", "bbolt")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	sessionTTL, err := time.ParseDuration(getEnvOrViper("AUTH_SESSION_TTL", "720h"))
	if err != nil {
		return nil, fmt.Errorf("AUTH_SESSION_TTL: %w", err)
	}
	latency, err := time.ParseDuration(getEnvOrViper("AUTH_LATENCY", "0s"))
	if err != nil {
		return nil, fmt.Errorf("AUTH_LATENCY: %w", err)
	}
	deliveryDays, err := strconv.Atoi(getEnvOrViper("ORDER_DELIVERY_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("ORDER_DELIVERY_DAYS: %w", err)
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Storage: StorageConfig{
			Driver: getEnvOrViper("STORAGE_DRIVER", "bbolt"),
			Path:   getEnvOrViper("STORAGE_PATH", "storefront.db"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "storefront"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnvOrViper("AUTH_JWT_SECRET", "default-secret-change-in-production"),
			SessionTTL: sessionTTL,
			Latency:    latency,
		},
		Storefront: StorefrontConfig{
			BaseCurrency:          getEnvOrViper("BASE_CURRENCY", "SAR"),
			DefaultLanguage:       getEnvOrViper("DEFAULT_LANGUAGE", "en"),
			DefaultCurrency:       getEnvOrViper("DEFAULT_CURRENCY", "SAR"),
			CurrencyRates:         parseRates(getEnvOrViper("CURRENCY_RATES", "USD=3.75")),
			DeliveryDays:          deliveryDays,
			ShippingFee:           getEnvOrViper("SHIPPING_FEE", "25"),
			FreeShippingThreshold: getEnvOrViper("FREE_SHIPPING_THRESHOLD", "200"),
			VATRate:               getEnvOrViper("VAT_RATE", "0.15"),
			AllowedOrigins:        splitList(getEnvOrViper("CORS_ALLOWED_ORIGINS", "*")),
		},
		Shopify: ShopifyConfig{
			ShopDomain:  getEnvOrViper("SHOPIFY_SHOP_DOMAIN", ""),
			AccessToken: getEnvOrViper("SHOPIFY_ACCESS_TOKEN", ""),
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	// Validate required fields
	switch cfg.Storage.Driver {
	case "memory", "bbolt", "postgres":
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER must be memory, bbolt or postgres, got %q", cfg.Storage.Driver)
	}
	if cfg.Environment == "production" && cfg.Auth.JWTSecret == "default-secret-change-in-production" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is required in production")
	}

	return cfg, nil
}

// RequireShopify checks the credentials needed by the catalog importer.
func (c *Config) RequireShopify() error {
	if c.Shopify.ShopDomain == "" {
		return fmt.Errorf("SHOPIFY_SHOP_DOMAIN is required")
	}
	if c.Shopify.AccessToken == "" {
		return fmt.Errorf("SHOPIFY_ACCESS_TOKEN is required")
	}
	return nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

// parseRates reads "USD=3.75,EUR=4.05" into a map.
func parseRates(raw string) map[string]string {
	rates := make(map[string]string)
	for _, pair := range splitList(raw) {
		code, rate, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		rates[strings.ToUpper(strings.TrimSpace(code))] = strings.TrimSpace(rate)
	}
	return rates
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
