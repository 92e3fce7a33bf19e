package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/internal/repository/memory"
	"github.com/jafarshop/storefront/internal/service"
	"github.com/jafarshop/storefront/pkg/errors"
)

func TestSettingsDefaults(t *testing.T) {
	s := newSettings(t, memory.New())

	got := s.Settings()
	assert.Equal(t, domain.LanguageEnglish, got.Language)
	assert.Equal(t, "SAR", got.Currency)
	assert.Equal(t, domain.ThemeLight, got.Theme)
	assert.False(t, got.RTL)
	assert.Equal(t, "SAR", s.BaseCurrency())
}

func TestSettingsPersistAcrossRestart(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := newSettings(t, store)

	require.NoError(t, s.SetLanguage(ctx, domain.LanguageArabic))
	require.NoError(t, s.SetCurrency(ctx, "usd"))
	require.NoError(t, s.SetTheme(ctx, domain.ThemeDark))

	restored := newSettings(t, store)
	got := restored.Settings()
	assert.Equal(t, domain.LanguageArabic, got.Language)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, domain.ThemeDark, got.Theme)
	assert.True(t, got.RTL)
}

func TestSettingsRejectUnsupportedValues(t *testing.T) {
	ctx := context.Background()
	s := newSettings(t, memory.New())

	assert.True(t, errors.IsValidationFailed(s.SetLanguage(ctx, "fr")))
	assert.True(t, errors.IsValidationFailed(s.SetCurrency(ctx, "EUR")))
	assert.True(t, errors.IsValidationFailed(s.SetTheme(ctx, "sepia")))

	got := s.Settings()
	assert.Equal(t, domain.LanguageEnglish, got.Language)
	assert.Equal(t, "SAR", got.Currency)
	assert.Equal(t, domain.ThemeLight, got.Theme)
}

func TestSettingsIgnoreCorruptOrUnknownStoredValues(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Put(ctx, repository.KeyLanguage, []byte("{broken")))
	require.NoError(t, store.Put(ctx, repository.KeyCurrency, []byte(`"JPY"`)))

	s := newSettings(t, store)
	assert.Equal(t, domain.LanguageEnglish, s.Language())
	assert.Equal(t, "SAR", s.Currency())
}

func TestSettingsFailedSaveKeepsLanguage(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := newSettings(t, store)

	store.FailWrites(repository.KeyLanguage, assert.AnError)
	assert.ErrorIs(t, s.SetLanguage(ctx, domain.LanguageArabic), assert.AnError)
	assert.Equal(t, domain.LanguageEnglish, s.Language())
}

func TestSettingsConvertAndFormat(t *testing.T) {
	ctx := context.Background()
	s := newSettings(t, memory.New())
	price := decimal.RequireFromString("37.50")

	assert.Equal(t, "37.50 SAR", s.FormatPrice(price))

	require.NoError(t, s.SetCurrency(ctx, "USD"))
	assert.True(t, s.Convert(price).Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "$10.00", s.FormatPrice(price))

	_, err := s.ConvertTo(price, "EUR")
	assert.True(t, errors.IsValidationFailed(err))
}

func TestSettingsArabicSymbol(t *testing.T) {
	ctx := context.Background()
	s := newSettings(t, memory.New())
	require.NoError(t, s.SetLanguage(ctx, domain.LanguageArabic))

	assert.Equal(t, "ر.س", s.Symbol("SAR"))
	assert.Equal(t, "$", s.Symbol("USD"))
	assert.Equal(t, "ر.س", s.Settings().CurrencySymbol)
}

func TestSettingsTranslate(t *testing.T) {
	ctx := context.Background()
	s := newSettings(t, memory.New())

	english := s.T("cart.added", "Dates")
	assert.Equal(t, "Dates added to cart", english)

	require.NoError(t, s.SetLanguage(ctx, domain.LanguageArabic))
	arabic := s.T("cart.added", "Dates")
	assert.NotEqual(t, english, arabic)
	assert.Contains(t, arabic, "Dates")

	assert.Contains(t, s.Translations(domain.LanguageEnglish), "order.placed")
	assert.Contains(t, s.Translations(domain.LanguageArabic), "order.placed")
}

func TestSettingsRejectBadCurrencyConfig(t *testing.T) {
	ctx := context.Background()
	_, err := service.NewSettingsStore(ctx, memory.New(), service.SettingsOptions{
		Currencies: []service.Currency{{Code: "SAR", Rate: decimal.Zero}},
	}, zap.NewNop())
	assert.Error(t, err)

	_, err = service.NewSettingsStore(ctx, memory.New(), service.SettingsOptions{
		BaseCurrency: "USD",
		Currencies:   []service.Currency{{Code: "SAR", Rate: decimal.NewFromInt(1)}},
	}, zap.NewNop())
	assert.Error(t, err)
}
