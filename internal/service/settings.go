package service

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/pkg/errors"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Translator renders a message key in the active language.
type Translator interface {
	T(key string, args ...interface{}) string
}

// Currency is a display currency. Rate is how many base-currency units one
// unit of this currency is worth.
type Currency struct {
	Code         string          `json:"code"`
	Symbol       string          `json:"symbol"`
	ArabicSymbol string          `json:"arabicSymbol,omitempty"`
	Rate         decimal.Decimal `json:"rate"`
	SymbolFirst  bool            `json:"symbolFirst"`
}

// SettingsOptions configures the settings store.
type SettingsOptions struct {
	BaseCurrency    string
	DefaultLanguage domain.Language
	DefaultCurrency string
	Currencies      []Currency
}

// DefaultCurrencies are the storefront's built-in currencies, priced in SAR.
func DefaultCurrencies() []Currency {
	return []Currency{
		{Code: "SAR", Symbol: "SAR", ArabicSymbol: "ر.س", Rate: decimal.NewFromInt(1)},
		{Code: "USD", Symbol: "$", Rate: decimal.RequireFromString("3.75"), SymbolFirst: true},
	}
}

// SettingsStore holds the active language, currency and theme, and the
// translation tables.
type SettingsStore struct {
	mu         sync.RWMutex
	language   domain.Language
	currency   string
	theme      domain.Theme
	base       string
	currencies map[string]Currency
	printers   map[domain.Language]*message.Printer
	messages   map[domain.Language]map[string]string

	languageDoc *repository.Document[domain.Language]
	currencyDoc *repository.Document[string]
	themeDoc    *repository.Document[domain.Theme]
	logger      *zap.Logger
}

// NewSettingsStore restores persisted preferences or falls back to defaults.
func NewSettingsStore(ctx context.Context, store repository.Store, opts SettingsOptions, logger *zap.Logger) (*SettingsStore, error) {
	if opts.BaseCurrency == "" {
		opts.BaseCurrency = "SAR"
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = domain.LanguageEnglish
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = opts.BaseCurrency
	}
	if len(opts.Currencies) == 0 {
		opts.Currencies = DefaultCurrencies()
	}

	s := &SettingsStore{
		language:    opts.DefaultLanguage,
		currency:    strings.ToUpper(opts.DefaultCurrency),
		theme:       domain.ThemeLight,
		base:        strings.ToUpper(opts.BaseCurrency),
		currencies:  make(map[string]Currency, len(opts.Currencies)),
		languageDoc: repository.NewDocument[domain.Language](store, repository.KeyLanguage),
		currencyDoc: repository.NewDocument[string](store, repository.KeyCurrency),
		themeDoc:    repository.NewDocument[domain.Theme](store, repository.KeyTheme),
		logger:      logger,
	}

	for _, c := range opts.Currencies {
		code := strings.ToUpper(c.Code)
		if _, err := currency.ParseISO(code); err != nil {
			return nil, fmt.Errorf("currency %q: %w", c.Code, err)
		}
		if !c.Rate.IsPositive() {
			return nil, fmt.Errorf("currency %s: rate must be positive", code)
		}
		c.Code = code
		s.currencies[code] = c
	}
	if _, ok := s.currencies[s.base]; !ok {
		return nil, fmt.Errorf("base currency %s is not configured", s.base)
	}
	if _, ok := s.currencies[s.currency]; !ok {
		return nil, fmt.Errorf("default currency %s is not configured", s.currency)
	}

	if err := s.loadTranslations(); err != nil {
		return nil, err
	}

	if lang, ok, err := s.languageDoc.Load(ctx); err != nil {
		return nil, err
	} else if ok && lang.IsValid() {
		s.language = lang
	}
	if code, ok, err := s.currencyDoc.Load(ctx); err != nil {
		return nil, err
	} else if _, known := s.currencies[code]; ok && known {
		s.currency = code
	}
	if theme, ok, err := s.themeDoc.Load(ctx); err != nil {
		return nil, err
	} else if ok && theme.IsValid() {
		s.theme = theme
	}

	return s, nil
}

type localeFile struct {
	Language string            `yaml:"language"`
	Messages map[string]string `yaml:"messages"`
}

func (s *SettingsStore) loadTranslations() error {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	s.messages = make(map[domain.Language]map[string]string)
	s.printers = make(map[domain.Language]*message.Printer)

	for _, lang := range []domain.Language{domain.LanguageEnglish, domain.LanguageArabic} {
		data, err := localeFS.ReadFile("locales/" + string(lang) + ".yaml")
		if err != nil {
			return fmt.Errorf("read %s translations: %w", lang, err)
		}
		var file localeFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parse %s translations: %w", lang, err)
		}
		if file.Language != string(lang) {
			return fmt.Errorf("translations for %s declare language %q", lang, file.Language)
		}

		tag := language.MustParse(string(lang))
		for key, value := range file.Messages {
			if err := builder.SetString(tag, key, value); err != nil {
				return fmt.Errorf("register %s/%s: %w", lang, key, err)
			}
		}
		s.messages[lang] = file.Messages
	}

	for lang := range s.messages {
		s.printers[lang] = message.NewPrinter(language.MustParse(string(lang)), message.Catalog(builder))
	}
	return nil
}

// Settings returns the active settings with derived display values.
func (s *SettingsStore) Settings() domain.AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.AppSettings{
		Language:       s.language,
		Currency:       s.currency,
		CurrencySymbol: s.symbolLocked(s.currency),
		Theme:          s.theme,
		RTL:            s.language.IsRTL(),
	}
}

// Language returns the active language.
func (s *SettingsStore) Language() domain.Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

// Currency returns the active currency code.
func (s *SettingsStore) Currency() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currency
}

// BaseCurrency returns the currency product prices are authored in.
func (s *SettingsStore) BaseCurrency() string {
	return s.base
}

// Currencies lists the configured currencies sorted by code.
func (s *SettingsStore) Currencies() []Currency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Currency, 0, len(s.currencies))
	for _, c := range s.currencies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// SetLanguage switches and persists the language.
func (s *SettingsStore) SetLanguage(ctx context.Context, lang domain.Language) error {
	if !lang.IsValid() {
		return &errors.ErrValidationFailed{Field: "language", Message: fmt.Sprintf("unsupported language %q", lang)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.languageDoc.Save(ctx, lang); err != nil {
		return err
	}
	s.language = lang
	s.logger.Debug("Language changed", zap.String("language", string(lang)))
	return nil
}

// SetCurrency switches and persists the display currency.
func (s *SettingsStore) SetCurrency(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.currencies[code]; !ok {
		return &errors.ErrValidationFailed{Field: "currency", Message: fmt.Sprintf("unsupported currency %q", code)}
	}
	if err := s.currencyDoc.Save(ctx, code); err != nil {
		return err
	}
	s.currency = code
	s.logger.Debug("Currency changed", zap.String("currency", code))
	return nil
}

// SetTheme switches and persists the theme.
func (s *SettingsStore) SetTheme(ctx context.Context, theme domain.Theme) error {
	if !theme.IsValid() {
		return &errors.ErrValidationFailed{Field: "theme", Message: fmt.Sprintf("unsupported theme %q", theme)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.themeDoc.Save(ctx, theme); err != nil {
		return err
	}
	s.theme = theme
	return nil
}

// T translates key into the active language. Unknown keys render as the key.
func (s *SettingsStore) T(key string, args ...interface{}) string {
	s.mu.RLock()
	p := s.printers[s.language]
	s.mu.RUnlock()
	return p.Sprintf(key, args...)
}

// Translations returns the translation table of lang.
func (s *SettingsStore) Translations(lang domain.Language) map[string]string {
	src := s.messages[lang]
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Convert turns a base-currency amount into the active currency.
func (s *SettingsStore) Convert(amount decimal.Decimal) decimal.Decimal {
	converted, _ := s.ConvertTo(amount, s.Currency())
	return converted
}

// ConvertTo turns a base-currency amount into code, rounded to cents.
func (s *SettingsStore) ConvertTo(amount decimal.Decimal, code string) (decimal.Decimal, error) {
	s.mu.RLock()
	c, ok := s.currencies[strings.ToUpper(code)]
	s.mu.RUnlock()
	if !ok {
		return decimal.Zero, &errors.ErrValidationFailed{Field: "currency", Message: fmt.Sprintf("unsupported currency %q", code)}
	}
	return amount.Div(c.Rate).Round(2), nil
}

// Symbol returns the display symbol of code in the active language.
func (s *SettingsStore) Symbol(code string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.symbolLocked(strings.ToUpper(code))
}

func (s *SettingsStore) symbolLocked(code string) string {
	c, ok := s.currencies[code]
	if !ok {
		return code
	}
	if s.language == domain.LanguageArabic && c.ArabicSymbol != "" {
		return c.ArabicSymbol
	}
	return c.Symbol
}

// FormatPrice converts a base-currency amount and renders it with the symbol.
func (s *SettingsStore) FormatPrice(amount decimal.Decimal) string {
	code := s.Currency()
	return s.FormatIn(s.Convert(amount), code)
}

// FormatIn renders an amount already expressed in code.
func (s *SettingsStore) FormatIn(amount decimal.Decimal, code string) string {
	s.mu.RLock()
	c, ok := s.currencies[strings.ToUpper(code)]
	symbol := s.symbolLocked(strings.ToUpper(code))
	s.mu.RUnlock()

	value := amount.StringFixed(2)
	if ok && c.SymbolFirst {
		return symbol + value
	}
	return value + " " + symbol
}
