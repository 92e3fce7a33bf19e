package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/service"
)

// UpdateSettingsRequest changes any of language, currency and theme.
type UpdateSettingsRequest struct {
	Language *domain.Language `json:"language,omitempty"`
	Currency *string          `json:"currency,omitempty"`
	Theme    *domain.Theme    `json:"theme,omitempty"`
}

// HandleGetSettings handles GET /v1/settings
func HandleGetSettings(settings *service.SettingsStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, settings.Settings())
	}
}

// HandleUpdateSettings handles PUT /v1/settings
func HandleUpdateSettings(settings *service.SettingsStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateSettingsRequest
		if !bindJSON(c, &req) {
			return
		}

		ctx := c.Request.Context()
		if req.Language != nil {
			if err := settings.SetLanguage(ctx, *req.Language); err != nil {
				respondError(c, logger, err, "update language")
				return
			}
		}
		if req.Currency != nil {
			if err := settings.SetCurrency(ctx, *req.Currency); err != nil {
				respondError(c, logger, err, "update currency")
				return
			}
		}
		if req.Theme != nil {
			if err := settings.SetTheme(ctx, *req.Theme); err != nil {
				respondError(c, logger, err, "update theme")
				return
			}
		}
		c.JSON(http.StatusOK, settings.Settings())
	}
}

// HandleListCurrencies handles GET /v1/currencies
func HandleListCurrencies(settings *service.SettingsStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		type currencyResponse struct {
			Code   string `json:"code"`
			Symbol string `json:"symbol"`
			Rate   string `json:"rate"`
		}
		var out []currencyResponse
		for _, cur := range settings.Currencies() {
			out = append(out, currencyResponse{Code: cur.Code, Symbol: settings.Symbol(cur.Code), Rate: cur.Rate.String()})
		}
		c.JSON(http.StatusOK, gin.H{"base": settings.BaseCurrency(), "currencies": out})
	}
}

// HandleGetTranslations handles GET /v1/translations/:lang
func HandleGetTranslations(settings *service.SettingsStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := domain.Language(c.Param("lang"))
		if !lang.IsValid() {
			c.JSON(http.StatusNotFound, gin.H{"error": "unsupported language"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"language": lang,
			"rtl":      lang.IsRTL(),
			"messages": settings.Translations(lang),
		})
	}
}
