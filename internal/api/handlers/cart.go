package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/service"
)

// AddToCartRequest represents an add-to-cart request
type AddToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// UpdateQuantityRequest represents a quantity change
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartResponse is the cart with totals in base and display currency.
type CartResponse struct {
	Items        []domain.CartItem `json:"items"`
	TotalItems   int               `json:"totalItems"`
	TotalPrice   string            `json:"totalPrice"`
	DisplayTotal string            `json:"displayTotal"`
	Currency     string            `json:"currency"`
}

func cartResponse(cart *service.CartStore, settings *service.SettingsStore) CartResponse {
	total := cart.TotalPrice()
	return CartResponse{
		Items:        cart.Items(),
		TotalItems:   cart.TotalItems(),
		TotalPrice:   total.StringFixed(2),
		DisplayTotal: settings.FormatPrice(total),
		Currency:     settings.Currency(),
	}
}

// HandleGetCart handles GET /v1/cart
func HandleGetCart(cart *service.CartStore, settings *service.SettingsStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, cartResponse(cart, settings))
	}
}

// HandleAddToCart handles POST /v1/cart/items
func HandleAddToCart(cart *service.CartStore, catalog *service.CatalogStore, settings *service.SettingsStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddToCartRequest
		if !bindJSON(c, &req) {
			return
		}

		product, err := catalog.Product(req.ProductID)
		if err != nil {
			respondError(c, logger, err, "add to cart")
			return
		}
		if err := cart.AddToCart(c.Request.Context(), product, req.Quantity); err != nil {
			respondError(c, logger, err, "add to cart")
			return
		}
		c.JSON(http.StatusOK, cartResponse(cart, settings))
	}
}

// HandleUpdateCartItem handles PATCH /v1/cart/items/:productId
func HandleUpdateCartItem(cart *service.CartStore, settings *service.SettingsStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateQuantityRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := cart.UpdateQuantity(c.Request.Context(), c.Param("productId"), req.Quantity); err != nil {
			respondError(c, logger, err, "update cart")
			return
		}
		c.JSON(http.StatusOK, cartResponse(cart, settings))
	}
}

// HandleRemoveCartItem handles DELETE /v1/cart/items/:productId
func HandleRemoveCartItem(cart *service.CartStore, settings *service.SettingsStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := cart.RemoveFromCart(c.Request.Context(), c.Param("productId")); err != nil {
			respondError(c, logger, err, "remove from cart")
			return
		}
		c.JSON(http.StatusOK, cartResponse(cart, settings))
	}
}

// HandleClearCart handles DELETE /v1/cart
func HandleClearCart(cart *service.CartStore, settings *service.SettingsStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := cart.ClearCart(c.Request.Context()); err != nil {
			respondError(c, logger, err, "clear cart")
			return
		}
		c.JSON(http.StatusOK, cartResponse(cart, settings))
	}
}
