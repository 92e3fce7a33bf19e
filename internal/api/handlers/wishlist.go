package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/service"
)

// WishlistRequest names the product to add.
type WishlistRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

func wishlistResponse(wishlist *service.WishlistStore, settings *service.SettingsStore) gin.H {
	return gin.H{
		"items": toProductResponses(settings, wishlist.Items()),
		"count": wishlist.Count(),
	}
}

// HandleGetWishlist handles GET /v1/wishlist
func HandleGetWishlist(wishlist *service.WishlistStore, settings *service.SettingsStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, wishlistResponse(wishlist, settings))
	}
}

// HandleAddToWishlist handles POST /v1/wishlist/items
func HandleAddToWishlist(wishlist *service.WishlistStore, catalog *service.CatalogStore, settings *service.SettingsStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WishlistRequest
		if !bindJSON(c, &req) {
			return
		}
		product, err := catalog.Product(req.ProductID)
		if err != nil {
			respondError(c, logger, err, "add to wishlist")
			return
		}
		if err := wishlist.AddToWishlist(c.Request.Context(), product); err != nil {
			respondError(c, logger, err, "add to wishlist")
			return
		}
		c.JSON(http.StatusOK, wishlistResponse(wishlist, settings))
	}
}

// HandleRemoveFromWishlist handles DELETE /v1/wishlist/items/:productId
func HandleRemoveFromWishlist(wishlist *service.WishlistStore, settings *service.SettingsStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := wishlist.RemoveFromWishlist(c.Request.Context(), c.Param("productId")); err != nil {
			respondError(c, logger, err, "remove from wishlist")
			return
		}
		c.JSON(http.StatusOK, wishlistResponse(wishlist, settings))
	}
}

// HandleClearWishlist handles DELETE /v1/wishlist
func HandleClearWishlist(wishlist *service.WishlistStore, settings *service.SettingsStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := wishlist.ClearWishlist(c.Request.Context()); err != nil {
			respondError(c, logger, err, "clear wishlist")
			return
		}
		c.JSON(http.StatusOK, wishlistResponse(wishlist, settings))
	}
}
