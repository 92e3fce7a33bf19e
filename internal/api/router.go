package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/api/handlers"
	"github.com/jafarshop/storefront/internal/api/middleware"
	"github.com/jafarshop/storefront/internal/api/realtime"
	"github.com/jafarshop/storefront/internal/config"
	"github.com/jafarshop/storefront/internal/service"
)

// Stores bundles the storefront state the API serves.
type Stores struct {
	Settings  *service.SettingsStore
	Catalog   *service.CatalogStore
	Cart      *service.CartStore
	Wishlist  *service.WishlistStore
	Addresses *service.AddressBook
	Identity  *service.IdentityStore
	Orders    *service.OrderStore
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, stores *Stores, hub *realtime.Hub, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))
	router.Use(cors.New(corsConfig(cfg.Storefront.AllowedOrigins)))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	s := stores
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(s.Identity, logger))
	{
		v1.GET("/sync", hub.HandleSync())

		v1.GET("/settings", handlers.HandleGetSettings(s.Settings))
		v1.PUT("/settings", handlers.HandleUpdateSettings(s.Settings, logger))
		v1.GET("/currencies", handlers.HandleListCurrencies(s.Settings))
		v1.GET("/translations/:lang", handlers.HandleGetTranslations(s.Settings))

		v1.GET("/products", handlers.HandleListProducts(s.Catalog, s.Settings))
		v1.GET("/products/:id", handlers.HandleGetProduct(s.Catalog, s.Settings, logger))
		v1.GET("/categories", handlers.HandleListCategories(s.Catalog))

		v1.GET("/cart", handlers.HandleGetCart(s.Cart, s.Settings))
		v1.POST("/cart/items", handlers.HandleAddToCart(s.Cart, s.Catalog, s.Settings, logger))
		v1.PATCH("/cart/items/:productId", handlers.HandleUpdateCartItem(s.Cart, s.Settings, logger))
		v1.DELETE("/cart/items/:productId", handlers.HandleRemoveCartItem(s.Cart, s.Settings, logger))
		v1.DELETE("/cart", handlers.HandleClearCart(s.Cart, s.Settings, logger))

		v1.GET("/wishlist", handlers.HandleGetWishlist(s.Wishlist, s.Settings))
		v1.POST("/wishlist/items", handlers.HandleAddToWishlist(s.Wishlist, s.Catalog, s.Settings, logger))
		v1.DELETE("/wishlist/items/:productId", handlers.HandleRemoveFromWishlist(s.Wishlist, s.Settings, logger))
		v1.DELETE("/wishlist", handlers.HandleClearWishlist(s.Wishlist, s.Settings, logger))

		v1.GET("/addresses", handlers.HandleListAddresses(s.Addresses))
		v1.POST("/addresses", handlers.HandleAddAddress(s.Addresses, logger))
		v1.DELETE("/addresses/:id", handlers.HandleRemoveAddress(s.Addresses, logger))
		v1.PUT("/addresses/:id/default", handlers.HandleSetDefaultAddress(s.Addresses, logger))

		v1.POST("/orders", handlers.HandleCreateOrder(s.Orders, s.Cart, s.Catalog, s.Addresses, s.Settings, logger))
		v1.GET("/orders/:id", handlers.HandleGetOrder(s.Orders, s.Settings, logger))
		v1.POST("/orders/:id/cancel", handlers.HandleCancelOrder(s.Orders, s.Settings, logger))
		v1.GET("/orders/:id/invoice", handlers.HandleGetInvoice(s.Orders, logger))

		auth := v1.Group("/auth")
		{
			auth.POST("/register", handlers.HandleRegister(s.Identity, logger))
			auth.POST("/login", handlers.HandleLogin(s.Identity, logger))
			auth.POST("/logout", handlers.HandleLogout(s.Identity, logger))
			auth.POST("/password-reset", handlers.HandlePasswordReset(s.Identity, logger))
		}

		// Signed-in routes
		userRoutes := v1.Group("")
		userRoutes.Use(middleware.RequireUser())
		{
			userRoutes.GET("/me", handlers.HandleGetMe())
			userRoutes.PATCH("/me", handlers.HandleUpdateMe(s.Identity, logger))
			userRoutes.GET("/orders", handlers.HandleListMyOrders(s.Orders, s.Settings))
			userRoutes.POST("/seller/request", handlers.HandleRequestSellerAccount(s.Identity, logger))
			userRoutes.POST("/seller/verify-email", handlers.HandleVerifySellerEmail(s.Identity, logger))
			userRoutes.POST("/seller/resend-code", handlers.HandleResendVerificationCode(s.Identity, logger))
		}

		// Approved seller routes
		sellerRoutes := v1.Group("/seller/products")
		sellerRoutes.Use(middleware.RequireApprovedSeller())
		{
			sellerRoutes.POST("", handlers.HandleCreateProduct(s.Catalog, s.Settings, logger))
			sellerRoutes.GET("/export", handlers.HandleExportSellerProducts(s.Catalog, logger))
			sellerRoutes.PUT("/:id", handlers.HandleUpdateProduct(s.Catalog, s.Settings, logger))
			sellerRoutes.DELETE("/:id", handlers.HandleDeleteProduct(s.Catalog, logger))
		}

		// Owner routes; approval is itself re-checked by the identity store.
		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(middleware.RequireApprovedSeller())
		{
			adminRoutes.GET("/orders", handlers.HandleListOrders(s.Orders, s.Settings))
			adminRoutes.PATCH("/orders/:id/status", handlers.HandleUpdateOrderStatus(s.Orders, s.Settings, logger))
			adminRoutes.GET("/seller-requests", handlers.HandleListSellerRequests(s.Identity))
			adminRoutes.POST("/seller-requests/:uid/verify-identity", handlers.HandleVerifySellerIdentity(s.Identity, logger))
			adminRoutes.POST("/seller-requests/:uid/approve", handlers.HandleApproveSellerRequest(s.Identity, logger))
			adminRoutes.POST("/seller-requests/:uid/reject", handlers.HandleRejectSellerRequest(s.Identity, logger))
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			// Credentials cannot be combined with a wildcard origin.
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
