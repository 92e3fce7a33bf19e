package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/api/middleware"
	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/export"
	"github.com/jafarshop/storefront/internal/service"
	"github.com/jafarshop/storefront/pkg/errors"
)

// ProductResponse is a product with prices in the active currency.
type ProductResponse struct {
	domain.Product
	DisplayPrice    string `json:"displayPrice"`
	DisplayOldPrice string `json:"displayOldPrice,omitempty"`
}

func toProductResponse(settings *service.SettingsStore, p domain.Product) ProductResponse {
	resp := ProductResponse{Product: p, DisplayPrice: settings.FormatPrice(p.Price)}
	if p.OldPrice != nil {
		resp.DisplayOldPrice = settings.FormatPrice(*p.OldPrice)
	}
	return resp
}

func toProductResponses(settings *service.SettingsStore, products []domain.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(settings, p))
	}
	return out
}

// HandleListProducts handles GET /v1/products
// Optional filters: q (search), category, seller.
func HandleListProducts(catalog *service.CatalogStore, settings *service.SettingsStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var products []domain.Product
		switch {
		case c.Query("q") != "":
			products = catalog.Search(c.Query("q"))
		case c.Query("category") != "":
			products = catalog.ProductsByCategory(c.Query("category"))
		case c.Query("seller") != "":
			products = catalog.ProductsBySeller(c.Query("seller"))
		default:
			products = catalog.Products()
		}
		c.JSON(http.StatusOK, gin.H{
			"products": toProductResponses(settings, products),
			"count":    len(products),
		})
	}
}

// HandleGetProduct handles GET /v1/products/:id
func HandleGetProduct(catalog *service.CatalogStore, settings *service.SettingsStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := catalog.Product(c.Param("id"))
		if err != nil {
			respondError(c, logger, err, "get product")
			return
		}
		c.JSON(http.StatusOK, toProductResponse(settings, p))
	}
}

// HandleListCategories handles GET /v1/categories
func HandleListCategories(catalog *service.CatalogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"categories": catalog.Categories()})
	}
}

// ProductRequest is a seller's product form.
type ProductRequest struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	Price       decimal.Decimal  `json:"price"`
	OldPrice    *decimal.Decimal `json:"oldPrice,omitempty"`
	Image       string           `json:"image"`
	Images      []string         `json:"images,omitempty"`
	Category    string           `json:"category" binding:"required"`
	Brand       string           `json:"brand"`
	Inventory   int              `json:"inventory" binding:"min=0"`
	IsNew       bool             `json:"isNew"`
	Featured    bool             `json:"featured"`
	OnSale      bool             `json:"onSale"`
}

func (r ProductRequest) toProduct(sellerID string) domain.Product {
	return domain.Product{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		OldPrice:    r.OldPrice,
		Image:       r.Image,
		Images:      r.Images,
		Category:    r.Category,
		Brand:       r.Brand,
		SellerID:    sellerID,
		Inventory:   r.Inventory,
		IsNew:       r.IsNew,
		Featured:    r.Featured,
		OnSale:      r.OnSale,
	}
}

// HandleCreateProduct handles POST /v1/seller/products
func HandleCreateProduct(catalog *service.CatalogStore, settings *service.SettingsStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		seller, _ := middleware.GetUserFromContext(c)

		var req ProductRequest
		if !bindJSON(c, &req) {
			return
		}

		p, err := catalog.AddProduct(c.Request.Context(), req.toProduct(seller.ID))
		if err != nil {
			respondError(c, logger, err, "create product")
			return
		}
		c.JSON(http.StatusCreated, toProductResponse(settings, p))
	}
}

// HandleUpdateProduct handles PUT /v1/seller/products/:id
func HandleUpdateProduct(catalog *service.CatalogStore, settings *service.SettingsStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		seller, _ := middleware.GetUserFromContext(c)

		existing, err := catalog.Product(c.Param("id"))
		if err != nil {
			respondError(c, logger, err, "update product")
			return
		}
		if existing.SellerID != seller.ID {
			respondError(c, logger, &errors.ErrPermissionDenied{Action: "edit another seller's product"}, "update product")
			return
		}

		var req ProductRequest
		if !bindJSON(c, &req) {
			return
		}
		p := req.toProduct(seller.ID)
		p.ID = existing.ID
		p.Rating = existing.Rating

		updated, err := catalog.UpdateProduct(c.Request.Context(), p)
		if err != nil {
			respondError(c, logger, err, "update product")
			return
		}
		c.JSON(http.StatusOK, toProductResponse(settings, updated))
	}
}

// HandleDeleteProduct handles DELETE /v1/seller/products/:id
func HandleDeleteProduct(catalog *service.CatalogStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		seller, _ := middleware.GetUserFromContext(c)

		existing, err := catalog.Product(c.Param("id"))
		if err != nil {
			respondError(c, logger, err, "delete product")
			return
		}
		if existing.SellerID != seller.ID {
			respondError(c, logger, &errors.ErrPermissionDenied{Action: "delete another seller's product"}, "delete product")
			return
		}

		if err := catalog.RemoveProduct(c.Request.Context(), existing.ID); err != nil {
			respondError(c, logger, err, "delete product")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// HandleExportSellerProducts handles GET /v1/seller/products/export
func HandleExportSellerProducts(catalog *service.CatalogStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		seller, _ := middleware.GetUserFromContext(c)

		c.Header("Content-Disposition", "attachment; filename=products.xlsx")
		c.Header("Content-Type", export.ContentTypeXLSX)
		if err := export.WriteCatalog(c.Writer, catalog.ProductsBySeller(seller.ID)); err != nil {
			logger.Error("Failed to write product export", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write Excel file"})
			return
		}
	}
}
