package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/api/middleware"
	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/service"
	"github.com/jafarshop/storefront/pkg/errors"
)

// CheckoutLine names a product and quantity. Price and details always come
// from the catalog.
type CheckoutLine struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// CheckoutRequest represents the checkout payload. Without explicit items the
// current cart is ordered.
type CheckoutRequest struct {
	Items         []CheckoutLine       `json:"items,omitempty" binding:"omitempty,dive"`
	Address       *domain.Address      `json:"address,omitempty"`
	AddressID     string               `json:"addressId,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod" binding:"required"`
}

// OrderResponse represents the order response
type OrderResponse struct {
	domain.Order
	DisplayTotal string `json:"displayTotal"`
	Cancellable  bool   `json:"cancellable"`
}

func toOrderResponse(settings *service.SettingsStore, o domain.Order) OrderResponse {
	converted, err := settings.ConvertTo(o.Total, o.Currency)
	if err != nil {
		converted = o.Total
	}
	return OrderResponse{
		Order:        o,
		DisplayTotal: settings.FormatIn(converted, o.Currency),
		Cancellable:  o.Status.IsCancellable(),
	}
}

func toOrderResponses(settings *service.SettingsStore, orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(settings, o))
	}
	return out
}

// HandleCreateOrder handles POST /v1/orders
func HandleCreateOrder(orders *service.OrderStore, cart *service.CartStore, catalog *service.CatalogStore, book *service.AddressBook, settings *service.SettingsStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckoutRequest
		if !bindJSON(c, &req) {
			return
		}

		in := service.CheckoutInput{PaymentMethod: req.PaymentMethod}
		if len(req.Items) == 0 {
			in.Items = cart.Items()
		}
		for _, line := range req.Items {
			product, err := catalog.Product(line.ProductID)
			if err != nil {
				respondError(c, logger, err, "place order")
				return
			}
			qty := line.Quantity
			if qty < 1 {
				qty = 1
			}
			in.Items = append(in.Items, domain.CartItem{Product: product, Quantity: qty})
		}
		if user, ok := middleware.GetUserFromContext(c); ok {
			in.UserID = user.ID
		}

		switch {
		case req.Address != nil:
			in.Address = *req.Address
		case req.AddressID != "":
			found := false
			for _, a := range book.Addresses() {
				if a.ID == req.AddressID {
					in.Address, found = a, true
					break
				}
			}
			if !found {
				respondError(c, logger, &errors.ErrNotFound{Resource: "address", ID: req.AddressID}, "place order")
				return
			}
		default:
			addr, ok := book.Default()
			if !ok {
				respondError(c, logger, &errors.ErrValidationFailed{Field: "address", Message: "a delivery address is required"}, "place order")
				return
			}
			in.Address = addr
		}

		order, err := orders.CreateOrder(c.Request.Context(), in)
		if err != nil {
			respondError(c, logger, err, "place order")
			return
		}
		c.JSON(http.StatusCreated, toOrderResponse(settings, order))
	}
}

// HandleListMyOrders handles GET /v1/orders
func HandleListMyOrders(orders *service.OrderStore, settings *service.SettingsStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.GetUserFromContext(c)
		list := orders.OrdersForUser(user.ID)
		c.JSON(http.StatusOK, gin.H{
			"orders": toOrderResponses(settings, list),
			"count":  len(list),
		})
	}
}

// lookupOrder loads an order the caller may see. Guest orders are reachable
// by id; user orders only by their owner or an approved seller.
func lookupOrder(c *gin.Context, orders *service.OrderStore, logger *zap.Logger, action string) (domain.Order, bool) {
	order, err := orders.GetOrderByID(c.Param("id"))
	if err != nil {
		respondError(c, logger, err, action)
		return domain.Order{}, false
	}
	if order.UserID == "" {
		return order, true
	}
	user, ok := middleware.GetUserFromContext(c)
	if !ok {
		respondError(c, logger, &errors.ErrAuthenticationRequired{Action: "view this order"}, action)
		return domain.Order{}, false
	}
	if user.ID != order.UserID && !user.Seller.SellerApproved {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return domain.Order{}, false
	}
	return order, true
}

// HandleGetOrder handles GET /v1/orders/:id
func HandleGetOrder(orders *service.OrderStore, settings *service.SettingsStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, ok := lookupOrder(c, orders, logger, "get order")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(settings, order))
	}
}

// HandleCancelOrder handles POST /v1/orders/:id/cancel
func HandleCancelOrder(orders *service.OrderStore, settings *service.SettingsStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := lookupOrder(c, orders, logger, "cancel order"); !ok {
			return
		}
		order, err := orders.CancelOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, logger, err, "cancel order")
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(settings, order))
	}
}

// HandleGetInvoice handles GET /v1/orders/:id/invoice
func HandleGetInvoice(orders *service.OrderStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, ok := lookupOrder(c, orders, logger, "render invoice")
		if !ok {
			return
		}
		// Build before writing headers so failures can still be reported.
		if _, err := orders.Invoice(c.Request.Context(), order.ID); err != nil {
			respondError(c, logger, err, "render invoice")
			return
		}

		filename := "invoice-" + order.OrderedAt.Format("20060102") + "-" + shortID(order.ID) + ".xlsx"
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Header("Content-Type", orders.InvoiceContentType())
		c.Header("Last-Modified", order.UpdatedAt.UTC().Format(time.RFC1123))
		if err := orders.RenderInvoice(c.Request.Context(), order.ID, c.Writer); err != nil {
			logger.Error("Failed to write invoice", zap.String("order_id", order.ID), zap.Error(err))
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
