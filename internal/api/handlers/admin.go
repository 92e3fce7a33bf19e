package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/service"
)

// UpdateOrderStatusRequest represents an order status change
type UpdateOrderStatusRequest struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
}

// HandleListOrders handles GET /v1/admin/orders
// Optional filter: status.
func HandleListOrders(orders *service.OrderStore, settings *service.SettingsStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		all := orders.Orders()
		if status := domain.OrderStatus(c.Query("status")); status != "" {
			filtered := all[:0]
			for _, o := range all {
				if o.Status == status {
					filtered = append(filtered, o)
				}
			}
			all = filtered
		}
		c.JSON(http.StatusOK, gin.H{
			"orders": toOrderResponses(settings, all),
			"count":  len(all),
		})
	}
}

// HandleUpdateOrderStatus handles PATCH /v1/admin/orders/:id/status
func HandleUpdateOrderStatus(orders *service.OrderStore, settings *service.SettingsStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateOrderStatusRequest
		if !bindJSON(c, &req) {
			return
		}
		order, err := orders.AdvanceStatus(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			respondError(c, logger, err, "update order status")
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(settings, order))
	}
}

// HandleListSellerRequests handles GET /v1/admin/seller-requests
func HandleListSellerRequests(identity *service.IdentityStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		pending := identity.PendingRequests()
		c.JSON(http.StatusOK, gin.H{
			"requests": pending,
			"count":    len(pending),
		})
	}
}

// HandleVerifySellerIdentity handles POST /v1/admin/seller-requests/:uid/verify-identity
func HandleVerifySellerIdentity(identity *service.IdentityStore, logger *zap.Logger) gin.HandlerFunc {
	return reviewHandler(identity.VerifySellerIdentity, domain.SellerStatusIdentityVerified, "verify seller identity", logger)
}

// HandleApproveSellerRequest handles POST /v1/admin/seller-requests/:uid/approve
func HandleApproveSellerRequest(identity *service.IdentityStore, logger *zap.Logger) gin.HandlerFunc {
	return reviewHandler(identity.ApproveSellerRequest, domain.SellerStatusApproved, "approve seller request", logger)
}

// HandleRejectSellerRequest handles POST /v1/admin/seller-requests/:uid/reject
func HandleRejectSellerRequest(identity *service.IdentityStore, logger *zap.Logger) gin.HandlerFunc {
	return reviewHandler(identity.RejectSellerRequest, domain.SellerStatusRejected, "reject seller request", logger)
}

func reviewHandler(review func(ctx context.Context, userID string) error, status domain.SellerStatus, action string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("uid")
		if err := review(c.Request.Context(), userID); err != nil {
			respondError(c, logger, err, action)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"userId": userID,
			"status": status,
		})
	}
}
