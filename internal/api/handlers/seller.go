package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/service"
)

// VerifyEmailRequest carries the emailed verification code
type VerifyEmailRequest struct {
	Code string `json:"code" binding:"required"`
}

// HandleRequestSellerAccount handles POST /v1/seller/request
func HandleRequestSellerAccount(identity *service.IdentityStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req domain.SellerRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := identity.RequestSellerAccount(c.Request.Context(), req); err != nil {
			respondError(c, logger, err, "request seller account")
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": domain.SellerStatusRequested})
	}
}

// HandleVerifySellerEmail handles POST /v1/seller/verify-email
func HandleVerifySellerEmail(identity *service.IdentityStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyEmailRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := identity.VerifySellerEmail(c.Request.Context(), req.Code); err != nil {
			respondError(c, logger, err, "verify seller email")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": domain.SellerStatusEmailVerified})
	}
}

// HandleResendVerificationCode handles POST /v1/seller/resend-code
func HandleResendVerificationCode(identity *service.IdentityStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := identity.ResendVerificationCode(c.Request.Context()); err != nil {
			respondError(c, logger, err, "resend verification code")
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
	}
}
