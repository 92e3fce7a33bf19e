package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/api/middleware"
	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/service"
)

// LoginRequest represents an email sign-in
type LoginRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// PasswordResetRequest represents a password reset request
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

// SessionResponse is returned by every sign-in endpoint.
type SessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      domain.User `json:"user"`
}

func toSessionResponse(s domain.Session) SessionResponse {
	return SessionResponse{Token: s.Token, ExpiresAt: s.ExpiresAt, User: s.User}
}

// HandleRegister handles POST /v1/auth/register
func HandleRegister(identity *service.IdentityStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.RegisterInput
		if !bindJSON(c, &req) {
			return
		}
		sess, err := identity.Register(c.Request.Context(), req)
		if err != nil {
			respondError(c, logger, err, "register")
			return
		}
		c.JSON(http.StatusCreated, toSessionResponse(sess))
	}
}

// HandleLogin handles POST /v1/auth/login
func HandleLogin(identity *service.IdentityStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if !bindJSON(c, &req) {
			return
		}
		sess, err := identity.Login(c.Request.Context(), req.Email, req.Password, req.RememberMe)
		if err != nil {
			respondError(c, logger, err, "sign in")
			return
		}
		c.JSON(http.StatusOK, toSessionResponse(sess))
	}
}

// HandleLogout handles POST /v1/auth/logout
func HandleLogout(identity *service.IdentityStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := identity.Logout(c.Request.Context()); err != nil {
			respondError(c, logger, err, "sign out")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// HandlePasswordReset handles POST /v1/auth/password-reset
func HandlePasswordReset(identity *service.IdentityStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PasswordResetRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := identity.SendPasswordReset(c.Request.Context(), req.Email); err != nil {
			respondError(c, logger, err, "send password reset")
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
	}
}

// HandleGetMe handles GET /v1/me
func HandleGetMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.GetUserFromContext(c)
		c.JSON(http.StatusOK, gin.H{
			"user":         user,
			"sellerStatus": user.Seller.Status(),
		})
	}
}

// HandleUpdateMe handles PATCH /v1/me
func HandleUpdateMe(identity *service.IdentityStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.ProfileUpdate
		if !bindJSON(c, &req) {
			return
		}
		user, err := identity.UpdateProfile(c.Request.Context(), req)
		if err != nil {
			respondError(c, logger, err, "update profile")
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}
