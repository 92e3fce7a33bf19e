package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
)

const userContextKey = "user"

// Authenticator resolves a bearer token to the signed-in user.
type Authenticator interface {
	Authenticate(token string) (domain.User, error)
}

// AuthMiddleware attaches the signed-in user when a valid bearer token is
// present. Requests without a token pass through as guests; a bad token is
// rejected.
func AuthMiddleware(auth Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		user, err := auth.Authenticate(token)
		if err != nil {
			logger.Debug("Rejected session token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireUser rejects guests.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserFromContext(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// RequireApprovedSeller rejects users without seller approval.
func RequireApprovedSeller() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUserFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !user.Seller.SellerApproved {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "approved seller account required"})
			return
		}
		c.Next()
	}
}

// GetUserFromContext retrieves the signed-in user from the gin context
func GetUserFromContext(c *gin.Context) (domain.User, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return domain.User{}, false
	}
	user, ok := value.(domain.User)
	return user, ok
}
