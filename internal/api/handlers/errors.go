package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/pkg/errors"
)

// respondError maps store errors onto HTTP statuses. Anything unrecognised
// is logged and reported as an internal error.
func respondError(c *gin.Context, logger *zap.Logger, err error, action string) {
	switch {
	case errors.IsAuthenticationRequired(err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.IsUnauthorized(err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.IsPermissionDenied(err):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.IsValidationFailed(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "details": err.Error()})
	case errors.IsVerificationMismatch(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.IsInvalidStateTransition(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("Failed to "+action, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + action})
	}
}

// bindJSON decodes the request body, answering 422 on malformed input.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "validation failed",
			"details": err.Error(),
		})
		return false
	}
	return true
}
