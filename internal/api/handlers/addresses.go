package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/service"
)

// HandleListAddresses handles GET /v1/addresses
func HandleListAddresses(book *service.AddressBook) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"addresses": book.Addresses()})
	}
}

// HandleAddAddress handles POST /v1/addresses
func HandleAddAddress(book *service.AddressBook, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req domain.Address
		if !bindJSON(c, &req) {
			return
		}
		addr, err := book.AddAddress(c.Request.Context(), req)
		if err != nil {
			respondError(c, logger, err, "add address")
			return
		}
		c.JSON(http.StatusCreated, addr)
	}
}

// HandleRemoveAddress handles DELETE /v1/addresses/:id
func HandleRemoveAddress(book *service.AddressBook, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := book.RemoveAddress(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, logger, err, "remove address")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// HandleSetDefaultAddress handles PUT /v1/addresses/:id/default
func HandleSetDefaultAddress(book *service.AddressBook, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := book.SetDefault(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, logger, err, "set default address")
			return
		}
		c.JSON(http.StatusOK, gin.H{"addresses": book.Addresses()})
	}
}
