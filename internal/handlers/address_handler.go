package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/watch-storefront/internal/address"
	"github.com/imrishuroy/watch-storefront/internal/apperr"
)

// RegisterAddressRoutes registers the shopper's saved address routes.
func RegisterAddressRoutes(r *gin.RouterGroup, cfg HandlerConfig) {
	r.GET("/addresses", func(c *gin.Context) {
		list, err := cfg.Addresses.List(c.Request.Context(), sessionOf(c))
		respond(c, cfg.Logger, http.StatusOK, gin.H{"addresses": list}, err)
	})

	r.POST("/addresses", func(c *gin.Context) {
		var in address.Input
		if !bindJSON(c, cfg, &in) {
			return
		}
		a, err := cfg.Addresses.Create(c.Request.Context(), sessionOf(c), in)
		respond(c, cfg.Logger, http.StatusCreated, a, err)
	})
}

// bindJSON decodes the body for services that validate their own input.
func bindJSON(c *gin.Context, cfg HandlerConfig, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		writeError(c, cfg.Logger, apperr.NewValidation("Invalid request body", nil))
		return false
	}
	return true
}
