package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/watch-storefront/internal/validation"
)

// RegisterCartRoutes registers the shopper's cart routes.
func RegisterCartRoutes(r *gin.RouterGroup, cfg HandlerConfig) {
	r.GET("/cart", func(c *gin.Context) {
		view, err := cfg.Carts.Load(c.Request.Context(), sessionOf(c))
		respond(c, cfg.Logger, http.StatusOK, view, err)
	})

	r.POST("/cart/items", func(c *gin.Context) {
		var req validation.AddToCartRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}
		line, err := cfg.Carts.Add(c.Request.Context(), sessionOf(c), req.WatchID)
		respond(c, cfg.Logger, http.StatusCreated, line, err)
	})

	r.PATCH("/cart/items/:id", func(c *gin.Context) {
		var req validation.UpdateQuantityRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}
		line, err := cfg.Carts.UpdateQuantity(c.Request.Context(), sessionOf(c), c.Param("id"), *req.Quantity)
		respond(c, cfg.Logger, http.StatusOK, line, err)
	})

	r.DELETE("/cart/items/:id", func(c *gin.Context) {
		if err := cfg.Carts.Remove(c.Request.Context(), sessionOf(c), c.Param("id")); err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	r.DELETE("/cart", func(c *gin.Context) {
		n, err := cfg.Carts.Clear(c.Request.Context(), sessionOf(c))
		respond(c, cfg.Logger, http.StatusOK, gin.H{"deleted": n}, err)
	})
}
