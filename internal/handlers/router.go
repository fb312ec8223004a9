// Package handlers exposes the storefront over HTTP with gin.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/watch-storefront/internal/address"
	"github.com/imrishuroy/watch-storefront/internal/admin"
	"github.com/imrishuroy/watch-storefront/internal/cart"
	"github.com/imrishuroy/watch-storefront/internal/checkout"
	"github.com/imrishuroy/watch-storefront/internal/inventory"
	"github.com/imrishuroy/watch-storefront/internal/orders"
)

// HandlerConfig groups dependencies for the storefront routes.
type HandlerConfig struct {
	Catalog   *inventory.Store
	Carts     *cart.Service
	Addresses *address.Service
	Checkout  *checkout.Builder
	Orders    *orders.Service
	Admin     *admin.Service
	Validate  *validatorv10.Validate
	Logger    *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(cfg.Logger), RequestLogger(cfg.Logger), WithSession())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	RegisterCatalogRoutes(v1, cfg)

	shopper := v1.Group("", RequireSession(cfg.Logger))
	RegisterCartRoutes(shopper, cfg)
	RegisterAddressRoutes(shopper, cfg)
	RegisterOrdersRoutes(shopper, cfg)

	adminGroup := v1.Group("/admin", AdminOnly(cfg.Admin.Authorize, cfg.Logger))
	RegisterAdminRoutes(adminGroup, cfg)

	return r
}
