package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/watch-storefront/internal/admin"
	"github.com/imrishuroy/watch-storefront/internal/apperr"
	"github.com/imrishuroy/watch-storefront/internal/inventory"
	"github.com/imrishuroy/watch-storefront/internal/validation"
)

// RegisterAdminRoutes registers the admin dashboard routes. The group is
// expected to sit behind AdminOnly.
func RegisterAdminRoutes(r *gin.RouterGroup, cfg HandlerConfig) {
	r.GET("/dashboard", func(c *gin.Context) {
		rng, ok := dateRange(c, cfg)
		if !ok {
			return
		}
		d, err := cfg.Admin.Dashboard(c.Request.Context(), rng)
		respond(c, cfg.Logger, http.StatusOK, d, err)
	})

	r.GET("/orders", func(c *gin.Context) {
		rng, ok := dateRange(c, cfg)
		if !ok {
			return
		}
		list, err := cfg.Admin.ListOrders(c.Request.Context(), rng)
		respond(c, cfg.Logger, http.StatusOK, gin.H{"orders": list, "count": len(list)}, err)
	})

	r.GET("/orders/:token", func(c *gin.Context) {
		o, err := cfg.Admin.FindOrder(c.Request.Context(), c.Param("token"))
		respond(c, cfg.Logger, http.StatusOK, o, err)
	})

	r.POST("/orders/:token/advance", func(c *gin.Context) {
		o, err := cfg.Admin.AdvanceOrder(c.Request.Context(), c.Param("token"))
		respond(c, cfg.Logger, http.StatusOK, o, err)
	})

	r.PUT("/orders/:token/payment", func(c *gin.Context) {
		var req validation.PaymentStatusRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}
		o, err := cfg.Admin.SetPaymentStatus(c.Request.Context(), c.Param("token"), req.PaymentStatus)
		respond(c, cfg.Logger, http.StatusOK, o, err)
	})

	r.GET("/products", func(c *gin.Context) {
		products, err := cfg.Catalog.List(c.Request.Context(), inventory.Filter{IncludeHidden: true, Sort: inventory.SortNewest})
		if err != nil {
			writeError(c, cfg.Logger, apperr.NewTransient("list products", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
	})

	r.POST("/products", func(c *gin.Context) {
		var in admin.ProductInput
		if !bindJSON(c, cfg, &in) {
			return
		}
		p, err := cfg.Admin.CreateProduct(c.Request.Context(), in)
		respond(c, cfg.Logger, http.StatusCreated, p, err)
	})

	r.PUT("/products/:id", func(c *gin.Context) {
		var in admin.ProductInput
		if !bindJSON(c, cfg, &in) {
			return
		}
		p, err := cfg.Admin.UpdateProduct(c.Request.Context(), c.Param("id"), in)
		respond(c, cfg.Logger, http.StatusOK, p, err)
	})

	r.DELETE("/products/:id", func(c *gin.Context) {
		res, err := cfg.Admin.DeleteProduct(c.Request.Context(), c.Param("id"))
		respond(c, cfg.Logger, http.StatusOK, res, err)
	})

	r.PUT("/products/:id/visibility", func(c *gin.Context) {
		var req validation.VisibilityRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}
		res, err := cfg.Admin.SetVisibility(c.Request.Context(), c.Param("id"), *req.Hidden)
		respond(c, cfg.Logger, http.StatusOK, res, err)
	})
}

func dateRange(c *gin.Context, cfg HandlerConfig) (admin.DateRange, bool) {
	var q validation.DateRangeQuery
	if err := validation.BindQueryAndValidate(c, &q, cfg.Validate); err != nil {
		return admin.DateRange{}, false
	}
	return admin.DateRange{From: q.From, To: q.To}, true
}
