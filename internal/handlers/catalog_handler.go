package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/watch-storefront/internal/apperr"
	"github.com/imrishuroy/watch-storefront/internal/inventory"
	"github.com/imrishuroy/watch-storefront/internal/validation"
)

// RegisterCatalogRoutes registers the public product browsing routes.
func RegisterCatalogRoutes(r *gin.RouterGroup, cfg HandlerConfig) {
	r.GET("/products", func(c *gin.Context) {
		var q validation.ProductsQuery
		if err := validation.BindQueryAndValidate(c, &q, cfg.Validate); err != nil {
			return
		}
		products, err := cfg.Catalog.List(c.Request.Context(), productFilter(q))
		if err != nil {
			writeError(c, cfg.Logger, apperr.NewTransient("list products", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
	})

	r.GET("/products/:id", func(c *gin.Context) {
		id := c.Param("id")
		p, err := cfg.Catalog.Get(c.Request.Context(), id)
		if err != nil {
			writeError(c, cfg.Logger, apperr.NewTransient("load product", err))
			return
		}
		// hidden products are not part of the public catalog
		if p == nil || p.Hidden {
			writeError(c, cfg.Logger, apperr.NewNotFound("product", id))
			return
		}
		c.JSON(http.StatusOK, p)
	})
}

func productFilter(q validation.ProductsQuery) inventory.Filter {
	f := inventory.Filter{Category: q.Category, Brands: q.Brands, Sort: q.Sort}
	if q.MinPrice != nil {
		f.MinPrice = *q.MinPrice
	}
	if q.MaxPrice != nil {
		f.MaxPrice = *q.MaxPrice
	}
	return f
}
