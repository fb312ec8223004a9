package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/watch-storefront/internal/checkout"
	"github.com/imrishuroy/watch-storefront/internal/orders"
	"github.com/imrishuroy/watch-storefront/internal/validation"
)

// HeaderIdempotencyKey lets a client retry POST /v1/checkout safely.
const HeaderIdempotencyKey = "Idempotency-Key"

// RegisterOrdersRoutes registers checkout, service booking and order
// history routes.
func RegisterOrdersRoutes(r *gin.RouterGroup, cfg HandlerConfig) {
	r.POST("/checkout", func(c *gin.Context) {
		var req checkout.PurchaseRequest
		if !bindJSON(c, cfg, &req) {
			return
		}
		req.IdempotencyKey = strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))

		placed, err := cfg.Checkout.PlacePurchase(c.Request.Context(), sessionOf(c), req)
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		status := http.StatusCreated
		if placed.Replayed {
			status = http.StatusOK
		}
		c.Header("Location", fmt.Sprintf("/v1/orders/track/%s", placed.Order.PublicID()))
		c.JSON(status, placed)
	})

	r.POST("/services", func(c *gin.Context) {
		var req checkout.ServiceRequest
		if !bindJSON(c, cfg, &req) {
			return
		}
		o, err := cfg.Checkout.BookService(c.Request.Context(), sessionOf(c), req)
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		c.Header("Location", fmt.Sprintf("/v1/orders/track/%s", o.PublicID()))
		c.JSON(http.StatusCreated, o)
	})

	r.GET("/orders", func(c *gin.Context) {
		var q validation.OrdersQuery
		if err := validation.BindQueryAndValidate(c, &q, cfg.Validate); err != nil {
			return
		}
		list, err := cfg.Orders.Mine(c.Request.Context(), sessionOf(c), q.Type)
		respond(c, cfg.Logger, http.StatusOK, gin.H{"orders": list}, err)
	})

	r.GET("/orders/track/:token", func(c *gin.Context) {
		o, err := cfg.Orders.Track(c.Request.Context(), c.Param("token"))
		respond(c, cfg.Logger, http.StatusOK, trackView(o), err)
	})
}

// tracking is the public view of an order: its workflow and where it is.
type tracking struct {
	*orders.Order
	Workflow []string `json:"workflow"`
	Step     int      `json:"step"`
}

func trackView(o *orders.Order) *tracking {
	if o == nil {
		return nil
	}
	flow := orders.Workflow(o.Kind)
	step := 0
	for i, s := range flow {
		if s == o.Status {
			step = i
			break
		}
	}
	return &tracking{Order: o, Workflow: flow, Step: step}
}
