package admin

import (
	"strings"

	"github.com/imrishuroy/watch-storefront/internal/inventory"
	"github.com/imrishuroy/watch-storefront/internal/orders"
)

// ProductInput is the admin product form. Price and Stock are pointers so a
// missing value is told apart from zero.
type ProductInput struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Brand       string   `json:"brand" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Stock       *int     `json:"stock" validate:"required,gte=0"`
	Featured    bool     `json:"featured"`
	Hidden      bool     `json:"hidden"`
	Description string   `json:"description" validate:"max=5000"`
	Image       string   `json:"image" validate:"omitempty,url"`
	Features    []string `json:"features" validate:"max=20"`
}

// product maps the form onto a Product, trimming text and dropping blank
// feature lines.
func (in ProductInput) product(id string) inventory.Product {
	p := inventory.Product{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Brand:       strings.TrimSpace(in.Brand),
		Category:    strings.TrimSpace(in.Category),
		Featured:    in.Featured,
		Hidden:      in.Hidden,
		Description: strings.TrimSpace(in.Description),
		Image:       strings.TrimSpace(in.Image),
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	for _, f := range in.Features {
		if f = strings.TrimSpace(f); f != "" {
			p.Features = append(p.Features, f)
		}
	}
	return p
}

// VisibilityResult reports what a visibility change did to cart lines.
type VisibilityResult struct {
	ProductID string `json:"watchId"`
	Hidden    bool   `json:"hidden"`
	Lines     int    `json:"lines"`
	Updated   int    `json:"updated"`
	Failed    int    `json:"failed"`
}

// DeleteResult reports a product deletion and its cart cleanup.
type DeleteResult struct {
	ProductID   string `json:"watchId"`
	CartDeleted int    `json:"cartDeleted"`
	CartFailed  int    `json:"cartFailed"`
}

// DateRange bounds order listings by calendar day, "2006-01-02". Either end
// may be empty.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Dashboard summarizes sales over a date range.
type Dashboard struct {
	TotalOrders        int                 `json:"totalOrders"`
	TotalSales         float64             `json:"totalSales"`
	WatchSales         float64             `json:"watchSales"`
	ServiceSales       float64             `json:"serviceSales"`
	OrdersByKind       map[orders.Kind]int `json:"ordersByKind"`
	SalesByMonth       map[string]float64  `json:"salesByMonth"`
	ProductCount       int                 `json:"productCount"`
	ProductsByCategory map[string]int      `json:"productsByCategory"`
}
