package inventory

import "time"

// Sort orders accepted by List.
const (
	SortFeatured  = "featured"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
	SortName      = "name"
)

// Product is an item in the watches table. ID, Stock and Hidden form the
// inventory record; the rest is display data.
type Product struct {
	ID          string    `json:"id" dynamodbav:"watch_id"`
	Name        string    `json:"name" dynamodbav:"name"`
	Brand       string    `json:"brand" dynamodbav:"brand"`
	Category    string    `json:"category" dynamodbav:"category"`
	Price       float64   `json:"price" dynamodbav:"price"`
	Stock       int       `json:"stock" dynamodbav:"stock"`
	Hidden      bool      `json:"hidden" dynamodbav:"hidden"`
	Featured    bool      `json:"featured" dynamodbav:"featured"`
	Description string    `json:"description,omitempty" dynamodbav:"description"`
	Image       string    `json:"image,omitempty" dynamodbav:"image"`
	Features    []string  `json:"features,omitempty" dynamodbav:"features"`
	CreatedAt   time.Time `json:"createdAt" dynamodbav:"created_at,unixtime"`
	UpdatedAt   time.Time `json:"updatedAt" dynamodbav:"updated_at,unixtime"`
}

// Availability is the read-only view other components take of a product.
type Availability struct {
	Exists bool
	Stock  int
	Hidden bool
}

// Purchasable reports whether at least one unit may be sold.
func (a Availability) Purchasable() bool {
	return a.Exists && !a.Hidden && a.Stock > 0
}

// AvailabilityOf returns the availability of p; a nil product does not exist.
func AvailabilityOf(p *Product) Availability {
	if p == nil {
		return Availability{}
	}
	return Availability{Exists: true, Stock: p.Stock, Hidden: p.Hidden}
}

// Filter narrows List. Zero values mean "no constraint".
type Filter struct {
	Category      string
	MinPrice      float64
	MaxPrice      float64
	Brands        []string
	Sort          string
	IncludeHidden bool
}
