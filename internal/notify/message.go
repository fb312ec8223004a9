package notify

import (
	"fmt"
	"strings"

	"github.com/imrishuroy/watch-storefront/internal/orders"
	"github.com/imrishuroy/watch-storefront/internal/pricing"
)

// Message is the notification queued for one committed order.
type Message struct {
	Kind          orders.Kind `json:"kind"`
	OrderID       string      `json:"order_id"`
	PublicID      string      `json:"public_id"`
	ToEmail       string      `json:"to_email"`
	ToName        string      `json:"to_name"`
	Fields        Fields      `json:"fields"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// Fields is the fixed set of values the email templates use.
type Fields struct {
	TotalPrice      string `json:"total_price"`
	Items           string `json:"items,omitempty"`
	PaymentMethod   string `json:"payment_method,omitempty"`
	ShippingAddress string `json:"shipping_address,omitempty"`
	ServiceType     string `json:"service_type,omitempty"`
	PickupDate      string `json:"pickup_date,omitempty"`
	PickupTime      string `json:"pickup_time,omitempty"`
	Address         string `json:"address,omitempty"`
	ExpressService  string `json:"express_service,omitempty"`
}

// Validate reports whether m can be delivered.
func (m Message) Validate() error {
	switch {
	case m.OrderID == "":
		return fmt.Errorf("message has no order_id")
	case m.ToEmail == "":
		return fmt.Errorf("message for order %s has no recipient", m.OrderID)
	case !m.Kind.Valid():
		return fmt.Errorf("message for order %s has unknown kind %q", m.OrderID, m.Kind)
	}
	return nil
}

// FromOrder builds the notification for o.
func FromOrder(o orders.Order) Message {
	m := Message{
		Kind:     o.Kind,
		OrderID:  o.DocID,
		PublicID: o.PublicID(),
		ToEmail:  o.CustomerEmail,
		ToName:   o.CustomerName,
	}
	m.Fields = orders.Match(o, purchaseFields, serviceFields)
	if o.Service != nil && o.Service.Email != "" {
		m.ToEmail = o.Service.Email
	}
	return m
}

func purchaseFields(p orders.PurchaseDetails) Fields {
	items := make([]string, len(p.Items))
	for i, it := range p.Items {
		items[i] = fmt.Sprintf("%s x%d", it.Name, it.Quantity)
	}
	return Fields{
		TotalPrice:      pricing.FormatINR(p.TotalAmount),
		Items:           strings.Join(items, ", "),
		PaymentMethod:   p.PaymentMethod,
		ShippingAddress: p.ShippingAddress.Label(),
	}
}

func serviceFields(s orders.ServiceDetails) Fields {
	express := "No"
	if s.Express {
		express = "Yes"
	}
	where := s.Address
	if where == "" {
		where = s.Store
	}
	return Fields{
		TotalPrice:     s.Price.String(),
		ServiceType:    s.Service,
		PickupDate:     s.Date,
		PickupTime:     s.Time,
		Address:        where,
		ExpressService: express,
	}
}
