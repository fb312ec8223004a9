package orders

import (
	"context"
	"strings"

	"github.com/imrishuroy/watch-storefront/internal/apperr"
)

// Finder is the read side of the orders store used by Resolve.
type Finder interface {
	Get(ctx context.Context, docID string) (*Order, error)
	FindByOrderNumber(ctx context.Context, number string) (*Order, error)
	FindByServiceID(ctx context.Context, id string) (*Order, error)
}

// Resolve finds the order a human-supplied token refers to. It tries the
// token as a document key, then as a purchase order number, then as a
// service booking id. The first hit wins.
func Resolve(ctx context.Context, f Finder, token string) (*Order, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.NewValidation("Please enter an order ID", map[string]string{"token": "required"})
	}

	steps := []struct {
		op   string
		find func(context.Context, string) (*Order, error)
	}{
		{"get order", f.Get},
		{"find order by number", f.FindByOrderNumber},
		{"find order by id", f.FindByServiceID},
	}
	for _, step := range steps {
		o, err := step.find(ctx, token)
		if err != nil {
			return nil, apperr.NewTransient(step.op, err)
		}
		if o != nil {
			return o, nil
		}
	}
	return nil, apperr.NewNotFound("order", token)
}

// GuessKind labels an identifier by its prefix. It is a display hint for
// documents without a kind tag and never routes a lookup.
func GuessKind(token string) Kind {
	switch {
	case strings.HasPrefix(token, "ORD-"):
		return KindPurchase
	case strings.HasPrefix(token, "PK"):
		return KindPickup
	case strings.HasPrefix(token, "SV"):
		return KindStore
	default:
		return ""
	}
}
