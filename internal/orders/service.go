package orders

import (
	"context"

	"go.uber.org/zap"

	"github.com/imrishuroy/watch-storefront/internal/apperr"
	"github.com/imrishuroy/watch-storefront/internal/session"
)

// Filter values accepted by Mine.
const (
	FilterAll = "all"
)

// Service exposes order tracking to shoppers.
type Service struct {
	store  *Store
	logger *zap.Logger
}

func NewService(store *Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Track resolves a customer-facing order or booking id.
func (s *Service) Track(ctx context.Context, token string) (*Order, error) {
	o, err := Resolve(ctx, s.store, token)
	if err != nil && apperr.KindOf(err) == apperr.TransientIO {
		s.logger.Error("track order failed", zap.String("token", token), zap.Error(err))
	}
	return o, err
}

// Mine lists the session user's orders, newest first. filter is "all" (or
// empty) or one order kind.
func (s *Service) Mine(ctx context.Context, sess session.Session, filter string) ([]Order, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	kind := Kind(filter)
	if filter != "" && filter != FilterAll && !kind.Valid() {
		return nil, apperr.NewValidation("Unknown order type", map[string]string{"type": "oneof"})
	}
	all, err := s.store.ListByEmail(ctx, sess.Email)
	if err != nil {
		return nil, apperr.NewTransient("load orders", err)
	}
	if filter == "" || filter == FilterAll {
		return all, nil
	}
	out := make([]Order, 0, len(all))
	for _, o := range all {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out, nil
}
