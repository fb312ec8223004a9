package address

import (
	"context"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/watch-storefront/internal/apperr"
	"github.com/imrishuroy/watch-storefront/internal/session"
	"github.com/imrishuroy/watch-storefront/internal/validation"
)

// Service manages a shopper's saved addresses.
type Service struct {
	store    *Store
	validate *validatorv10.Validate
	logger   *zap.Logger
	nowFunc  func() time.Time
}

func NewService(store *Store, validate *validatorv10.Validate, logger *zap.Logger) *Service {
	return &Service{store: store, validate: validate, logger: logger, nowFunc: time.Now}
}

// Create validates and saves a new address for the session user.
func (s *Service) Create(ctx context.Context, sess session.Session, in Input) (*Address, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	in = in.Normalize()
	if err := validation.Check(s.validate, in); err != nil {
		return nil, err
	}

	a := Address{
		ID:          uuid.NewString(),
		UserID:      sess.UserID,
		FullName:    in.FullName,
		Phone:       in.Phone,
		Address:     in.Address,
		Address2:    in.Address2,
		City:        in.City,
		State:       in.State,
		Pincode:     in.Pincode,
		AddressType: in.AddressType,
		CreatedAt:   s.nowFunc(),
	}
	if err := s.store.Create(ctx, a); err != nil {
		s.logger.Error("save address failed", zap.String("user_id", sess.UserID), zap.Error(err))
		return nil, apperr.NewTransient("save address", err)
	}
	return &a, nil
}

// List returns the session user's addresses, newest first.
func (s *Service) List(ctx context.Context, sess session.Session) ([]Address, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	out, err := s.store.ListByUser(ctx, sess.UserID)
	if err != nil {
		return nil, apperr.NewTransient("load addresses", err)
	}
	return out, nil
}

// Get returns one of the session user's addresses. An address owned by
// someone else is NotFound.
func (s *Service) Get(ctx context.Context, sess session.Session, id string) (*Address, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, apperr.NewTransient("load address", err)
	}
	if a == nil || a.UserID != sess.UserID {
		return nil, apperr.NewNotFound("address", id)
	}
	return a, nil
}
