package usecase

import (
	"context"
	"errors"
	"time"

	"furnish-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type CouponStore interface {
	CouponByCode(ctx context.Context, code string) (*domain.Coupon, error)
	CouponByID(ctx context.Context, id uint) (*domain.Coupon, error)
	ListCoupons(ctx context.Context) ([]domain.Coupon, error)
	CreateCoupon(ctx context.Context, c *domain.Coupon) error
	SaveCoupon(ctx context.Context, c *domain.Coupon) error
	DeleteCoupon(ctx context.Context, id uint) error
}

type CouponService struct {
	Store CouponStore
	Now   func() time.Time
}

// CouponResult is the public answer of a validation. A failed validation
// carries only Valid=false so callers cannot tell why.
type CouponResult struct {
	Valid     bool              `json:"valid"`
	Code      string            `json:"code,omitempty"`
	Type      domain.CouponType `json:"type,omitempty"`
	Value     *decimal.Decimal  `json:"value,omitempty"`
	MinOrder  *decimal.Decimal  `json:"minOrder,omitempty"`
	ExpiresAt *time.Time        `json:"expiresAt,omitempty"`
	Discount  *decimal.Decimal  `json:"discount,omitempty"`
}

func (s *CouponService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Validate never fails on an unknown or ineligible code; only storage errors
// are returned.
func (s *CouponService) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (CouponResult, error) {
	c, discount, err := s.redeemable(ctx, code, subtotal)
	if err != nil || c == nil {
		return CouponResult{}, err
	}
	value := c.Value
	return CouponResult{
		Valid:     true,
		Code:      c.Code,
		Type:      c.Type,
		Value:     &value,
		MinOrder:  c.MinOrder,
		ExpiresAt: c.ExpiresAt,
		Discount:  &discount,
	}, nil
}

// redeemable returns the coupon and its discount, or a nil coupon when the
// code cannot be applied to subtotal.
func (s *CouponService) redeemable(ctx context.Context, code string, subtotal decimal.Decimal) (*domain.Coupon, decimal.Decimal, error) {
	code = domain.NormalizeCouponCode(code)
	if code == "" {
		return nil, decimal.Zero, nil
	}
	c, err := s.Store.CouponByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, decimal.Zero, nil
	}
	if err != nil {
		return nil, decimal.Zero, err
	}
	if !c.Redeemable(s.now(), subtotal) {
		return nil, decimal.Zero, nil
	}
	return c, c.Discount(subtotal), nil
}

type CouponInput struct {
	Code      string           `json:"code" validate:"required,max=64"`
	Type      string           `json:"type" validate:"required"`
	Value     decimal.Decimal  `json:"value"`
	MinOrder  *decimal.Decimal `json:"minOrder"`
	MaxUses   *int             `json:"maxUses" validate:"omitempty,gte=1"`
	Active    *bool            `json:"active"`
	ExpiresAt *time.Time       `json:"expiresAt"`
}

func (in CouponInput) apply(c *domain.Coupon) error {
	ve := check(in)
	t := domain.CouponType(domain.NormalizeCouponCode(in.Type))
	if in.Type != "" && !t.Valid() {
		ve.Add("type", "must be one of PERCENT FIXED")
	}
	if in.Value.IsNegative() {
		ve.Add("value", "must not be negative")
	}
	nonNegative(ve, "minOrder", in.MinOrder)
	if err := ve.Err(); err != nil {
		return err
	}
	c.Code = domain.NormalizeCouponCode(in.Code)
	c.Type = t
	c.Value = in.Value
	c.MinOrder = in.MinOrder
	c.MaxUses = in.MaxUses
	c.ExpiresAt = in.ExpiresAt
	if in.Active != nil {
		c.Active = *in.Active
	} else if c.ID == 0 {
		c.Active = true
	}
	return nil
}

func (s *CouponService) List(ctx context.Context) ([]domain.Coupon, error) {
	out, err := s.Store.ListCoupons(ctx)
	if out == nil && err == nil {
		out = []domain.Coupon{}
	}
	return out, err
}

func (s *CouponService) Create(ctx context.Context, in CouponInput) (*domain.Coupon, error) {
	c := &domain.Coupon{}
	if err := in.apply(c); err != nil {
		return nil, err
	}
	if err := s.Store.CreateCoupon(ctx, c); err != nil {
		return nil, storeErr(err, "coupon", "code")
	}
	return c, nil
}

func (s *CouponService) Update(ctx context.Context, id uint, in CouponInput) (*domain.Coupon, error) {
	c, err := s.Store.CouponByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "coupon", "")
	}
	if err := in.apply(c); err != nil {
		return nil, err
	}
	if err := s.Store.SaveCoupon(ctx, c); err != nil {
		return nil, storeErr(err, "coupon", "code")
	}
	return c, nil
}

func (s *CouponService) Delete(ctx context.Context, id uint) error {
	return storeErr(s.Store.DeleteCoupon(ctx, id), "coupon", "")
}

// storeErr maps storage sentinels onto request errors for the named entity
// and unique field.
func storeErr(err error, entity, uniqueField string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return ErrNotFound(entity)
	case errors.Is(err, domain.ErrDuplicate) && uniqueField != "":
		return duplicate(uniqueField)
	}
	return err
}
