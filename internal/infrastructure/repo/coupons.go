package repo

import (
	"context"

	"furnish-backend/internal/domain"
)

func (s *Store) CouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var c domain.Coupon
	if err := s.conn(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) CouponByID(ctx context.Context, id uint) (*domain.Coupon, error) {
	var c domain.Coupon
	if err := s.conn(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	var out []domain.Coupon
	err := s.conn(ctx).Order("created_at DESC, id DESC").Find(&out).Error
	return out, translate(err)
}

func (s *Store) CreateCoupon(ctx context.Context, c *domain.Coupon) error {
	return translate(s.conn(ctx).Create(c).Error)
}

// SaveCoupon writes every editable column; the use counter is left alone.
func (s *Store) SaveCoupon(ctx context.Context, c *domain.Coupon) error {
	res := s.conn(ctx).Model(&domain.Coupon{}).Where("id = ?", c.ID).
		Select("code", "type", "value", "min_order", "max_uses", "active", "expires_at", "updated_at").
		Updates(c)
	return deleted(res)
}

func (s *Store) DeleteCoupon(ctx context.Context, id uint) error {
	return deleted(s.conn(ctx).Delete(&domain.Coupon{}, id))
}
