package repo

import (
	"context"

	"furnish-backend/internal/domain"
)

func (s *Store) ListShippingRules(ctx context.Context, activeOnly bool) ([]domain.ShippingRule, error) {
	q := s.conn(ctx)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var out []domain.ShippingRule
	err := q.Order("base_cost ASC, id ASC").Find(&out).Error
	return out, translate(err)
}

// ShippingRuleByService returns the oldest active rule for the service type.
func (s *Store) ShippingRuleByService(ctx context.Context, t domain.ServiceType) (*domain.ShippingRule, error) {
	var r domain.ShippingRule
	err := s.conn(ctx).Where("service_type = ? AND active = ?", t, true).Order("id ASC").First(&r).Error
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) ShippingRuleByID(ctx context.Context, id uint) (*domain.ShippingRule, error) {
	var r domain.ShippingRule
	if err := s.conn(ctx).First(&r, id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) CreateShippingRule(ctx context.Context, r *domain.ShippingRule) error {
	return translate(s.conn(ctx).Create(r).Error)
}

func (s *Store) SaveShippingRule(ctx context.Context, r *domain.ShippingRule) error {
	res := s.conn(ctx).Model(&domain.ShippingRule{}).Where("id = ?", r.ID).
		Select("name", "service_type", "base_cost", "cost_per_kg", "zone_table", "active", "updated_at").
		Updates(r)
	return deleted(res)
}

func (s *Store) DeleteShippingRule(ctx context.Context, id uint) error {
	return deleted(s.conn(ctx).Delete(&domain.ShippingRule{}, id))
}
