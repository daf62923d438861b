package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"furnish-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type ShippingStore interface {
	ListShippingRules(ctx context.Context, activeOnly bool) ([]domain.ShippingRule, error)
	ShippingRuleByService(ctx context.Context, t domain.ServiceType) (*domain.ShippingRule, error)
	ShippingRuleByID(ctx context.Context, id uint) (*domain.ShippingRule, error)
	CreateShippingRule(ctx context.Context, r *domain.ShippingRule) error
	SaveShippingRule(ctx context.Context, r *domain.ShippingRule) error
	DeleteShippingRule(ctx context.Context, id uint) error
}

type ShippingService struct {
	Store ShippingStore
	Log   *slog.Logger
}

type ShippingEstimate struct {
	Method   domain.ServiceType `json:"method"`
	WeightKg decimal.Decimal    `json:"weightKg"`
	Cost     decimal.Decimal    `json:"cost"`
	Rule     string             `json:"rule,omitempty"`
	Warning  string             `json:"warning,omitempty"`
}

func (s *ShippingService) Rules(ctx context.Context, activeOnly bool) ([]domain.ShippingRule, error) {
	out, err := s.Store.ListShippingRules(ctx, activeOnly)
	if out == nil && err == nil {
		out = []domain.ShippingRule{}
	}
	return out, err
}

func (s *ShippingService) Estimate(ctx context.Context, method string, weightKg decimal.Decimal) (*ShippingEstimate, error) {
	t, ok := domain.ParseServiceType(method)
	if !ok {
		ve := &ValidationError{}
		ve.Add("method", "must be one of STANDARD PICKUP ZONE EXPRESS")
		return nil, ve
	}
	return s.Resolve(ctx, t, weightKg)
}

// Resolve prices a shipment with the active rule for t. A missing rule is a
// configuration problem, not a request error: the cost falls back to 0 and a
// warning is returned.
func (s *ShippingService) Resolve(ctx context.Context, t domain.ServiceType, weightKg decimal.Decimal) (*ShippingEstimate, error) {
	est := &ShippingEstimate{Method: t, WeightKg: weightKg, Cost: decimal.Zero}
	r, err := s.Store.ShippingRuleByService(ctx, t)
	if errors.Is(err, domain.ErrNotFound) {
		if t == domain.ServicePickup {
			return est, nil
		}
		est.Warning = fmt.Sprintf("no active %s shipping rule configured", t)
		s.logger().Warn("shipping rule missing", "service_type", t)
		return est, nil
	}
	if err != nil {
		return nil, err
	}
	est.Rule = r.Name
	est.Cost = domain.EstimateShipping(*r, weightKg)
	return est, nil
}

func (s *ShippingService) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

type ShippingRuleInput struct {
	Name        string           `json:"name" validate:"required,max=120"`
	ServiceType string           `json:"serviceType" validate:"required"`
	BaseCost    decimal.Decimal  `json:"baseCost"`
	CostPerKg   *decimal.Decimal `json:"costPerKg"`
	Zones       json.RawMessage  `json:"zones"`
	Active      *bool            `json:"active"`
}

func (in ShippingRuleInput) apply(r *domain.ShippingRule) error {
	ve := check(in)
	t, ok := domain.ParseServiceType(in.ServiceType)
	if in.ServiceType != "" && !ok {
		ve.Add("serviceType", "must be one of STANDARD PICKUP ZONE EXPRESS")
	}
	if in.BaseCost.IsNegative() {
		ve.Add("baseCost", "must not be negative")
	}
	nonNegative(ve, "costPerKg", in.CostPerKg)
	zones := ""
	if len(in.Zones) > 0 && string(in.Zones) != "null" {
		zt, err := domain.ParseZoneTable(string(in.Zones))
		switch {
		case err != nil:
			ve.Add("zones", "must map province to neighborhood to cost")
		case zt.HasNegative():
			ve.Add("zones", "costs must not be negative")
		default:
			zones = string(in.Zones)
		}
	}
	if err := ve.Err(); err != nil {
		return err
	}
	r.Name = in.Name
	r.ServiceType = t
	r.BaseCost = in.BaseCost
	r.CostPerKg = in.CostPerKg
	r.ZoneTable = zones
	if in.Active != nil {
		r.Active = *in.Active
	} else if r.ID == 0 {
		r.Active = true
	}
	return nil
}

func (s *ShippingService) Create(ctx context.Context, in ShippingRuleInput) (*domain.ShippingRule, error) {
	r := &domain.ShippingRule{}
	if err := in.apply(r); err != nil {
		return nil, err
	}
	if err := s.Store.CreateShippingRule(ctx, r); err != nil {
		return nil, storeErr(err, "shipping rule", "name")
	}
	return r, nil
}

func (s *ShippingService) Update(ctx context.Context, id uint, in ShippingRuleInput) (*domain.ShippingRule, error) {
	r, err := s.Store.ShippingRuleByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "shipping rule", "")
	}
	if err := in.apply(r); err != nil {
		return nil, err
	}
	if err := s.Store.SaveShippingRule(ctx, r); err != nil {
		return nil, storeErr(err, "shipping rule", "name")
	}
	return r, nil
}

func (s *ShippingService) Delete(ctx context.Context, id uint) error {
	return storeErr(s.Store.DeleteShippingRule(ctx, id), "shipping rule", "")
}
