package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ServiceType string

const (
	ServiceStandard ServiceType = "STANDARD"
	ServicePickup   ServiceType = "PICKUP"
	ServiceZone     ServiceType = "ZONE"
	ServiceExpress  ServiceType = "EXPRESS"
)

func ParseServiceType(s string) (ServiceType, bool) {
	t := ServiceType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case ServiceStandard, ServicePickup, ServiceZone, ServiceExpress:
		return t, true
	}
	return "", false
}

type ShippingRule struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Name        string           `gorm:"size:120;uniqueIndex;not null" json:"name"`
	ServiceType ServiceType      `gorm:"size:16;index;not null" json:"serviceType"`
	BaseCost    decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"baseCost"`
	CostPerKg   *decimal.Decimal `gorm:"type:decimal(12,2)" json:"costPerKg"`
	ZoneTable   string           `gorm:"type:text" json:"-"`
	Active      bool             `gorm:"not null" json:"active"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// ZoneTable maps province -> neighborhood -> surcharge.
type ZoneTable map[string]map[string]decimal.Decimal

func ParseZoneTable(raw string) (ZoneTable, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var zt ZoneTable
	if err := json.Unmarshal([]byte(raw), &zt); err != nil {
		return nil, err
	}
	return zt, nil
}

func (r ShippingRule) Zones() ZoneTable {
	zt, _ := ParseZoneTable(r.ZoneTable)
	return zt
}

func (r ShippingRule) MarshalJSON() ([]byte, error) {
	type plain ShippingRule
	return json.Marshal(struct {
		plain
		Zones ZoneTable `json:"zones,omitempty"`
	}{plain(r), r.Zones()})
}

// EstimateShipping computes the cost of shipping weightKg with the rule.
// Zone tables are not consulted; ZONE uses the flat per-kilogram surcharge.
func EstimateShipping(r ShippingRule, weightKg decimal.Decimal) decimal.Decimal {
	switch r.ServiceType {
	case ServicePickup:
		return decimal.Zero
	case ServiceZone:
		w := decimal.Max(decimal.Zero, weightKg)
		perKg := decimal.Zero
		if r.CostPerKg != nil {
			perKg = *r.CostPerKg
		}
		return Round2(r.BaseCost.Add(perKg.Mul(w)))
	default:
		return Round2(r.BaseCost)
	}
}

func (zt ZoneTable) HasNegative() bool {
	for _, hoods := range zt {
		for _, cost := range hoods {
			if cost.IsNegative() {
				return true
			}
		}
	}
	return false
}
