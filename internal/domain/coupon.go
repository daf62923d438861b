package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponPercent CouponType = "PERCENT"
	CouponFixed   CouponType = "FIXED"
)

func (t CouponType) Valid() bool {
	return t == CouponPercent || t == CouponFixed
}

type Coupon struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	Code      string           `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Type      CouponType       `gorm:"size:16;not null" json:"type"`
	Value     decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"value"`
	MinOrder  *decimal.Decimal `gorm:"type:decimal(12,2)" json:"minOrder"`
	MaxUses   *int             `json:"maxUses"`
	Used      int              `gorm:"not null;default:0" json:"used"`
	Active    bool             `gorm:"not null" json:"active"`
	ExpiresAt *time.Time       `json:"expiresAt"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Redeemable applies the eligibility checks in order: active, not expired,
// uses left, positive subtotal, minimum order met.
func (c Coupon) Redeemable(now time.Time, subtotal decimal.Decimal) bool {
	if !c.Active {
		return false
	}
	if c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
		return false
	}
	if c.MaxUses != nil && c.Used >= *c.MaxUses {
		return false
	}
	if !subtotal.IsPositive() {
		return false
	}
	if c.MinOrder != nil && subtotal.LessThan(*c.MinOrder) {
		return false
	}
	return true
}

// Discount is always within [0, subtotal].
func (c Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	var d decimal.Decimal
	switch c.Type {
	case CouponPercent:
		d = subtotal.Mul(c.Value).Div(decimal.NewFromInt(100))
	case CouponFixed:
		d = c.Value
	default:
		return decimal.Zero
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	d = Round2(d)
	if d.GreaterThan(subtotal) {
		// subtotals may carry more than two decimals
		return subtotal.RoundFloor(2)
	}
	return d
}
