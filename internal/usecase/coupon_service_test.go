package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"furnish-backend/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCouponValidateExpired(t *testing.T) {
	sh := newShop(t)
	yesterday := sh.now.Add(-24 * time.Hour)
	require.NoError(t, sh.store.CreateCoupon(context.Background(), &domain.Coupon{
		Code: "OLD10", Type: domain.CouponPercent, Value: decimal.NewFromInt(10), Active: true, ExpiresAt: &yesterday,
	}))

	res, err := sh.coupons.Validate(context.Background(), "old10", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.False(t, res.Valid)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"valid":false}`, string(raw))
}

func TestCouponValidateMinOrder(t *testing.T) {
	sh := newShop(t)
	min := decimal.NewFromInt(5000)
	require.NoError(t, sh.store.CreateCoupon(context.Background(), &domain.Coupon{
		Code: "BIG", Type: domain.CouponFixed, Value: decimal.NewFromInt(200), MinOrder: &min, Active: true,
	}))

	res, err := sh.coupons.Validate(context.Background(), "BIG", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.False(t, res.Valid)

	res, err = sh.coupons.Validate(context.Background(), " big ", decimal.NewFromInt(6000))
	require.NoError(t, err)
	require.True(t, res.Valid)
	assert.Equal(t, "BIG", res.Code)
	assert.Equal(t, "200", res.Discount.String())
	assert.Equal(t, "5000", res.MinOrder.String())
}

func TestCouponValidateIneligible(t *testing.T) {
	sh := newShop(t)
	ctx := context.Background()
	one := 1
	tomorrow := sh.now.Add(24 * time.Hour)
	for _, c := range []*domain.Coupon{
		{Code: "OFF", Type: domain.CouponFixed, Value: decimal.NewFromInt(10), Active: false},
		{Code: "USED", Type: domain.CouponFixed, Value: decimal.NewFromInt(10), Active: true, MaxUses: &one, Used: 1},
		{Code: "LATER", Type: domain.CouponFixed, Value: decimal.NewFromInt(10), Active: true, ExpiresAt: &tomorrow},
	} {
		require.NoError(t, sh.store.CreateCoupon(ctx, c))
	}

	for _, tc := range []struct {
		code     string
		subtotal int64
		valid    bool
	}{
		{"OFF", 100, false},
		{"USED", 100, false},
		{"MISSING", 100, false},
		{"", 100, false},
		{"LATER", 0, false},
		{"LATER", -5, false},
		{"LATER", 100, true},
	} {
		res, err := sh.coupons.Validate(ctx, tc.code, decimal.NewFromInt(tc.subtotal))
		require.NoError(t, err)
		assert.Equal(t, tc.valid, res.Valid, "%s / %d", tc.code, tc.subtotal)
	}
}

func TestCouponDiscountBounds(t *testing.T) {
	subtotals := []string{"0.005", "0.015", "0.01", "1", "2.675", "99.99", "1000", "123456.78"}
	values := []string{"0", "0.5", "10", "33.333", "100", "150", "999999"}
	for _, typ := range []domain.CouponType{domain.CouponPercent, domain.CouponFixed} {
		for _, v := range values {
			c := domain.Coupon{Type: typ, Value: decimal.RequireFromString(v), Active: true}
			for _, s := range subtotals {
				sub := decimal.RequireFromString(s)
				d := c.Discount(sub)
				assert.False(t, d.IsNegative(), "%s %s on %s", typ, v, s)
				assert.False(t, d.GreaterThan(sub), "%s %s on %s gave %s", typ, v, s, d)
			}
		}
	}

	full := domain.Coupon{Type: domain.CouponPercent, Value: decimal.NewFromInt(100), Active: true}
	assert.True(t, full.Discount(decimal.RequireFromString("0.005")).IsZero())
	assert.Equal(t, "0.01", full.Discount(decimal.RequireFromString("0.015")).StringFixed(2))
}

func TestCouponCRUD(t *testing.T) {
	sh := newShop(t)
	ctx := context.Background()

	_, err := sh.coupons.Create(ctx, CouponInput{Code: "", Type: "HALF", Value: decimal.NewFromInt(-1)})
	assert.ElementsMatch(t, []string{"code", "type", "value"}, fieldNames(t, err))

	c, err := sh.coupons.Create(ctx, CouponInput{Code: "welcome", Type: "percent", Value: decimal.NewFromInt(15)})
	require.NoError(t, err)
	assert.Equal(t, "WELCOME", c.Code)
	assert.Equal(t, domain.CouponPercent, c.Type)
	assert.True(t, c.Active)

	_, err = sh.coupons.Create(ctx, CouponInput{Code: "WELCOME", Type: "FIXED", Value: decimal.NewFromInt(1)})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "code", ce.Field)

	off := false
	c, err = sh.coupons.Update(ctx, c.ID, CouponInput{Code: "WELCOME", Type: "FIXED", Value: decimal.NewFromInt(50), Active: &off})
	require.NoError(t, err)
	assert.False(t, c.Active)

	require.NoError(t, sh.coupons.Delete(ctx, c.ID))
	var nf ErrNotFound
	require.ErrorAs(t, sh.coupons.Delete(ctx, c.ID), &nf)
}
