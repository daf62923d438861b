package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"furnish-backend/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZoneEstimateMonotonic(t *testing.T) {
	per := decimal.NewFromInt(50)
	r := domain.ShippingRule{ServiceType: domain.ServiceZone, BaseCost: decimal.NewFromInt(200), CostPerKg: &per}

	assert.Equal(t, "200", domain.EstimateShipping(r, decimal.Zero).String())
	assert.Equal(t, "350", domain.EstimateShipping(r, decimal.NewFromInt(3)).String())
	assert.Equal(t, "200", domain.EstimateShipping(r, decimal.NewFromInt(-4)).String())

	prev := decimal.Zero
	for w := decimal.Zero; w.LessThan(decimal.NewFromInt(40)); w = w.Add(decimal.RequireFromString("0.37")) {
		c := domain.EstimateShipping(r, w)
		assert.False(t, c.LessThan(prev), "cost dropped at %s kg", w)
		prev = c
	}
}

func TestEstimateByServiceType(t *testing.T) {
	sh := newShop(t)
	ctx := context.Background()
	sh.rule(t, domain.ServiceStandard, 200, nil)
	sh.rule(t, domain.ServicePickup, 999, nil)
	sh.rule(t, domain.ServiceZone, 200, int64p(50))

	for _, tc := range []struct {
		method string
		weight string
		cost   string
	}{
		{"standard", "12", "200"},
		{"PICKUP", "12", "0"},
		{"zone", "3", "350"},
	} {
		est, err := sh.shipping.Estimate(ctx, tc.method, decimal.RequireFromString(tc.weight))
		require.NoError(t, err)
		assert.Equal(t, tc.cost, est.Cost.String(), tc.method)
		assert.Empty(t, est.Warning)
	}

	est, err := sh.shipping.Estimate(ctx, "express", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.True(t, est.Cost.IsZero())
	assert.Contains(t, est.Warning, "EXPRESS")

	_, err = sh.shipping.Estimate(ctx, "drone", decimal.Zero)
	assert.Equal(t, []string{"method"}, fieldNames(t, err))
}

func TestShippingRuleZoneTableValidation(t *testing.T) {
	sh := newShop(t)
	ctx := context.Background()

	_, err := sh.shipping.Create(ctx, ShippingRuleInput{
		Name: "Zonas", ServiceType: "ZONE", BaseCost: decimal.NewFromInt(100),
		CostPerKg: dec("-1"), Zones: json.RawMessage(`["Maputo"]`),
	})
	assert.ElementsMatch(t, []string{"costPerKg", "zones"}, fieldNames(t, err))

	_, err = sh.shipping.Create(ctx, ShippingRuleInput{
		Name: "Zonas", ServiceType: "ZONE", Zones: json.RawMessage(`{"Maputo":{"Matola":-5}}`),
	})
	assert.Equal(t, []string{"zones"}, fieldNames(t, err))

	r, err := sh.shipping.Create(ctx, ShippingRuleInput{
		Name: "Zonas", ServiceType: "zone", BaseCost: decimal.NewFromInt(100), CostPerKg: dec("20"),
		Zones: json.RawMessage(`{"Maputo":{"Matola":50,"Baixa":25}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ServiceZone, r.ServiceType)
	assert.Equal(t, "50", r.Zones()["Maputo"]["Matola"].String())

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"zones":{"Maputo"`)
	assert.NotContains(t, string(raw), "ZoneTable")

	_, err = sh.shipping.Create(ctx, ShippingRuleInput{Name: "Zonas", ServiceType: "STANDARD"})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "name", ce.Field)
}
