package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"furnish-backend/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientRoundTrips(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var in usecase.CreateOrderInput
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "STANDARD", in.ShippingMethod)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":12,"status":"pending","total":"2600.00","paymentMethod":"MPESA","items":[]}`))
	})
	mux.HandleFunc("/api/coupons/validate", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "promo10", r.URL.Query().Get("code"))
		assert.Equal(t, "2400.00", r.URL.Query().Get("subtotal"))
		_, _ = w.Write([]byte(`{"valid":true,"code":"PROMO10","discount":"240"}`))
	})
	mux.HandleFunc("/api/shipping/rules", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"name":"Normal","serviceType":"STANDARD","baseCost":"200","active":true,"zones":{"Maputo":{"Baixa":"25"}}}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", "tok")
	ctx := context.Background()

	o, err := c.CreateOrder(ctx, usecase.CreateOrderInput{ShippingMethod: "STANDARD"})
	require.NoError(t, err)
	assert.Equal(t, uint(12), o.ID)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(2600)))

	res, err := c.ValidateCoupon(ctx, "promo10", decimal.NewFromInt(2400))
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "240", res.Discount.String())

	rules, err := c.ShippingRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "Normal", rules[0].Name)
}

func TestHTTPClientDecodesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"validation_error","message":"validation failed","requestId":"r1","fields":[{"field":"address.city","message":"is required"}]}}`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, "").CreateOrder(context.Background(), usecase.CreateOrderInput{})
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Equal(t, "validation_error", ae.Code)
	require.Len(t, ae.Fields, 1)
	assert.Equal(t, "address.city", ae.Fields[0].Field)
}

func TestHTTPClientProductLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/sofa-azul", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":7,"name":"Sofá Azul","price":"1200","weightKg":"30","images":["/img/s1.jpg","/img/s2.jpg"],"inStock":true}`))
	}))
	defer srv.Close()

	l, err := NewHTTPClient(srv.URL, "").ProductLine(context.Background(), "sofa-azul", 2)
	require.NoError(t, err)
	assert.Equal(t, uint(7), l.ProductID)
	assert.Equal(t, 2, l.Quantity)
	assert.Equal(t, "/img/s1.jpg", l.Image)
	assert.True(t, l.Price.Equal(decimal.NewFromInt(1200)))
}
