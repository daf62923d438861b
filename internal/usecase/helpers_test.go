package usecase

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"furnish-backend/internal/domain"
	"furnish-backend/internal/infrastructure/e2"
	"furnish-backend/internal/infrastructure/repo"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newStore(t *testing.T) *repo.Store {
	t.Helper()
	s, err := repo.Open(repo.Options{
		Driver: repo.DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		Logger: quiet,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

type shop struct {
	store    *repo.Store
	orders   *OrderService
	coupons  *CouponService
	shipping *ShippingService
	payments *PaymentService
	gateway  *fakeGateway
	now      time.Time
}

func newShop(t *testing.T) *shop {
	t.Helper()
	sh := &shop{store: newStore(t), now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), gateway: &fakeGateway{}}
	clock := func() time.Time { return sh.now }
	sh.coupons = &CouponService{Store: sh.store, Now: clock}
	sh.shipping = &ShippingService{Store: sh.store, Log: quiet}
	sh.orders = &OrderService{Store: sh.store, Shipping: sh.shipping, Coupons: sh.coupons, StockPolicy: StockReserve, Log: quiet}
	sh.payments = &PaymentService{
		Store:     sh.store,
		Gateway:   sh.gateway,
		WalletIDs: map[e2.Provider]string{e2.ProviderMpesa: "900001", e2.ProviderEmola: "900002"},
		Events:    repo.NewMemoryEventLog(time.Hour),
		Orders:    sh.orders,
		Log:       quiet,
	}
	return sh
}

func (sh *shop) product(t *testing.T, id uint, price int64, stock int, weight string) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:       id,
		Name:     "Product " + uuid.NewString()[:8],
		Slug:     uuid.NewString(),
		Price:    decimal.NewFromInt(price),
		Stock:    stock,
		WeightKg: decimal.RequireFromString(weight),
		Active:   true,
		Images:   []domain.ProductImage{{URL: "/img/main.jpg"}},
	}
	require.NoError(t, sh.store.CreateProduct(context.Background(), p))
	return p
}

func (sh *shop) rule(t *testing.T, st domain.ServiceType, base int64, perKg *int64) {
	t.Helper()
	r := &domain.ShippingRule{Name: string(st) + " rule", ServiceType: st, BaseCost: decimal.NewFromInt(base), Active: true}
	if perKg != nil {
		d := decimal.NewFromInt(*perKg)
		r.CostPerKg = &d
	}
	require.NoError(t, sh.store.CreateShippingRule(context.Background(), r))
}

func address() *AddressInput {
	return &AddressInput{Name: "Ana Macuácua", Phone: "84 123 4567", Province: "Maputo", City: "Maputo", Neighborhood: "Polana Cimento"}
}

func guestOrder(items ...OrderItemInput) CreateOrderInput {
	return CreateOrderInput{
		Items:          items,
		ShippingMethod: "standard",
		PaymentMethod:  "mpesa",
		Customer:       CustomerInput{Name: "Ana", Email: "ana@example.com", Guest: true},
		Address:        address(),
	}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	ve, ok := err.(*ValidationError)
	require.True(t, ok, "want *ValidationError, got %T: %v", err, err)
	var out []string
	for _, f := range ve.Fields {
		out = append(out, f.Field)
	}
	return out
}

type fakeGateway struct {
	mu    sync.Mutex
	calls []e2.C2BRequest
	err   error
}

func (g *fakeGateway) PayC2B(_ context.Context, in e2.C2BRequest) (*e2.C2BResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, in)
	if g.err != nil {
		return nil, g.err
	}
	return &e2.C2BResult{Provider: in.Provider, Phone: in.Phone, Reference: in.Reference, Payload: json.RawMessage(`{"success":"queued"}`)}, nil
}

func (g *fakeGateway) ListWallets(context.Context, e2.Provider) (json.RawMessage, error) {
	return json.RawMessage(`{"wallets":[]}`), nil
}

func (g *fakeGateway) ListPayments(context.Context, e2.Provider) (json.RawMessage, error) {
	return json.RawMessage(`{"payments":[]}`), nil
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}
