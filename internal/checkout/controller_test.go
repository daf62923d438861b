package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"furnish-backend/internal/domain"
	"furnish-backend/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	rules    []domain.ShippingRule
	orderErr error
	payErr   error
	orders   []usecase.CreateOrderInput
	payments []usecase.C2BInput
	nextID   uint
}

func (f *fakeAPI) ShippingRules(context.Context) ([]domain.ShippingRule, error) {
	return f.rules, nil
}

func (f *fakeAPI) ValidateCoupon(_ context.Context, code string, subtotal decimal.Decimal) (*usecase.CouponResult, error) {
	if code != "PROMO10" {
		return &usecase.CouponResult{Valid: false}, nil
	}
	d := subtotal.Mul(decimal.NewFromFloat(0.1)).Round(2)
	return &usecase.CouponResult{Valid: true, Code: "PROMO10", Type: domain.CouponPercent, Discount: &d}, nil
}

func (f *fakeAPI) CreateOrder(_ context.Context, in usecase.CreateOrderInput) (*domain.Order, error) {
	f.orders = append(f.orders, in)
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.nextID++
	return &domain.Order{ID: f.nextID, Status: domain.OrderPending, PaymentMethod: in.PaymentMethod, Total: decimal.NewFromInt(2600)}, nil
}

func (f *fakeAPI) InitiateC2B(_ context.Context, in usecase.C2BInput) (*usecase.C2BPayment, error) {
	f.payments = append(f.payments, in)
	if f.payErr != nil {
		return nil, f.payErr
	}
	return &usecase.C2BPayment{Reference: domain.PaymentReference(*in.OrderID, len(f.payments))}, nil
}

func (f *fakeAPI) Order(_ context.Context, id uint) (*domain.Order, error) {
	return &domain.Order{ID: id}, nil
}

func newController(t *testing.T, api *fakeAPI) (*Controller, *[]Phase) {
	t.Helper()
	cart, err := NewCart(&MemoryStorage{})
	require.NoError(t, err)
	require.NoError(t, cart.Add(sofa(2)))
	c := NewController(cart, api, slog.New(slog.NewTextHandler(io.Discard, nil)))
	var seen []Phase
	c.OnTransition = func(_, to Phase) { seen = append(seen, to) }
	return c, &seen
}

func form(payment string) Form {
	return Form{
		ShippingMethod: "standard",
		PaymentMethod:  payment,
		Customer:       usecase.CustomerInput{Name: "Ana", Guest: true},
		Address:        usecase.AddressInput{Name: "Ana", Phone: "84 123 4567", Province: "Maputo", City: "Maputo", Neighborhood: "Sommerschield"},
	}
}

func TestSubmitMobileMoney(t *testing.T) {
	api := &fakeAPI{}
	c, seen := newController(t, api)

	conf, err := c.Submit(context.Background(), form("mpesa"))
	require.NoError(t, err)
	assert.Equal(t, uint(1), conf.OrderID)
	assert.Equal(t, "/order/confirmation/1", conf.Path)
	assert.Equal(t, "ORD1-1", conf.Reference)
	assert.Equal(t, []Phase{PhaseValidating, PhaseSubmittingOrder, PhaseSubmittingPayment, PhaseDone}, *seen)
	assert.True(t, c.Cart.Empty())

	require.Len(t, api.orders, 1)
	in := api.orders[0]
	assert.Equal(t, "STANDARD", in.ShippingMethod)
	assert.Equal(t, "MPESA", in.PaymentMethod)
	require.Len(t, in.Items, 1)
	assert.Equal(t, 2, in.Items[0].Quantity)

	require.Len(t, api.payments, 1)
	p := api.payments[0]
	assert.Equal(t, "MPESA", p.Provider)
	assert.Equal(t, "84 123 4567", p.Phone)
	assert.True(t, p.Amount.Equal(decimal.NewFromInt(2600)))
}

func TestSubmitBankSkipsPayment(t *testing.T) {
	api := &fakeAPI{}
	c, seen := newController(t, api)

	conf, err := c.Submit(context.Background(), form("bank"))
	require.NoError(t, err)
	assert.Empty(t, conf.Reference)
	assert.Empty(t, api.payments)
	assert.Equal(t, []Phase{PhaseValidating, PhaseSubmittingOrder, PhaseDone}, *seen)
}

func TestSubmitValidation(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newController(t, api)
	require.NoError(t, c.Cart.Clear())

	f := form("emola")
	f.Address.City = ""
	f.Address.Phone = "abc"
	_, err := c.Submit(context.Background(), f)
	var fe *FormError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Fields, "cart")
	assert.Contains(t, fe.Fields, "address.city")
	assert.Contains(t, fe.Fields, "address.phone")
	assert.Contains(t, fe.Fields, "paymentPhone")
	assert.Equal(t, PhaseEditing, c.Phase())
	assert.Empty(t, api.orders)

	// pickup needs no address
	require.NoError(t, c.Cart.Add(sofa(1)))
	f = form("bank")
	f.ShippingMethod = "pickup"
	f.Address = usecase.AddressInput{}
	assert.Nil(t, c.Validate(f))

	f.PaymentMethod = ""
	fe = c.Validate(f)
	require.NotNil(t, fe)
	assert.Contains(t, fe.Fields, "paymentMethod")
}

func TestOrderFailureKeepsCart(t *testing.T) {
	api := &fakeAPI{orderErr: &APIError{Status: 409, Code: "insufficient_stock", Message: "insufficient stock for product 5"}}
	c, seen := newController(t, api)

	_, err := c.Submit(context.Background(), form("mpesa"))
	require.Error(t, err)
	assert.Equal(t, []Phase{PhaseValidating, PhaseSubmittingOrder, PhaseError, PhaseEditing}, *seen)
	assert.Equal(t, PhaseEditing, c.Phase())
	assert.Contains(t, c.Message(), "insufficient stock for product 5")
	assert.Len(t, c.Cart.Lines(), 1)
	assert.Empty(t, api.payments)
}

func TestPaymentFailureLeavesOrderPending(t *testing.T) {
	api := &fakeAPI{payErr: errors.New("gateway timeout")}
	c, seen := newController(t, api)

	_, err := c.Submit(context.Background(), form("mpesa"))
	require.Error(t, err)
	assert.Equal(t, []Phase{PhaseValidating, PhaseSubmittingOrder, PhaseSubmittingPayment, PhaseError, PhaseEditing}, *seen)
	assert.Contains(t, c.Message(), "order #1 was created")
	assert.False(t, c.Cart.Empty())
	require.NotNil(t, c.PendingOrder())

	api.payErr = nil
	f := form("mpesa")
	f.PaymentPhone = "85 765 4321"
	conf, err := c.RetryPayment(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, uint(1), conf.OrderID)
	assert.Len(t, api.orders, 1, "retry does not create another order")
	assert.Equal(t, "85 765 4321", api.payments[1].Phone)
	assert.True(t, c.Cart.Empty())
	assert.Nil(t, c.PendingOrder())
}

func TestRetryPaymentWithoutPendingOrder(t *testing.T) {
	c, seen := newController(t, &fakeAPI{})
	_, err := c.RetryPayment(context.Background(), form("mpesa"))
	require.Error(t, err)
	assert.Equal(t, PhaseEditing, c.Phase())
	assert.Equal(t, []Phase{PhaseValidating, PhaseEditing}, *seen)
}

// gatedAPI holds CreateOrder until release is closed.
type gatedAPI struct {
	*fakeAPI
	mu      sync.Mutex
	release chan struct{}
}

func (g *gatedAPI) CreateOrder(ctx context.Context, in usecase.CreateOrderInput) (*domain.Order, error) {
	<-g.release
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fakeAPI.CreateOrder(ctx, in)
}

func TestConcurrentSubmitPlacesOneOrder(t *testing.T) {
	const n = 8
	api := &gatedAPI{fakeAPI: &fakeAPI{}, release: make(chan struct{})}
	cart, err := NewCart(&MemoryStorage{})
	require.NoError(t, err)
	require.NoError(t, cart.Add(sofa(1)))
	c := NewController(cart, api, slog.New(slog.NewTextHandler(io.Discard, nil)))

	start := make(chan struct{})
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			<-start
			_, err := c.Submit(context.Background(), form("bank"))
			errs <- err
		}()
	}
	close(start)

	for i := 0; i < n-1; i++ {
		select {
		case err := <-errs:
			require.ErrorIs(t, err, ErrBusy)
		case <-time.After(5 * time.Second):
			close(api.release)
			t.Fatalf("only %d submissions were refused", i)
		}
	}
	close(api.release)
	require.NoError(t, <-errs)
	assert.Len(t, api.orders, 1)
	assert.Equal(t, PhaseDone, c.Phase())
}

func TestQuoteWithShippingAndCoupon(t *testing.T) {
	perKg := decimal.NewFromInt(5)
	api := &fakeAPI{rules: []domain.ShippingRule{
		{Name: "Normal", ServiceType: domain.ServiceStandard, BaseCost: decimal.NewFromInt(200), Active: true},
		{Name: "Zonas", ServiceType: domain.ServiceZone, BaseCost: decimal.NewFromInt(100), CostPerKg: &perKg, Active: true},
	}}
	c, _ := newController(t, api)
	ctx := context.Background()
	require.NoError(t, c.LoadShipping(ctx))

	q := c.Quote("standard")
	assert.Equal(t, "2400.00", q.Subtotal.StringFixed(2))
	assert.Equal(t, "2600.00", q.Total.StringFixed(2))

	// two sofas at 30kg
	q = c.Quote("zone")
	assert.Equal(t, "400.00", q.Shipping.StringFixed(2))

	q = c.Quote("express")
	assert.True(t, q.Shipping.IsZero())
	assert.NotEmpty(t, q.Warning)
	assert.Empty(t, c.Quote("pickup").Warning)

	ok, err := c.ApplyCoupon(ctx, "NOPE")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.ApplyCoupon(ctx, "PROMO10")
	require.NoError(t, err)
	assert.True(t, ok)
	q = c.Quote("standard")
	assert.Equal(t, "240.00", q.Discount.StringFixed(2))
	assert.Equal(t, "2360.00", q.Total.StringFixed(2))

	_, err = c.Submit(ctx, form("bank"))
	require.NoError(t, err)
	assert.Equal(t, "PROMO10", api.orders[0].CouponCode)
}
