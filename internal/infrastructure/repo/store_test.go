package repo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"furnish-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{
		Driver: DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedProduct(t *testing.T, s *Store, name string, price int64, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		Name:   name,
		Slug:   uuid.NewString(),
		Price:  decimal.NewFromInt(price),
		Stock:  stock,
		Active: true,
		Images: []domain.ProductImage{{URL: "/img/" + name + "-b.jpg", Position: 1}, {URL: "/img/" + name + "-a.jpg", Position: 0}},
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func newOrder(items ...domain.OrderItem) *domain.Order {
	sub := decimal.Zero
	for _, it := range items {
		sub = sub.Add(it.LineTotal())
	}
	return &domain.Order{
		Status:         domain.OrderPending,
		Subtotal:       sub,
		ShippingCost:   decimal.NewFromInt(200),
		Total:          sub.Add(decimal.NewFromInt(200)),
		ShippingMethod: "STANDARD",
		PaymentMethod:  "MPESA",
		GuestName:      "Ana",
		Items:          items,
		Address:        &domain.OrderAddress{Name: "Ana", Phone: "841234567", Province: "Maputo", City: "Maputo", Neighborhood: "Sommerschield"},
	}
}

func count(t *testing.T, s *Store, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(model).Count(&n).Error)
	return n
}

func TestPlaceOrderReservesStockAndRedeemsCoupon(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sofa := seedProduct(t, s, "sofa", 1200, 5)
	maxUses := 2
	c := &domain.Coupon{Code: "WELCOME", Type: domain.CouponFixed, Value: decimal.NewFromInt(100), MaxUses: &maxUses, Active: true}
	require.NoError(t, s.CreateCoupon(ctx, c))

	o := newOrder(domain.OrderItem{ProductID: sofa.ID, Name: sofa.Name, UnitPrice: sofa.Price, Quantity: 2})
	require.NoError(t, s.PlaceOrder(ctx, o, true, &c.ID))
	require.NotZero(t, o.ID)

	got, err := s.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, got.Status)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	require.NotNil(t, got.Address)
	assert.Equal(t, "Sommerschield", got.Address.Neighborhood)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(2600)))

	p, err := s.ProductByID(ctx, sofa.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	c2, err := s.CouponByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c2.Used)
}

func TestPlaceOrderIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sofa := seedProduct(t, s, "sofa", 1200, 5)
	lamp := seedProduct(t, s, "lamp", 300, 1)

	o := newOrder(
		domain.OrderItem{ProductID: sofa.ID, Name: sofa.Name, UnitPrice: sofa.Price, Quantity: 2},
		domain.OrderItem{ProductID: lamp.ID, Name: lamp.Name, UnitPrice: lamp.Price, Quantity: 3},
	)
	err := s.PlaceOrder(ctx, o, true, nil)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Zero(t, count(t, s, &domain.Order{}))
	assert.Zero(t, count(t, s, &domain.OrderItem{}))
	assert.Zero(t, count(t, s, &domain.OrderAddress{}))

	p, err := s.ProductByID(ctx, sofa.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock, "first item's reservation is rolled back")
}

func TestPlaceOrderAdvisoryStock(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	lamp := seedProduct(t, s, "lamp", 300, 1)

	o := newOrder(domain.OrderItem{ProductID: lamp.ID, Name: lamp.Name, UnitPrice: lamp.Price, Quantity: 3})
	require.NoError(t, s.PlaceOrder(ctx, o, false, nil))

	p, err := s.ProductByID(ctx, lamp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stock)
}

func TestPlaceOrderCouponExhausted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sofa := seedProduct(t, s, "sofa", 1200, 5)
	maxUses := 1
	c := &domain.Coupon{Code: "ONCE", Type: domain.CouponPercent, Value: decimal.NewFromInt(10), MaxUses: &maxUses, Used: 1, Active: true}
	require.NoError(t, s.CreateCoupon(ctx, c))

	o := newOrder(domain.OrderItem{ProductID: sofa.ID, Name: sofa.Name, UnitPrice: sofa.Price, Quantity: 1})
	err := s.PlaceOrder(ctx, o, true, &c.ID)
	require.ErrorIs(t, err, domain.ErrCouponExhausted)
	assert.Zero(t, count(t, s, &domain.Order{}))

	p, err := s.ProductByID(ctx, sofa.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
}

func TestTransitionOrderOnlyFromExpectedStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sofa := seedProduct(t, s, "sofa", 1200, 5)
	o := newOrder(domain.OrderItem{ProductID: sofa.ID, Name: sofa.Name, UnitPrice: sofa.Price, Quantity: 1})
	require.NoError(t, s.PlaceOrder(ctx, o, false, nil))

	changed, err := s.TransitionOrder(ctx, o.ID, domain.OrderPending, domain.OrderPaid)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.TransitionOrder(ctx, o.ID, domain.OrderPending, domain.OrderCancelled)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := s.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, got.Status)
}

func TestUpdateOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sofa := seedProduct(t, s, "sofa", 1200, 5)
	o := newOrder(domain.OrderItem{ProductID: sofa.ID, Name: sofa.Name, UnitPrice: sofa.Price, Quantity: 1})
	require.NoError(t, s.PlaceOrder(ctx, o, false, nil))

	got, err := s.UpdateOrder(ctx, o.ID, func(o *domain.Order) error {
		o.Status = domain.OrderShipped
		o.Notes = "left with the guard"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderShipped, got.Status)

	reloaded, err := s.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "left with the guard", reloaded.Notes)
	assert.Len(t, reloaded.Items, 1)

	stop := errors.New("stop")
	_, err = s.UpdateOrder(ctx, o.ID, func(*domain.Order) error { return stop })
	require.ErrorIs(t, err, stop)

	_, err = s.UpdateOrder(ctx, 999, func(*domain.Order) error { return nil })
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sofa := seedProduct(t, s, "sofa", 1200, 10)
	seedProduct(t, s, "lamp", 300, 2)

	for i := 0; i < 3; i++ {
		o := newOrder(domain.OrderItem{ProductID: sofa.ID, Name: sofa.Name, UnitPrice: sofa.Price, Quantity: 1})
		require.NoError(t, s.PlaceOrder(ctx, o, false, nil))
		if i < 2 {
			_, err := s.TransitionOrder(ctx, o.ID, domain.OrderPending, domain.OrderPaid)
			require.NoError(t, err)
		}
	}

	stats, err := s.OrderStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalOrders)
	assert.EqualValues(t, 2, stats.ByStatus[domain.OrderPaid])
	assert.EqualValues(t, 1, stats.ByStatus[domain.OrderPending])
	assert.True(t, stats.Revenue.Equal(decimal.NewFromInt(2800)), stats.Revenue.String())
	assert.EqualValues(t, 2, stats.TotalProducts)
	assert.EqualValues(t, 1, stats.LowStockProducts)
}

func TestListProductsFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sofas := &domain.Category{Name: "Sofas", Slug: "sofas"}
	require.NoError(t, s.CreateCategory(ctx, sofas))

	a := seedProduct(t, s, "Corner Sofa", 900, 1)
	a.CategoryID = &sofas.ID
	require.NoError(t, s.UpdateProduct(ctx, a, nil))
	seedProduct(t, s, "Oak Table", 400, 1)
	hidden := seedProduct(t, s, "Old Sofa", 100, 1)
	hidden.Active = false
	require.NoError(t, s.UpdateProduct(ctx, hidden, nil))

	out, total, err := s.ListProducts(ctx, ProductFilter{ActiveOnly: true, Query: "SOFA"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, out, 1)
	assert.Equal(t, "Corner Sofa", out[0].Name)
	assert.Equal(t, []string{"/img/Corner Sofa-a.jpg", "/img/Corner Sofa-b.jpg"}, out[0].ImageURLs())

	out, total, err = s.ListProducts(ctx, ProductFilter{CategorySlug: "sofas"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Category)
	assert.Equal(t, "Sofas", out[0].Category.Name)

	_, total, err = s.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	found, err := s.ProductsByIDs(ctx, []uint{a.ID, hidden.ID, 999})
	require.NoError(t, err)
	assert.Len(t, found, 1, "inactive and missing products are excluded")
}

func TestUpdateProductReplacesImages(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProduct(t, s, "chair", 150, 4)

	p.Price = decimal.NewFromInt(175)
	require.NoError(t, s.UpdateProduct(ctx, p, []domain.ProductImage{{URL: "/img/new.jpg"}}))

	got, err := s.ProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(175)))
	assert.Equal(t, []string{"/img/new.jpg"}, got.ImageURLs())
	assert.Equal(t, int64(1), count(t, s, &domain.ProductImage{}))

	require.ErrorIs(t, s.DeleteProduct(ctx, 999), domain.ErrNotFound)
	require.NoError(t, s.DeleteProduct(ctx, p.ID))
	assert.Zero(t, count(t, s, &domain.ProductImage{}))
}

func TestCategoriesPositionAndReorder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	var ids []uint
	for _, name := range []string{"Sofas", "Tables", "Beds"} {
		c := &domain.Category{Name: name, Slug: name}
		require.NoError(t, s.CreateCategory(ctx, c))
		ids = append(ids, c.ID)
	}
	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{cats[0].Position, cats[1].Position, cats[2].Position})

	require.NoError(t, s.ReorderCategories(ctx, []uint{ids[2], ids[0], ids[1]}))
	cats, err = s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Beds", cats[0].Name)
	assert.Equal(t, "Sofas", cats[1].Name)

	err = s.ReorderCategories(ctx, []uint{ids[1], 999})
	require.ErrorIs(t, err, domain.ErrNotFound)
	cats, err = s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Beds", cats[0].Name, "failed reorder leaves positions untouched")
}

func TestFeaturedKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := seedProduct(t, s, "a", 1, 1)
	b := seedProduct(t, s, "b", 1, 1)

	require.NoError(t, s.SetFeatured(ctx, []uint{b.ID, a.ID}))
	out, err := s.ListFeatured(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, b.ID, out[0].ID)
	assert.Equal(t, a.ID, out[1].ID)
}

func TestDuplicateSurfacesAsErrDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.CreateCoupon(ctx, &domain.Coupon{Code: "X", Type: domain.CouponFixed, Value: decimal.NewFromInt(1), Active: true}))
	err := s.CreateCoupon(ctx, &domain.Coupon{Code: "X", Type: domain.CouponFixed, Value: decimal.NewFromInt(2), Active: true})
	require.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = s.CouponByCode(ctx, "NOPE")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPrefsUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := &domain.User{Email: " Ana@Example.com ", PasswordHash: "x", Role: domain.RoleCustomer}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.UserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	p, err := s.PrefsByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, p.PreferredPayment)

	require.NoError(t, s.SavePrefs(ctx, &domain.CustomerPref{UserID: u.ID, PreferredPayment: "MPESA"}))
	require.NoError(t, s.SavePrefs(ctx, &domain.CustomerPref{UserID: u.ID, PreferredPayment: "EMOLA", MarketingOptIn: true}))

	p, err = s.PrefsByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "EMOLA", p.PreferredPayment)
	assert.True(t, p.MarketingOptIn)
	assert.EqualValues(t, 1, count(t, s, &domain.CustomerPref{}))
}

func TestAddressesScopedToUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := &domain.CustomerAddress{UserID: 1, Name: "Home", Province: "Maputo"}
	require.NoError(t, s.CreateAddress(ctx, a))

	require.ErrorIs(t, s.DeleteAddress(ctx, 2, a.ID), domain.ErrNotFound)
	require.NoError(t, s.DeleteAddress(ctx, 1, a.ID))
	list, err := s.ListAddresses(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)
}
