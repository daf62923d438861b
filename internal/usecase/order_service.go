package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"furnish-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type OrderStore interface {
	ProductsByIDs(ctx context.Context, ids []uint) ([]domain.Product, error)
	PlaceOrder(ctx context.Context, o *domain.Order, reserveStock bool, couponID *uint) error
	OrderByID(ctx context.Context, id uint) (*domain.Order, error)
	OrdersByUser(ctx context.Context, userID uint) ([]domain.Order, error)
	ListOrders(ctx context.Context, status domain.OrderStatus, page, pageSize int) ([]domain.Order, int64, error)
	UpdateOrder(ctx context.Context, id uint, fn func(o *domain.Order) error) (*domain.Order, error)
	TransitionOrder(ctx context.Context, id uint, from, to domain.OrderStatus) (bool, error)
	OrderStats(ctx context.Context) (*domain.OrderStats, error)
}

type StockPolicy string

const (
	// StockReserve decrements stock inside the order transaction and refuses
	// orders that would oversell.
	StockReserve StockPolicy = "reserve"
	// StockAdvisory never touches stock; it is informational only.
	StockAdvisory StockPolicy = "advisory"
)

func ParseStockPolicy(s string) (StockPolicy, bool) {
	switch p := StockPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case StockReserve, StockAdvisory:
		return p, true
	case "":
		return StockReserve, true
	}
	return "", false
}

// Identity is the caller as established by the auth middleware. The zero
// value is an anonymous caller.
type Identity struct {
	UserID uint
	Role   domain.Role
}

func (i Identity) Authenticated() bool { return i.UserID != 0 }
func (i Identity) Admin() bool         { return i.UserID != 0 && i.Role == domain.RoleAdmin }

type OrderService struct {
	Store       OrderStore
	Shipping    *ShippingService
	Coupons     *CouponService
	StockPolicy StockPolicy
	Log         *slog.Logger
}

type OrderItemInput struct {
	ProductID uint `json:"productId" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required,gt=0,max=1000"`
	// Price is what the client displayed; it is never used for pricing.
	Price *decimal.Decimal `json:"price,omitempty"`
}

type CustomerInput struct {
	Name  string `json:"name" validate:"max=120"`
	Email string `json:"email" validate:"omitempty,email,max=160"`
	Phone string `json:"phone" validate:"omitempty,phone"`
	Guest bool   `json:"guest"`
}

type AddressInput struct {
	Name         string `json:"name" validate:"required,max=120"`
	Phone        string `json:"phone" validate:"required,phone"`
	Province     string `json:"province" validate:"required,max=80"`
	City         string `json:"city" validate:"required,max=80"`
	Neighborhood string `json:"neighborhood" validate:"required,max=120"`
	Landmark     string `json:"landmark" validate:"max=200"`
}

type CreateOrderInput struct {
	Items          []OrderItemInput `json:"items" validate:"required,min=1,max=100,dive"`
	Subtotal       *decimal.Decimal `json:"subtotal"`
	ShippingMethod string           `json:"shippingMethod" validate:"required"`
	ShippingCost   *decimal.Decimal `json:"shippingCost"`
	Total          *decimal.Decimal `json:"total"`
	CouponCode     string           `json:"couponCode" validate:"max=64"`
	Customer       CustomerInput    `json:"customer"`
	Address        *AddressInput    `json:"address"`
	PaymentMethod  string           `json:"paymentMethod" validate:"required"`
	Notes          string           `json:"notes" validate:"max=1000"`
}

// pickupAddress is validated with the same rules but nothing is required.
type pickupAddress struct {
	Name         string `json:"name" validate:"max=120"`
	Phone        string `json:"phone" validate:"omitempty,phone"`
	Province     string `json:"province" validate:"max=80"`
	City         string `json:"city" validate:"max=80"`
	Neighborhood string `json:"neighborhood" validate:"max=120"`
	Landmark     string `json:"landmark" validate:"max=200"`
}

// priceTolerance is how far a client-declared amount may drift from the
// server computation before it is rejected.
var priceTolerance = decimal.New(1, -2)

func (in *CreateOrderInput) validate() (domain.ServiceType, domain.PaymentType, *ValidationError) {
	ve := check(in)
	method, ok := domain.ParseServiceType(in.ShippingMethod)
	if in.ShippingMethod != "" && !ok {
		ve.Add("shippingMethod", "must be one of STANDARD PICKUP ZONE EXPRESS")
	}
	pay, ok := domain.ParsePaymentType(in.PaymentMethod)
	if in.PaymentMethod != "" && !ok {
		ve.Add("paymentMethod", "must be one of EMOLA MPESA BANK")
	}
	if in.Address == nil && method != domain.ServicePickup {
		ve.Add("address", "is required")
	}
	if in.Address != nil && method == domain.ServicePickup {
		// Address fields are optional for pickup; drop the required errors.
		kept := ve.Fields[:0]
		for _, f := range ve.Fields {
			if !strings.HasPrefix(f.Field, "address.") {
				kept = append(kept, f)
			}
		}
		ve.Fields = kept
		for _, f := range check(pickupAddress(*in.Address)).Fields {
			ve.Add("address."+f.Field, f.Message)
		}
	}
	nonNegative(ve, "shippingCost", in.ShippingCost)
	return method, pay, ve
}

// CreateOrder validates the cart, prices it from the catalog, and writes the
// order with its items and address in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput, who Identity) (*domain.Order, error) {
	method, pay, ve := in.validate()
	if !who.Authenticated() {
		if !in.Customer.Guest {
			if err := ve.Err(); err != nil {
				return nil, err
			}
			return nil, ErrUnauthorized
		}
		if strings.TrimSpace(in.Customer.Name) == "" {
			ve.Add("customer.name", "is required for guest checkout")
		}
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	lines := mergeLines(in.Items, ve)
	if err := ve.Err(); err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.Store.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	if len(byID) != len(ids) {
		var missing []uint
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil, &InvalidProductError{IDs: missing}
	}

	o := &domain.Order{
		Status:         domain.OrderPending,
		ShippingMethod: string(method),
		PaymentMethod:  string(pay),
		CustomerEmail:  strings.TrimSpace(in.Customer.Email),
		Notes:          strings.TrimSpace(in.Notes),
	}
	subtotal := decimal.Zero
	weight := decimal.Zero
	for _, l := range lines {
		p := byID[l.ProductID]
		item := domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  l.Quantity,
			Image:     p.MainImage(),
		}
		subtotal = subtotal.Add(item.LineTotal())
		weight = weight.Add(p.WeightKg.Mul(decimal.NewFromInt(int64(l.Quantity))))
		o.Items = append(o.Items, item)
	}
	o.Subtotal = domain.Round2(subtotal)
	if in.Subtotal != nil && in.Subtotal.Sub(o.Subtotal).Abs().GreaterThan(priceTolerance) {
		ve.Addf("subtotal", "does not match catalog prices (expected %s)", o.Subtotal.StringFixed(2))
	}

	if in.ShippingCost != nil {
		o.ShippingCost = domain.Round2(*in.ShippingCost)
	} else {
		est, err := s.Shipping.Resolve(ctx, method, weight)
		if err != nil {
			return nil, err
		}
		o.ShippingCost = est.Cost
	}

	var couponID *uint
	o.Discount = decimal.Zero
	if code := domain.NormalizeCouponCode(in.CouponCode); code != "" {
		c, discount, err := s.Coupons.redeemable(ctx, code, o.Subtotal)
		if err != nil {
			return nil, err
		}
		if c == nil {
			ve.Add("couponCode", "is not valid for this order")
		} else {
			couponID = &c.ID
			o.CouponCode = c.Code
			o.Discount = discount
		}
	}

	o.Total = domain.Round2(o.Subtotal.Add(o.ShippingCost).Sub(o.Discount))
	if in.Total != nil && in.Total.Sub(o.Total).Abs().GreaterThan(priceTolerance) {
		ve.Addf("total", "does not match computed total (expected %s)", o.Total.StringFixed(2))
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	if who.Authenticated() {
		uid := who.UserID
		o.UserID = &uid
	} else {
		o.GuestName = strings.TrimSpace(in.Customer.Name)
	}
	if a := in.Address; a != nil {
		o.Address = &domain.OrderAddress{
			Name:         strings.TrimSpace(a.Name),
			Phone:        strings.TrimSpace(a.Phone),
			Province:     strings.TrimSpace(a.Province),
			City:         strings.TrimSpace(a.City),
			Neighborhood: strings.TrimSpace(a.Neighborhood),
			Landmark:     strings.TrimSpace(a.Landmark),
		}
	}

	err = s.Store.PlaceOrder(ctx, o, s.StockPolicy != StockAdvisory, couponID)
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		var se *domain.StockError
		if errors.As(err, &se) {
			return nil, &InsufficientStockError{ProductID: se.ProductID}
		}
		return nil, &InsufficientStockError{}
	case errors.Is(err, domain.ErrCouponExhausted):
		ve.Add("couponCode", "is no longer available")
		return nil, ve
	case err != nil:
		return nil, err
	}
	s.logger().Info("order created", "order_id", o.ID, "total", o.Total.StringFixed(2),
		"items", len(o.Items), "guest", o.UserID == nil)

	created, err := s.Store.OrderByID(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// maxLineQuantity bounds one product's quantity in an order, after repeated
// lines are folded together.
const maxLineQuantity = 1000

// mergeLines folds repeated products into one line, keeping first-seen order.
// A folded quantity above maxLineQuantity is reported on the product's first
// item.
func mergeLines(items []OrderItemInput, ve *ValidationError) []OrderItemInput {
	idx := map[uint]int{}
	first := map[uint]int{}
	var out []OrderItemInput
	for i, it := range items {
		if j, ok := idx[it.ProductID]; ok {
			out[j].Quantity += it.Quantity
			continue
		}
		idx[it.ProductID] = len(out)
		first[it.ProductID] = i
		out = append(out, it)
	}
	for _, l := range out {
		if l.Quantity <= 0 || l.Quantity > maxLineQuantity {
			ve.Addf("items["+strconv.Itoa(first[l.ProductID])+"].quantity",
				"must be between 1 and %d for one product", maxLineQuantity)
		}
	}
	return out
}

func (s *OrderService) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// GetOrder returns an order by id. Orders owned by an account are hidden from
// other customers; guest orders are readable by id.
func (s *OrderService) GetOrder(ctx context.Context, id uint, who Identity) (*domain.Order, error) {
	o, err := s.Store.OrderByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "order", "")
	}
	if o.UserID != nil && !who.Admin() && *o.UserID != who.UserID {
		return nil, ErrNotFound("order")
	}
	return o, nil
}

func (s *OrderService) ListMine(ctx context.Context, who Identity) ([]domain.Order, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthorized
	}
	out, err := s.Store.OrdersByUser(ctx, who.UserID)
	if out == nil && err == nil {
		out = []domain.Order{}
	}
	return out, err
}

type OrderPage struct {
	Items    []domain.Order `json:"items"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

func (s *OrderService) ListOrders(ctx context.Context, status string, page, pageSize int) (*OrderPage, error) {
	st := domain.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if st != "" && !st.Valid() {
		ve := &ValidationError{}
		ve.Add("status", "must be one of pending paid shipped delivered cancelled")
		return nil, ve
	}
	items, total, err := s.Store.ListOrders(ctx, st, page, pageSize)
	if err != nil {
		return nil, err
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	if items == nil {
		items = []domain.Order{}
	}
	return &OrderPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

type UpdateOrderInput struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes" validate:"omitempty,max=1000"`
}

// UpdateOrder changes status and notes. Delivered and cancelled orders keep
// their status.
func (s *OrderService) UpdateOrder(ctx context.Context, id uint, in UpdateOrderInput) (*domain.Order, error) {
	ve := check(in)
	var next domain.OrderStatus
	if in.Status != nil {
		next = domain.OrderStatus(strings.ToLower(strings.TrimSpace(*in.Status)))
		if !next.Valid() {
			ve.Add("status", "must be one of pending paid shipped delivered cancelled")
		}
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	o, err := s.Store.UpdateOrder(ctx, id, func(o *domain.Order) error {
		if next != "" && next != o.Status {
			if o.Status.Terminal() {
				return &ConflictError{Field: "status", Message: "order is " + string(o.Status) + " and can no longer change"}
			}
			o.Status = next
		}
		if in.Notes != nil {
			o.Notes = strings.TrimSpace(*in.Notes)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "order", "")
	}
	s.logger().Info("order updated", "order_id", o.ID, "status", o.Status)
	return o, nil
}

func (s *OrderService) Stats(ctx context.Context) (*domain.OrderStats, error) {
	return s.Store.OrderStats(ctx)
}

// ApplyPayment moves a pending order to paid or cancelled. Orders in any
// other status are left alone; the result reports whether anything changed.
func (s *OrderService) ApplyPayment(ctx context.Context, orderID uint, paid bool) (bool, error) {
	to := domain.OrderCancelled
	if paid {
		to = domain.OrderPaid
	}
	return s.Store.TransitionOrder(ctx, orderID, domain.OrderPending, to)
}
