package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode"

	"furnish-backend/internal/domain"
	"furnish-backend/internal/infrastructure/e2"
	"furnish-backend/internal/usecase"

	"github.com/shopspring/decimal"
)

type Phase string

const (
	PhaseEditing           Phase = "editing"
	PhaseValidating        Phase = "validating"
	PhaseSubmittingOrder   Phase = "submitting-order"
	PhaseSubmittingPayment Phase = "submitting-payment"
	PhaseError             Phase = "error"
	PhaseDone              Phase = "done"
)

var ErrBusy = errors.New("checkout already in progress")

// Form is what the shopper filled in on the checkout page.
type Form struct {
	ShippingMethod string
	PaymentMethod  string
	Customer       usecase.CustomerInput
	Address        usecase.AddressInput
	CouponCode     string
	Notes          string
	// PaymentPhone is the wallet charged for mobile money; the address phone
	// is used when empty.
	PaymentPhone string
}

// FormError holds inline messages keyed by field.
type FormError struct {
	Fields map[string]string
}

func (e *FormError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+": "+v)
	}
	sort.Strings(parts)
	return "checkout form: " + strings.Join(parts, "; ")
}

// Confirmation is where the shopper lands after a successful checkout.
type Confirmation struct {
	OrderID   uint            `json:"orderId"`
	Path      string          `json:"path"`
	Total     decimal.Decimal `json:"total"`
	Reference string          `json:"reference,omitempty"`
}

func ConfirmationPath(orderID uint) string {
	return fmt.Sprintf("/order/confirmation/%d", orderID)
}

// Quote is the locally estimated price of the cart.
type Quote struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
	// Warning is set when no rule matched the shipping method.
	Warning string
}

// Controller drives one checkout form. The cart survives every failure and is
// cleared only once the order, and its payment when one is due, went through.
type Controller struct {
	Cart *Cart
	API  API
	Log  *slog.Logger
	// OnTransition, when set, observes every phase change.
	OnTransition func(from, to Phase)

	mu      sync.Mutex
	phase   Phase
	message string
	rules   []domain.ShippingRule
	coupon  *usecase.CouponResult
	// pending is an order whose payment failed.
	pending *domain.Order
}

func NewController(cart *Cart, api API, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{Cart: cart, API: api, Log: log, phase: PhaseEditing}
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == "" {
		return PhaseEditing
	}
	return c.phase
}

// Message is the inline error shown next to the form, if any.
func (c *Controller) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// PendingOrder returns the order created by the last attempt whose payment
// did not go through.
func (c *Controller) PendingOrder() *domain.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *Controller) set(to Phase, msg string) {
	c.mu.Lock()
	from := c.phase
	if from == "" {
		from = PhaseEditing
	}
	c.phase, c.message = to, msg
	hook := c.OnTransition
	c.mu.Unlock()
	if hook != nil && from != to {
		hook(from, to)
	}
}

// begin claims the controller for one submission by moving it to validating.
func (c *Controller) begin() error {
	c.mu.Lock()
	from := c.phase
	switch from {
	case PhaseValidating, PhaseSubmittingOrder, PhaseSubmittingPayment:
		c.mu.Unlock()
		return ErrBusy
	case "":
		from = PhaseEditing
	}
	c.phase, c.message = PhaseValidating, ""
	hook := c.OnTransition
	c.mu.Unlock()
	if hook != nil {
		hook(from, PhaseValidating)
	}
	return nil
}

// fail passes through the error phase back to editing with msg inline.
func (c *Controller) fail(msg string) {
	c.set(PhaseError, msg)
	c.set(PhaseEditing, msg)
}

// LoadShipping fetches the shipping rules used for local estimates.
func (c *Controller) LoadShipping(ctx context.Context) error {
	rules, err := c.API.ShippingRules(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.rules = rules
	c.mu.Unlock()
	return nil
}

// EstimateShipping prices the cart with the first active rule for method.
func (c *Controller) EstimateShipping(method string) (decimal.Decimal, string) {
	t, ok := domain.ParseServiceType(method)
	if !ok {
		return decimal.Zero, "unknown shipping method"
	}
	c.mu.Lock()
	rules := c.rules
	c.mu.Unlock()
	for _, r := range rules {
		if r.Active && r.ServiceType == t {
			return domain.EstimateShipping(r, c.Cart.WeightKg()), ""
		}
	}
	if t == domain.ServicePickup {
		return decimal.Zero, ""
	}
	return decimal.Zero, "no shipping rule for " + string(t)
}

// ApplyCoupon checks code against the current subtotal. An invalid code is
// not an error; it reports false and removes any applied coupon.
func (c *Controller) ApplyCoupon(ctx context.Context, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		c.mu.Lock()
		c.coupon = nil
		c.mu.Unlock()
		return false, nil
	}
	res, err := c.API.ValidateCoupon(ctx, code, c.Cart.Subtotal())
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !res.Valid {
		c.coupon = nil
		return false, nil
	}
	c.coupon = res
	return true, nil
}

func (c *Controller) Quote(method string) Quote {
	q := Quote{Subtotal: c.Cart.Subtotal(), Discount: decimal.Zero}
	q.Shipping, q.Warning = c.EstimateShipping(method)
	c.mu.Lock()
	if c.coupon != nil && c.coupon.Discount != nil {
		q.Discount = decimal.Min(*c.coupon.Discount, q.Subtotal)
	}
	c.mu.Unlock()
	q.Total = domain.Round2(q.Subtotal.Add(q.Shipping).Sub(q.Discount))
	return q
}

func validPhone(s string) bool {
	n := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			n++
		case r == ' ' || r == '-' || r == '+' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return n >= 9 && n <= 15
}

// Validate checks the form locally before anything is sent.
func (c *Controller) Validate(f Form) *FormError {
	fields := map[string]string{}
	if c.Cart.Empty() {
		fields["cart"] = ErrEmptyCart.Error()
	}
	method, ok := domain.ParseServiceType(f.ShippingMethod)
	if !ok {
		fields["shippingMethod"] = "choose a shipping method"
	}
	pay, ok := domain.ParsePaymentType(f.PaymentMethod)
	if !ok {
		fields["paymentMethod"] = "choose a payment method"
	}
	if strings.TrimSpace(f.Customer.Name) == "" && strings.TrimSpace(f.Address.Name) == "" {
		fields["customer.name"] = "is required"
	}
	if method != domain.ServicePickup {
		required := map[string]string{
			"address.name":         f.Address.Name,
			"address.phone":        f.Address.Phone,
			"address.province":     f.Address.Province,
			"address.city":         f.Address.City,
			"address.neighborhood": f.Address.Neighborhood,
		}
		for k, v := range required {
			if strings.TrimSpace(v) == "" {
				fields[k] = "is required"
			}
		}
	}
	if p := strings.TrimSpace(f.Address.Phone); p != "" && !validPhone(p) {
		fields["address.phone"] = "must be a valid phone number"
	}
	if pay.MobileMoney() {
		if _, err := e2.NormalizePhone(c.walletPhone(f)); err != nil {
			fields["paymentPhone"] = err.Error()
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &FormError{Fields: fields}
}

func (c *Controller) walletPhone(f Form) string {
	if strings.TrimSpace(f.PaymentPhone) != "" {
		return f.PaymentPhone
	}
	if strings.TrimSpace(f.Address.Phone) != "" {
		return f.Address.Phone
	}
	return f.Customer.Phone
}

func (c *Controller) orderInput(f Form) usecase.CreateOrderInput {
	lines := c.Cart.Lines()
	items := make([]usecase.OrderItemInput, 0, len(lines))
	for _, l := range lines {
		price := l.Price
		items = append(items, usecase.OrderItemInput{ProductID: l.ProductID, Quantity: l.Quantity, Price: &price})
	}
	in := usecase.CreateOrderInput{
		Items:          items,
		ShippingMethod: strings.ToUpper(strings.TrimSpace(f.ShippingMethod)),
		PaymentMethod:  strings.ToUpper(strings.TrimSpace(f.PaymentMethod)),
		Customer:       f.Customer,
		Notes:          f.Notes,
	}
	if in.Customer.Name == "" {
		in.Customer.Name = f.Address.Name
	}
	addr := f.Address
	if addr != (usecase.AddressInput{}) {
		in.Address = &addr
	}
	c.mu.Lock()
	if c.coupon != nil {
		in.CouponCode = c.coupon.Code
	}
	c.mu.Unlock()
	if in.CouponCode == "" {
		in.CouponCode = strings.TrimSpace(f.CouponCode)
	}
	return in
}

// Submit runs the checkout: local validation, order creation and, for mobile
// money, the wallet payment request. On failure the controller is back in
// editing with an inline message and the cart untouched. A payment failure
// leaves the order pending on the server; RetryPayment can charge it again.
func (c *Controller) Submit(ctx context.Context, f Form) (*Confirmation, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	if fe := c.Validate(f); fe != nil {
		c.set(PhaseEditing, "please correct the highlighted fields")
		return nil, fe
	}

	c.set(PhaseSubmittingOrder, "")
	order, err := c.API.CreateOrder(ctx, c.orderInput(f))
	if err != nil {
		c.Log.Warn("checkout: create order failed", "err", err)
		c.fail(inlineMessage("could not place the order", err))
		return nil, err
	}
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
	return c.pay(ctx, order, f)
}

// RetryPayment requests payment again for the order left pending by the last
// Submit.
func (c *Controller) RetryPayment(ctx context.Context, f Form) (*Confirmation, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	order := c.PendingOrder()
	if order == nil {
		c.set(PhaseEditing, "")
		return nil, errors.New("no order is waiting for payment")
	}
	if _, err := e2.NormalizePhone(c.walletPhone(f)); err != nil {
		fe := &FormError{Fields: map[string]string{"paymentPhone": err.Error()}}
		c.set(PhaseEditing, "please correct the highlighted fields")
		return nil, fe
	}
	return c.pay(ctx, order, f)
}

func (c *Controller) pay(ctx context.Context, order *domain.Order, f Form) (*Confirmation, error) {
	conf := &Confirmation{OrderID: order.ID, Path: ConfirmationPath(order.ID), Total: order.Total}
	pay, _ := domain.ParsePaymentType(order.PaymentMethod)
	if pay.MobileMoney() {
		c.set(PhaseSubmittingPayment, "")
		id := order.ID
		res, err := c.API.InitiateC2B(ctx, usecase.C2BInput{
			Provider: string(pay),
			Amount:   order.Total,
			Phone:    c.walletPhone(f),
			OrderID:  &id,
		})
		if err != nil {
			c.mu.Lock()
			c.pending = order
			c.mu.Unlock()
			c.Log.Warn("checkout: payment failed", "order_id", order.ID, "err", err)
			c.fail(inlineMessage(fmt.Sprintf("order #%d was created but the payment failed", order.ID), err))
			return nil, err
		}
		conf.Reference = res.Reference
	}
	if err := c.Cart.Clear(); err != nil {
		c.Log.Error("checkout: clear cart", "err", err)
	}
	c.mu.Lock()
	c.pending = nil
	c.coupon = nil
	c.mu.Unlock()
	c.set(PhaseDone, "")
	return conf, nil
}

func inlineMessage(prefix string, err error) string {
	var ae *APIError
	if errors.As(err, &ae) && ae.Message != "" {
		return prefix + ": " + ae.Message
	}
	return prefix + ": " + err.Error()
}
