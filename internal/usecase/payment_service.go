package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"furnish-backend/internal/domain"
	"furnish-backend/internal/infrastructure/e2"

	"github.com/shopspring/decimal"
)

type PaymentStore interface {
	ListPaymentMethods(ctx context.Context, activeOnly bool) ([]domain.PaymentMethod, error)
	PaymentMethodByID(ctx context.Context, id uint) (*domain.PaymentMethod, error)
	PaymentMethodByType(ctx context.Context, t domain.PaymentType) (*domain.PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, m *domain.PaymentMethod) error
	SavePaymentMethod(ctx context.Context, m *domain.PaymentMethod) error
	DeletePaymentMethod(ctx context.Context, id uint) error

	CreateTransaction(ctx context.Context, t *domain.PaymentTransaction) error
	TransactionByReference(ctx context.Context, ref string) (*domain.PaymentTransaction, error)
	SaveTransaction(ctx context.Context, t *domain.PaymentTransaction) error
	CountTransactions(ctx context.Context, orderID uint) (int64, error)
	TransactionsForOrder(ctx context.Context, orderID uint) ([]domain.PaymentTransaction, error)

	OrderByID(ctx context.Context, id uint) (*domain.Order, error)
}

type Gateway interface {
	PayC2B(ctx context.Context, in e2.C2BRequest) (*e2.C2BResult, error)
	ListWallets(ctx context.Context, p e2.Provider) (json.RawMessage, error)
	ListPayments(ctx context.Context, p e2.Provider) (json.RawMessage, error)
}

// EventLog deduplicates webhook deliveries.
type EventLog interface {
	Seen(ctx context.Context, key string) (bool, error)
	// Forget drops key so the next delivery is handled again.
	Forget(ctx context.Context, key string) error
}

type PaymentService struct {
	Store PaymentStore
	// Gateway is nil when mobile money is not configured.
	Gateway       Gateway
	WalletIDs     map[e2.Provider]string
	WebhookSecret string
	Events        EventLog
	Orders        *OrderService
	Log           *slog.Logger
}

func (s *PaymentService) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

func (s *PaymentService) Methods(ctx context.Context, activeOnly bool) ([]domain.PaymentMethod, error) {
	out, err := s.Store.ListPaymentMethods(ctx, activeOnly)
	if out == nil && err == nil {
		out = []domain.PaymentMethod{}
	}
	return out, err
}

type PaymentMethodInput struct {
	Name          string `json:"name" validate:"required,max=120"`
	Type          string `json:"type" validate:"required"`
	WalletPhone   string `json:"walletPhone" validate:"max=32"`
	BankName      string `json:"bankName" validate:"max=120"`
	AccountHolder string `json:"accountHolder" validate:"max=120"`
	AccountNumber string `json:"accountNumber" validate:"max=64"`
	Active        *bool  `json:"active"`
}

func (in PaymentMethodInput) apply(m *domain.PaymentMethod) error {
	ve := check(in)
	t, ok := domain.ParsePaymentType(in.Type)
	if in.Type != "" && !ok {
		ve.Add("type", "must be one of EMOLA MPESA BANK")
	}
	var phone string
	switch {
	case t.MobileMoney():
		p, err := e2.NormalizePhone(in.WalletPhone)
		if err != nil {
			ve.Add("walletPhone", err.Error())
		}
		phone = p
	case t == domain.PaymentBank:
		for field, v := range map[string]string{"bankName": in.BankName, "accountHolder": in.AccountHolder, "accountNumber": in.AccountNumber} {
			if strings.TrimSpace(v) == "" {
				ve.Add(field, "is required for bank transfer")
			}
		}
	}
	if err := ve.Err(); err != nil {
		return err
	}
	m.Name = strings.TrimSpace(in.Name)
	m.Type = t
	m.WalletPhone, m.BankName, m.AccountHolder, m.AccountNumber = "", "", "", ""
	if t.MobileMoney() {
		m.WalletPhone = phone
	} else {
		m.BankName = strings.TrimSpace(in.BankName)
		m.AccountHolder = strings.TrimSpace(in.AccountHolder)
		m.AccountNumber = strings.TrimSpace(in.AccountNumber)
	}
	if in.Active != nil {
		m.Active = *in.Active
	} else if m.ID == 0 {
		m.Active = true
	}
	return nil
}

// UpsertMethod creates a payment method, or updates the existing one when a
// method of the same type is already configured. created reports which.
func (s *PaymentService) UpsertMethod(ctx context.Context, in PaymentMethodInput) (m *domain.PaymentMethod, created bool, err error) {
	m = &domain.PaymentMethod{}
	if err := in.apply(m); err != nil {
		return nil, false, err
	}
	existing, err := s.Store.PaymentMethodByType(ctx, m.Type)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if err := s.Store.CreatePaymentMethod(ctx, m); err != nil {
			return nil, false, storeErr(err, "payment method", "name")
		}
		return m, true, nil
	case err != nil:
		return nil, false, err
	}
	if err := in.apply(existing); err != nil {
		return nil, false, err
	}
	if err := s.Store.SavePaymentMethod(ctx, existing); err != nil {
		return nil, false, storeErr(err, "payment method", "name")
	}
	return existing, false, nil
}

func (s *PaymentService) UpdateMethod(ctx context.Context, id uint, in PaymentMethodInput) (*domain.PaymentMethod, error) {
	m, err := s.Store.PaymentMethodByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "payment method", "")
	}
	if err := in.apply(m); err != nil {
		return nil, err
	}
	if err := s.Store.SavePaymentMethod(ctx, m); err != nil {
		return nil, storeErr(err, "payment method", "name")
	}
	return m, nil
}

func (s *PaymentService) DeleteMethod(ctx context.Context, id uint) error {
	return storeErr(s.Store.DeletePaymentMethod(ctx, id), "payment method", "")
}

type C2BInput struct {
	Provider  string          `json:"provider"`
	Amount    decimal.Decimal `json:"amount"`
	Phone     string          `json:"phone" validate:"required"`
	Reference string          `json:"reference" validate:"max=64"`
	OrderID   *uint           `json:"orderId"`
}

type C2BPayment struct {
	Reference string          `json:"reference"`
	Provider  e2.Provider     `json:"provider"`
	Phone     string          `json:"phone"`
	OrderID   *uint           `json:"orderId,omitempty"`
	Gateway   json.RawMessage `json:"gateway"`
}

func parseProvider(s string) (e2.Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mpesa", "m-pesa":
		return e2.ProviderMpesa, true
	case "emola", "e-mola":
		return e2.ProviderEmola, true
	}
	return "", false
}

// InitiateC2B asks the customer's wallet to pay and records the attempt so
// the gateway callback can be matched to the order. When the reference is
// omitted for an order, the next ORD<id>-<n> reference is used.
func (s *PaymentService) InitiateC2B(ctx context.Context, in C2BInput) (*C2BPayment, error) {
	if s.Gateway == nil {
		return nil, ErrNotConfigured("mobile money")
	}
	ve := check(in)
	provider, ok := parseProvider(in.Provider)
	if !ok {
		ve.Add("provider", "must be one of MPESA EMOLA")
	}
	if !in.Amount.IsPositive() {
		ve.Add("amount", "must be greater than 0")
	}
	phone := ""
	if in.Phone != "" {
		p, err := e2.NormalizePhone(in.Phone)
		if err != nil {
			ve.Add("phone", err.Error())
		}
		phone = p
	}
	ref := e2.SanitizeReference(in.Reference)
	if ref == "" && in.OrderID == nil {
		ve.Add("reference", "is required")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	wallet := s.WalletIDs[provider]
	if wallet == "" {
		return nil, ErrNotConfigured(string(provider) + " wallet")
	}

	order, err := s.paymentOrder(ctx, in.OrderID, ref)
	if err != nil {
		return nil, err
	}
	var orderID *uint
	if order != nil {
		id := order.ID
		orderID = &id
		if order.Status != domain.OrderPending {
			return nil, &ConflictError{Field: "orderId", Message: "order is " + string(order.Status)}
		}
		if in.Amount.Sub(order.Total).Abs().GreaterThan(priceTolerance) {
			ve.Addf("amount", "must equal the order total %s", order.Total.StringFixed(2))
			return nil, ve
		}
		if ref == "" {
			n, err := s.Store.CountTransactions(ctx, order.ID)
			if err != nil {
				return nil, err
			}
			ref = domain.PaymentReference(order.ID, int(n)+1)
		}
	}

	tx := &domain.PaymentTransaction{
		Reference: ref,
		OrderID:   orderID,
		Provider:  domain.PaymentType(strings.ToUpper(string(provider))),
		Phone:     phone,
		Amount:    domain.Round2(in.Amount),
		Status:    domain.TxSubmitted,
	}
	if err := s.Store.CreateTransaction(ctx, tx); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, &ConflictError{Field: "reference", Message: "already used, start a new payment attempt"}
		}
		return nil, err
	}

	res, err := s.Gateway.PayC2B(ctx, e2.C2BRequest{
		Provider:  provider,
		WalletID:  wallet,
		Amount:    tx.Amount,
		Phone:     phone,
		Reference: ref,
	})
	if err != nil {
		var ge *e2.GatewayError
		switch {
		case errors.Is(err, e2.ErrGatewayTimeout):
			tx.Status = domain.TxTimedOut
		case errors.As(err, &ge):
			tx.Status = domain.TxFailed
			tx.GatewayDetail = ge.Message
		default:
			tx.Status = domain.TxFailed
			tx.GatewayDetail = err.Error()
		}
		s.saveTransaction(ctx, tx)
		s.logger().Warn("c2b payment failed", "reference", ref, "provider", provider, "err", err)
		return nil, err
	}
	tx.GatewayDetail = truncate(string(res.Payload), 4000)
	s.saveTransaction(ctx, tx)
	s.logger().Info("c2b payment submitted", "reference", ref, "provider", provider, "amount", tx.Amount.StringFixed(2))
	return &C2BPayment{Reference: ref, Provider: provider, Phone: phone, OrderID: orderID, Gateway: res.Payload}, nil
}

// paymentOrder finds the order a payment is for: the explicit id, else the id
// encoded in the reference. A reference that names no order is not an error.
func (s *PaymentService) paymentOrder(ctx context.Context, id *uint, ref string) (*domain.Order, error) {
	if id != nil {
		o, err := s.Store.OrderByID(ctx, *id)
		if err != nil {
			return nil, storeErr(err, "order", "")
		}
		return o, nil
	}
	oid, ok := domain.OrderIDFromReference(ref)
	if !ok {
		return nil, nil
	}
	o, err := s.Store.OrderByID(ctx, oid)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return o, err
}

func (s *PaymentService) saveTransaction(ctx context.Context, tx *domain.PaymentTransaction) {
	if err := s.Store.SaveTransaction(ctx, tx); err != nil {
		s.logger().Error("save payment transaction", "reference", tx.Reference, "err", err)
	}
}

func (s *PaymentService) GatewayWallets(ctx context.Context, provider string) (json.RawMessage, error) {
	if s.Gateway == nil {
		return nil, ErrNotConfigured("mobile money")
	}
	p, ok := parseProvider(provider)
	if !ok {
		return nil, ErrBadRequest("provider must be one of MPESA EMOLA")
	}
	return s.Gateway.ListWallets(ctx, p)
}

func (s *PaymentService) GatewayPayments(ctx context.Context, provider string) (json.RawMessage, error) {
	if s.Gateway == nil {
		return nil, ErrNotConfigured("mobile money")
	}
	p, ok := parseProvider(provider)
	if !ok {
		return nil, ErrBadRequest("provider must be one of MPESA EMOLA")
	}
	return s.Gateway.ListPayments(ctx, p)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
