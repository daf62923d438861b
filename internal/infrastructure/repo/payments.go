package repo

import (
	"context"

	"furnish-backend/internal/domain"
)

func (s *Store) ListPaymentMethods(ctx context.Context, activeOnly bool) ([]domain.PaymentMethod, error) {
	q := s.conn(ctx)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var out []domain.PaymentMethod
	err := q.Order("id ASC").Find(&out).Error
	return out, translate(err)
}

func (s *Store) PaymentMethodByID(ctx context.Context, id uint) (*domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	if err := s.conn(ctx).First(&m, id).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *Store) PaymentMethodByType(ctx context.Context, t domain.PaymentType) (*domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	if err := s.conn(ctx).Where("type = ?", t).Order("id ASC").First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *Store) CreatePaymentMethod(ctx context.Context, m *domain.PaymentMethod) error {
	return translate(s.conn(ctx).Create(m).Error)
}

func (s *Store) SavePaymentMethod(ctx context.Context, m *domain.PaymentMethod) error {
	res := s.conn(ctx).Model(&domain.PaymentMethod{}).Where("id = ?", m.ID).
		Select("name", "type", "wallet_phone", "bank_name", "account_holder", "account_number", "active", "updated_at").
		Updates(m)
	return deleted(res)
}

func (s *Store) DeletePaymentMethod(ctx context.Context, id uint) error {
	return deleted(s.conn(ctx).Delete(&domain.PaymentMethod{}, id))
}

func (s *Store) CreateTransaction(ctx context.Context, t *domain.PaymentTransaction) error {
	return translate(s.conn(ctx).Create(t).Error)
}

func (s *Store) TransactionByReference(ctx context.Context, ref string) (*domain.PaymentTransaction, error) {
	var t domain.PaymentTransaction
	if err := s.conn(ctx).Where("reference = ?", ref).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) SaveTransaction(ctx context.Context, t *domain.PaymentTransaction) error {
	res := s.conn(ctx).Model(&domain.PaymentTransaction{}).Where("id = ?", t.ID).
		Select("status", "gateway_tx_id", "gateway_detail", "updated_at").
		Updates(t)
	return deleted(res)
}

// CountTransactions returns how many C2B attempts exist for the order.
func (s *Store) CountTransactions(ctx context.Context, orderID uint) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&domain.PaymentTransaction{}).Where("order_id = ?", orderID).Count(&n).Error
	return n, translate(err)
}

// TransactionsForOrder returns the order's C2B attempts, oldest first.
func (s *Store) TransactionsForOrder(ctx context.Context, orderID uint) ([]domain.PaymentTransaction, error) {
	var out []domain.PaymentTransaction
	err := s.conn(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&out).Error
	return out, translate(err)
}
