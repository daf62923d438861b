package repo

import (
	"context"

	"furnish-backend/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlaceOrder writes o with its items and address in one transaction. When
// reserveStock is set every item decrements its product's stock, guarded by
// stock >= qty. When couponID is set the coupon's use counter is bumped,
// guarded by max_uses. Any failure leaves no rows behind.
func (s *Store) PlaceOrder(ctx context.Context, o *domain.Order, reserveStock bool, couponID *uint) error {
	return s.Transact(ctx, func(tx *Store) error {
		if reserveStock {
			for _, it := range o.Items {
				res := tx.db.Model(&domain.Product{}).
					Where("id = ? AND stock >= ?", it.ProductID, it.Quantity).
					Update("stock", gorm.Expr("stock - ?", it.Quantity))
				if res.Error != nil {
					return translate(res.Error)
				}
				if res.RowsAffected == 0 {
					return &domain.StockError{ProductID: it.ProductID}
				}
			}
		}
		if couponID != nil {
			res := tx.db.Model(&domain.Coupon{}).
				Where("id = ? AND (max_uses IS NULL OR used < max_uses)", *couponID).
				Update("used", gorm.Expr("used + 1"))
			if res.Error != nil {
				return translate(res.Error)
			}
			if res.RowsAffected == 0 {
				return domain.ErrCouponExhausted
			}
		}
		return translate(tx.db.Create(o).Error)
	})
}

func preloadOrder(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).Preload("Address")
}

func (s *Store) OrderByID(ctx context.Context, id uint) (*domain.Order, error) {
	var o domain.Order
	if err := preloadOrder(s.conn(ctx)).First(&o, id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *Store) OrdersByUser(ctx context.Context, userID uint) ([]domain.Order, error) {
	var out []domain.Order
	err := preloadOrder(s.conn(ctx)).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").Find(&out).Error
	return out, translate(err)
}

func (s *Store) ListOrders(ctx context.Context, status domain.OrderStatus, page, pageSize int) ([]domain.Order, int64, error) {
	q := s.conn(ctx).Model(&domain.Order{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	limit, offset := paginate(page, pageSize)
	var out []domain.Order
	err := preloadOrder(q).Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&out).Error
	return out, total, translate(err)
}

// UpdateOrder loads the order under a row lock, lets fn mutate status and
// notes, and saves them.
func (s *Store) UpdateOrder(ctx context.Context, id uint, fn func(o *domain.Order) error) (*domain.Order, error) {
	var out *domain.Order
	err := s.Transact(ctx, func(tx *Store) error {
		var o domain.Order
		err := preloadOrder(tx.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, id).Error
		if err != nil {
			return translate(err)
		}
		if err := fn(&o); err != nil {
			return err
		}
		err = tx.db.Model(&o).Omit(clause.Associations).Select("status", "notes", "updated_at").Updates(&o).Error
		if err != nil {
			return translate(err)
		}
		out = &o
		return nil
	})
	return out, err
}

// TransitionOrder moves the order from one status to another only if it is
// still in from. It reports whether the row changed.
func (s *Store) TransitionOrder(ctx context.Context, id uint, from, to domain.OrderStatus) (bool, error) {
	res := s.conn(ctx).Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) OrderStats(ctx context.Context) (*domain.OrderStats, error) {
	stats := &domain.OrderStats{ByStatus: map[domain.OrderStatus]int64{}}
	db := s.conn(ctx)

	if err := db.Model(&domain.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, translate(err)
	}
	if err := db.Model(&domain.Product{}).Where("active = ? AND stock <= ?", true, domain.LowStockThreshold).
		Count(&stats.LowStockProducts).Error; err != nil {
		return nil, translate(err)
	}

	var byStatus []struct {
		Status domain.OrderStatus
		N      int64
	}
	if err := db.Model(&domain.Order{}).Select("status, COUNT(*) AS n").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, translate(err)
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Status] = row.N
		stats.TotalOrders += row.N
	}

	// summed in Go to stay exact across drivers
	var totals []decimal.Decimal
	err := db.Model(&domain.Order{}).
		Where("status IN ?", []domain.OrderStatus{domain.OrderPaid, domain.OrderShipped, domain.OrderDelivered}).
		Pluck("total", &totals).Error
	if err != nil {
		return nil, translate(err)
	}
	stats.Revenue = decimal.Zero
	for _, t := range totals {
		stats.Revenue = stats.Revenue.Add(t)
	}
	return stats, nil
}
