package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further status change is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

type Order struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Status         OrderStatus     `gorm:"size:20;index;not null;default:pending" json:"status"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	ShippingCost   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shippingCost"`
	Discount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	ShippingMethod string          `gorm:"size:32;not null" json:"shippingMethod"`
	PaymentMethod  string          `gorm:"size:32;not null" json:"paymentMethod"`
	CouponCode     string          `gorm:"size:64" json:"couponCode,omitempty"`
	UserID         *uint           `gorm:"index" json:"userId"`
	GuestName      string          `gorm:"size:120" json:"guestName,omitempty"`
	CustomerEmail  string          `gorm:"size:160" json:"customerEmail,omitempty"`
	Notes          string          `gorm:"type:text" json:"notes,omitempty"`
	Items          []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Address        *OrderAddress   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"address"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// OrderItem is a point-in-time copy of the product; it does not reference the
// live products row.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"index;not null" json:"orderId"`
	ProductID uint            `gorm:"index;not null" json:"productId"`
	Name      string          `gorm:"size:200;not null" json:"name"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Image     string          `gorm:"size:500" json:"image,omitempty"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type OrderAddress struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	OrderID      uint   `gorm:"uniqueIndex;not null" json:"-"`
	Name         string `gorm:"size:120" json:"name"`
	Phone        string `gorm:"size:32" json:"phone"`
	Province     string `gorm:"size:80" json:"province"`
	City         string `gorm:"size:80" json:"city"`
	Neighborhood string `gorm:"size:120" json:"neighborhood"`
	Landmark     string `gorm:"size:200" json:"landmark,omitempty"`
}

// LowStockThreshold is the stock level at or below which a product is
// reported as running low.
const LowStockThreshold = 3

type OrderStats struct {
	TotalOrders      int64                 `json:"totalOrders"`
	ByStatus         map[OrderStatus]int64 `json:"byStatus"`
	Revenue          decimal.Decimal       `json:"revenue"`
	TotalProducts    int64                 `json:"totalProducts"`
	LowStockProducts int64                 `json:"lowStockProducts"`
}

const referencePrefix = "ORD"

// PaymentReference is the gateway reference for the given attempt of an
// order. Each attempt gets a fresh reference so the gateway can deduplicate.
func PaymentReference(orderID uint, attempt int) string {
	return fmt.Sprintf("%s%d-%d", referencePrefix, orderID, attempt)
}

// OrderIDFromReference recovers the order id from a PaymentReference value.
func OrderIDFromReference(ref string) (uint, bool) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if !strings.HasPrefix(ref, referencePrefix) {
		return 0, false
	}
	ref = strings.TrimPrefix(ref, referencePrefix)
	if i := strings.IndexByte(ref, '-'); i >= 0 {
		ref = ref[:i]
	}
	id, err := strconv.ParseUint(ref, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Round2 rounds a monetary amount to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
