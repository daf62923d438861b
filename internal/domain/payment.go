package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentEmola PaymentType = "EMOLA"
	PaymentMpesa PaymentType = "MPESA"
	PaymentBank  PaymentType = "BANK"
)

func ParsePaymentType(s string) (PaymentType, bool) {
	t := PaymentType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case PaymentEmola, PaymentMpesa, PaymentBank:
		return t, true
	}
	return "", false
}

// MobileMoney reports whether the type is paid through a C2B wallet collection.
func (t PaymentType) MobileMoney() bool {
	return t == PaymentEmola || t == PaymentMpesa
}

type PaymentMethod struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	Name          string      `gorm:"size:120;uniqueIndex;not null" json:"name"`
	Type          PaymentType `gorm:"size:16;index;not null" json:"type"`
	WalletPhone   string      `gorm:"size:32" json:"walletPhone,omitempty"`
	BankName      string      `gorm:"size:120" json:"bankName,omitempty"`
	AccountHolder string      `gorm:"size:120" json:"accountHolder,omitempty"`
	AccountNumber string      `gorm:"size:64" json:"accountNumber,omitempty"`
	Active        bool        `gorm:"not null" json:"active"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

type TransactionStatus string

const (
	TxSubmitted TransactionStatus = "submitted"
	TxSucceeded TransactionStatus = "succeeded"
	TxFailed    TransactionStatus = "failed"
	TxTimedOut  TransactionStatus = "timed_out"
)

// PaymentTransaction records one C2B attempt so gateway callbacks can be
// matched back to the order.
type PaymentTransaction struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	Reference     string            `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	OrderID       *uint             `gorm:"index" json:"orderId"`
	Provider      PaymentType       `gorm:"size:16;not null" json:"provider"`
	Phone         string            `gorm:"size:16;not null" json:"phone"`
	Amount        decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status        TransactionStatus `gorm:"size:16;not null" json:"status"`
	GatewayTxID   string            `gorm:"size:128;index" json:"gatewayTransactionId,omitempty"`
	GatewayDetail string            `gorm:"type:text" json:"gatewayDetail,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}
