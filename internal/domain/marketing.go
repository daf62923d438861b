package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Campaign struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:160;not null" json:"title"`
	Subtitle  string    `gorm:"size:300" json:"subtitle,omitempty"`
	ImageURL  string    `gorm:"size:500" json:"imageUrl,omitempty"`
	LinkURL   string    `gorm:"size:500" json:"linkUrl,omitempty"`
	StartsAt  time.Time `gorm:"not null" json:"startsAt"`
	EndsAt    time.Time `gorm:"not null" json:"endsAt"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Running reports whether the campaign should be shown at now.
func (c Campaign) Running(now time.Time) bool {
	return c.Active && !now.Before(c.StartsAt) && now.Before(c.EndsAt)
}

type LoyaltyTier struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:80;uniqueIndex;not null" json:"name"`
	MinSpend    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"minSpend"`
	DiscountPct decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discountPct"`
	Perks       string          `gorm:"type:text" json:"perks,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}
