package domain

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:160;uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"size:120" json:"name"`
	Phone        string    `gorm:"size:32" json:"phone,omitempty"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	Role         Role      `gorm:"size:16;not null;default:customer" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type CustomerAddress struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"-"`
	Label        string    `gorm:"size:60" json:"label,omitempty"`
	Name         string    `gorm:"size:120" json:"name"`
	Phone        string    `gorm:"size:32" json:"phone"`
	Province     string    `gorm:"size:80" json:"province"`
	City         string    `gorm:"size:80" json:"city"`
	Neighborhood string    `gorm:"size:120" json:"neighborhood"`
	Landmark     string    `gorm:"size:200" json:"landmark,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type CustomerPref struct {
	ID                uint   `gorm:"primaryKey" json:"-"`
	UserID            uint   `gorm:"uniqueIndex;not null" json:"-"`
	PreferredPayment  string `gorm:"size:16" json:"preferredPayment,omitempty"`
	PreferredShipping string `gorm:"size:16" json:"preferredShipping,omitempty"`
	MarketingOptIn    bool   `gorm:"not null" json:"marketingOptIn"`
	DefaultAddressID  *uint  `json:"defaultAddressId"`
}
