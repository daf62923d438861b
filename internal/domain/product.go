package domain

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Slug      string    `gorm:"size:160;uniqueIndex;not null" json:"slug"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey"`
	Name        string          `gorm:"size:200;not null"`
	Slug        string          `gorm:"size:220;uniqueIndex;not null"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Stock       int             `gorm:"not null;default:0"`
	WeightKg    decimal.Decimal `gorm:"type:decimal(10,3);not null;default:0"`
	Active      bool            `gorm:"not null"`
	CategoryID  *uint           `gorm:"index"`
	Category    *Category       `gorm:"constraint:OnDelete:SET NULL"`
	Images      []ProductImage  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProductImage struct {
	ID        uint   `gorm:"primaryKey"`
	ProductID uint   `gorm:"index;not null"`
	URL       string `gorm:"size:500;not null"`
	Position  int    `gorm:"not null;default:0"`
}

// InStock is derived from the stock count and is never persisted.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// ImageURLs returns the product images in display order.
func (p Product) ImageURLs() []string {
	imgs := append([]ProductImage(nil), p.Images...)
	sort.SliceStable(imgs, func(i, j int) bool { return imgs[i].Position < imgs[j].Position })
	out := make([]string, 0, len(imgs))
	for _, img := range imgs {
		out = append(out, img.URL)
	}
	return out
}

func (p Product) MainImage() string {
	urls := p.ImageURLs()
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

func (p Product) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          uint            `json:"id"`
		Name        string          `json:"name"`
		Slug        string          `json:"slug"`
		Description string          `json:"description"`
		Price       decimal.Decimal `json:"price"`
		Stock       int             `json:"stock"`
		InStock     bool            `json:"inStock"`
		WeightKg    decimal.Decimal `json:"weightKg"`
		Active      bool            `json:"active"`
		CategoryID  *uint           `json:"categoryId"`
		Category    *Category       `json:"category,omitempty"`
		Images      []string        `json:"images"`
		CreatedAt   time.Time       `json:"createdAt"`
		UpdatedAt   time.Time       `json:"updatedAt"`
	}{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		InStock:     p.InStock(),
		WeightKg:    p.WeightKg,
		Active:      p.Active,
		CategoryID:  p.CategoryID,
		Category:    p.Category,
		Images:      p.ImageURLs(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	})
}

type FeaturedProduct struct {
	ID        uint     `gorm:"primaryKey" json:"-"`
	ProductID uint     `gorm:"uniqueIndex;not null" json:"productId"`
	Position  int      `gorm:"not null;default:0" json:"position"`
	Product   *Product `gorm:"constraint:OnDelete:CASCADE" json:"product,omitempty"`
}
