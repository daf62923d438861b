package repo

import (
	"context"
	"strings"

	"furnish-backend/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductFilter struct {
	CategorySlug string
	Query        string
	ActiveOnly   bool
	Page         int
	PageSize     int
}

func orderedImages(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

// ProductsByIDs returns the active products among ids in one query.
func (s *Store) ProductsByIDs(ctx context.Context, ids []uint) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.Product
	err := s.conn(ctx).Preload("Images", orderedImages).
		Where("id IN ? AND active = ?", ids, true).
		Find(&out).Error
	return out, translate(err)
}

func (s *Store) ListProducts(ctx context.Context, f ProductFilter) ([]domain.Product, int64, error) {
	q := s.conn(ctx).Model(&domain.Product{})
	if f.ActiveOnly {
		q = q.Where("products.active = ?", true)
	}
	if f.CategorySlug != "" {
		q = q.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", f.CategorySlug)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?", like, like)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	limit, offset := paginate(f.Page, f.PageSize)
	var out []domain.Product
	err := q.Preload("Images", orderedImages).Preload("Category").
		Order("products.created_at DESC, products.id DESC").
		Limit(limit).Offset(offset).
		Find(&out).Error
	return out, total, translate(err)
}

func (s *Store) ProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	var p domain.Product
	err := s.conn(ctx).Preload("Images", orderedImages).Preload("Category").
		Where("slug = ?", slug).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) ProductByID(ctx context.Context, id uint) (*domain.Product, error) {
	var p domain.Product
	err := s.conn(ctx).Preload("Images", orderedImages).Preload("Category").First(&p, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) ProductSlugTaken(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&domain.Product{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, translate(err)
}

func (s *Store) CreateProduct(ctx context.Context, p *domain.Product) error {
	return translate(s.conn(ctx).Omit("Category").Create(p).Error)
}

// UpdateProduct saves the scalar fields of p. When images is non-nil the
// product's image list is replaced by it.
func (s *Store) UpdateProduct(ctx context.Context, p *domain.Product, images []domain.ProductImage) error {
	return s.Transact(ctx, func(tx *Store) error {
		res := tx.db.Model(&domain.Product{}).Where("id = ?", p.ID).
			Select("name", "slug", "description", "price", "stock", "weight_kg", "active", "category_id", "updated_at").
			Updates(p)
		if err := deleted(res); err != nil {
			return err
		}
		if images == nil {
			return nil
		}
		if err := tx.db.Where("product_id = ?", p.ID).Delete(&domain.ProductImage{}).Error; err != nil {
			return translate(err)
		}
		for i := range images {
			images[i].ID = 0
			images[i].ProductID = p.ID
		}
		if len(images) > 0 {
			if err := tx.db.Create(&images).Error; err != nil {
				return translate(err)
			}
		}
		p.Images = images
		return nil
	})
}

func (s *Store) DeleteProduct(ctx context.Context, id uint) error {
	return s.Transact(ctx, func(tx *Store) error {
		if err := tx.db.Where("product_id = ?", id).Delete(&domain.ProductImage{}).Error; err != nil {
			return translate(err)
		}
		if err := tx.db.Where("product_id = ?", id).Delete(&domain.FeaturedProduct{}).Error; err != nil {
			return translate(err)
		}
		return deleted(tx.db.Delete(&domain.Product{}, id))
	})
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := s.conn(ctx).Order("position ASC, id ASC").Find(&out).Error
	return out, translate(err)
}

func (s *Store) CategoryByID(ctx context.Context, id uint) (*domain.Category, error) {
	var c domain.Category
	if err := s.conn(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) CategorySlugTaken(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&domain.Category{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, translate(err)
}

// CreateCategory appends c after the last existing category.
func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	return s.Transact(ctx, func(tx *Store) error {
		var maxPos int
		row := tx.db.Model(&domain.Category{}).Select("COALESCE(MAX(position), -1)").Row()
		if err := row.Scan(&maxPos); err != nil {
			return translate(err)
		}
		c.Position = maxPos + 1
		return translate(tx.db.Create(c).Error)
	})
}

func (s *Store) UpdateCategory(ctx context.Context, c *domain.Category) error {
	res := s.conn(ctx).Model(&domain.Category{}).Where("id = ?", c.ID).
		Select("name", "slug", "updated_at").Updates(c)
	return deleted(res)
}

func (s *Store) DeleteCategory(ctx context.Context, id uint) error {
	return s.Transact(ctx, func(tx *Store) error {
		err := tx.db.Model(&domain.Product{}).Where("category_id = ?", id).Update("category_id", nil).Error
		if err != nil {
			return translate(err)
		}
		return deleted(tx.db.Delete(&domain.Category{}, id))
	})
}

// ReorderCategories assigns position i to ids[i]. Unknown ids abort the
// whole reorder.
func (s *Store) ReorderCategories(ctx context.Context, ids []uint) error {
	return s.Transact(ctx, func(tx *Store) error {
		for pos, id := range ids {
			res := tx.db.Model(&domain.Category{}).Where("id = ?", id).Update("position", pos)
			if err := deleted(res); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListFeatured(ctx context.Context) ([]domain.Product, error) {
	var rows []domain.FeaturedProduct
	if err := s.conn(ctx).Order("position ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ProductID)
	}
	products, err := s.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	out := make([]domain.Product, 0, len(products))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) SetFeatured(ctx context.Context, productIDs []uint) error {
	return s.Transact(ctx, func(tx *Store) error {
		if err := tx.db.Where("1 = 1").Delete(&domain.FeaturedProduct{}).Error; err != nil {
			return translate(err)
		}
		if len(productIDs) == 0 {
			return nil
		}
		rows := make([]domain.FeaturedProduct, 0, len(productIDs))
		for i, id := range productIDs {
			rows = append(rows, domain.FeaturedProduct{ProductID: id, Position: i})
		}
		return translate(tx.db.Omit(clause.Associations).Create(&rows).Error)
	})
}

func (s *Store) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	var out []domain.Campaign
	err := s.conn(ctx).Order("starts_at DESC, id DESC").Find(&out).Error
	return out, translate(err)
}

func (s *Store) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	return translate(s.conn(ctx).Create(c).Error)
}

func (s *Store) DeleteCampaign(ctx context.Context, id uint) error {
	return deleted(s.conn(ctx).Delete(&domain.Campaign{}, id))
}

func (s *Store) ListLoyaltyTiers(ctx context.Context) ([]domain.LoyaltyTier, error) {
	var out []domain.LoyaltyTier
	err := s.conn(ctx).Order("min_spend ASC, id ASC").Find(&out).Error
	return out, translate(err)
}

func (s *Store) CreateLoyaltyTier(ctx context.Context, t *domain.LoyaltyTier) error {
	return translate(s.conn(ctx).Create(t).Error)
}

func (s *Store) DeleteLoyaltyTier(ctx context.Context, id uint) error {
	return deleted(s.conn(ctx).Delete(&domain.LoyaltyTier{}, id))
}
