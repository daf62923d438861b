package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"furnish-backend/internal/domain"
	"furnish-backend/internal/infrastructure/repo"
	"furnish-backend/internal/slug"

	"github.com/shopspring/decimal"
)

type CatalogStore interface {
	ListProducts(ctx context.Context, f repo.ProductFilter) ([]domain.Product, int64, error)
	ProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ProductByID(ctx context.Context, id uint) (*domain.Product, error)
	ProductSlugTaken(ctx context.Context, slug string) (bool, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product, images []domain.ProductImage) error
	DeleteProduct(ctx context.Context, id uint) error

	ListCategories(ctx context.Context) ([]domain.Category, error)
	CategoryByID(ctx context.Context, id uint) (*domain.Category, error)
	CategorySlugTaken(ctx context.Context, slug string) (bool, error)
	CreateCategory(ctx context.Context, c *domain.Category) error
	UpdateCategory(ctx context.Context, c *domain.Category) error
	DeleteCategory(ctx context.Context, id uint) error
	ReorderCategories(ctx context.Context, ids []uint) error

	ListFeatured(ctx context.Context) ([]domain.Product, error)
	SetFeatured(ctx context.Context, productIDs []uint) error

	ListCampaigns(ctx context.Context) ([]domain.Campaign, error)
	CreateCampaign(ctx context.Context, c *domain.Campaign) error
	DeleteCampaign(ctx context.Context, id uint) error

	ListLoyaltyTiers(ctx context.Context) ([]domain.LoyaltyTier, error)
	CreateLoyaltyTier(ctx context.Context, t *domain.LoyaltyTier) error
	DeleteLoyaltyTier(ctx context.Context, id uint) error
}

type CatalogService struct {
	Store CatalogStore
	Now   func() time.Time
}

func (s *CatalogService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type ProductQuery struct {
	Category string `form:"category" binding:"max=160"`
	Q        string `form:"q" binding:"max=200"`
	Page     int    `form:"page" binding:"omitempty,gte=1"`
	PageSize int    `form:"pageSize" binding:"omitempty,gte=1,lte=100"`
}

type ProductPage struct {
	Items    []domain.Product `json:"items"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
}

// Products lists the catalog. The storefront only ever sees active products.
func (s *CatalogService) Products(ctx context.Context, q ProductQuery, includeInactive bool) (*ProductPage, error) {
	items, total, err := s.Store.ListProducts(ctx, repo.ProductFilter{
		CategorySlug: strings.TrimSpace(q.Category),
		Query:        q.Q,
		ActiveOnly:   !includeInactive,
		Page:         q.Page,
		PageSize:     q.PageSize,
	})
	if err != nil {
		return nil, err
	}
	page, size := q.Page, q.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	if items == nil {
		items = []domain.Product{}
	}
	return &ProductPage{Items: items, Total: total, Page: page, PageSize: size}, nil
}

func (s *CatalogService) ProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	p, err := s.Store.ProductBySlug(ctx, slug)
	if err != nil {
		return nil, storeErr(err, "product", "")
	}
	if !p.Active {
		return nil, ErrNotFound("product")
	}
	return p, nil
}

func (s *CatalogService) Featured(ctx context.Context) ([]domain.Product, error) {
	out, err := s.Store.ListFeatured(ctx)
	if out == nil && err == nil {
		out = []domain.Product{}
	}
	return out, err
}

type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=10000"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	WeightKg    decimal.Decimal `json:"weightKg"`
	Active      *bool           `json:"active"`
	CategoryID  *uint           `json:"categoryId"`
	Images      []string        `json:"images" validate:"omitempty,max=20,dive,required,max=500"`
}

func (s *CatalogService) checkProduct(ctx context.Context, in ProductInput) error {
	ve := check(in)
	if !in.Price.IsPositive() {
		ve.Add("price", "must be greater than 0")
	}
	if in.WeightKg.IsNegative() {
		ve.Add("weightKg", "must not be negative")
	}
	if in.CategoryID != nil {
		_, err := s.Store.CategoryByID(ctx, *in.CategoryID)
		if errors.Is(err, domain.ErrNotFound) {
			ve.Add("categoryId", "does not exist")
		} else if err != nil {
			return err
		}
	}
	return ve.Err()
}

func imageRows(urls []string) []domain.ProductImage {
	if urls == nil {
		return nil
	}
	out := make([]domain.ProductImage, 0, len(urls))
	for i, u := range urls {
		out = append(out, domain.ProductImage{URL: strings.TrimSpace(u), Position: i})
	}
	return out
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := s.checkProduct(ctx, in); err != nil {
		return nil, err
	}
	sl, err := slug.Unique(ctx, in.Name, s.Store.ProductSlugTaken)
	if err != nil {
		return nil, err
	}
	p := &domain.Product{
		Name:        strings.TrimSpace(in.Name),
		Slug:        sl,
		Description: in.Description,
		Price:       domain.Round2(in.Price),
		Stock:       in.Stock,
		WeightKg:    in.WeightKg,
		Active:      in.Active == nil || *in.Active,
		CategoryID:  in.CategoryID,
		Images:      imageRows(in.Images),
	}
	if err := s.Store.CreateProduct(ctx, p); err != nil {
		return nil, storeErr(err, "product", "slug")
	}
	return s.Store.ProductByID(ctx, p.ID)
}

// UpdateProduct replaces the product fields. The slug follows the name; the
// image list is only replaced when images is present in the input.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*domain.Product, error) {
	p, err := s.Store.ProductByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "product", "")
	}
	if err := s.checkProduct(ctx, in); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name != p.Name {
		own := p.Slug
		sl, err := slug.Unique(ctx, name, func(ctx context.Context, c string) (bool, error) {
			if c == own {
				return false, nil
			}
			return s.Store.ProductSlugTaken(ctx, c)
		})
		if err != nil {
			return nil, err
		}
		p.Slug = sl
	}
	p.Name = name
	p.Description = in.Description
	p.Price = domain.Round2(in.Price)
	p.Stock = in.Stock
	p.WeightKg = in.WeightKg
	if in.Active != nil {
		p.Active = *in.Active
	}
	p.CategoryID = in.CategoryID
	if err := s.Store.UpdateProduct(ctx, p, imageRows(in.Images)); err != nil {
		return nil, storeErr(err, "product", "slug")
	}
	return s.Store.ProductByID(ctx, p.ID)
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	return storeErr(s.Store.DeleteProduct(ctx, id), "product", "")
}

func (s *CatalogService) Categories(ctx context.Context) ([]domain.Category, error) {
	out, err := s.Store.ListCategories(ctx)
	if out == nil && err == nil {
		out = []domain.Category{}
	}
	return out, err
}

type CategoryInput struct {
	Name string `json:"name" validate:"required,max=120"`
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	if err := check(in).Err(); err != nil {
		return nil, err
	}
	sl, err := slug.Unique(ctx, in.Name, s.Store.CategorySlugTaken)
	if err != nil {
		return nil, err
	}
	c := &domain.Category{Name: strings.TrimSpace(in.Name), Slug: sl}
	if err := s.Store.CreateCategory(ctx, c); err != nil {
		return nil, storeErr(err, "category", "slug")
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*domain.Category, error) {
	if err := check(in).Err(); err != nil {
		return nil, err
	}
	c, err := s.Store.CategoryByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "category", "")
	}
	name := strings.TrimSpace(in.Name)
	if name != c.Name {
		own := c.Slug
		sl, err := slug.Unique(ctx, name, func(ctx context.Context, cand string) (bool, error) {
			if cand == own {
				return false, nil
			}
			return s.Store.CategorySlugTaken(ctx, cand)
		})
		if err != nil {
			return nil, err
		}
		c.Name, c.Slug = name, sl
	}
	if err := s.Store.UpdateCategory(ctx, c); err != nil {
		return nil, storeErr(err, "category", "slug")
	}
	return c, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	return storeErr(s.Store.DeleteCategory(ctx, id), "category", "")
}

type ReorderInput struct {
	IDs []uint `json:"ids" validate:"required,min=1,dive,required"`
}

func (s *CatalogService) ReorderCategories(ctx context.Context, in ReorderInput) ([]domain.Category, error) {
	ve := check(in)
	seen := map[uint]bool{}
	for _, id := range in.IDs {
		if seen[id] {
			ve.Addf("ids", "category %d listed twice", id)
		}
		seen[id] = true
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	if err := s.Store.ReorderCategories(ctx, in.IDs); err != nil {
		return nil, storeErr(err, "category", "")
	}
	return s.Store.ListCategories(ctx)
}

type FeaturedInput struct {
	ProductIDs []uint `json:"productIds" validate:"max=24,dive,required"`
}

func (s *CatalogService) SetFeatured(ctx context.Context, in FeaturedInput) ([]domain.Product, error) {
	ve := check(in)
	var ids []uint
	seen := map[uint]bool{}
	for _, id := range in.ProductIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.Store.ProductByID(ctx, id); errors.Is(err, domain.ErrNotFound) {
			ve.Addf("productIds", "product %d does not exist", id)
		} else if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	if err := s.Store.SetFeatured(ctx, ids); err != nil {
		return nil, err
	}
	return s.Featured(ctx)
}

// Campaigns returns every campaign, or only those running now.
func (s *CatalogService) Campaigns(ctx context.Context, runningOnly bool) ([]domain.Campaign, error) {
	all, err := s.Store.ListCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Campaign, 0, len(all))
	now := s.now()
	for _, c := range all {
		if !runningOnly || c.Running(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

type CampaignInput struct {
	Title    string    `json:"title" validate:"required,max=160"`
	Subtitle string    `json:"subtitle" validate:"max=300"`
	ImageURL string    `json:"imageUrl" validate:"max=500"`
	LinkURL  string    `json:"linkUrl" validate:"max=500"`
	StartsAt time.Time `json:"startsAt" validate:"required"`
	EndsAt   time.Time `json:"endsAt" validate:"required"`
	Active   *bool     `json:"active"`
}

func (s *CatalogService) CreateCampaign(ctx context.Context, in CampaignInput) (*domain.Campaign, error) {
	ve := check(in)
	if !in.StartsAt.IsZero() && !in.EndsAt.After(in.StartsAt) {
		ve.Add("endsAt", "must be after startsAt")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	c := &domain.Campaign{
		Title:    strings.TrimSpace(in.Title),
		Subtitle: in.Subtitle,
		ImageURL: in.ImageURL,
		LinkURL:  in.LinkURL,
		StartsAt: in.StartsAt.UTC(),
		EndsAt:   in.EndsAt.UTC(),
		Active:   in.Active == nil || *in.Active,
	}
	if err := s.Store.CreateCampaign(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) DeleteCampaign(ctx context.Context, id uint) error {
	return storeErr(s.Store.DeleteCampaign(ctx, id), "campaign", "")
}

func (s *CatalogService) LoyaltyTiers(ctx context.Context) ([]domain.LoyaltyTier, error) {
	out, err := s.Store.ListLoyaltyTiers(ctx)
	if out == nil && err == nil {
		out = []domain.LoyaltyTier{}
	}
	return out, err
}

type LoyaltyTierInput struct {
	Name        string          `json:"name" validate:"required,max=80"`
	MinSpend    decimal.Decimal `json:"minSpend"`
	DiscountPct decimal.Decimal `json:"discountPct"`
	Perks       string          `json:"perks" validate:"max=2000"`
}

var hundred = decimal.NewFromInt(100)

func (s *CatalogService) CreateLoyaltyTier(ctx context.Context, in LoyaltyTierInput) (*domain.LoyaltyTier, error) {
	ve := check(in)
	if in.MinSpend.IsNegative() {
		ve.Add("minSpend", "must not be negative")
	}
	if in.DiscountPct.IsNegative() || in.DiscountPct.GreaterThan(hundred) {
		ve.Add("discountPct", "must be between 0 and 100")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	t := &domain.LoyaltyTier{Name: strings.TrimSpace(in.Name), MinSpend: in.MinSpend, DiscountPct: in.DiscountPct, Perks: in.Perks}
	if err := s.Store.CreateLoyaltyTier(ctx, t); err != nil {
		return nil, storeErr(err, "loyalty tier", "name")
	}
	return t, nil
}

func (s *CatalogService) DeleteLoyaltyTier(ctx context.Context, id uint) error {
	return storeErr(s.Store.DeleteLoyaltyTier(ctx, id), "loyalty tier", "")
}
