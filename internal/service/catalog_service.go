package service

import (
	"context"
	"fmt"
	"math"

	"github.com/samber/lo"

	"bazaar/internal/domain"
)

// CatalogService manages products, variants, and categories.
type CatalogService struct {
	products   domain.ProductRepository
	categories domain.CategoryRepository
}

func NewCatalogService(products domain.ProductRepository, categories domain.CategoryRepository) *CatalogService {
	return &CatalogService{
		products:   products,
		categories: categories,
	}
}

type VariantInput struct {
	Name   string
	Stock  int64
	Active *bool
}

type ProductInput struct {
	Title       string
	Description string
	Price       float64
	ImageURL    string
	CategoryID  *int64
	HasVariants bool
	Stock       int64
	Variants    []VariantInput
}

func roundPrice(p float64) float64 {
	return math.Round(p*100) / 100
}

func (s *CatalogService) Create(ctx context.Context, sellerID int64, in ProductInput) (*domain.Product, error) {
	if in.Title == "" || in.Price < 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.CategoryID != nil {
		cat, err := s.categories.GetByID(ctx, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		if cat == nil {
			return nil, domain.ErrInvalidInput
		}
	}

	p := &domain.Product{
		SellerID:    sellerID,
		CategoryID:  in.CategoryID,
		Title:       in.Title,
		Description: in.Description,
		Price:       roundPrice(in.Price),
		ImageURL:    in.ImageURL,
		Available:   true,
		HasVariants: in.HasVariants,
		Stock:       in.Stock,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}

	if in.HasVariants && len(in.Variants) > 0 {
		if err := s.setVariants(ctx, p, in.Variants); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *CatalogService) Update(ctx context.Context, id int64, in ProductInput) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}

	p.Title = in.Title
	p.Description = in.Description
	p.Price = roundPrice(in.Price)
	p.ImageURL = in.ImageURL
	p.CategoryID = in.CategoryID
	p.HasVariants = in.HasVariants
	p.Stock = in.Stock
	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}

	if in.HasVariants {
		if err := s.setVariants(ctx, p, in.Variants); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *CatalogService) setVariants(ctx context.Context, p *domain.Product, in []VariantInput) error {
	variants := lo.Map(in, func(v VariantInput, _ int) *domain.ProductVariant {
		active := true
		if v.Active != nil {
			active = *v.Active
		}
		return &domain.ProductVariant{Name: v.Name, Stock: v.Stock, Active: active}
	})
	if err := s.products.ReplaceVariants(ctx, p.ID, variants); err != nil {
		return fmt.Errorf("replace variants: %w", err)
	}
	p.Variants = variants
	return nil
}

// Get returns a product with its variants loaded.
func (s *CatalogService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	if p.Variants, err = s.products.VariantsFor(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) List(ctx context.Context, f domain.ProductFilter) ([]*domain.Product, error) {
	products, err := s.products.List(ctx, f)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.HasVariants {
			if p.Variants, err = s.products.VariantsFor(ctx, p.ID); err != nil {
				return nil, err
			}
		}
	}
	return products, nil
}

func (s *CatalogService) ListArchived(ctx context.Context) ([]*domain.Product, error) {
	return s.products.ListArchived(ctx)
}

// Archive marks a product as archived and unavailable. Products are never
// hard-deleted.
func (s *CatalogService) Archive(ctx context.Context, id int64) error {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return domain.ErrNotFound
	}
	return s.products.SetArchived(ctx, id, true)
}

// Restore brings an archived product back to the available state.
func (s *CatalogService) Restore(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	if err := s.products.SetArchived(ctx, id, false); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *CatalogService) Categories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	c := &domain.Category{Name: name}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
