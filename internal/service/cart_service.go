package service

import (
	"context"

	"bazaar/internal/domain"
)

// CartService manages a user's cart lines.
type CartService struct {
	carts    domain.CartRepository
	products domain.ProductRepository
}

func NewCartService(carts domain.CartRepository, products domain.ProductRepository) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
	}
}

// CartLine pairs a cart item with its product for API responses.
type CartLine struct {
	*domain.CartItem
	Product *domain.Product        `json:"product"`
	Variant *domain.ProductVariant `json:"variant,omitempty"`
}

func (s *CartService) Items(ctx context.Context, userID int64) ([]*CartLine, error) {
	items, err := s.carts.ItemsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines := make([]*CartLine, 0, len(items))
	for _, it := range items {
		line := &CartLine{CartItem: it}
		if line.Product, err = s.products.GetByID(ctx, it.ProductID); err != nil {
			return nil, err
		}
		if it.VariantID != nil {
			variants, err := s.products.VariantsFor(ctx, it.ProductID)
			if err != nil {
				return nil, err
			}
			for _, v := range variants {
				if v.ID == *it.VariantID {
					line.Variant = v
					break
				}
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Add puts a product (optionally a specific variant) into the cart, merging
// with an existing line for the same product/variant.
func (s *CartService) Add(ctx context.Context, userID, productID int64, variantID *int64, quantity int64) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidInput
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.Archived || !p.Available {
		return nil, domain.ErrNotFound
	}
	if variantID != nil {
		variants, err := s.products.VariantsFor(ctx, productID)
		if err != nil {
			return nil, err
		}
		var found bool
		for _, v := range variants {
			if v.ID == *variantID && v.Active {
				found = true
				break
			}
		}
		if !found {
			return nil, domain.ErrInvalidInput
		}
	}

	item := &domain.CartItem{
		UserID:    userID,
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
	}
	if err := s.carts.Add(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// SetQuantity updates a line's quantity; zero or negative removes the line.
func (s *CartService) SetQuantity(ctx context.Context, userID, itemID, quantity int64) (*domain.CartItem, error) {
	item, err := s.carts.GetForUser(ctx, itemID, userID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	if quantity <= 0 {
		if err := s.carts.Delete(ctx, itemID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err := s.carts.UpdateQuantity(ctx, itemID, quantity); err != nil {
		return nil, err
	}
	item.Quantity = quantity
	return item, nil
}

func (s *CartService) Remove(ctx context.Context, userID, itemID int64) error {
	item, err := s.carts.GetForUser(ctx, itemID, userID)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}
	return s.carts.Delete(ctx, itemID)
}
