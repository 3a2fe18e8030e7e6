package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"bazaar/internal/domain"
)

// CheckoutService converts a user's cart into an order inside one write
// transaction. All stock mutations are all-or-nothing: a single line with
// insufficient stock rolls back the order and every earlier decrement.
type CheckoutService struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewCheckoutService(db *sqlx.DB, log *zap.Logger) *CheckoutService {
	return &CheckoutService{db: db, log: log}
}

// Checkout places an order from the user's current cart.
//
// The transaction opens in immediate mode (see sqlite.Open), so concurrent
// checkouts touching the same stock rows serialize on the database write
// lock: a competing transaction sees either the pre- or fully-post-decrement
// state, never an intermediate one. Cart lines are processed in insertion
// order. The stock decrement carries a `stock >= ?` guard so a short row can
// never go negative even if the read raced.
func (s *CheckoutService) Checkout(ctx context.Context, userID int64) (*domain.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin checkout: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var items []*domain.CartItem
	if err := tx.SelectContext(ctx, &items, `
		SELECT * FROM cart_items WHERE user_id = ? ORDER BY id
	`, userID); err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (user_id, status, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	`, userID, domain.OrderCreated)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("order id: %w", err)
	}

	order := &domain.Order{ID: orderID, UserID: userID, Status: domain.OrderCreated}
	for _, ci := range items {
		item, err := s.reserveLine(ctx, tx, orderID, ci)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}
	if err := tx.QueryRowxContext(ctx, `
		SELECT created_at FROM orders WHERE id = ?
	`, orderID).Scan(&order.CreatedAt); err != nil {
		return nil, fmt.Errorf("read back order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit checkout: %w", err)
	}

	s.log.Info("checkout completed",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", orderID),
		zap.Int("lines", len(order.Items)),
	)
	return order, nil
}

// reserveLine locks and decrements the stock-bearing row for one cart line
// and snapshots it into an order item at the product's current price.
func (s *CheckoutService) reserveLine(ctx context.Context, tx *sqlx.Tx, orderID int64, ci *domain.CartItem) (*domain.OrderItem, error) {
	var product struct {
		Title string  `db:"title"`
		Price float64 `db:"price"`
		Stock int64   `db:"stock"`
	}
	if err := tx.GetContext(ctx, &product, `
		SELECT title, price, stock FROM products WHERE id = ?
	`, ci.ProductID); err != nil {
		return nil, fmt.Errorf("load product %d: %w", ci.ProductID, err)
	}

	if ci.VariantID != nil {
		var variant struct {
			Name  string `db:"name"`
			Stock int64  `db:"stock"`
		}
		if err := tx.GetContext(ctx, &variant, `
			SELECT name, stock FROM product_variants WHERE id = ?
		`, *ci.VariantID); err != nil {
			return nil, fmt.Errorf("load variant %d: %w", *ci.VariantID, err)
		}
		if ci.Quantity > variant.Stock {
			return nil, &domain.InsufficientStockError{Item: product.Title + " - " + variant.Name}
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE product_variants SET stock = stock - ? WHERE id = ? AND stock >= ?
		`, ci.Quantity, *ci.VariantID, ci.Quantity)
		if err != nil {
			return nil, fmt.Errorf("decrement variant stock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, &domain.InsufficientStockError{Item: product.Title + " - " + variant.Name}
		}
	} else {
		if ci.Quantity > product.Stock {
			return nil, &domain.InsufficientStockError{Item: product.Title}
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?
		`, ci.Quantity, ci.ProductID, ci.Quantity)
		if err != nil {
			return nil, fmt.Errorf("decrement product stock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, &domain.InsufficientStockError{Item: product.Title}
		}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO order_items (order_id, product_id, variant_id, quantity, price)
		VALUES (?, ?, ?, ?, ?)
	`, orderID, ci.ProductID, ci.VariantID, ci.Quantity, product.Price)
	if err != nil {
		return nil, fmt.Errorf("create order item: %w", err)
	}
	itemID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("order item id: %w", err)
	}

	return &domain.OrderItem{
		ID:        itemID,
		OrderID:   orderID,
		ProductID: ci.ProductID,
		VariantID: ci.VariantID,
		Quantity:  ci.Quantity,
		Price:     product.Price,
	}, nil
}
