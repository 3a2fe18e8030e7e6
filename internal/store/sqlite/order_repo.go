package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bazaar/internal/domain"
)

type OrderRepo struct {
	db *sqlx.DB
}

func NewOrderRepo(db *sqlx.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

var _ domain.OrderRepository = (*OrderRepo)(nil)

func (r *OrderRepo) ListFor(ctx context.Context, userID int64) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := r.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	for _, o := range orders {
		if o.Items, err = r.itemsFor(ctx, o.ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *OrderRepo) GetForUser(ctx context.Context, id, userID int64) (*domain.Order, error) {
	o := &domain.Order{}
	err := r.db.GetContext(ctx, o, `
		SELECT * FROM orders WHERE id = ? AND user_id = ?
	`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o.Items, err = r.itemsFor(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepo) itemsFor(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
	var items []*domain.OrderItem
	err := r.db.SelectContext(ctx, &items, `
		SELECT * FROM order_items WHERE order_id = ? ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return items, nil
}
