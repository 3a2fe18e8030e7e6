package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bazaar/internal/domain"
)

type CartRepo struct {
	db *sqlx.DB
}

func NewCartRepo(db *sqlx.DB) *CartRepo {
	return &CartRepo{db: db}
}

var _ domain.CartRepository = (*CartRepo)(nil)

// ItemsFor returns the user's cart lines in insertion order. Checkout relies
// on this ordering being stable.
func (r *CartRepo) ItemsFor(ctx context.Context, userID int64) ([]*domain.CartItem, error) {
	var res []*domain.CartItem
	err := r.db.SelectContext(ctx, &res, `
		SELECT * FROM cart_items WHERE user_id = ? ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	return res, nil
}

func (r *CartRepo) GetForUser(ctx context.Context, id, userID int64) (*domain.CartItem, error) {
	item := &domain.CartItem{}
	err := r.db.GetContext(ctx, item, `
		SELECT * FROM cart_items WHERE id = ? AND user_id = ?
	`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return item, nil
}

// Add inserts a new line or bumps the quantity of an existing
// (user, product, variant) line. The NULL-variant case is matched explicitly
// because a UNIQUE index treats NULLs as distinct. The lookup and the merge
// run in one write (immediate) transaction so that two concurrent adds of the
// same line serialize instead of racing into a UNIQUE violation or a lost
// quantity bump.
func (r *CartRepo) Add(ctx context.Context, item *domain.CartItem) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add cart item: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		SELECT * FROM cart_items
		WHERE user_id = ? AND product_id = ? AND variant_id IS NULL
	`
	args := []any{item.UserID, item.ProductID}
	if item.VariantID != nil {
		query = `
			SELECT * FROM cart_items
			WHERE user_id = ? AND product_id = ? AND variant_id = ?
		`
		args = append(args, *item.VariantID)
	}

	existing := &domain.CartItem{}
	err = tx.GetContext(ctx, existing, query, args...)
	if err == nil {
		item.ID = existing.ID
		item.Quantity += existing.Quantity
		item.AddedAt = existing.AddedAt
		if _, err := tx.ExecContext(ctx, `
			UPDATE cart_items SET quantity = ? WHERE id = ?
		`, item.Quantity, existing.ID); err != nil {
			return fmt.Errorf("update cart quantity: %w", err)
		}
		return tx.Commit()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("find cart item: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, variant_id, quantity, added_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, item.UserID, item.ProductID, item.VariantID, item.Quantity)
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	item.ID = id
	return tx.Commit()
}

func (r *CartRepo) UpdateQuantity(ctx context.Context, id, quantity int64) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = ? WHERE id = ?
	`, quantity, id); err != nil {
		return fmt.Errorf("update cart quantity: %w", err)
	}
	return nil
}

func (r *CartRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func (r *CartRepo) ClearFor(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
