package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bazaar/internal/domain"
)

type ProductRepo struct {
	db *sqlx.DB
}

func NewProductRepo(db *sqlx.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

var _ domain.ProductRepository = (*ProductRepo)(nil)

func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO products (seller_id, category_id, title, description, price, image_url,
			archived, available, has_variants, stock, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?, CURRENT_TIMESTAMP)
	`, p.SellerID, p.CategoryID, p.Title, p.Description, p.Price, p.ImageURL,
		p.Available, p.HasVariants, p.Stock)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	p.ID = id
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	p := &domain.Product{}
	err := r.db.GetContext(ctx, p, `SELECT * FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *ProductRepo) Update(ctx context.Context, p *domain.Product) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET category_id = ?, title = ?, description = ?, price = ?, image_url = ?,
			available = ?, has_variants = ?, stock = ?
		WHERE id = ?
	`, p.CategoryID, p.Title, p.Description, p.Price, p.ImageURL,
		p.Available, p.HasVariants, p.Stock, p.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *ProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]*domain.Product, error) {
	query := `SELECT * FROM products WHERE available = 1 AND archived = 0`
	var args []any
	if f.Query != "" {
		query += ` AND (title LIKE ? OR description LIKE ?)`
		like := "%" + f.Query + "%"
		args = append(args, like, like)
	}
	if f.CategoryID != nil {
		query += ` AND category_id = ?`
		args = append(args, *f.CategoryID)
	}
	if f.SellerID != nil {
		query += ` AND seller_id = ?`
		args = append(args, *f.SellerID)
	}
	query += ` ORDER BY created_at DESC`

	var res []*domain.Product
	if err := r.db.SelectContext(ctx, &res, query, args...); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return res, nil
}

func (r *ProductRepo) ListArchived(ctx context.Context) ([]*domain.Product, error) {
	var res []*domain.Product
	err := r.db.SelectContext(ctx, &res, `
		SELECT * FROM products WHERE archived = 1 ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list archived products: %w", err)
	}
	return res, nil
}

func (r *ProductRepo) SetArchived(ctx context.Context, id int64, archived bool) error {
	var err error
	if archived {
		_, err = r.db.ExecContext(ctx, `
			UPDATE products SET archived = 1, available = 0, archived_at = CURRENT_TIMESTAMP WHERE id = ?
		`, id)
	} else {
		_, err = r.db.ExecContext(ctx, `
			UPDATE products SET archived = 0, available = 1, archived_at = NULL WHERE id = ?
		`, id)
	}
	if err != nil {
		return fmt.Errorf("set archived: %w", err)
	}
	return nil
}

func (r *ProductRepo) ReplaceVariants(ctx context.Context, productID int64, variants []*domain.ProductVariant) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_variants WHERE product_id = ?`, productID); err != nil {
		return fmt.Errorf("delete variants: %w", err)
	}
	for _, v := range variants {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO product_variants (product_id, name, stock, active) VALUES (?, ?, ?, ?)
		`, productID, v.Name, v.Stock, v.Active)
		if err != nil {
			return fmt.Errorf("insert variant: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		v.ID = id
		v.ProductID = productID
	}
	return tx.Commit()
}

func (r *ProductRepo) VariantsFor(ctx context.Context, productID int64) ([]*domain.ProductVariant, error) {
	var res []*domain.ProductVariant
	err := r.db.SelectContext(ctx, &res, `
		SELECT * FROM product_variants WHERE product_id = ? ORDER BY name
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	return res, nil
}
