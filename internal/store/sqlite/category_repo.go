package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bazaar/internal/domain"
)

type CategoryRepo struct {
	db *sqlx.DB
}

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

var _ domain.CategoryRepository = (*CategoryRepo)(nil)

func (r *CategoryRepo) Create(ctx context.Context, c *domain.Category) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, c.Name)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	return nil
}

func (r *CategoryRepo) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	c := &domain.Category{}
	err := r.db.GetContext(ctx, c, `SELECT * FROM categories WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *CategoryRepo) List(ctx context.Context) ([]*domain.Category, error) {
	var res []*domain.Category
	if err := r.db.SelectContext(ctx, &res, `SELECT * FROM categories ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return res, nil
}
