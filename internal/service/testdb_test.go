package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"bazaar/internal/domain"
	"bazaar/internal/store/sqlite"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *sqlx.DB, username string) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:       username,
		HashedPassword: "irrelevant",
		Role:           domain.RoleUser,
		IsActive:       true,
	}
	require.NoError(t, sqlite.NewUserRepo(db).Create(context.Background(), u))
	return u
}

func seedProduct(t *testing.T, db *sqlx.DB, sellerID int64, title string, price float64, stock int64) *domain.Product {
	t.Helper()
	p := &domain.Product{
		SellerID:  sellerID,
		Title:     title,
		Price:     price,
		Stock:     stock,
		Available: true,
	}
	require.NoError(t, sqlite.NewProductRepo(db).Create(context.Background(), p))
	return p
}

func seedVariant(t *testing.T, db *sqlx.DB, productID int64, name string, stock int64) *domain.ProductVariant {
	t.Helper()
	repo := sqlite.NewProductRepo(db)
	require.NoError(t, repo.ReplaceVariants(context.Background(), productID, []*domain.ProductVariant{
		{Name: name, Stock: stock, Active: true},
	}))
	variants, err := repo.VariantsFor(context.Background(), productID)
	require.NoError(t, err)
	require.Len(t, variants, 1)
	_, err = db.Exec(`UPDATE products SET has_variants = 1 WHERE id = ?`, productID)
	require.NoError(t, err)
	return variants[0]
}

func addCartLine(t *testing.T, db *sqlx.DB, userID, productID int64, variantID *int64, qty int64) {
	t.Helper()
	require.NoError(t, sqlite.NewCartRepo(db).Add(context.Background(), &domain.CartItem{
		UserID:    userID,
		ProductID: productID,
		VariantID: variantID,
		Quantity:  qty,
	}))
}

func productStock(t *testing.T, db *sqlx.DB, productID int64) int64 {
	t.Helper()
	var stock int64
	require.NoError(t, db.Get(&stock, `SELECT stock FROM products WHERE id = ?`, productID))
	return stock
}

func variantStock(t *testing.T, db *sqlx.DB, variantID int64) int64 {
	t.Helper()
	var stock int64
	require.NoError(t, db.Get(&stock, `SELECT stock FROM product_variants WHERE id = ?`, variantID))
	return stock
}

func countRows(t *testing.T, db *sqlx.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM `+table))
	return n
}
