package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"bazaar/internal/domain"
)

func TestCheckoutHappyPath(t *testing.T) {
	db := newTestDB(t)
	svc := NewCheckoutService(db, zaptest.NewLogger(t))

	seller := seedUser(t, db, "seller")
	buyer := seedUser(t, db, "buyer")
	product := seedProduct(t, db, seller.ID, "Lamp", 19.99, 5)
	addCartLine(t, db, buyer.ID, product.ID, nil, 3)

	order, err := svc.Checkout(context.Background(), buyer.ID)
	require.NoError(t, err)

	assert.Equal(t, buyer.ID, order.UserID)
	assert.Equal(t, domain.OrderCreated, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(3), order.Items[0].Quantity)
	assert.Equal(t, 19.99, order.Items[0].Price)
	assert.InDelta(t, 59.97, order.TotalAmount(), 1e-9)
	assert.False(t, order.CreatedAt.IsZero())

	assert.Equal(t, int64(2), productStock(t, db, product.ID))
	assert.Equal(t, int64(0), countRows(t, db, "cart_items"))
}

func TestCheckoutEmptyCart(t *testing.T) {
	db := newTestDB(t)
	svc := NewCheckoutService(db, zaptest.NewLogger(t))
	buyer := seedUser(t, db, "buyer")

	_, err := svc.Checkout(context.Background(), buyer.ID)
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.Equal(t, int64(0), countRows(t, db, "orders"))
}

func TestCheckoutRollsBackOnInsufficientStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewCheckoutService(db, zaptest.NewLogger(t))

	seller := seedUser(t, db, "seller")
	buyer := seedUser(t, db, "buyer")
	plenty := seedProduct(t, db, seller.ID, "Plenty", 5.00, 10)
	scarce := seedProduct(t, db, seller.ID, "Scarce", 9.00, 1)
	addCartLine(t, db, buyer.ID, plenty.ID, nil, 2)
	addCartLine(t, db, buyer.ID, scarce.ID, nil, 5)

	_, err := svc.Checkout(context.Background(), buyer.ID)

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Scarce", stockErr.Item)

	// The whole transaction rolled back: stock, order, and cart untouched.
	assert.Equal(t, int64(10), productStock(t, db, plenty.ID))
	assert.Equal(t, int64(1), productStock(t, db, scarce.ID))
	assert.Equal(t, int64(0), countRows(t, db, "orders"))
	assert.Equal(t, int64(0), countRows(t, db, "order_items"))
	assert.Equal(t, int64(2), countRows(t, db, "cart_items"))
}

func TestCheckoutVariantStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewCheckoutService(db, zaptest.NewLogger(t))

	seller := seedUser(t, db, "seller")
	buyer := seedUser(t, db, "buyer")
	shirt := seedProduct(t, db, seller.ID, "Shirt", 25.00, 0)
	size := seedVariant(t, db, shirt.ID, "M", 4)
	addCartLine(t, db, buyer.ID, shirt.ID, &size.ID, 4)

	order, err := svc.Checkout(context.Background(), buyer.ID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	require.NotNil(t, order.Items[0].VariantID)
	assert.Equal(t, size.ID, *order.Items[0].VariantID)
	assert.Equal(t, int64(0), variantStock(t, db, size.ID))

	// The variant is sold out now.
	other := seedUser(t, db, "other")
	addCartLine(t, db, other.ID, shirt.ID, &size.ID, 1)
	_, err = svc.Checkout(context.Background(), other.ID)

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Shirt - M", stockErr.Item)
}

func TestCheckoutSnapshotsPriceAtPurchase(t *testing.T) {
	db := newTestDB(t)
	svc := NewCheckoutService(db, zaptest.NewLogger(t))

	seller := seedUser(t, db, "seller")
	buyer := seedUser(t, db, "buyer")
	product := seedProduct(t, db, seller.ID, "Mug", 8.50, 5)
	addCartLine(t, db, buyer.ID, product.ID, nil, 1)

	order, err := svc.Checkout(context.Background(), buyer.ID)
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE products SET price = 99.99 WHERE id = ?`, product.ID)
	require.NoError(t, err)

	var price float64
	require.NoError(t, db.Get(&price, `SELECT price FROM order_items WHERE order_id = ?`, order.ID))
	assert.Equal(t, 8.50, price)
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	db := newTestDB(t)
	svc := NewCheckoutService(db, zaptest.NewLogger(t))

	seller := seedUser(t, db, "seller")
	product := seedProduct(t, db, seller.ID, "Last One", 50.00, 1)

	const buyers = 4
	ids := make([]int64, buyers)
	for i := 0; i < buyers; i++ {
		u := seedUser(t, db, "buyer"+string(rune('a'+i)))
		addCartLine(t, db, u.ID, product.ID, nil, 1)
		ids[i] = u.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Checkout(context.Background(), ids[i])
		}(i)
	}
	wg.Wait()

	var succeeded, short int
	for _, err := range errs {
		var stockErr *domain.InsufficientStockError
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorAs(t, err, &stockErr):
			short++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, buyers-1, short)
	assert.Equal(t, int64(0), productStock(t, db, product.ID))
	assert.Equal(t, int64(1), countRows(t, db, "orders"))
}
