package domain

import (
	"context"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	Create(ctx context.Context, c *Category) error
	GetByID(ctx context.Context, id int64) (*Category, error)
	List(ctx context.Context) ([]*Category, error)
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Query      string
	CategoryID *int64
	SellerID   *int64
}

// ProductRepository defines persistence operations for products and variants.
type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	Update(ctx context.Context, p *Product) error
	List(ctx context.Context, f ProductFilter) ([]*Product, error)
	ListArchived(ctx context.Context) ([]*Product, error)
	SetArchived(ctx context.Context, id int64, archived bool) error
	ReplaceVariants(ctx context.Context, productID int64, variants []*ProductVariant) error
	VariantsFor(ctx context.Context, productID int64) ([]*ProductVariant, error)
}

// CartRepository defines persistence operations for cart items.
type CartRepository interface {
	ItemsFor(ctx context.Context, userID int64) ([]*CartItem, error)
	GetForUser(ctx context.Context, id, userID int64) (*CartItem, error)
	Add(ctx context.Context, item *CartItem) error
	UpdateQuantity(ctx context.Context, id, quantity int64) error
	Delete(ctx context.Context, id int64) error
	ClearFor(ctx context.Context, userID int64) error
}

// OrderRepository defines read operations for orders. Order creation happens
// only inside the checkout transaction.
type OrderRepository interface {
	ListFor(ctx context.Context, userID int64) ([]*Order, error)
	GetForUser(ctx context.Context, id, userID int64) (*Order, error)
}

// MessageRepository defines persistence operations for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	ListBetween(ctx context.Context, userID, partnerID int64, productID *int64) ([]*Message, error)
	CountForRecipient(ctx context.Context, userID int64) (int64, error)
	MarkReadFrom(ctx context.Context, recipientID, senderID int64) error
}
