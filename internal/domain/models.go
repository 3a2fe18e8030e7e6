package domain

import "time"

// Roles assignable to a user account.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Order lifecycle states. Transitions beyond creation are driven by the
// payment collaborator, not by this backend.
const (
	OrderCreated   = "CREATED"
	OrderPaid      = "PAID"
	OrderCancelled = "CANCELLED"
)

// User represents an application user.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	Email          *string   `db:"email" json:"email,omitempty"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	Role           string    `db:"role" json:"role"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Public returns the subset of user fields safe to embed in shared payloads.
func (u *User) Public() UserRef {
	return UserRef{ID: u.ID, Username: u.Username}
}

// UserRef is the compact user reference used inside message payloads.
type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Category groups products for browsing.
type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Product is a sellable listing. Stock on the product row is only meaningful
// when HasVariants is false; otherwise stock lives on the variants.
type Product struct {
	ID          int64      `db:"id" json:"id"`
	SellerID    int64      `db:"seller_id" json:"seller_id"`
	CategoryID  *int64     `db:"category_id" json:"category,omitempty"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Price       float64    `db:"price" json:"price"`
	ImageURL    string     `db:"image_url" json:"image_url,omitempty"`
	Archived    bool       `db:"archived" json:"archived"`
	ArchivedAt  *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	Available   bool       `db:"available" json:"available"`
	HasVariants bool       `db:"has_variants" json:"has_variants"`
	Stock       int64      `db:"stock" json:"stock"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`

	Variants []*ProductVariant `db:"-" json:"variants,omitempty"`
}

// ProductVariant is a stock-bearing sub-unit of a product (size, color, ...).
type ProductVariant struct {
	ID        int64  `db:"id" json:"id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Name      string `db:"name" json:"name"`
	Stock     int64  `db:"stock" json:"stock"`
	Active    bool   `db:"active" json:"active"`
}

// CartItem is one line of a user's cart, unique per (user, product, variant).
type CartItem struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	VariantID *int64    `db:"variant_id" json:"variant_id,omitempty"`
	Quantity  int64     `db:"quantity" json:"quantity"`
	AddedAt   time.Time `db:"added_at" json:"added_at"`
}

// Order is created atomically with its items during checkout.
type Order struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Items []*OrderItem `db:"-" json:"items"`
}

// TotalAmount is the sum of quantity times the price snapshot across items.
func (o *Order) TotalAmount() float64 {
	var total float64
	for _, it := range o.Items {
		total += float64(it.Quantity) * it.Price
	}
	return total
}

// OrderItem snapshots product, quantity, and unit price at purchase time.
// Price must not reflect later catalog price changes.
type OrderItem struct {
	ID        int64   `db:"id" json:"id"`
	OrderID   int64   `db:"order_id" json:"order_id"`
	ProductID int64   `db:"product_id" json:"product_id"`
	VariantID *int64  `db:"variant_id" json:"variant_id,omitempty"`
	Quantity  int64   `db:"quantity" json:"quantity"`
	Price     float64 `db:"price" json:"price"`
}

// Message is a single chat message between two users, optionally tied to a
// product. Rows are append-only; only the is_read flag is ever updated.
type Message struct {
	ID          int64     `db:"id" json:"id"`
	SenderID    int64     `db:"sender_id" json:"sender_id"`
	RecipientID int64     `db:"recipient_id" json:"recipient_id"`
	ProductID   *int64    `db:"product_id" json:"product_id,omitempty"`
	Content     string    `db:"content" json:"content"`
	IsRead      bool      `db:"is_read" json:"is_read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
