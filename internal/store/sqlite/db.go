package sqlite

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN. Transactions are started
// in immediate mode so that concurrent checkouts serialize on the write lock
// instead of failing at commit time.
func Open(dsn string) (*sqlx.DB, error) {
	if !strings.Contains(dsn, "?") {
		dsn += "?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// Migrate runs an idempotent set of CREATE TABLE / CREATE INDEX statements.
func Migrate(db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			email VARCHAR(100) UNIQUE,
			hashed_password VARCHAR(255) NOT NULL,
			role VARCHAR(10) NOT NULL DEFAULT 'USER' CHECK (role IN ('USER','ADMIN')),
			is_active BOOLEAN DEFAULT TRUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY,
			name VARCHAR(100) UNIQUE NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY,
			seller_id INTEGER NOT NULL,
			category_id INTEGER,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price NUMERIC NOT NULL CHECK (price >= 0),
			image_url TEXT NOT NULL DEFAULT '',
			archived BOOLEAN NOT NULL DEFAULT 0,
			archived_at DATETIME DEFAULT NULL,
			available BOOLEAN NOT NULL DEFAULT 1,
			has_variants BOOLEAN NOT NULL DEFAULT 0,
			stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (seller_id) REFERENCES users(id),
			FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE SET NULL
		);`,
		`CREATE TABLE IF NOT EXISTS product_variants (
			id INTEGER PRIMARY KEY,
			product_id INTEGER NOT NULL,
			name VARCHAR(120) NOT NULL,
			stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
			active BOOLEAN NOT NULL DEFAULT 1,
			UNIQUE (product_id, name),
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS cart_items (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			variant_id INTEGER,
			quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity >= 1),
			added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, product_id, variant_id),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE,
			FOREIGN KEY (variant_id) REFERENCES product_variants(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'CREATED' CHECK (status IN ('CREATED','PAID','CANCELLED')),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id INTEGER PRIMARY KEY,
			order_id INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			variant_id INTEGER,
			quantity INTEGER NOT NULL DEFAULT 1,
			price NUMERIC NOT NULL,
			FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
			FOREIGN KEY (product_id) REFERENCES products(id),
			FOREIGN KEY (variant_id) REFERENCES product_variants(id)
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			sender_id INTEGER NOT NULL,
			recipient_id INTEGER NOT NULL,
			product_id INTEGER,
			content TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (sender_id) REFERENCES users(id),
			FOREIGN KEY (recipient_id) REFERENCES users(id),
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE SET NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);`,
		`CREATE INDEX IF NOT EXISTS idx_products_seller ON products(seller_id);`,
		`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);`,
		`CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_variants_product ON product_variants(product_id);`,
		`CREATE INDEX IF NOT EXISTS idx_cart_items_user ON cart_items(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_recipient ON messages(recipient_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
