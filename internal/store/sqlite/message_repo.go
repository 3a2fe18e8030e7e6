package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bazaar/internal/domain"
)

type MessageRepo struct {
	db *sqlx.DB
}

func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (sender_id, recipient_id, product_id, content, is_read, created_at)
		VALUES (?, ?, ?, ?, 0, CURRENT_TIMESTAMP)
	`, m.SenderID, m.RecipientID, m.ProductID, m.Content)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id

	created := r.db.QueryRowxContext(ctx, `SELECT created_at, is_read FROM messages WHERE id = ?`, id)
	if err := created.Scan(&m.CreatedAt, &m.IsRead); err != nil {
		return fmt.Errorf("read back message: %w", err)
	}
	return nil
}

// ListBetween returns the conversation between two users in insertion order,
// optionally narrowed to one product.
func (r *MessageRepo) ListBetween(ctx context.Context, userID, partnerID int64, productID *int64) ([]*domain.Message, error) {
	query := `
		SELECT * FROM messages
		WHERE ((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))
	`
	args := []any{userID, partnerID, partnerID, userID}
	if productID != nil {
		query += ` AND product_id = ?`
		args = append(args, *productID)
	}
	query += ` ORDER BY created_at, id`

	var res []*domain.Message
	if err := r.db.SelectContext(ctx, &res, query, args...); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return res, nil
}

// CountForRecipient counts every message addressed to the user, regardless of
// read state. The unread counter exposed over the notification channel is
// deliberately cumulative.
func (r *MessageRepo) CountForRecipient(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM messages WHERE recipient_id = ?
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

func (r *MessageRepo) MarkReadFrom(ctx context.Context, recipientID, senderID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_read = 1
		WHERE recipient_id = ? AND sender_id = ? AND is_read = 0
	`, recipientID, senderID)
	if err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}
	return nil
}
