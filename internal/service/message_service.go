package service

import (
	"context"
	"fmt"
	"strings"

	"bazaar/internal/domain"
)

// MessageService persists chat messages and serves conversation reads.
type MessageService struct {
	messages domain.MessageRepository
	users    domain.UserRepository
	products domain.ProductRepository
}

func NewMessageService(messages domain.MessageRepository, users domain.UserRepository, products domain.ProductRepository) *MessageService {
	return &MessageService{
		messages: messages,
		users:    users,
		products: products,
	}
}

// Send persists a message from sender to recipient. Content must be non-empty
// after trimming; a product id that no longer resolves is tolerated and stored
// as null.
func (s *MessageService) Send(ctx context.Context, senderID, recipientID int64, productID *int64, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrInvalidInput
	}

	recipient, err := s.users.GetByID(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}
	if recipient == nil {
		return nil, domain.ErrNotFound
	}

	if productID != nil {
		p, err := s.products.GetByID(ctx, *productID)
		if err != nil {
			return nil, fmt.Errorf("resolve product: %w", err)
		}
		if p == nil {
			productID = nil
		}
	}

	m := &domain.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		ProductID:   productID,
		Content:     content,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// History returns the conversation with a partner in chronological order and
// marks the partner's messages to the caller as read.
func (s *MessageService) History(ctx context.Context, userID, partnerID int64, productID *int64) ([]*domain.Message, error) {
	msgs, err := s.messages.ListBetween(ctx, userID, partnerID, productID)
	if err != nil {
		return nil, err
	}
	if err := s.messages.MarkReadFrom(ctx, userID, partnerID); err != nil {
		return nil, err
	}
	return msgs, nil
}

// UnreadCount is the cumulative count of all messages addressed to the user.
// It intentionally ignores the is_read flag.
func (s *MessageService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.messages.CountForRecipient(ctx, userID)
}

const snippetLimit = 140

// Snippet condenses message content for notification pushes.
func Snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= snippetLimit {
		return content
	}
	return string(runes[:snippetLimit]) + "..."
}
