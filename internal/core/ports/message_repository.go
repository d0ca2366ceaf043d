package ports

import (
	"context"
	"time"

	"github.com/Raniaaloun/chat-app/internal/core/domain"
)

// MessageRepository defines persistence operations for messages.
//
// The store is assumed to be a document database reachable by primary key
// and simple filtered queries; ordering inside a conversation is by
// creation time ascending.
type MessageRepository interface {
	// Create persists a new message and assigns its ID.
	Create(ctx context.Context, msg *domain.Message) error
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	// FindConversation returns every message exchanged between the two
	// accounts, ascending by creation time.
	FindConversation(ctx context.Context, userA, userB string) ([]*domain.Message, error)
	// MarkDelivered flips the delivered flag on a single message.
	MarkDelivered(ctx context.Context, id string) error
	// BulkMarkRead sets read=true, delivered=true and read_at on every
	// unread message from senderID to receiverID, returning the ids changed.
	// Delivered is forced alongside read so the read⟹delivered invariant
	// holds even when the delivery step never ran for a message.
	BulkMarkRead(ctx context.Context, senderID, receiverID string, readAt time.Time) ([]string, error)
	// LastMessageTimes returns, for each account the given user has a
	// conversation with, the creation time of the most recent message.
	LastMessageTimes(ctx context.Context, userID string) (map[string]time.Time, error)
}
