package ports

import (
	"context"

	"github.com/Raniaaloun/chat-app/internal/core/domain"
)

// SendMessageInput is the DTO passed from the transport layer (websocket
// frame or REST body) to the delivery pipeline. SenderRole comes from the
// verified session, never from the request body.
type SendMessageInput struct {
	SenderID   string
	SenderRole domain.Role
	ReceiverID string
	Kind       domain.MessageKind
	Content    string
	Thumbnail  string
}

// HistoryInput carries the parameters for a conversation history fetch.
type HistoryInput struct {
	UserID       string
	UserRole     domain.Role
	OtherPartyID string
}

// ReadReceipt reports the outcome of a mark-as-read call. MessageIDs is
// empty when no record changed (idempotent no-op, nothing notified).
type ReadReceipt struct {
	MessageIDs []string `json:"message_ids"`
	ReaderID   string   `json:"reader_id"`
}

// ChatService is the delivery pipeline and read-receipt coordinator.
type ChatService interface {
	// SendMessage resolves the receiver, applies the addressing policy,
	// persists the message, determines delivery via presence, and notifies
	// the receiver's live connections. The returned message is the
	// authoritative post-delivery-check version; the caller owns notifying
	// the sender with it.
	SendMessage(ctx context.Context, input SendMessageInput) (*domain.Message, error)
	// MarkConversationRead flips every unread message from otherPartyID to
	// readerID and, when at least one record changed, notifies
	// otherPartyID's live connections. Safe to call from the live channel
	// and the REST path in any order or in rapid succession.
	MarkConversationRead(ctx context.Context, readerID, otherPartyID string) (*ReadReceipt, error)
	// GetConversation returns the policy-checked history between the two
	// accounts, ascending by creation time.
	GetConversation(ctx context.Context, input HistoryInput) ([]*domain.Message, error)
}
