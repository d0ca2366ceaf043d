package ports

import "github.com/Raniaaloun/chat-app/internal/core/domain"

// Presence answers whether an account currently has at least one open live
// connection. Implemented by the realtime hub; tests use stubs.
type Presence interface {
	IsOnline(accountID string) bool
}

// Notifier fans events out to every live connection of an account.
// Publishing to an offline account is a silent no-op.
type Notifier interface {
	Presence
	Publish(accountID string, event Event)
}

// Event is the closed set of outbound signals the core pushes to live
// connections. Each variant carries a strongly typed payload; the transport
// layer owns the wire encoding.
type Event interface {
	isEvent()
}

// MessageReceivedEvent carries a freshly persisted message to its receiver.
type MessageReceivedEvent struct {
	Message *domain.Message
}

// MessagesReadEvent tells the original sender which of their messages the
// reader has acknowledged. Receivers must treat repeated events for the
// same ids as idempotent.
type MessagesReadEvent struct {
	MessageIDs []string
	ReaderID   string
}

// TypingEvent forwards a typing indicator; it is never persisted.
type TypingEvent struct {
	FromUserID   string
	FromUsername string
	IsTyping     bool
}

func (MessageReceivedEvent) isEvent() {}
func (MessagesReadEvent) isEvent()    {}
func (TypingEvent) isEvent()          {}
