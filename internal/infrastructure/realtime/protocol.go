package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/Raniaaloun/chat-app/internal/core/domain"
	"github.com/Raniaaloun/chat-app/internal/core/ports"
)

// Outbound frame types pushed over the live channel.
const (
	FrameMessageReceived = "message_received"
	FrameMessageSent     = "message_sent"
	FrameDelivered       = "delivered"
	FrameMessagesRead    = "messages_read"
	FrameTyping          = "typing"
	FrameError           = "error"
)

type messageFrame struct {
	Type    string          `json:"type"`
	Message *domain.Message `json:"message"`
}

type deliveredFrame struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
}

type messagesReadFrame struct {
	Type       string   `json:"type"`
	MessageIDs []string `json:"message_ids"`
	ReaderID   string   `json:"reader_id"`
}

type typingFrame struct {
	Type         string `json:"type"`
	FromUserID   string `json:"from_user_id"`
	FromUsername string `json:"from_username"`
	IsTyping     bool   `json:"is_typing"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EncodeEvent renders a core event as a wire frame. The core hands the hub
// typed variants; only this package knows the JSON shape.
func EncodeEvent(event ports.Event) ([]byte, error) {
	switch ev := event.(type) {
	case ports.MessageReceivedEvent:
		return json.Marshal(messageFrame{Type: FrameMessageReceived, Message: ev.Message})
	case ports.MessagesReadEvent:
		return json.Marshal(messagesReadFrame{Type: FrameMessagesRead, MessageIDs: ev.MessageIDs, ReaderID: ev.ReaderID})
	case ports.TypingEvent:
		return json.Marshal(typingFrame{Type: FrameTyping, FromUserID: ev.FromUserID, FromUsername: ev.FromUsername, IsTyping: ev.IsTyping})
	default:
		return nil, fmt.Errorf("realtime: unknown event type %T", event)
	}
}

// EncodeMessageSent builds the sender-side confirmation carrying the
// authoritative persisted message.
func EncodeMessageSent(msg *domain.Message) ([]byte, error) {
	return json.Marshal(messageFrame{Type: FrameMessageSent, Message: msg})
}

// EncodeDelivered builds the sender-side delivery acknowledgment.
func EncodeDelivered(messageID string) ([]byte, error) {
	return json.Marshal(deliveredFrame{Type: FrameDelivered, MessageID: messageID})
}

// EncodeError builds an error frame for the initiating connection.
func EncodeError(code, message string) ([]byte, error) {
	return json.Marshal(errorFrame{Type: FrameError, Code: code, Message: message})
}
