package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Raniaaloun/chat-app/internal/api/metrics"
	"github.com/Raniaaloun/chat-app/internal/core/domain"
	"github.com/Raniaaloun/chat-app/internal/core/ports"
)

// ChatService implements the delivery pipeline and the read-receipt
// coordinator on top of the account/message repositories and the live
// notifier. It is the sole enforcement point of the addressing policy for
// persisted messages.
type ChatService struct {
	accounts ports.AccountRepository
	messages ports.MessageRepository
	notifier ports.Notifier
	logger   zerolog.Logger
}

func NewChatService(
	accounts ports.AccountRepository,
	messages ports.MessageRepository,
	notifier ports.Notifier,
	logger zerolog.Logger,
) *ChatService {
	return &ChatService{
		accounts: accounts,
		messages: messages,
		notifier: notifier,
		logger:   logger,
	}
}

// SendMessage runs the send state machine:
//
//	resolve receiver → policy check → persist (delivered=false) →
//	presence check → mark delivered → broadcast to receiver handles.
//
// A policy or lookup failure happens before any persistence, so a rejected
// send leaves no record and the receiver's connections see nothing. The
// returned message always reflects the durable post-delivery-check state.
func (s *ChatService) SendMessage(ctx context.Context, input ports.SendMessageInput) (*domain.Message, error) {
	if !input.Kind.Valid() {
		metrics.SendErrorsTotal.WithLabelValues("invalid_kind").Inc()
		return nil, domain.ErrInvalidMessageKind
	}

	receiver, err := s.accounts.FindByID(ctx, input.ReceiverID)
	if err != nil {
		metrics.SendErrorsTotal.WithLabelValues("receiver_not_found").Inc()
		return nil, err
	}

	if !domain.CanAddress(input.SenderRole, receiver.Role) {
		metrics.SendErrorsTotal.WithLabelValues("forbidden").Inc()
		return nil, domain.ErrForbiddenParty
	}

	msg := &domain.Message{
		SenderID:   input.SenderID,
		ReceiverID: input.ReceiverID,
		Kind:       input.Kind,
		Content:    input.Content,
		Thumbnail:  input.Thumbnail,
		Delivered:  false,
		Read:       false,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		s.logger.Error().Err(err).Str("sender_id", input.SenderID).Msg("failed to persist message")
		metrics.SendErrorsTotal.WithLabelValues("persistence").Inc()
		return nil, err
	}
	metrics.MessagesSentTotal.WithLabelValues(string(msg.Kind)).Inc()

	// Delivered reflects receiver presence at this moment only; a receiver
	// connecting later never flips it retroactively.
	if s.notifier.IsOnline(input.ReceiverID) {
		if err := s.messages.MarkDelivered(ctx, msg.ID); err != nil {
			// The created record is durable with delivered=false; notify with
			// that state rather than advertising an update that never landed.
			s.logger.Error().Err(err).Str("message_id", msg.ID).Msg("failed to mark message delivered")
		} else {
			msg.Delivered = true
			metrics.MessagesDeliveredTotal.Inc()
		}
		s.notifier.Publish(input.ReceiverID, ports.MessageReceivedEvent{Message: msg})
	}

	s.logger.Info().
		Str("message_id", msg.ID).
		Str("sender_id", msg.SenderID).
		Str("receiver_id", msg.ReceiverID).
		Str("kind", string(msg.Kind)).
		Bool("delivered", msg.Delivered).
		Msg("message sent")

	return msg, nil
}

// MarkConversationRead is the single convergence point for both read-receipt
// entry points (live markRead frame and the REST bulk call). The repository
// update forces delivered=true alongside read=true, so a message read before
// its delivery step ran still satisfies the read⟹delivered invariant.
func (s *ChatService) MarkConversationRead(ctx context.Context, readerID, otherPartyID string) (*ports.ReadReceipt, error) {
	changed, err := s.messages.BulkMarkRead(ctx, otherPartyID, readerID, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Str("reader_id", readerID).Msg("failed to mark conversation read")
		return nil, err
	}

	receipt := &ports.ReadReceipt{MessageIDs: changed, ReaderID: readerID}
	if len(changed) == 0 {
		return receipt, nil
	}

	metrics.MessagesReadTotal.Add(float64(len(changed)))
	s.notifier.Publish(otherPartyID, ports.MessagesReadEvent{
		MessageIDs: changed,
		ReaderID:   readerID,
	})

	s.logger.Debug().
		Str("reader_id", readerID).
		Str("other_party_id", otherPartyID).
		Int("count", len(changed)).
		Msg("messages marked read")

	return receipt, nil
}

// GetConversation applies the same addressing policy as the send path before
// returning history, so a normal account cannot read another normal
// account's (nonexistent, but also unauthorized) conversation.
func (s *ChatService) GetConversation(ctx context.Context, input ports.HistoryInput) ([]*domain.Message, error) {
	other, err := s.accounts.FindByID(ctx, input.OtherPartyID)
	if err != nil {
		return nil, err
	}

	if !domain.CanAddress(input.UserRole, other.Role) {
		return nil, domain.ErrForbiddenParty
	}

	return s.messages.FindConversation(ctx, input.UserID, input.OtherPartyID)
}
