package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Raniaaloun/chat-app/internal/api/metrics"
	"github.com/Raniaaloun/chat-app/internal/core/domain"
	"github.com/Raniaaloun/chat-app/internal/core/ports"
	"github.com/Raniaaloun/chat-app/internal/infrastructure/realtime"
)

const (
	readTimeout  = 60 * time.Second
	maxFrameSize = 1 << 20 // 1MB payload cap
)

// Inbound frame types accepted over the live channel.
const (
	frameSend     = "send"
	frameTyping   = "typing"
	frameMarkRead = "mark_read"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients connect cross-origin from the SPA host.
		return true
	},
}

// inboundFrame is the union of all client-to-server signals. Type selects
// which fields are meaningful; the handler validates before dispatching.
type inboundFrame struct {
	Type string `json:"type"`

	// send
	ReceiverID string `json:"receiver_id,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Content    string `json:"content,omitempty"`
	Thumbnail  string `json:"thumbnail,omitempty"`

	// typing (shares ReceiverID)
	IsTyping bool `json:"is_typing,omitempty"`

	// mark_read
	OtherPartyID string `json:"other_party_id,omitempty"`
}

// WSHandler owns the live duplex channel: it verifies the session, registers
// presence, decodes inbound frames, and drives the chat service. One
// goroutine per connection runs the read loop; outbound traffic goes through
// the connection's write loop.
type WSHandler struct {
	auth   ports.AuthService
	chat   ports.ChatService
	hub    *realtime.Hub
	logger zerolog.Logger
}

func NewWSHandler(auth ports.AuthService, chat ports.ChatService, hub *realtime.Hub, logger zerolog.Logger) *WSHandler {
	return &WSHandler{auth: auth, chat: chat, hub: hub, logger: logger}
}

// Handle upgrades GET /ws to a websocket session. The session token comes
// from the `token` query parameter (browser websocket clients cannot set
// headers). Verification failures refuse the connection before any presence
// registration.
func (h *WSHandler) Handle(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing session token")
	}

	account, err := h.auth.Verify(c.Request().Context(), token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session token")
	}

	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the response.
		return nil
	}

	conn := realtime.NewConnection(account.ID, ws)
	h.hub.Register(conn)
	defer func() {
		h.hub.Unregister(conn)
		conn.Close(websocket.CloseNormalClosure, "session closed")
	}()

	h.logger.Info().Str("account_id", account.ID).Str("username", account.Username).Msg("live connection opened")
	defer h.logger.Info().Str("account_id", account.ID).Msg("live connection closed")

	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	h.readLoop(c, conn, ws, account)
	return nil
}

func (h *WSHandler) readLoop(c echo.Context, conn *realtime.Connection, ws *websocket.Conn, account *domain.Account) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
				errors.Is(err, websocket.ErrCloseSent) {
				return
			}
			h.logger.Debug().Err(err).Str("account_id", account.ID).Msg("websocket read failed")
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			metrics.WSFramesTotal.WithLabelValues("invalid").Inc()
			h.replyError(conn, "bad_request", "invalid frame")
			continue
		}

		switch frame.Type {
		case frameSend:
			metrics.WSFramesTotal.WithLabelValues(frameSend).Inc()
			h.handleSend(c, conn, account, frame)
		case frameTyping:
			metrics.WSFramesTotal.WithLabelValues(frameTyping).Inc()
			h.handleTyping(account, frame)
		case frameMarkRead:
			metrics.WSFramesTotal.WithLabelValues(frameMarkRead).Inc()
			h.handleMarkRead(c, conn, account, frame)
		default:
			metrics.WSFramesTotal.WithLabelValues("invalid").Inc()
			h.replyError(conn, "bad_request", "unknown frame type")
		}
	}
}

// handleSend drives the delivery pipeline and acknowledges the sender on
// the initiating connection: messageSent always, delivered when the
// receiver was live. The receiver-side messageReceived fan-out happens
// inside the service, after the durable writes.
func (h *WSHandler) handleSend(c echo.Context, conn *realtime.Connection, account *domain.Account, frame inboundFrame) {
	if frame.ReceiverID == "" || frame.Content == "" {
		h.replyError(conn, "bad_request", "receiver_id and content are required")
		return
	}
	kind := domain.MessageKind(frame.Kind)
	if frame.Kind == "" {
		kind = domain.KindText
	}

	msg, err := h.chat.SendMessage(c.Request().Context(), ports.SendMessageInput{
		SenderID:   account.ID,
		SenderRole: account.Role,
		ReceiverID: frame.ReceiverID,
		Kind:       kind,
		Content:    frame.Content,
		Thumbnail:  frame.Thumbnail,
	})
	if err != nil {
		h.replyServiceError(conn, err)
		return
	}

	if payload, err := realtime.EncodeMessageSent(msg); err == nil {
		_ = conn.Send(payload)
	}
	if msg.Delivered {
		if payload, err := realtime.EncodeDelivered(msg.ID); err == nil {
			_ = conn.Send(payload)
		}
	}
}

// handleTyping forwards the indicator to the receiver's handles. Nothing is
// persisted and no delivery state changes.
func (h *WSHandler) handleTyping(account *domain.Account, frame inboundFrame) {
	if frame.ReceiverID == "" {
		return
	}
	h.hub.Publish(frame.ReceiverID, ports.TypingEvent{
		FromUserID:   account.ID,
		FromUsername: account.Username,
		IsTyping:     frame.IsTyping,
	})
}

// handleMarkRead is the live read-receipt entry point; it funnels into the
// same coordinator as the REST bulk call.
func (h *WSHandler) handleMarkRead(c echo.Context, conn *realtime.Connection, account *domain.Account, frame inboundFrame) {
	if frame.OtherPartyID == "" {
		h.replyError(conn, "bad_request", "other_party_id is required")
		return
	}
	if _, err := h.chat.MarkConversationRead(c.Request().Context(), account.ID, frame.OtherPartyID); err != nil {
		h.replyServiceError(conn, err)
	}
}

// replyServiceError maps domain errors onto wire error codes; everything
// else is reported as internal without leaking details.
func (h *WSHandler) replyServiceError(conn *realtime.Connection, err error) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		h.replyError(conn, "not_found", "receiver not found")
	case errors.Is(err, domain.ErrForbiddenParty):
		h.replyError(conn, "forbidden", err.Error())
	case errors.Is(err, domain.ErrInvalidMessageKind):
		h.replyError(conn, "bad_request", err.Error())
	default:
		h.replyError(conn, "internal", "operation failed")
	}
}

func (h *WSHandler) replyError(conn *realtime.Connection, code, message string) {
	if payload, err := realtime.EncodeError(code, message); err == nil {
		_ = conn.Send(payload)
	}
}
