package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Raniaaloun/chat-app/internal/core/domain"
	"github.com/Raniaaloun/chat-app/internal/core/ports"
)

// MessageHandler exposes the request/response surface of the chat core:
// history fetch, REST send, and bulk mark-as-read.
type MessageHandler struct {
	service ports.ChatService
}

func NewMessageHandler(service ports.ChatService) *MessageHandler {
	return &MessageHandler{service: service}
}

// History handles GET /v1/messages/:user_id — the conversation between the
// authenticated account and :user_id, ascending by creation time.
//
// @Summary      Fetch conversation history
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  path      string  true  "Other party's account id"
// @Success      200      {object}  conversationResponse
// @Failure      403      {object}  errorResponse
// @Failure      404      {object}  errorResponse
// @Router       /v1/messages/{user_id} [get]
func (h *MessageHandler) History(c echo.Context) error {
	userID, role, err := ctxClaims(c)
	if err != nil {
		return err
	}

	messages, err := h.service.GetConversation(c.Request().Context(), ports.HistoryInput{
		UserID:       userID,
		UserRole:     role,
		OtherPartyID: c.Param("user_id"),
	})
	if err != nil {
		return err
	}
	if messages == nil {
		messages = []*domain.Message{}
	}

	return c.JSON(http.StatusOK, conversationResponse{Messages: messages})
}

// Send handles POST /v1/messages/:user_id — the request/response send path.
// It runs the same delivery pipeline as the live channel; the persisted
// message comes back in the response instead of a messageSent frame.
//
// @Summary      Send a message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  path      string              true  "Receiver's account id"
// @Param        body     body      sendMessageRequest  true  "Message"
// @Success      201      {object}  sendMessageResponse
// @Failure      403      {object}  errorResponse
// @Failure      404      {object}  errorResponse
// @Router       /v1/messages/{user_id} [post]
func (h *MessageHandler) Send(c echo.Context) error {
	userID, role, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	msg, err := h.service.SendMessage(c.Request().Context(), ports.SendMessageInput{
		SenderID:   userID,
		SenderRole: role,
		ReceiverID: c.Param("user_id"),
		Kind:       domain.MessageKind(req.Kind),
		Content:    req.Content,
		Thumbnail:  req.Thumbnail,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, sendMessageResponse{Message: msg})
}

// MarkRead handles PATCH /v1/messages/:user_id/read — the bulk/historical
// read-receipt entry point, typically called on conversation open. It
// converges with the live markRead frame on the same postcondition.
//
// @Summary      Mark a conversation as read
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  path      string  true  "Conversation partner's account id"
// @Success      200      {object}  markReadResponse
// @Router       /v1/messages/{user_id}/read [patch]
func (h *MessageHandler) MarkRead(c echo.Context) error {
	userID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	receipt, err := h.service.MarkConversationRead(c.Request().Context(), userID, c.Param("user_id"))
	if err != nil {
		return err
	}

	ids := receipt.MessageIDs
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(http.StatusOK, markReadResponse{MessageIDs: ids, Count: len(ids)})
}
