package handler

import (
	"time"

	"github.com/Raniaaloun/chat-app/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type sendMessageRequest struct {
	Kind    string `json:"kind"    validate:"required,oneof=text image video voice"`
	Content string `json:"content" validate:"required"`
	// Thumbnail is an optional media thumbnail URL (videos).
	Thumbnail string `json:"thumbnail,omitempty"`
}

type sendMessageResponse struct {
	Message *domain.Message `json:"message"`
}

type conversationResponse struct {
	Messages []*domain.Message `json:"messages"`
}

type markReadResponse struct {
	MessageIDs []string `json:"message_ids"`
	Count      int      `json:"count"`
}

// userSummary is the per-account item on the user list. LastSeen and Online
// come from the presence mirror and are best effort.
type userSummary struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	Online    bool       `json:"online"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
}

type listUsersResponse struct {
	Users []userSummary `json:"users"`
}
