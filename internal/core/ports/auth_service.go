package ports

import (
	"context"

	"github.com/Raniaaloun/chat-app/internal/core/domain"
)

// AuthService implements registration, login, and session verification.
type AuthService interface {
	// Register creates a normal account and returns it with a session token.
	Register(ctx context.Context, username, email, password string) (*domain.Account, string, error)
	Login(ctx context.Context, email, password string) (string, *domain.Account, error)
	// Verify validates a session token and resolves its account. Called once
	// per live-connection establishment, before any presence registration.
	Verify(ctx context.Context, token string) (*domain.Account, error)
}
