package ports

import (
	"context"

	"github.com/Raniaaloun/chat-app/internal/core/domain"
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	// FindByRole returns all accounts with the given role.
	FindByRole(ctx context.Context, role domain.Role) ([]*domain.Account, error)
	// ListOthers returns every account except the given one.
	ListOthers(ctx context.Context, excludeID string) ([]*domain.Account, error)
}
