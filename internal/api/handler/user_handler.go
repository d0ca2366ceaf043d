package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Raniaaloun/chat-app/internal/core/domain"
	"github.com/Raniaaloun/chat-app/internal/core/ports"
)

// LastSeenStore is the optional presence mirror consulted for last-seen
// timestamps. A nil store disables the enrichment.
type LastSeenStore interface {
	LastSeen(ctx context.Context, accountID string) (time.Time, error)
}

// UserHandler serves the chat partner list.
type UserHandler struct {
	accounts ports.AccountRepository
	messages ports.MessageRepository
	presence ports.Presence
	lastSeen LastSeenStore
	logger   zerolog.Logger
}

func NewUserHandler(
	accounts ports.AccountRepository,
	messages ports.MessageRepository,
	presence ports.Presence,
	lastSeen LastSeenStore,
	logger zerolog.Logger,
) *UserHandler {
	return &UserHandler{
		accounts: accounts,
		messages: messages,
		presence: presence,
		lastSeen: lastSeen,
		logger:   logger,
	}
}

// List handles GET /v1/users. A normal account only sees the privileged
// account; the privileged account sees everyone else, ordered by most
// recent conversation first (accounts without one sort last).
//
// @Summary      List chat partners
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listUsersResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/users [get]
func (h *UserHandler) List(c echo.Context) error {
	userID, role, err := ctxClaims(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	var accounts []*domain.Account
	if role == domain.RolePrivileged {
		accounts, err = h.accounts.ListOthers(ctx, userID)
		if err != nil {
			return err
		}
		lastTimes, err := h.messages.LastMessageTimes(ctx, userID)
		if err != nil {
			return err
		}
		sortByRecentConversation(accounts, lastTimes)
	} else {
		accounts, err = h.accounts.FindByRole(ctx, domain.RolePrivileged)
		if err != nil {
			return err
		}
	}

	users := make([]userSummary, 0, len(accounts))
	for _, a := range accounts {
		users = append(users, h.summarize(ctx, a))
	}
	return c.JSON(http.StatusOK, listUsersResponse{Users: users})
}

func (h *UserHandler) summarize(ctx context.Context, a *domain.Account) userSummary {
	s := userSummary{
		ID:        a.ID,
		Username:  a.Username,
		Role:      string(a.Role),
		CreatedAt: a.CreatedAt,
		Online:    h.presence.IsOnline(a.ID),
	}
	if h.lastSeen == nil {
		return s
	}
	seen, err := h.lastSeen.LastSeen(ctx, a.ID)
	if err != nil {
		h.logger.Debug().Err(err).Str("account_id", a.ID).Msg("last-seen lookup failed")
		return s
	}
	if !seen.IsZero() {
		s.LastSeen = &seen
	}
	return s
}

// sortByRecentConversation orders accounts by their latest message exchanged
// with the caller, newest first; accounts without a conversation keep their
// relative order at the bottom.
func sortByRecentConversation(accounts []*domain.Account, lastTimes map[string]time.Time) {
	sort.SliceStable(accounts, func(i, j int) bool {
		ti, iOK := lastTimes[accounts[i].ID]
		tj, jOK := lastTimes[accounts[j].ID]
		switch {
		case iOK && jOK:
			return ti.After(tj)
		case iOK:
			return true
		default:
			return false
		}
	})
}
