package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Raniaaloun/chat-app/internal/core/domain"
)

type stubAccounts struct {
	others     []*domain.Account
	privileged []*domain.Account
}

func (s *stubAccounts) FindByID(context.Context, string) (*domain.Account, error) {
	return nil, domain.ErrAccountNotFound
}

func (s *stubAccounts) FindByEmail(context.Context, string) (*domain.Account, error) {
	return nil, domain.ErrAccountNotFound
}

func (s *stubAccounts) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	return a, nil
}

func (s *stubAccounts) FindByRole(_ context.Context, role domain.Role) ([]*domain.Account, error) {
	if role == domain.RolePrivileged {
		return s.privileged, nil
	}
	return nil, nil
}

func (s *stubAccounts) ListOthers(context.Context, string) ([]*domain.Account, error) {
	return s.others, nil
}

type stubMessages struct {
	lastTimes map[string]time.Time
}

func (s *stubMessages) Create(context.Context, *domain.Message) error { return nil }

func (s *stubMessages) FindByID(context.Context, string) (*domain.Message, error) {
	return nil, domain.ErrMessageNotFound
}

func (s *stubMessages) FindConversation(context.Context, string, string) ([]*domain.Message, error) {
	return nil, nil
}

func (s *stubMessages) MarkDelivered(context.Context, string) error { return nil }

func (s *stubMessages) BulkMarkRead(context.Context, string, string, time.Time) ([]string, error) {
	return nil, nil
}

func (s *stubMessages) LastMessageTimes(context.Context, string) (map[string]time.Time, error) {
	return s.lastTimes, nil
}

type stubPresence map[string]bool

func (s stubPresence) IsOnline(accountID string) bool { return s[accountID] }

func TestUserHandler_List_NormalSeesOnlyPrivileged(t *testing.T) {
	accounts := &stubAccounts{
		privileged: []*domain.Account{{ID: "u_montaser", Username: "montaser", Role: domain.RolePrivileged}},
	}
	h := NewUserHandler(accounts, &stubMessages{}, stubPresence{"u_montaser": true}, nil, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodGet, "/v1/users", "")

	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp listUsersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Users) != 1 || resp.Users[0].ID != "u_montaser" {
		t.Fatalf("normal account must only see the privileged account, got %+v", resp.Users)
	}
	if !resp.Users[0].Online {
		t.Error("presence must be reflected in the summary")
	}
}

func TestUserHandler_List_PrivilegedOrderedByRecentConversation(t *testing.T) {
	now := time.Now().UTC()
	accounts := &stubAccounts{
		others: []*domain.Account{
			{ID: "u_a", Username: "a", Role: domain.RoleNormal},
			{ID: "u_b", Username: "b", Role: domain.RoleNormal},
			{ID: "u_c", Username: "c", Role: domain.RoleNormal},
		},
	}
	messages := &stubMessages{lastTimes: map[string]time.Time{
		"u_a": now.Add(-time.Hour),
		"u_c": now, // most recent conversation
		// u_b never talked; must sort last
	}}
	h := NewUserHandler(accounts, messages, stubPresence{}, nil, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodGet, "/v1/users", "")
	c.Set("user_id", "u_montaser")
	c.Set("role", "privileged")

	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp listUsersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(resp.Users))
	}
	want := []string{"u_c", "u_a", "u_b"}
	for i, id := range want {
		if resp.Users[i].ID != id {
			t.Fatalf("order: want %v, got %s at %d", want, resp.Users[i].ID, i)
		}
	}
}

func TestSortByRecentConversation_StableForUncontacted(t *testing.T) {
	accounts := []*domain.Account{
		{ID: "u_1"},
		{ID: "u_2"},
		{ID: "u_3"},
	}
	sortByRecentConversation(accounts, map[string]time.Time{})

	for i, id := range []string{"u_1", "u_2", "u_3"} {
		if accounts[i].ID != id {
			t.Fatalf("uncontacted accounts must keep their relative order, got %s at %d", accounts[i].ID, i)
		}
	}
}
