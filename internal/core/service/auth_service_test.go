package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Raniaaloun/chat-app/internal/core/domain"
)

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubAccountRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	account, token, err := svc.Register(context.Background(), "alice", "alice@example.com", "pass123")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if account == nil {
		t.Fatal("expected account, got nil")
	}
	if token == "" {
		t.Fatal("expected a session token")
	}
	if account.Role != domain.RoleNormal {
		t.Fatalf("self-registration must always yield a normal account, got %s", account.Role)
	}
	if account.PasswordHash == "pass123" {
		t.Fatal("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := NewAuthService(newStubAccountRepo(), "secret", time.Hour)

	if _, _, err := svc.Register(context.Background(), "", "a@example.com", "pass123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("empty username: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Register(context.Background(), "bob", "bob@example.com", "short"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("short password: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := newStubAccountRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	if _, _, err := svc.Register(context.Background(), "carol", "carol@example.com", "s3cret1"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, account, err := svc.Login(context.Background(), "carol@example.com", "s3cret1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected token, got empty")
	}
	if account == nil || account.Username != "carol" {
		t.Fatalf("unexpected account: %+v", account)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims["role"] != string(domain.RoleNormal) {
		t.Fatalf("expected role %s, got %v", domain.RoleNormal, claims["role"])
	}
	if claims["user_id"] != account.ID {
		t.Fatalf("expected user_id %s, got %v", account.ID, claims["user_id"])
	}
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	repo := newStubAccountRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	_, _, _ = svc.Register(context.Background(), "dave", "dave@example.com", "goodpass")
	if _, _, err := svc.Login(context.Background(), "dave@example.com", "badpass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc := NewAuthService(newStubAccountRepo(), "secret", time.Hour)

	// Unknown email and wrong password are indistinguishable to the caller.
	if _, _, err := svc.Login(context.Background(), "ghost@example.com", "pass123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Verify_Roundtrip(t *testing.T) {
	repo := newStubAccountRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	created, token, err := svc.Register(context.Background(), "erin", "erin@example.com", "pass123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	account, err := svc.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if account.ID != created.ID {
		t.Fatalf("verify resolved wrong account: want %s, got %s", created.ID, account.ID)
	}
}

func TestAuthService_Verify_Garbage(t *testing.T) {
	svc := NewAuthService(newStubAccountRepo(), "secret", time.Hour)

	if _, err := svc.Verify(context.Background(), "not-a-token"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthService_Verify_WrongSecret(t *testing.T) {
	repo := newStubAccountRepo()
	issuer := NewAuthService(repo, "secret-a", time.Hour)
	verifier := NewAuthService(repo, "secret-b", time.Hour)

	_, token, err := issuer.Register(context.Background(), "frank", "frank@example.com", "pass123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := verifier.Verify(context.Background(), token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
}

func TestAuthService_Verify_Expired(t *testing.T) {
	repo := newStubAccountRepo()
	svc := NewAuthService(repo, "secret", time.Nanosecond)

	_, token, err := svc.Register(context.Background(), "gina", "gina@example.com", "pass123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := svc.Verify(context.Background(), token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestAuthService_Verify_DeletedAccount(t *testing.T) {
	repo := newStubAccountRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	created, token, err := svc.Register(context.Background(), "hank", "hank@example.com", "pass123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	delete(repo.byID, created.ID)

	if _, err := svc.Verify(context.Background(), token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken when the account is gone, got %v", err)
	}
}
