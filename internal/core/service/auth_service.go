package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Raniaaloun/chat-app/internal/core/domain"
	"github.com/Raniaaloun/chat-app/internal/core/ports"
)

const minPasswordLength = 6

// AuthService implements registration, login, and session verification.
type AuthService struct {
	repo      ports.AccountRepository
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(repo ports.AccountRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	return &AuthService{repo: repo, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// Register creates a normal account. Privileged accounts are provisioned out
// of band (see cmd/seed), never through self-registration.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.Account, string, error) {
	if username == "" || email == "" || password == "" {
		return nil, "", domain.ErrInvalidCredentials
	}
	if len(password) < minPasswordLength {
		return nil, "", domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	account := &domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleNormal,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		return nil, "", err
	}

	token, err := s.generateToken(created)
	if err != nil {
		return nil, "", err
	}
	return created, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(account)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

// Verify validates a session token and resolves the account it names. Used
// once per websocket establishment; a failure refuses the connection before
// any presence registration happens.
func (s *AuthService) Verify(ctx context.Context, token string) (*domain.Account, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !tkn.Valid {
		return nil, domain.ErrInvalidToken
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, domain.ErrInvalidToken
	}

	account, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	return account, nil
}

func (s *AuthService) generateToken(account *domain.Account) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  account.ID,
		"username": account.Username,
		"role":     string(account.Role),
		"exp":      time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
