// Command seed provisions the privileged account. It is idempotent: running
// it against a database that already holds the account is a no-op, so it is
// safe to run on every deploy.
package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Raniaaloun/chat-app/internal/core/domain"
	mongodb "github.com/Raniaaloun/chat-app/internal/infrastructure/db/mongo"
	"github.com/Raniaaloun/chat-app/internal/pkg/config"
	"github.com/Raniaaloun/chat-app/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.Env == "development"})

	if cfg.Seed.Email == "" || cfg.Seed.Password == "" {
		log.Fatal().Msg("SEED_EMAIL and SEED_PASSWORD are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	repo := mongodb.NewAccountRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}

	existing, err := repo.FindByEmail(ctx, cfg.Seed.Email)
	switch {
	case err == nil:
		if existing.Role != domain.RolePrivileged {
			log.Fatal().Str("account_id", existing.ID).Msg("account exists with a non-privileged role")
		}
		log.Info().Str("account_id", existing.ID).Msg("privileged account already present")
		return
	case !errors.Is(err, domain.ErrAccountNotFound):
		log.Fatal().Err(err).Msg("lookup failed")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Seed.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal().Err(err).Msg("password hashing failed")
	}

	account, err := repo.Create(ctx, &domain.Account{
		Username:     cfg.Seed.Username,
		Email:        cfg.Seed.Email,
		PasswordHash: string(hash),
		Role:         domain.RolePrivileged,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("privileged account creation failed")
	}

	log.Info().Str("account_id", account.ID).Str("username", account.Username).Msg("privileged account created")
}
