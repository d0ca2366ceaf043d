package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Raniaaloun/chat-app/internal/api"
	mongodb "github.com/Raniaaloun/chat-app/internal/infrastructure/db/mongo"
	redisdb "github.com/Raniaaloun/chat-app/internal/infrastructure/db/redis"
	"github.com/Raniaaloun/chat-app/internal/infrastructure/realtime"
	"github.com/Raniaaloun/chat-app/internal/pkg/config"
	"github.com/Raniaaloun/chat-app/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx := context.Background()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongodb disconnect failed")
		}
	}()

	if err := mongodb.NewAccountRepository(db).EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("account index creation failed")
	}
	if err := mongodb.NewMessageRepository(db).EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("message index creation failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close failed")
		}
	}()

	hub := realtime.NewHub(redisdb.NewPresenceStore(rdb), log)

	e := api.NewRouter(db, rdb, hub, cfg.JWTSecret)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting chat server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	// Drain the live channel first so clients see a clean close frame, then
	// stop accepting HTTP traffic.
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
