package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Raniaaloun/chat-app/internal/api/handler"
	"github.com/Raniaaloun/chat-app/internal/api/middleware"
	"github.com/Raniaaloun/chat-app/internal/core/service"
	mongodb "github.com/Raniaaloun/chat-app/internal/infrastructure/db/mongo"
	redisdb "github.com/Raniaaloun/chat-app/internal/infrastructure/db/redis"
	"github.com/Raniaaloun/chat-app/internal/infrastructure/realtime"
	"github.com/Raniaaloun/chat-app/pkg/logger"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// The hub is injected so main can drain it on shutdown.
func NewRouter(db *mongo.Database, rdb *redis.Client, hub *realtime.Hub, jwtSecret string) *echo.Echo {
	log := logger.Get()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("chat"))

	// --- Dependencies ---
	accountRepo := mongodb.NewAccountRepository(db)
	messageRepo := mongodb.NewMessageRepository(db)
	presenceStore := redisdb.NewPresenceStore(rdb)

	authService := service.NewAuthService(accountRepo, jwtSecret, 7*24*time.Hour)
	chatService := service.NewChatService(accountRepo, messageRepo, hub, log)

	authHandler := handler.NewAuthHandler(authService, accountRepo)
	messageHandler := handler.NewMessageHandler(chatService)
	userHandler := handler.NewUserHandler(accountRepo, messageRepo, hub, presenceStore, log)
	wsHandler := handler.NewWSHandler(authService, chatService, hub, log)

	authMiddleware := middleware.Auth(jwtSecret)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.GET("/auth/me", authHandler.Me, authMiddleware)

	// --- Chat routes ---
	v1 := e.Group("/v1", authMiddleware)
	v1.GET("/users", userHandler.List)
	v1.GET("/messages/:user_id", messageHandler.History)
	v1.POST("/messages/:user_id", messageHandler.Send)
	v1.PATCH("/messages/:user_id/read", messageHandler.MarkRead)

	// --- Live channel (token via query param, verified before upgrade) ---
	e.GET("/ws", wsHandler.Handle)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
