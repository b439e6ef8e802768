package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Horizonnns/vue-chat-server/chat"
	"github.com/Horizonnns/vue-chat-server/config"
	"github.com/Horizonnns/vue-chat-server/db"
	"github.com/Horizonnns/vue-chat-server/handlers"
	"github.com/Horizonnns/vue-chat-server/middleware"
	"github.com/Horizonnns/vue-chat-server/utils"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Initialize logger
	logger := utils.NewLogger(cfg.Environment)

	// Connect to database
	database, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	store := db.NewStore(database)

	// Optional Redis presence mirror
	var cache *chat.PresenceCache
	if cfg.RedisURL != "" {
		redisClient, err := db.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Presence mirror disabled", "error", err)
		} else {
			defer redisClient.Close()
			cache = chat.NewPresenceCache(redisClient, cfg.PresenceTTL, logger)
			logger.Info("Connected to Redis", "url", cfg.RedisURL)
		}
	}

	// Initialize the realtime core
	chatService := chat.NewService(store, cache, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go chatService.Presence.Run(ctx)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(store, cfg, logger)
	contactHandler := handlers.NewContactHandler(store, logger)
	messageHandler := handlers.NewMessageHandler(store, chatService.Registry, logger)
	wsHandler := handlers.NewWSHandler(chatService, cfg.AllowedOrigin, logger)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigin))

	// Health check endpoint
	router.GET("/health", handlers.HealthCheck)

	// Public routes
	router.POST("/register", authHandler.Register)
	router.POST("/login", authHandler.Login)

	// Shared file access
	router.Static("/uploads", cfg.UploadDir)

	// Authenticated routes
	api := router.Group("/")
	api.Use(middleware.Auth(cfg.JWTSecret))
	{
		api.GET("/search", contactHandler.Search)
		api.POST("/add-contact", contactHandler.AddContact)
		api.GET("/contacts/:userId", contactHandler.ListContacts)
		api.GET("/status/:userId", messageHandler.Status)
		api.GET("/messages", messageHandler.History)
		api.GET("/ws", wsHandler.Serve)
	}

	// Create HTTP server. No WriteTimeout: it would sever long-lived
	// WebSocket connections.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting chat server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop the presence mirror refresher
	cancel()

	// Close live connections so clients reconnect elsewhere
	for _, h := range chatService.Registry.Snapshot() {
		h.Close()
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
