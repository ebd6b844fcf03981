package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CUknot/forum_backend/chat"
	"github.com/CUknot/forum_backend/config"
	"github.com/CUknot/forum_backend/controllers"
	"github.com/CUknot/forum_backend/database"
	"github.com/CUknot/forum_backend/docs"
	"github.com/CUknot/forum_backend/logging"
	"github.com/CUknot/forum_backend/middleware"
	"github.com/CUknot/forum_backend/store"
	"github.com/CUknot/forum_backend/utils"
	"github.com/CUknot/forum_backend/websocket"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Forum Chat API
// @version         1.0
// @description     Real-time chat rooms for the forum backend
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, dotenv, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if !dotenv {
		log.Info("no .env file found, using system environment variables")
	}

	db, err := database.Connect(cfg, log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	registry := chat.NewRegistry(store.NewRoomStore(db), store.NewUserStore(db), log.Named("chat"), chat.Options{
		MaxContentLength: cfg.MaxMessageLength,
		SendBuffer:       cfg.SendBuffer,
	})

	docs.SwaggerInfo.Host = "localhost:" + cfg.Port

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.Logger(log.Named("http")), gin.Recovery(), middleware.CORS(cfg.AllowedOrigins))

	authController := controllers.NewAuthController(db, tokens)
	roomController := controllers.NewRoomController(db)
	messageController := controllers.NewMessageController(registry)
	healthController := controllers.NewHealthController(db, registry)
	wsHandler := websocket.NewHandler(registry, tokens, cfg.AllowedOrigins, log.Named("websocket"))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/healthz", healthController.Health)

	// Authentication routes
	auth := router.Group("/api")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
	}

	// Protected routes
	api := router.Group("/api")
	api.Use(middleware.JWTAuth(tokens))
	{
		api.GET("/users/me", authController.Me)

		api.GET("/rooms", roomController.GetRooms)
		api.POST("/rooms", roomController.CreateRoom)
		api.GET("/rooms/:id", roomController.GetRoom)
		api.PUT("/rooms/:id", roomController.UpdateRoom)
		api.DELETE("/rooms/:id", roomController.DeleteRoom)
		api.POST("/rooms/:id/messages", messageController.CreateMessage)
	}

	router.GET("/ws", wsHandler.HandleConnection)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server running", zap.String("port", cfg.Port),
			zap.String("swagger", "http://localhost:"+cfg.Port+"/swagger/index.html"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown.
	registry.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
