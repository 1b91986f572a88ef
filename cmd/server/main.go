package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ieltsprep/practice-service/internal/cache"
	"github.com/ieltsprep/practice-service/internal/config"
	"github.com/ieltsprep/practice-service/internal/events"
	"github.com/ieltsprep/practice-service/internal/handlers"
	"github.com/ieltsprep/practice-service/internal/repositories/postgres"
	"github.com/ieltsprep/practice-service/internal/services"
	"github.com/ieltsprep/practice-service/internal/utils"
	"github.com/ieltsprep/practice-service/internal/validator"
	"github.com/ieltsprep/practice-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.NewDefaultLogger().Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Environment)
	slogger := utils.ToSlogLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := postgres.AutoMigrate(db); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}

	// Score report cache; scoring still works without it
	scoreCache := cache.NewNoopCache()
	redisClient, err := pkg.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn("Score cache disabled", "error", err)
	} else {
		defer redisClient.Close()
		scoreCache = cache.NewRedisCache(redisClient, logger.With("component", "cache"))
	}

	// Result events
	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		logger.Error("Failed to create event publisher, falling back to mock", "error", err)
		publisher = events.NewMockEventPublisher(slogger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()

	serviceManager := services.NewServiceManager(services.ServiceManagerConfig{
		Repository:    postgres.NewRepository(db),
		Cache:         scoreCache,
		Publisher:     publisher,
		Logger:        slogger,
		Validator:     validator.New(),
		ScoreCacheTTL: cfg.ScoreCacheTTL,
	})

	var tokenParser handlers.TokenParser
	if cfg.Auth.Enabled {
		tokenParser = handlers.NewCasdoorTokenParser(cfg.Auth)
	} else {
		logger.Warn("Token auth disabled, trusting " + handlers.UserIDHeader + " header")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), utils.ContextLogger(logger), utils.LoggerMiddleware(logger))
	handlers.NewHandlerManager(serviceManager, tokenParser, logger).SetupRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Practice service listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
}
