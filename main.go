package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/elearning-service/internal/cache"
	"github.com/SAP-F-2025/elearning-service/internal/config"
	"github.com/SAP-F-2025/elearning-service/internal/events"
	"github.com/SAP-F-2025/elearning-service/internal/handlers"
	"github.com/SAP-F-2025/elearning-service/internal/metrics"
	"github.com/SAP-F-2025/elearning-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/elearning-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/elearning-service/internal/services"
	"github.com/SAP-F-2025/elearning-service/internal/storage"
	"github.com/SAP-F-2025/elearning-service/internal/utils"
	"github.com/SAP-F-2025/elearning-service/internal/validator"
	"github.com/SAP-F-2025/elearning-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(slogLogger)
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis. Sessions live there, so it is required.
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	cacheManager := cache.NewCacheManager(redisClient)

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	// Session event bus: Kafka when brokers are configured, in-process otherwise
	bus, err := newSessionBus(cfg, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize session events: %v", err)
	}
	busCtx, stopBus := context.WithCancel(context.Background())
	if err := bus.Start(busCtx); err != nil {
		log.Fatalf("Failed to start session events: %v", err)
	}

	// Hosted auth provider
	sessions := cache.NewSessionStore(cacheManager, cfg.Session.TTL)
	pending := cache.NewPendingConfirmations(cacheManager, cfg.Session.PendingConfirmationTTL)
	authProvider := casdoor.NewAuthCasdoor(
		casdoor.NewCasdoorClient(cfg.Casdoor),
		cfg.Casdoor.Organization,
		sessions,
		pending,
		bus,
		slogLogger,
	)

	objects, err := storage.NewLocalStorage(cfg.Storage.Dir, cfg.Storage.PublicURL)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	m := metrics.New()

	// Initialize services
	serviceManager := services.NewServiceManager(services.ServiceDependencies{
		DB:        db,
		Repo:      repoManager.GetRepository(),
		Logger:    slogLogger,
		Validator: validator.New(),
		Provider:  authProvider,
		Pending:   pending,
		Objects:   objects,
		Cache:     cacheManager,
		Metrics:   m,
	}, services.ServiceManagerConfig{
		Shell: services.ShellOptions{
			ProbeTimeout:       cfg.Session.ProbeTimeout,
			ConfirmationWindow: cfg.Session.ConfirmationWindow,
		},
		Progress: services.ProgressOptions{
			MaxAttempts:  cfg.Progress.MaxAttempts,
			RetryBackoff: cfg.Progress.RetryBackoff,
		},
		MaxCoverSize:   cfg.Storage.MaxCoverSize,
		DefaultTimeout: 30 * time.Second,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Setup Gin router
	if cfg.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, cfg.AllowedOrigins, m)
	if strings.HasPrefix(cfg.Storage.PublicURL, "/") {
		router.Static(cfg.Storage.PublicURL, objects.BaseDir())
	}

	handlerManager := handlers.NewHandlerManager(serviceManager, logger, m)
	handlerManager.SetupRoutes(router)

	// Create HTTP server. No write timeout: the shell stream is long-lived.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Close shell streams first so server.Shutdown is not held open by them
	serviceManager.Shell().CloseAll()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Drains the progress outbox
	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	stopBus()
	if err := bus.Close(); err != nil {
		logger.Error("Failed to close session events", "error", err)
	}

	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to close database", "error", err)
	}

	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited")
}

func newSessionBus(cfg *config.Config, logger *slog.Logger) (*events.SessionBus, error) {
	if len(cfg.Kafka.Brokers) > 0 {
		return events.NewKafkaBus(cfg.Kafka, logger)
	}
	return events.NewInProcessBus(cfg.Kafka.Topic, logger), nil
}
