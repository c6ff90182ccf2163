package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/signalworks/email-delivery-service/internal/config"
	"github.com/signalworks/email-delivery-service/internal/handlers"
	"github.com/signalworks/email-delivery-service/internal/repository"
	"github.com/signalworks/email-delivery-service/internal/routes"
	"github.com/signalworks/email-delivery-service/internal/services"
	"github.com/signalworks/email-delivery-service/pkg/logger"
	"github.com/signalworks/email-delivery-service/pkg/rabbitmq"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logr := logger.New("email-api", cfg.LogLevel)

	// Initialize database
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logr.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})
	defer redisClient.Close()

	// Initialize RabbitMQ
	mqManager, err := rabbitmq.NewManager(cfg.RabbitMQURL, logr)
	if err != nil {
		logr.Error("failed to connect to RabbitMQ", slog.Any("error", err))
		os.Exit(1)
	}
	defer mqManager.Close()

	if err := mqManager.DeclareEmailTopology(cfg.EmailQueueName, cfg.FailedQueueName); err != nil {
		logr.Error("failed to declare rabbitmq topology", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize repositories
	deliveryStore := repository.NewDeliveryLogStore(db)
	templateRepo := repository.NewTemplateRepository(db)
	redisRepo := repository.NewRedisRepository(redisClient)

	// Initialize services
	ledger := services.NewIdempotencyLedger(redisRepo, cfg.IdempotencyTTL)
	sender := services.NewEmailSender(cfg, logr)
	publisher := services.NewPublisher(mqManager.Connection(), cfg.EmailQueueName)
	templateService := services.NewTemplateService(templateRepo, services.NewRenderer(), logr)

	// Initialize handlers
	emailHandler := handlers.NewEmailHandler(deliveryStore, ledger, sender, publisher, cfg.MaxRetryAttempts, logr)
	templateHandler := handlers.NewTemplateHandler(templateService)
	breakerHandler := handlers.NewBreakerHandler(sender)
	healthHandler := handlers.NewHealthHandler(db, redisRepo, sender)

	// Initialize router
	router := gin.Default()
	routes.SetupRoutes(
		router,
		emailHandler,
		templateHandler,
		breakerHandler,
		healthHandler,
		redisClient,
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
	)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Error("server listen failed", slog.Any("error", err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("server forced to shutdown", slog.Any("error", err))
	}

	logr.Info("server exiting")
}
