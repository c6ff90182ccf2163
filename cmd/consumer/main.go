package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/signalworks/email-delivery-service/internal/config"
	"github.com/signalworks/email-delivery-service/internal/consumer"
	"github.com/signalworks/email-delivery-service/internal/repository"
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

	logr := logger.New("email-worker", cfg.LogLevel)

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

	// Wire the pipeline with explicit dependencies
	deliveryStore := repository.NewDeliveryLogStore(db)
	templateRepo := repository.NewTemplateRepository(db)
	redisRepo := repository.NewRedisRepository(redisClient)

	ledger := services.NewIdempotencyLedger(redisRepo, cfg.IdempotencyTTL)
	sender := services.NewEmailSender(cfg, logr)
	templateService := services.NewTemplateService(templateRepo, services.NewRenderer(), logr)

	pipeline := consumer.NewPipeline(
		deliveryStore,
		ledger,
		sender,
		templateService,
		cfg.MaxRetryAttempts,
		logr,
	)
	worker := consumer.New(mqManager, pipeline, cfg.EmailQueueName, cfg.FailedQueueName, logr)

	// Drain gracefully: stop pulling on SIGINT/SIGTERM but let the in-flight
	// message finish.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.Run(ctx); err != nil {
		logr.Error("consumer stopped with error", slog.Any("error", err))
		os.Exit(1)
	}

	logr.Info("consumer exiting")
}
