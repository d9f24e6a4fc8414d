package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/imrishuroy/go-qris-payflow/internal/aws"
	"github.com/imrishuroy/go-qris-payflow/internal/config"
	"github.com/imrishuroy/go-qris-payflow/internal/handlers"
	"github.com/imrishuroy/go-qris-payflow/internal/logger"
	"github.com/imrishuroy/go-qris-payflow/internal/payments"
	"github.com/imrishuroy/go-qris-payflow/internal/webhook"
	"github.com/imrishuroy/go-qris-payflow/internal/xendit"
)

func setupRouter(log *slog.Logger, cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestID(), handlers.RequestLogger(log))

	handlers.RegisterRoutes(r, cfg)

	return r
}

// newStore builds the configured transaction store. AWS clients are only
// created when something needs them.
func newStore(ctx context.Context, cfg *config.Config, clients func() (*aws.Clients, error)) (payments.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendDynamoDB:
		c, err := clients()
		if err != nil {
			return nil, err
		}
		return payments.NewDynamoStore(c.DynamoDB, cfg.TransactionsTable), nil
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		return payments.NewRedisStore(rdb, cfg.RedisPrefix), nil
	default:
		return payments.NewMemoryStore(), nil
	}
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.LogLevel, cfg.LogFormat)

	var clients *aws.Clients
	awsClients := func() (*aws.Clients, error) {
		if clients != nil {
			return clients, nil
		}
		c, err := aws.NewClients(ctx)
		if err != nil {
			return nil, fmt.Errorf("init aws clients: %w", err)
		}
		clients = c
		return c, nil
	}

	store, err := newStore(ctx, cfg, awsClients)
	if err != nil {
		log.Error("failed to init transaction store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}

	var publisher payments.EventPublisher
	if cfg.EventsQueueURL != "" {
		c, err := awsClients()
		if err != nil {
			log.Error("failed to init event queue", "error", err)
			os.Exit(1)
		}
		publisher = payments.NewQueuePublisher(aws.NewPublisher(c.SQS, cfg.EventsQueueURL))
	}

	gateway := xendit.NewClient(cfg.XenditSecret, cfg.XenditBaseURL, cfg.GatewayTimeout)
	svc := payments.NewService(store, gateway, publisher, log)

	r := setupRouter(log, handlers.HandlerConfig{
		Service:      svc,
		WebhookToken: cfg.WebhookToken,
		Forwarder:    webhook.NewForwarder(cfg.DebugWebhookURL, log),
		Logger:       log,
	})

	log.Info("qris payflow api configured",
		"store", cfg.StoreBackend,
		"events", cfg.EventsQueueURL != "",
		"debug_forward", cfg.DebugWebhookURL != "")

	// RUN_LOCAL=true serves plain HTTP for development.
	if cfg.RunLocal {
		addr := ":" + cfg.Port
		log.Info("running local server", "addr", addr)
		if err := r.Run(addr); err != nil {
			log.Error("local server stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
