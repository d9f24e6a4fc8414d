package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/go-qris-payflow/internal/aws"
	"github.com/imrishuroy/go-qris-payflow/internal/config"
	"github.com/imrishuroy/go-qris-payflow/internal/logger"
)

func main() {
	ctx := context.Background()

	cfg := config.LoadWorker()
	log := logger.Init(cfg.LogLevel, cfg.LogFormat)

	clients, err := aws.NewClients(ctx)
	if err != nil {
		log.Error("failed to init aws clients", "error", err)
		os.Exit(1)
	}
	p := NewProcessor(clients.CloudWatch, cfg.MetricsNamespace, log)

	// RUN_LOCAL=true processes one simulated message from LOCAL_SQS_BODY.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = `{"reference_id":"ORD-local-1","status":"PAID","paid":true,"source":"webhook"}`
		}
		event := events.SQSEvent{Records: []events.SQSMessage{{MessageId: "local-1", Body: body}}}
		if err := p.Handle(ctx, event); err != nil {
			slog.Error("local handler error", "error", err)
			os.Exit(1)
		}
		return
	}

	lambda.Start(p.Handle)
}
