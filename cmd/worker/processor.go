package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/imrishuroy/go-qris-payflow/internal/aws"
	"github.com/imrishuroy/go-qris-payflow/internal/payments"
)

// Metric names.
const (
	metricStatusObserved = "StatusObserved"
	metricPaymentsPaid   = "PaymentsPaid"
)

// Processor turns status events from the queue into CloudWatch metrics.
type Processor struct {
	cloudwatch aws.CloudWatchAPI
	namespace  string
	logger     *slog.Logger
}

// NewProcessor creates a Processor publishing under namespace.
func NewProcessor(cw aws.CloudWatchAPI, namespace string, logger *slog.Logger) *Processor {
	return &Processor{
		cloudwatch: cw,
		namespace:  namespace,
		logger:     logger,
	}
}

// Handle processes an SQS batch. Any failure fails the whole batch so Lambda
// redelivers it; repeated failures end up in the DLQ.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	p.logger.Debug("received sqs batch", "records", len(ev.Records))
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.logger.Error("worker error", "message_id", rec.MessageId, "error", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var ev payments.StatusEvent
	if err := json.Unmarshal([]byte(rec.Body), &ev); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if ev.ReferenceID == "" {
		return fmt.Errorf("message %s has no reference_id", rec.MessageId)
	}

	var ts *time.Time
	if !ev.OccurredAt.IsZero() {
		ts = &ev.OccurredAt
	}
	data := []cwtypes.MetricDatum{{
		MetricName: awssdk.String(metricStatusObserved),
		Dimensions: []cwtypes.Dimension{
			{Name: awssdk.String("Status"), Value: awssdk.String(dimensionValue(ev.Status))},
			{Name: awssdk.String("Source"), Value: awssdk.String(dimensionValue(ev.Source))},
		},
		Timestamp: ts,
		Unit:      cwtypes.StandardUnitCount,
		Value:     awssdk.Float64(1),
	}}
	if ev.Paid {
		data = append(data, cwtypes.MetricDatum{
			MetricName: awssdk.String(metricPaymentsPaid),
			Timestamp:  ts,
			Unit:       cwtypes.StandardUnitCount,
			Value:      awssdk.Float64(1),
		})
	}

	_, err := p.cloudwatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  awssdk.String(p.namespace),
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("put metric data for %s: %w", ev.ReferenceID, err)
	}

	p.logger.Info("status event recorded",
		"reference_id", ev.ReferenceID,
		"status", ev.Status,
		"source", ev.Source,
		"paid", ev.Paid)
	return nil
}

// dimensionValue substitutes a placeholder since CloudWatch rejects empty
// dimension values.
func dimensionValue(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}
