package payments

import (
	"context"
	"encoding/json"
	"fmt"
)

// EventPublisher receives every reconciled status observation.
type EventPublisher interface {
	PublishStatus(ctx context.Context, ev StatusEvent) error
}

// MessageSender is the queue transport behind QueuePublisher.
type MessageSender interface {
	SendMessage(ctx context.Context, messageBody string, attributes map[string]string) error
}

// QueuePublisher publishes status events as JSON queue messages.
type QueuePublisher struct {
	sender MessageSender
}

// NewQueuePublisher wraps a MessageSender.
func NewQueuePublisher(sender MessageSender) *QueuePublisher {
	return &QueuePublisher{sender: sender}
}

func (p *QueuePublisher) PublishStatus(ctx context.Context, ev StatusEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}
	attrs := map[string]string{
		"reference_id": ev.ReferenceID,
		"status":       ev.Status,
		"source":       ev.Source,
	}
	return p.sender.SendMessage(ctx, string(body), attrs)
}

type noopPublisher struct{}

func (noopPublisher) PublishStatus(context.Context, StatusEvent) error { return nil }
