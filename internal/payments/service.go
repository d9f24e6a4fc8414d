package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/imrishuroy/go-qris-payflow/internal/apperrors"
	"github.com/imrishuroy/go-qris-payflow/internal/webhook"
	"github.com/imrishuroy/go-qris-payflow/internal/xendit"
)

// Amount bounds in IDR, inclusive.
const (
	MinAmount = 1_000
	MaxAmount = 10_000_000
)

// Gateway creates and polls QR payments at the processor.
type Gateway interface {
	CreateQRPayment(ctx context.Context, referenceID string, amount int64) (*xendit.QRCode, error)
	GetQRPaymentStatus(ctx context.Context, qrID string) (*xendit.QRCode, error)
}

// Service reconciles the three status sources (create, poll, webhook) into
// one Store.
type Service struct {
	store   Store
	gateway Gateway
	events  EventPublisher
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewService wires a Service. events may be nil.
func NewService(store Store, gateway Gateway, events EventPublisher, logger *slog.Logger) *Service {
	if events == nil {
		events = noopPublisher{}
	}
	return &Service{
		store:   store,
		gateway: gateway,
		events:  events,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// CreatePaymentCommand is a validated create request.
type CreatePaymentCommand struct {
	ReferenceID string
	Amount      int64
	WebhookURL  string
}

// CreatePaymentResult carries what the client needs to show the QR.
type CreatePaymentResult struct {
	ReferenceID string
	Amount      int64
	QR          *xendit.QRCode
}

// CreatePayment creates a dynamic QR at the gateway and records it as PENDING.
// An empty ReferenceID gets an ORD-<unix millis> id.
func (s *Service) CreatePayment(ctx context.Context, cmd CreatePaymentCommand) (*CreatePaymentResult, error) {
	if cmd.Amount < MinAmount || cmd.Amount > MaxAmount {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("amount must be an integer between %d and %d", MinAmount, MaxAmount),
			map[string]string{"amount": "out_of_range"},
		)
	}

	ref := cmd.ReferenceID
	if ref == "" {
		ref = fmt.Sprintf("ORD-%d", s.nowFunc().UnixMilli())
	}

	qr, err := s.gateway.CreateQRPayment(ctx, ref, cmd.Amount)
	if err != nil {
		return nil, err
	}

	status := StatusPending
	method := MethodQRIS
	patch := Patch{
		Status: &status,
		Amount: &cmd.Amount,
		Method: &method,
		QRID:   &qr.ID,
	}
	if cmd.WebhookURL != "" {
		patch.WebhookURL = &cmd.WebhookURL
	}
	if _, err := s.store.Upsert(ctx, ref, patch); err != nil {
		return nil, apperrors.NewInternalError("record payment", err)
	}

	s.logger.Info("qris payment created", "reference_id", ref, "qr_id", qr.ID, "amount", cmd.Amount)
	s.publish(ctx, StatusEvent{
		ReferenceID: ref,
		QRID:        qr.ID,
		Status:      StatusPending,
		Source:      SourceCreate,
		OccurredAt:  s.nowFunc().UTC(),
	})

	return &CreatePaymentResult{ReferenceID: ref, Amount: cmd.Amount, QR: qr}, nil
}

// PollQR fetches live status from the gateway and reconciles it when the QR
// names a reference.
func (s *Service) PollQR(ctx context.Context, qrID string) (*xendit.QRCode, error) {
	qr, err := s.gateway.GetQRPaymentStatus(ctx, qrID)
	if err != nil {
		return nil, err
	}
	if qr.ReferenceID == "" {
		return qr, nil
	}

	if _, err := s.reconcile(ctx, qr.ReferenceID, qr.ID, qr.Status, nil, SourcePoll); err != nil {
		return nil, apperrors.NewInternalError("reconcile polled status", err)
	}
	return qr, nil
}

// ApplyWebhook reconciles a callback payload. It returns false without
// touching the store when no reference can be extracted.
func (s *Service) ApplyWebhook(ctx context.Context, raw map[string]any) (bool, error) {
	n, ok := webhook.Extract(raw)
	if !ok {
		s.logger.Debug("webhook without reference ignored")
		return false, nil
	}
	if _, err := s.reconcile(ctx, n.ReferenceID, "", n.Status, raw, SourceWebhook); err != nil {
		return false, err
	}
	return true, nil
}

// Get reads a record from the store only; it never asks the gateway.
func (s *Service) Get(ctx context.Context, referenceID string) (*Transaction, error) {
	tx, err := s.store.Get(ctx, referenceID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperrors.NewNotFoundError("transaction not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("read transaction", err)
	}
	return tx, nil
}

// History lists recent records; limit goes through ClampLimit.
func (s *Service) History(ctx context.Context, limit int) ([]Transaction, error) {
	txs, err := s.store.List(ctx, ClampLimit(limit))
	if err != nil {
		return nil, apperrors.NewInternalError("list transactions", err)
	}
	if txs == nil {
		txs = []Transaction{}
	}
	return txs, nil
}

func (s *Service) reconcile(ctx context.Context, ref, qrID, rawStatus string, raw map[string]any, source string) (*Transaction, error) {
	now := s.nowFunc()
	patch := StatusPatch(rawStatus, now)
	patch.RawWebhook = raw

	tx, err := s.store.Upsert(ctx, ref, patch)
	if err != nil {
		return nil, fmt.Errorf("upsert %s: %w", ref, err)
	}

	s.logger.Info("payment status reconciled",
		"reference_id", ref,
		"status", tx.Status,
		"source", source)

	if qrID == "" {
		qrID = tx.QRID
	}
	s.publish(ctx, StatusEvent{
		ReferenceID: ref,
		QRID:        qrID,
		Status:      tx.Status,
		Paid:        IsPaid(tx.Status),
		Source:      source,
		OccurredAt:  now.UTC(),
	})
	return tx, nil
}

func (s *Service) publish(ctx context.Context, ev StatusEvent) {
	if err := s.events.PublishStatus(ctx, ev); err != nil {
		s.logger.Warn("status event publish failed",
			"reference_id", ev.ReferenceID,
			"source", ev.Source,
			"error", err)
	}
}
