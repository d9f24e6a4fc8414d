package payments

import "time"

// Transaction statuses the broker itself writes. Any other processor value is
// stored verbatim after normalization.
const (
	StatusPending   = "PENDING"
	StatusPaid      = "PAID"
	StatusSucceeded = "SUCCEEDED"
	StatusExpired   = "EXPIRED"
	StatusFailed    = "FAILED"
)

// MethodQRIS is the only supported payment method.
const MethodQRIS = "qris"

// Transaction is the local status record for one payment, keyed by ReferenceID.
type Transaction struct {
	ReferenceID string         `json:"reference_id" dynamodbav:"reference_id"` // PK
	Status      string         `json:"status" dynamodbav:"status"`
	Amount      int64          `json:"amount,omitempty" dynamodbav:"amount,omitempty"`
	Method      string         `json:"method,omitempty" dynamodbav:"method,omitempty"`
	QRID        string         `json:"qr_id,omitempty" dynamodbav:"qr_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at" dynamodbav:"created_at"`
	PaidAt      *time.Time     `json:"paid_at" dynamodbav:"paid_at,omitempty"`
	WebhookURL  *string        `json:"webhook_url" dynamodbav:"webhook_url,omitempty"`
	RawWebhook  map[string]any `json:"raw_webhook,omitempty" dynamodbav:"raw_webhook,omitempty"`
}

// Patch holds the fields to merge into a Transaction. Nil fields are left
// untouched.
type Patch struct {
	Status     *string
	Amount     *int64
	Method     *string
	QRID       *string
	PaidAt     *time.Time
	WebhookURL *string
	RawWebhook map[string]any
}

// apply merges p onto tx. PaidAt is only stamped when tx has none yet.
func (p Patch) apply(tx *Transaction) {
	if p.Status != nil {
		tx.Status = *p.Status
	}
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.Method != nil {
		tx.Method = *p.Method
	}
	if p.QRID != nil {
		tx.QRID = *p.QRID
	}
	if p.PaidAt != nil && tx.PaidAt == nil {
		paidAt := *p.PaidAt
		tx.PaidAt = &paidAt
	}
	if p.WebhookURL != nil {
		url := *p.WebhookURL
		tx.WebhookURL = &url
	}
	if p.RawWebhook != nil {
		tx.RawWebhook = cloneMap(p.RawWebhook)
	}
}

// clone returns a copy of tx sharing no pointers or maps with it.
func (tx *Transaction) clone() Transaction {
	out := *tx
	if tx.PaidAt != nil {
		paidAt := *tx.PaidAt
		out.PaidAt = &paidAt
	}
	if tx.WebhookURL != nil {
		url := *tx.WebhookURL
		out.WebhookURL = &url
	}
	out.RawWebhook = cloneMap(tx.RawWebhook)
	return out
}

// cloneMap deep-copies a decoded JSON object.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

// newTransaction returns the default record created on first reference.
func newTransaction(referenceID string, now time.Time) Transaction {
	return Transaction{
		ReferenceID: referenceID,
		Status:      StatusPending,
		CreatedAt:   now.UTC(),
	}
}

// StatusPatch builds the reconciliation patch for a status observation:
// the normalized status, plus PaidAt when the status counts as paid. An
// empty raw status leaves the stored status unchanged.
func StatusPatch(rawStatus string, now time.Time) Patch {
	var p Patch
	if s := NormalizeStatus(rawStatus); s != "" {
		p.Status = &s
	}
	if IsPaid(rawStatus) {
		paidAt := now.UTC()
		p.PaidAt = &paidAt
	}
	return p
}

// Event sources.
const (
	SourceCreate  = "create"
	SourcePoll    = "poll"
	SourceWebhook = "webhook"
)

// StatusEvent is published whenever a status observation is reconciled.
type StatusEvent struct {
	ReferenceID string    `json:"reference_id"`
	QRID        string    `json:"qr_id,omitempty"`
	Status      string    `json:"status"`
	Paid        bool      `json:"paid"`
	Source      string    `json:"source"`
	OccurredAt  time.Time `json:"occurred_at"`
}
