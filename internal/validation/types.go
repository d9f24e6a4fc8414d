package validation

// CreatePaymentRequest is the payload for POST /api/payments
type CreatePaymentRequest struct {
	Method     *string `json:"method" validate:"omitempty,eq=qris"`               // only qris; absent means qris
	Amount     float64 `json:"amount" validate:"required,gte=1000,lte=10000000"` // whole IDR
	OrderID    string  `json:"order_id,omitempty" validate:"omitempty,max=255"`  // becomes reference_id
	WebhookURL string  `json:"webhook_url,omitempty"`                            // stored as a note only
}
