package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-qris-payflow/internal/apperrors"
	"github.com/imrishuroy/go-qris-payflow/internal/payments"
	"github.com/imrishuroy/go-qris-payflow/internal/webhook"
)

const maxWebhookBody = 1 << 20

type webhookHandler struct {
	svc       *payments.Service
	token     string
	forwarder *webhook.Forwarder
	logger    *slog.Logger
}

// POST /webhook/xendit
//
// Once the token checks out and the body fits in maxWebhookBody the callback
// is always acknowledged, so Xendit does not keep redelivering something we
// cannot apply.
func (h *webhookHandler) receive(c *gin.Context) {
	if !webhook.ValidToken(c.GetHeader(webhook.TokenHeader), h.token) {
		respondError(c, h.logger, apperrors.NewUnauthorizedError("invalid_webhook_token"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		// not acknowledged, so Xendit keeps the callback for redelivery
		h.logger.Warn("webhook body too large", "request_id", c.GetString(requestIDKey), "limit", tooLarge.Limit)
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload_too_large"})
		return
	}
	if err != nil {
		h.logger.Warn("webhook body read failed", "request_id", c.GetString(requestIDKey), "error", err)
	}
	raw := webhook.Decode(body)

	ctx := c.Request.Context()
	applied, err := h.svc.ApplyWebhook(ctx, raw)
	if err != nil {
		h.logger.Error("webhook apply failed", "request_id", c.GetString(requestIDKey), "error", err)
	} else if !applied {
		h.logger.Info("webhook acknowledged without reference", "request_id", c.GetString(requestIDKey))
	}

	h.forwarder.Forward(ctx, raw)

	c.JSON(http.StatusOK, gin.H{"success": true})
}
