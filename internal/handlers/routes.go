package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-qris-payflow/internal/payments"
	"github.com/imrishuroy/go-qris-payflow/internal/validation"
	"github.com/imrishuroy/go-qris-payflow/internal/webhook"
)

// HandlerConfig groups dependencies for the HTTP handlers.
type HandlerConfig struct {
	Service      *payments.Service
	WebhookToken string
	Forwarder    *webhook.Forwarder
	Logger       *slog.Logger
}

// RegisterRoutes registers health, payment, history and webhook routes.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	ph := &paymentsHandler{
		svc:       cfg.Service,
		validator: validation.New(),
		logger:    cfg.Logger,
	}
	wh := &webhookHandler{
		svc:       cfg.Service,
		token:     cfg.WebhookToken,
		forwarder: cfg.Forwarder,
		logger:    cfg.Logger,
	}

	// health
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "QRIS Payflow API OK")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api := r.Group("/api")
	api.POST("/payments", ph.create)
	api.GET("/payments/:reference_id", ph.getByReference)
	api.GET("/qris/:qr_id", ph.pollQR)
	api.GET("/history", ph.history)

	r.POST("/webhook/xendit", wh.receive)
}
