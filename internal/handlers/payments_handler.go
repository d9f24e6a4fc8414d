package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-qris-payflow/internal/payments"
	"github.com/imrishuroy/go-qris-payflow/internal/validation"
)

type paymentsHandler struct {
	svc       *payments.Service
	validator *validatorv10.Validate
	logger    *slog.Logger
}

// POST /api/payments
func (h *paymentsHandler) create(c *gin.Context) {
	var req validation.CreatePaymentRequest
	if err := validation.BindAndValidate(c, &req, h.validator); err != nil {
		respondError(c, h.logger, err)
		return
	}

	res, err := h.svc.CreatePayment(c.Request.Context(), payments.CreatePaymentCommand{
		ReferenceID: req.OrderID,
		Amount:      int64(req.Amount),
		WebhookURL:  req.WebhookURL,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	qr := res.QR
	c.JSON(http.StatusOK, gin.H{
		"ok":           true,
		"reference_id": res.ReferenceID,
		"amount":       res.Amount,
		"qris": gin.H{
			"id":         qr.ID,
			"status":     qr.Status,
			"qr_string":  qr.QRString,
			"image_url":  nullable(qr.ImageURL),
			"expires_at": qr.ExpiresAt,
		},
		"links": gin.H{"status": "/api/qris/" + qr.ID},
	})
}

// GET /api/qris/:qr_id
func (h *paymentsHandler) pollQR(c *gin.Context) {
	qr, err := h.svc.PollQR(c.Request.Context(), c.Param("qr_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           qr.ID,
		"status":       qr.Status,
		"amount":       qr.Amount,
		"reference_id": qr.ReferenceID,
		"currency":     qr.Currency,
		"expires_at":   qr.ExpiresAt,
		"created":      qr.Created,
	})
}

// GET /api/payments/:reference_id
func (h *paymentsHandler) getByReference(c *gin.Context) {
	tx, err := h.svc.Get(c.Request.Context(), c.Param("reference_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// GET /api/history?limit=N
func (h *paymentsHandler) history(c *gin.Context) {
	// unparseable limits fall back to the default like a missing one
	limit, _ := strconv.Atoi(c.Query("limit"))

	txs, err := h.svc.History(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
