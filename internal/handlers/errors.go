package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-qris-payflow/internal/apperrors"
)

// respondError renders err according to its AppError type. Anything else is
// logged and answered with a generic 500.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		appErr = apperrors.NewInternalError("unexpected error", err)
	}

	switch appErr.Type {
	case apperrors.ErrorTypeValidation:
		body := gin.H{"error": "validation_failed", "message": appErr.Message}
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
		c.JSON(http.StatusBadRequest, body)
	case apperrors.ErrorTypeUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": appErr.Message})
	case apperrors.ErrorTypeGateway:
		logger.Warn("payment gateway error",
			"request_id", c.GetString(requestIDKey),
			"upstream_status", appErr.UpstreamStatus,
			"error", err)
		body := gin.H{"error": "xendit_error", "status": appErr.UpstreamStatus}
		if len(appErr.UpstreamBody) > 0 {
			body["detail"] = appErr.UpstreamBody
		}
		c.JSON(http.StatusBadGateway, body)
	case apperrors.ErrorTypeNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	default:
		logger.Error("request failed",
			"request_id", c.GetString(requestIDKey),
			"path", c.FullPath(),
			"error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
