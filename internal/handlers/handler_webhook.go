package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hodlpay/treasury_backend/internal/apperrors"
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	portssvc "github.com/hodlpay/treasury_backend/internal/core/ports/services"
	"github.com/hodlpay/treasury_backend/internal/dto"
	"github.com/hodlpay/treasury_backend/internal/middleware"
	"github.com/ulule/limiter/v3"
)

// webhookHandler receives inbound payment events from payment processors.
type webhookHandler struct {
	transactionService portssvc.TransactionSvcFacade
	enqueue            ConversionEnqueuer
}

func newWebhookHandler(ts portssvc.TransactionSvcFacade, enqueue ConversionEnqueuer) *webhookHandler {
	return &webhookHandler{
		transactionService: ts,
		enqueue:            enqueue,
	}
}

// registerWebhookRoutes registers the payment-processor intake route.
func registerWebhookRoutes(rg *gin.RouterGroup, ts portssvc.TransactionSvcFacade, webhookLimiter *limiter.Limiter, enqueue ConversionEnqueuer) {
	h := newWebhookHandler(ts, enqueue)

	webhooks := rg.Group("/webhooks", middleware.RateLimit(webhookLimiter))
	{
		webhooks.POST("/payments", h.submitPayment)
	}
}

// submitPayment records an inbound payment event and queues it for
// conversion. Redelivery of an already-recorded event returns the existing
// transaction with 200, so processors can retry safely.
func (h *webhookHandler) submitPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.SubmitTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SubmitPayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger = logger.With(
		slog.String("tenant_id", req.TenantID),
		slog.String("provider", req.Provider),
		slog.String("external_id", req.ExternalID),
	)
	logger.Info("Received payment event")

	txn, err := h.transactionService.SubmitTransaction(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Payment event rejected", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else if errors.Is(err, apperrors.ErrForbidden) {
			logger.Warn("Payment event for disabled tenant")
			c.JSON(http.StatusForbidden, gin.H{"error": "Tenant is not active"})
		} else if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Payment event for unknown tenant")
			c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
		} else {
			logger.Error("Failed to record payment event", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record payment event"})
		}
		return
	}

	// Only fresh pending work goes to the conversion pool; a redelivered
	// event returns whatever state the original reached.
	status := http.StatusOK
	if txn.Status == domain.TxPending && !txn.Decided {
		h.enqueue(txn.TenantID, txn.TransactionID)
		status = http.StatusAccepted
	}

	logger.Info("Payment event recorded", slog.String("transaction_id", txn.TransactionID))
	c.JSON(status, dto.ToTransactionResponse(txn))
}
