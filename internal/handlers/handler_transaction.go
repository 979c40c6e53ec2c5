package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hodlpay/treasury_backend/internal/apperrors"
	portssvc "github.com/hodlpay/treasury_backend/internal/core/ports/services"
	"github.com/hodlpay/treasury_backend/internal/dto"
	"github.com/hodlpay/treasury_backend/internal/middleware"
)

// transactionHandler handles HTTP requests for tenant transactions and
// scheduler triggers.
type transactionHandler struct {
	transactionService portssvc.TransactionSvcFacade
	enqueue            ConversionEnqueuer
}

func newTransactionHandler(ts portssvc.TransactionSvcFacade, enqueue ConversionEnqueuer) *transactionHandler {
	return &transactionHandler{
		transactionService: ts,
		enqueue:            enqueue,
	}
}

// registerTransactionRoutes registers tenant-scoped transaction routes.
func registerTransactionRoutes(rg *gin.RouterGroup, ts portssvc.TransactionSvcFacade, enqueue ConversionEnqueuer) {
	h := newTransactionHandler(ts, enqueue)

	rg.POST("/triggers/:ruleID", h.submitTrigger)

	transactions := rg.Group("/transactions")
	{
		transactions.GET("/:transactionID", h.getTransaction)
		transactions.GET("/:transactionID/events", h.listEvents)
		transactions.POST("/:transactionID/cancel", h.cancelTransaction)
	}
}

// submitTrigger fires the scheduler tick for a FIXED_AMOUNT or DCA rule.
// It is idempotent per rule and period.
func (h *transactionHandler) submitTrigger(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant ID missing"})
		return
	}
	ruleID := c.Param("ruleID")

	logger = logger.With(slog.String("tenant_id", tenantID), slog.String("rule_id", ruleID))
	logger.Info("Received scheduled trigger")

	txn, err := h.transactionService.SubmitScheduledTrigger(c.Request.Context(), tenantID, ruleID)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			logger.Info("Trigger already fired this period")
			c.JSON(http.StatusOK, gin.H{"message": "Trigger already fired this period"})
			return
		}
		logger.Warn("Scheduled trigger rejected", slog.String("error", err.Error()))
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	h.enqueue(txn.TenantID, txn.TransactionID)
	logger.Info("Scheduled trigger recorded", slog.String("transaction_id", txn.TransactionID))
	c.JSON(http.StatusAccepted, dto.ToTransactionResponse(txn))
}

// getTransaction retrieves a transaction scoped to its tenant.
func (h *transactionHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant ID missing"})
		return
	}
	transactionID := c.Param("transactionID")

	txn, err := h.transactionService.GetTransaction(c.Request.Context(), tenantID, transactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		} else {
			logger.Error("Failed to get transaction", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve transaction"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// listEvents retrieves the audit trail of a transaction.
func (h *transactionHandler) listEvents(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant ID missing"})
		return
	}
	transactionID := c.Param("transactionID")

	events, err := h.transactionService.ListTransactionEvents(c.Request.Context(), tenantID, transactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		} else {
			logger.Error("Failed to list transaction events", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve events"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToTransactionEventResponses(events))
}

// cancelTransaction honours an admin cancel while the transaction is still
// pending. Once claimed, the cancel is refused until a terminal state.
func (h *transactionHandler) cancelTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant ID missing"})
		return
	}
	transactionID := c.Param("transactionID")

	logger = logger.With(slog.String("tenant_id", tenantID), slog.String("transaction_id", transactionID))
	logger.Info("Received cancel request")

	txn, err := h.transactionService.CancelTransaction(c.Request.Context(), tenantID, transactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrConcurrencyConflict) {
			logger.Warn("Cancel refused: transaction already claimed")
			c.JSON(http.StatusConflict, gin.H{"error": "Transaction is being processed; wait for a terminal state"})
			return
		}
		logger.Warn("Cancel failed", slog.String("error", err.Error()))
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	logger.Info("Transaction cancelled")
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}
