package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hodlpay/treasury_backend/internal/apperrors"
	portssvc "github.com/hodlpay/treasury_backend/internal/core/ports/services"
	"github.com/hodlpay/treasury_backend/internal/middleware"
)

// conversionHandler exposes the conversion recovery surface.
type conversionHandler struct {
	conversionService portssvc.ConversionSvcFacade
}

func newConversionHandler(cs portssvc.ConversionSvcFacade) *conversionHandler {
	return &conversionHandler{
		conversionService: cs,
	}
}

// registerConversionRoutes registers tenant-scoped conversion routes.
func registerConversionRoutes(rg *gin.RouterGroup, cs portssvc.ConversionSvcFacade) {
	h := newConversionHandler(cs)

	purchases := rg.Group("/purchases")
	{
		purchases.POST("/:purchaseID/retry-withdrawal", h.retryWithdrawal)
	}
}

// retryWithdrawal resumes custody delivery for a purchase whose withdrawal
// previously failed. The order is never re-placed.
func (h *conversionHandler) retryWithdrawal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant ID missing"})
		return
	}
	purchaseID := c.Param("purchaseID")

	logger = logger.With(slog.String("tenant_id", tenantID), slog.String("purchase_id", purchaseID))
	logger.Info("Received withdrawal retry request")

	purchase, err := h.conversionService.RetryWithdrawal(c.Request.Context(), tenantID, purchaseID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Purchase not found"})
			return
		}
		logger.Warn("Withdrawal retry failed", slog.String("error", err.Error()))
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	logger.Info("Withdrawal retry finished", slog.String("withdrawal_status", string(purchase.WithdrawalStatus)))
	c.JSON(http.StatusOK, gin.H{
		"purchaseID":       purchase.PurchaseID,
		"withdrawalStatus": purchase.WithdrawalStatus,
		"withdrawalTxID":   purchase.WithdrawalTxID,
	})
}
