package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hodlpay/treasury_backend/internal/apperrors"
	portssvc "github.com/hodlpay/treasury_backend/internal/core/ports/services"
	"github.com/hodlpay/treasury_backend/internal/dto"
	"github.com/hodlpay/treasury_backend/internal/middleware"
)

// lotHandler handles HTTP requests for tax lots, disposals and gains.
type lotHandler struct {
	taxLotService portssvc.TaxLotSvcFacade
}

func newLotHandler(ts portssvc.TaxLotSvcFacade) *lotHandler {
	return &lotHandler{
		taxLotService: ts,
	}
}

// registerLotRoutes registers tenant-scoped lot and disposal routes.
func registerLotRoutes(rg *gin.RouterGroup, ts portssvc.TaxLotSvcFacade) {
	h := newLotHandler(ts)

	rg.GET("/lots", h.listLots)
	rg.POST("/disposals", h.recordDisposal)
	rg.GET("/gains", h.getRealizedGains)
}

// listLots retrieves the tenant's tax lots, consumed lots included.
func (h *lotHandler) listLots(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant ID missing"})
		return
	}

	lots, err := h.taxLotService.ListLots(c.Request.Context(), tenantID)
	if err != nil {
		logger.Error("Failed to list lots", slog.String("error", err.Error()))
		c.JSON(statusFromError(err), gin.H{"error": "Failed to list lots"})
		return
	}

	c.JSON(http.StatusOK, dto.ToListLotResponse(lots))
}

// recordDisposal records a BTC sale against the tenant's lot pool using
// the tenant's configured capital-gains method.
func (h *lotHandler) recordDisposal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant ID missing"})
		return
	}

	var req dto.RecordDisposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RecordDisposal", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actor := middleware.GetActorFromContext(c)
	logger = logger.With(slog.String("tenant_id", tenantID), slog.String("btc_amount", req.BTCAmount.String()))
	logger.Info("Received disposal request")

	disposal, err := h.taxLotService.RecordDisposal(c.Request.Context(), tenantID, req, actor)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountingInconsistency) {
			logger.Warn("Disposal cannot be satisfied", slog.String("error", err.Error()))
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		logger.Warn("Failed to record disposal", slog.String("error", err.Error()))
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	logger.Info("Disposal recorded",
		slog.String("disposal_id", disposal.DisposalID),
		slog.String("realized_gain", disposal.RealizedGain.String()),
	)
	c.JSON(http.StatusCreated, dto.ToDisposalResponse(disposal))
}

// getRealizedGains aggregates disposals over the [from, to) window.
func (h *lotHandler) getRealizedGains(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant ID missing"})
		return
	}

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'from' timestamp; expected RFC3339"})
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'to' timestamp; expected RFC3339"})
		return
	}

	gains, err := h.taxLotService.GetRealizedGains(c.Request.Context(), tenantID, from, to)
	if err != nil {
		logger.Error("Failed to aggregate realized gains", slog.String("error", err.Error()))
		c.JSON(statusFromError(err), gin.H{"error": "Failed to aggregate realized gains"})
		return
	}

	c.JSON(http.StatusOK, gains)
}
