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

// integrationHandler handles HTTP requests for exchange connections.
// Credential material passes through exactly once, inbound; responses never
// carry it.
type integrationHandler struct {
	integrationService portssvc.IntegrationSvcFacade
}

func newIntegrationHandler(is portssvc.IntegrationSvcFacade) *integrationHandler {
	return &integrationHandler{
		integrationService: is,
	}
}

// registerIntegrationRoutes registers tenant-scoped integration routes.
func registerIntegrationRoutes(rg *gin.RouterGroup, is portssvc.IntegrationSvcFacade) {
	h := newIntegrationHandler(is)

	integrations := rg.Group("/integrations")
	{
		integrations.POST("", h.connectExchange)
		integrations.DELETE("/:provider", h.disconnectExchange)
	}
}

// connectExchange verifies and stores the tenant's exchange credentials.
func (h *integrationHandler) connectExchange(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant ID missing"})
		return
	}

	var req dto.ConnectExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Deliberately no request detail in this log line.
		logger.Warn("Failed to bind JSON for ConnectExchange")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	actor := middleware.GetActorFromContext(c)
	logger = logger.With(slog.String("tenant_id", tenantID), slog.String("provider", req.Provider))
	logger.Info("Received request to connect exchange")

	integration, err := h.integrationService.ConnectExchange(c.Request.Context(), tenantID, req, actor)
	if err != nil {
		if errors.Is(err, apperrors.ErrExchangeRejected) {
			logger.Warn("Exchange rejected the credentials")
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Exchange rejected the credentials"})
			return
		}
		logger.Warn("Failed to connect exchange", slog.String("error", err.Error()))
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	logger.Info("Exchange connected", slog.Bool("healthy", integration.IsHealthy))
	c.JSON(http.StatusCreated, dto.ToIntegrationResponse(integration))
}

// disconnectExchange deactivates the tenant's integration with the provider.
func (h *integrationHandler) disconnectExchange(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant ID missing"})
		return
	}
	provider := c.Param("provider")
	actor := middleware.GetActorFromContext(c)

	logger = logger.With(slog.String("tenant_id", tenantID), slog.String("provider", provider))
	logger.Info("Received request to disconnect exchange")

	if err := h.integrationService.DisconnectExchange(c.Request.Context(), tenantID, provider, actor); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Integration not found"})
			return
		}
		logger.Error("Failed to disconnect exchange", slog.String("error", err.Error()))
		c.JSON(statusFromError(err), gin.H{"error": "Failed to disconnect exchange"})
		return
	}

	logger.Info("Exchange disconnected")
	c.Status(http.StatusNoContent)
}
