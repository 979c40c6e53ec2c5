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
)

// tenantHandler handles HTTP requests for merchant accounts.
type tenantHandler struct {
	tenantService portssvc.TenantSvcFacade
	tierTable     map[domain.SubscriptionTier]domain.TierLimits
}

func newTenantHandler(ts portssvc.TenantSvcFacade) *tenantHandler {
	return &tenantHandler{
		tenantService: ts,
		tierTable:     domain.DefaultTierLimits(),
	}
}

// registerTenantRoutes registers tenant provisioning routes.
func registerTenantRoutes(rg *gin.RouterGroup, ts portssvc.TenantSvcFacade) {
	h := newTenantHandler(ts)

	tenants := rg.Group("/tenants")
	{
		tenants.POST("", h.createTenant)
		tenants.GET("/:tenantID", middleware.TenantScope(), h.getTenant)
	}
}

// createTenant provisions a new merchant account.
func (h *tenantHandler) createTenant(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateTenant", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actor := middleware.GetActorFromContext(c)
	logger = logger.With(slog.String("tenant_name", req.Name))
	logger.Info("Received request to create tenant")

	tenant, err := h.tenantService.CreateTenant(c.Request.Context(), req, actor)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Tenant already exists"})
			return
		}
		logger.Error("Failed to create tenant", slog.String("error", err.Error()))
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	logger.Info("Tenant created", slog.String("tenant_id", tenant.TenantID))
	c.JSON(http.StatusCreated, dto.ToTenantResponse(tenant, h.tierTable))
}

// getTenant retrieves a merchant account.
func (h *tenantHandler) getTenant(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant ID missing"})
		return
	}

	tenant, err := h.tenantService.GetTenant(c.Request.Context(), tenantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
		} else {
			logger.Error("Failed to get tenant", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tenant"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToTenantResponse(tenant, h.tierTable))
}
