package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hodlpay/treasury_backend/internal/apperrors"
	portssvc "github.com/hodlpay/treasury_backend/internal/core/ports/services"
	"github.com/hodlpay/treasury_backend/internal/middleware"
	"github.com/hodlpay/treasury_backend/pkg/config"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// ConversionEnqueuer hands a claimed-work candidate to the conversion
// worker pool. The webhook intake never processes inline.
type ConversionEnqueuer func(tenantID, transactionID string)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	enqueue ConversionEnqueuer,
) error {
	r.Use(cors.Default())

	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	rate, err := limiter.NewRateFromFormatted(cfg.WebhookRateLimit)
	if err != nil {
		return err
	}
	webhookLimiter := limiter.New(memory.NewStore(), rate)

	setupAPIV1Routes(r, services, webhookLimiter, enqueue)
	return nil
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	services *portssvc.ServiceContainer,
	webhookLimiter *limiter.Limiter,
	enqueue ConversionEnqueuer,
) {
	v1 := r.Group("/api/v1")

	// Payment-processor intake is the only unscoped, rate-limited route.
	registerWebhookRoutes(v1, services.Transaction, webhookLimiter, enqueue)

	registerTenantRoutes(v1, services.Tenant)

	// Everything else is scoped to a tenant resolved from the path.
	tenant := v1.Group("/tenants/:tenantID", middleware.TenantScope())
	registerTransactionRoutes(tenant, services.Transaction, enqueue)
	registerConversionRoutes(tenant, services.Conversion)
	registerRuleRoutes(tenant, services.Rule)
	registerLotRoutes(tenant, services.TaxLot)
	registerIntegrationRoutes(tenant, services.Integration)
}

// statusFromError maps the sentinel errors to HTTP statuses. Handlers with
// route-specific semantics override individual cases before falling back.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrDuplicate),
		errors.Is(err, apperrors.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrLimitExceeded),
		errors.Is(err, apperrors.ErrExchangeRejected),
		errors.Is(err, apperrors.ErrAccountingInconsistency):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrExchangeUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
