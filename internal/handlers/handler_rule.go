package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	portssvc "github.com/hodlpay/treasury_backend/internal/core/ports/services"
	"github.com/hodlpay/treasury_backend/internal/dto"
	"github.com/hodlpay/treasury_backend/internal/middleware"
)

// ruleHandler handles HTTP requests for treasury rules.
type ruleHandler struct {
	ruleService portssvc.RuleSvcFacade
}

func newRuleHandler(rs portssvc.RuleSvcFacade) *ruleHandler {
	return &ruleHandler{
		ruleService: rs,
	}
}

// registerRuleRoutes registers tenant-scoped rule routes.
func registerRuleRoutes(rg *gin.RouterGroup, rs portssvc.RuleSvcFacade) {
	h := newRuleHandler(rs)

	rules := rg.Group("/rules")
	{
		rules.PUT("", h.setRules)
		rules.GET("", h.listRules)
	}
}

// setRules validates and replaces the tenant's rule set.
func (h *ruleHandler) setRules(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant ID missing"})
		return
	}

	var req dto.SetRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SetRules", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actor := middleware.GetActorFromContext(c)
	logger = logger.With(slog.String("tenant_id", tenantID), slog.Int("rule_count", len(req.Rules)))
	logger.Info("Received request to replace rule set")

	rules, err := h.ruleService.SetRules(c.Request.Context(), tenantID, req, actor)
	if err != nil {
		logger.Warn("Failed to set rules", slog.String("error", err.Error()))
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	logger.Info("Rule set replaced")
	c.JSON(http.StatusOK, dto.ToListRuleResponse(rules))
}

// listRules retrieves the tenant's rules.
func (h *ruleHandler) listRules(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant ID missing"})
		return
	}

	rules, err := h.ruleService.ListRules(c.Request.Context(), tenantID)
	if err != nil {
		logger.Error("Failed to list rules", slog.String("error", err.Error()))
		c.JSON(statusFromError(err), gin.H{"error": "Failed to list rules"})
		return
	}

	c.JSON(http.StatusOK, dto.ToListRuleResponse(rules))
}
