package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const tenantIDKey = contextKey("tenantID")

// TenantScope resolves the :tenantID path parameter into the request
// context. Every route under a tenant group carries it; handlers and
// services read the scoped tenant instead of trusting request bodies.
func TenantScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("tenantID")
		if _, err := uuid.Parse(tenantID); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant ID"})
			return
		}
		ctx := context.WithValue(c.Request.Context(), tenantIDKey, tenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetTenantIDFromContext retrieves the scoped tenant ID from the Gin
// context. It returns the tenant ID and a boolean indicating if it was found.
func GetTenantIDFromContext(c *gin.Context) (string, bool) {
	tenantID, ok := c.Request.Context().Value(tenantIDKey).(string)
	if !ok || tenantID == "" {
		return "", false
	}
	return tenantID, true
}

// GetActorFromContext resolves the acting principal recorded on audit
// fields. Authentication is handled upstream; the gateway forwards the
// principal in X-Actor-ID. Absent header means an internal caller.
func GetActorFromContext(c *gin.Context) string {
	if actor := c.GetHeader("X-Actor-ID"); actor != "" {
		return actor
	}
	return "system"
}
