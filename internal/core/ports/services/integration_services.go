package services

import (
	"context"

	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/hodlpay/treasury_backend/internal/dto"
)

// IntegrationSvcFacade manages tenant exchange connections.
type IntegrationSvcFacade interface {
	// ConnectExchange seals the credentials, verifies them with a health
	// check and stores the integration. The health result is returned.
	ConnectExchange(ctx context.Context, tenantID string, req dto.ConnectExchangeRequest, createdBy string) (*domain.Integration, error)

	// DisconnectExchange deactivates the tenant's integration with the
	// named provider.
	DisconnectExchange(ctx context.Context, tenantID, provider string, updatedBy string) error

	// RunHealthSweep re-checks every active integration and records the
	// outcome. Unhealthy integrations block new claims only.
	RunHealthSweep(ctx context.Context) error
}
