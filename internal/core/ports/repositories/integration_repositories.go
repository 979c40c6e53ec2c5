package repositories

import (
	"context"
	"time"

	"github.com/hodlpay/treasury_backend/internal/core/domain"
)

// IntegrationReader defines read operations for exchange integrations.
type IntegrationReader interface {
	// FindActiveIntegration retrieves the tenant's active integration.
	FindActiveIntegration(ctx context.Context, tenantID string) (*domain.Integration, error)

	// FindIntegrationByProvider retrieves a tenant's integration with the
	// named provider regardless of state.
	FindIntegrationByProvider(ctx context.Context, tenantID, provider string) (*domain.Integration, error)

	// ListActiveIntegrations retrieves every active integration across
	// tenants, for the background health sweep.
	ListActiveIntegrations(ctx context.Context) ([]domain.Integration, error)
}

// IntegrationWriter defines write operations for exchange integrations.
type IntegrationWriter interface {
	// SaveIntegration inserts a new integration with sealed credentials.
	SaveIntegration(ctx context.Context, integration domain.Integration) error

	// SetIntegrationHealth records the latest health-check outcome.
	SetIntegrationHealth(ctx context.Context, tenantID, integrationID string, healthy bool, checkedAt time.Time) error

	// DeactivateIntegration disables the tenant's integration with the
	// named provider.
	DeactivateIntegration(ctx context.Context, tenantID, provider string, now time.Time) error
}

// IntegrationRepositoryFacade combines all integration repository interfaces.
type IntegrationRepositoryFacade interface {
	IntegrationReader
	IntegrationWriter
}
