package mapping

import (
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/hodlpay/treasury_backend/internal/models"
)

// ToModelIntegration converts a domain Integration to a model Integration
func ToModelIntegration(d domain.Integration) models.Integration {
	return models.Integration{
		IntegrationID: d.IntegrationID,
		TenantID:      d.TenantID,
		Provider:      d.Provider,
		Credentials:   d.Credentials,
		IsActive:      d.IsActive,
		IsHealthy:     d.IsHealthy,
		LastCheckedAt: d.LastCheckedAt,
		AuditFields:   ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainIntegration converts a model Integration to a domain Integration
func ToDomainIntegration(m models.Integration) domain.Integration {
	return domain.Integration{
		IntegrationID: m.IntegrationID,
		TenantID:      m.TenantID,
		Provider:      m.Provider,
		Credentials:   m.Credentials,
		IsActive:      m.IsActive,
		IsHealthy:     m.IsHealthy,
		LastCheckedAt: m.LastCheckedAt,
		AuditFields:   ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainIntegrationSlice converts a slice of model Integrations to domain
func ToDomainIntegrationSlice(ms []models.Integration) []domain.Integration {
	ds := make([]domain.Integration, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainIntegration(m)
	}
	return ds
}
