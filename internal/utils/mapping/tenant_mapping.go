package mapping

import (
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/hodlpay/treasury_backend/internal/models"
)

// ToModelTenant converts a domain Tenant to a model Tenant
func ToModelTenant(d domain.Tenant) models.Tenant {
	return models.Tenant{
		TenantID:            d.TenantID,
		Name:                d.Name,
		SubscriptionTier:    string(d.SubscriptionTier),
		CGTMethod:           string(d.CGTMethod),
		WalletAddress:       d.WalletAddress,
		MonthlyVolumeLimit:  d.MonthlyVolumeLimit,
		DailyVolumeLimit:    d.DailyVolumeLimit,
		MaxTransactionLimit: d.MaxTransactionLimit,
		IsActive:            d.IsActive,
		AuditFields:         ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainTenant converts a model Tenant to a domain Tenant
func ToDomainTenant(m models.Tenant) domain.Tenant {
	return domain.Tenant{
		TenantID:            m.TenantID,
		Name:                m.Name,
		SubscriptionTier:    domain.SubscriptionTier(m.SubscriptionTier),
		CGTMethod:           domain.CGTMethod(m.CGTMethod),
		WalletAddress:       m.WalletAddress,
		MonthlyVolumeLimit:  m.MonthlyVolumeLimit,
		DailyVolumeLimit:    m.DailyVolumeLimit,
		MaxTransactionLimit: m.MaxTransactionLimit,
		IsActive:            m.IsActive,
		AuditFields:         ToDomainAuditFields(m.AuditFields),
	}
}
