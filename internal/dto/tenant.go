package dto

import (
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateTenantRequest provisions a new merchant account.
type CreateTenantRequest struct {
	Name             string                  `json:"name" binding:"required"`
	SubscriptionTier domain.SubscriptionTier `json:"subscriptionTier" binding:"required,oneof=STARTER GROWTH SCALE ENTERPRISE"`
	CGTMethod        domain.CGTMethod        `json:"cgtMethod" binding:"required,oneof=FIFO LIFO WEIGHTED_AVERAGE SPECIFIC_ID"`
	WalletAddress    string                  `json:"walletAddress" binding:"required"`

	// Optional limit overrides; zero means "use the tier default",
	// -1 means unlimited.
	MonthlyVolumeLimit  *decimal.Decimal `json:"monthlyVolumeLimit,omitempty"`
	DailyVolumeLimit    *decimal.Decimal `json:"dailyVolumeLimit,omitempty"`
	MaxTransactionLimit *decimal.Decimal `json:"maxTransactionLimit,omitempty"`
}

// TenantResponse is the externally visible view of a tenant.
type TenantResponse struct {
	TenantID            string                  `json:"tenantID"`
	Name                string                  `json:"name"`
	SubscriptionTier    domain.SubscriptionTier `json:"subscriptionTier"`
	CGTMethod           domain.CGTMethod        `json:"cgtMethod"`
	WalletAddress       string                  `json:"walletAddress"`
	MonthlyVolumeLimit  decimal.Decimal         `json:"monthlyVolumeLimit"`
	DailyVolumeLimit    decimal.Decimal         `json:"dailyVolumeLimit"`
	MaxTransactionLimit decimal.Decimal         `json:"maxTransactionLimit"`
	IsActive            bool                    `json:"isActive"`
}

// ToTenantResponse converts a domain.Tenant to its response DTO, resolving
// effective limits against the tier table.
func ToTenantResponse(tenant *domain.Tenant, table map[domain.SubscriptionTier]domain.TierLimits) TenantResponse {
	limits := tenant.EffectiveLimits(table)
	return TenantResponse{
		TenantID:            tenant.TenantID,
		Name:                tenant.Name,
		SubscriptionTier:    tenant.SubscriptionTier,
		CGTMethod:           tenant.CGTMethod,
		WalletAddress:       tenant.WalletAddress,
		MonthlyVolumeLimit:  limits.MonthlyVolume,
		DailyVolumeLimit:    limits.DailyVolume,
		MaxTransactionLimit: limits.MaxTransaction,
		IsActive:            tenant.IsActive,
	}
}
