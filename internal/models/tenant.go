package models

import "github.com/shopspring/decimal"

// Tenant represents one merchant account row.
type Tenant struct {
	TenantID            string          `db:"tenant_id"`
	Name                string          `db:"name"`
	SubscriptionTier    string          `db:"subscription_tier"`
	CGTMethod           string          `db:"cgt_method"`
	WalletAddress       string          `db:"wallet_address"`
	MonthlyVolumeLimit  decimal.Decimal `db:"monthly_volume_limit"`
	DailyVolumeLimit    decimal.Decimal `db:"daily_volume_limit"`
	MaxTransactionLimit decimal.Decimal `db:"max_transaction_limit"`
	IsActive            bool            `db:"is_active"`
	AuditFields
}
