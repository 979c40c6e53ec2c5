package domain

import "github.com/shopspring/decimal"

// SubscriptionTier bounds the conversion volume a tenant may process.
type SubscriptionTier string

const (
	TierStarter    SubscriptionTier = "STARTER"
	TierGrowth     SubscriptionTier = "GROWTH"
	TierScale      SubscriptionTier = "SCALE"
	TierEnterprise SubscriptionTier = "ENTERPRISE"
)

// CGTMethod selects how tax lots are consumed on disposal.
type CGTMethod string

const (
	MethodFIFO            CGTMethod = "FIFO"
	MethodLIFO            CGTMethod = "LIFO"
	MethodWeightedAverage CGTMethod = "WEIGHTED_AVERAGE"
	MethodSpecificID      CGTMethod = "SPECIFIC_ID"
)

// Unlimited is the sentinel for a limit that is not enforced.
var Unlimited = decimal.NewFromInt(-1)

// Tenant is one merchant account, the unit of data isolation.
// Volume limits default from the subscription tier; explicit overrides win.
type Tenant struct {
	TenantID            string           `json:"tenantID"` // Primary Key (UUID)
	Name                string           `json:"name"`
	SubscriptionTier    SubscriptionTier `json:"subscriptionTier"`
	CGTMethod           CGTMethod        `json:"cgtMethod"`
	WalletAddress       string           `json:"walletAddress"` // custody destination for purchased BTC
	MonthlyVolumeLimit  decimal.Decimal  `json:"monthlyVolumeLimit"`  // AUD; -1 = unlimited
	DailyVolumeLimit    decimal.Decimal  `json:"dailyVolumeLimit"`    // AUD; -1 = unlimited
	MaxTransactionLimit decimal.Decimal  `json:"maxTransactionLimit"` // AUD per conversion; -1 = unlimited
	IsActive            bool             `json:"isActive"`
	AuditFields
}

// TierLimits is the per-tier volume cap table. Loaded once at startup and
// treated as read-only.
type TierLimits struct {
	MonthlyVolume  decimal.Decimal
	DailyVolume    decimal.Decimal
	MaxTransaction decimal.Decimal
}

// DefaultTierLimits returns the built-in cap table keyed by tier.
func DefaultTierLimits() map[SubscriptionTier]TierLimits {
	return map[SubscriptionTier]TierLimits{
		TierStarter: {
			MonthlyVolume:  decimal.NewFromInt(10000),
			DailyVolume:    decimal.NewFromInt(1000),
			MaxTransaction: decimal.NewFromInt(500),
		},
		TierGrowth: {
			MonthlyVolume:  decimal.NewFromInt(50000),
			DailyVolume:    decimal.NewFromInt(5000),
			MaxTransaction: decimal.NewFromInt(2500),
		},
		TierScale: {
			MonthlyVolume:  decimal.NewFromInt(250000),
			DailyVolume:    decimal.NewFromInt(25000),
			MaxTransaction: decimal.NewFromInt(10000),
		},
		TierEnterprise: {
			MonthlyVolume:  Unlimited,
			DailyVolume:    Unlimited,
			MaxTransaction: Unlimited,
		},
	}
}

// EffectiveLimits resolves the tenant's limits against the tier table.
// A zero-valued limit on the tenant means "use the tier default".
func (t Tenant) EffectiveLimits(table map[SubscriptionTier]TierLimits) TierLimits {
	limits, ok := table[t.SubscriptionTier]
	if !ok {
		limits = table[TierStarter]
	}
	if !t.MonthlyVolumeLimit.IsZero() {
		limits.MonthlyVolume = t.MonthlyVolumeLimit
	}
	if !t.DailyVolumeLimit.IsZero() {
		limits.DailyVolume = t.DailyVolumeLimit
	}
	if !t.MaxTransactionLimit.IsZero() {
		limits.MaxTransaction = t.MaxTransactionLimit
	}
	return limits
}

// IsUnlimited reports whether a limit carries the unlimited sentinel.
func IsUnlimited(limit decimal.Decimal) bool {
	return limit.Equal(Unlimited)
}
