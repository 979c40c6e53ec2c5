package domain

import "github.com/shopspring/decimal"

// RuleType identifies the conversion trigger semantics of a treasury rule.
type RuleType string

const (
	RulePercentage  RuleType = "PERCENTAGE"
	RuleThreshold   RuleType = "THRESHOLD"
	RuleFixedAmount RuleType = "FIXED_AMOUNT"
	RuleDCA         RuleType = "DCA"
	RuleRebalance   RuleType = "REBALANCE"
)

// DCAFrequency is the cadence a DCA budget is spread over.
type DCAFrequency string

const (
	FrequencyDaily   DCAFrequency = "DAILY"
	FrequencyWeekly  DCAFrequency = "WEEKLY"
	FrequencyMonthly DCAFrequency = "MONTHLY"
)

// EventDriven reports whether the rule type reacts to real payment events
// (as opposed to scheduler ticks).
func (rt RuleType) EventDriven() bool {
	switch rt {
	case RulePercentage, RuleThreshold, RuleRebalance:
		return true
	}
	return false
}

// TreasuryRule configures how a tenant's incoming payments are converted.
// Optional bounds are pointers; absence means the bound is not applied.
type TreasuryRule struct {
	RuleID   string   `json:"ruleID"` // Primary Key (UUID)
	TenantID string   `json:"tenantID"`
	RuleType RuleType `json:"ruleType"`

	ConversionPercentage *decimal.Decimal `json:"conversionPercentage,omitempty"` // PERCENTAGE: fraction of the payment, e.g. 0.10
	ThresholdAmount      *decimal.Decimal `json:"thresholdAmount,omitempty"`      // THRESHOLD: pending AUD balance trigger
	FixedAmount          *decimal.Decimal `json:"fixedAmount,omitempty"`          // FIXED_AMOUNT: constant AUD per tick
	DCABudget            *decimal.Decimal `json:"dcaBudget,omitempty"`            // DCA: monthly AUD budget
	DCAFrequency         DCAFrequency     `json:"dcaFrequency,omitempty"`         // DCA: tick cadence
	BTCAllocationMin     *decimal.Decimal `json:"btcAllocationMin,omitempty"`     // REBALANCE: lower bound, fraction of treasury
	BTCAllocationMax     *decimal.Decimal `json:"btcAllocationMax,omitempty"`     // REBALANCE: upper bound, fraction of treasury

	MinTransactionAmount *decimal.Decimal `json:"minTransactionAmount,omitempty"` // payments below this never match
	MaxTransactionAmount *decimal.Decimal `json:"maxTransactionAmount,omitempty"` // payments above this never match
	CashFloor            *decimal.Decimal `json:"cashFloor,omitempty"`            // uncommitted AUD the tenant must retain

	IsActive bool `json:"isActive"`
	AuditFields
}

// RulePriority orders rule types when several active rules match the same
// transaction; only the highest-priority match acts. Lower value wins.
func RulePriority(rt RuleType) int {
	switch rt {
	case RuleThreshold:
		return 0
	case RuleRebalance:
		return 1
	case RulePercentage:
		return 2
	case RuleDCA:
		return 3
	case RuleFixedAmount:
		return 4
	}
	return 5
}

// PerTickAmount derives the DCA conversion amount for one scheduler tick
// from the monthly budget. Returns zero when the rule has no budget.
func (r TreasuryRule) PerTickAmount() decimal.Decimal {
	if r.DCABudget == nil {
		return decimal.Zero
	}
	switch r.DCAFrequency {
	case FrequencyDaily:
		return r.DCABudget.Div(decimal.NewFromInt(30)).Round(2)
	case FrequencyWeekly:
		return r.DCABudget.Div(decimal.NewFromInt(4)).Round(2)
	default:
		return r.DCABudget.Round(2)
	}
}
