package models

import "github.com/shopspring/decimal"

// TreasuryRule represents one conversion rule row. Optional bounds are
// pointers mapping to nullable columns.
type TreasuryRule struct {
	RuleID   string `db:"rule_id"`
	TenantID string `db:"tenant_id"`
	RuleType string `db:"rule_type"`

	ConversionPercentage *decimal.Decimal `db:"conversion_percentage"`
	ThresholdAmount      *decimal.Decimal `db:"threshold_amount"`
	FixedAmount          *decimal.Decimal `db:"fixed_amount"`
	DCABudget            *decimal.Decimal `db:"dca_budget"`
	DCAFrequency         *string          `db:"dca_frequency"`
	BTCAllocationMin     *decimal.Decimal `db:"btc_allocation_min"`
	BTCAllocationMax     *decimal.Decimal `db:"btc_allocation_max"`

	MinTransactionAmount *decimal.Decimal `db:"min_transaction_amount"`
	MaxTransactionAmount *decimal.Decimal `db:"max_transaction_amount"`
	CashFloor            *decimal.Decimal `db:"cash_floor"`

	IsActive bool `db:"is_active"`
	AuditFields
}
