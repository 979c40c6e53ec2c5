package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents one inbound payment event row.
type Transaction struct {
	TransactionID string          `db:"transaction_id"`
	TenantID      string          `db:"tenant_id"`
	ExternalID    string          `db:"external_id"`
	Provider      string          `db:"provider"`
	Amount        decimal.Decimal `db:"amount"`
	Currency      string          `db:"currency"`
	Status        string          `db:"status"`

	ShouldConvert    bool            `db:"should_convert"`
	ConversionAmount decimal.Decimal `db:"conversion_amount"`
	ConversionFee    decimal.Decimal `db:"conversion_fee"`
	AppliedRuleID    *string         `db:"applied_rule_id"`
	Decided          bool            `db:"decided"`

	Synthetic     bool    `db:"synthetic"`
	FailureReason *string `db:"failure_reason"`
	AuditFields
}

// TransactionEvent represents one immutable audit fact row.
type TransactionEvent struct {
	EventID       string    `db:"event_id"`
	TenantID      string    `db:"tenant_id"`
	TransactionID string    `db:"transaction_id"`
	FromStatus    string    `db:"from_status"`
	ToStatus      string    `db:"to_status"`
	Cause         string    `db:"cause"`
	OccurredAt    time.Time `db:"occurred_at"`
}
