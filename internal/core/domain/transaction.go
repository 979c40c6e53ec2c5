package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of an inbound payment event.
type TransactionStatus string

const (
	TxPending    TransactionStatus = "PENDING"
	TxProcessing TransactionStatus = "PROCESSING"
	TxCompleted  TransactionStatus = "COMPLETED"
	TxFailed     TransactionStatus = "FAILED"
	TxCancelled  TransactionStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s TransactionStatus) Terminal() bool {
	return s == TxCompleted || s == TxFailed || s == TxCancelled
}

// Transaction is one inbound payment event owned by a single tenant.
// Rows are append-only: the orchestrator and rule engine mutate status and
// decision fields, nothing deletes them.
type Transaction struct {
	TransactionID string            `json:"transactionID"` // Primary Key (UUID)
	TenantID      string            `json:"tenantID"`
	ExternalID    string            `json:"externalID"` // idempotency key, unique per tenant+provider
	Provider      string            `json:"provider"`   // payment processor that delivered the event
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Status        TransactionStatus `json:"status"`

	ShouldConvert    bool            `json:"shouldConvert"`
	ConversionAmount decimal.Decimal `json:"conversionAmount"`
	ConversionFee    decimal.Decimal `json:"conversionFee"`
	AppliedRuleID    *string         `json:"appliedRuleID,omitempty"`
	Decided          bool            `json:"decided"` // rule engine has produced a decision

	Synthetic     bool    `json:"synthetic"` // scheduler tick, not a real payment
	FailureReason *string `json:"failureReason,omitempty"`
	AuditFields
}

// TransactionEvent is an immutable audit fact recording one state
// transition, consumed by the compliance export.
type TransactionEvent struct {
	EventID       string            `json:"eventID"`
	TenantID      string            `json:"tenantID"`
	TransactionID string            `json:"transactionID"`
	FromStatus    TransactionStatus `json:"fromStatus"`
	ToStatus      TransactionStatus `json:"toStatus"`
	Cause         string            `json:"cause"`
	OccurredAt    time.Time         `json:"occurredAt"`
}
