package repositories

import (
	"context"
	"time"

	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// TransactionReader defines read operations for transaction data.
type TransactionReader interface {
	// FindTransactionByID retrieves a transaction scoped to its tenant.
	FindTransactionByID(ctx context.Context, tenantID, transactionID string) (*domain.Transaction, error)

	// FindTransactionByExternalID retrieves a transaction by its
	// provider-assigned idempotency key.
	FindTransactionByExternalID(ctx context.Context, tenantID, provider, externalID string) (*domain.Transaction, error)

	// SumConvertedInRange returns the total conversion amount of non-failed
	// conversions decided within [from, to). Feeds the volume-limit checks.
	SumConvertedInRange(ctx context.Context, tenantID string, from, to time.Time) (decimal.Decimal, error)

	// PendingAmountTotal returns the sum of PENDING transaction amounts,
	// the tenant's uncommitted AUD balance for threshold batching.
	PendingAmountTotal(ctx context.Context, tenantID string) (decimal.Decimal, error)
}

// TransactionWriter defines write operations for transaction data.
type TransactionWriter interface {
	// SaveTransaction inserts a new transaction. A duplicate
	// (tenant, provider, external id) maps to apperrors.ErrDuplicate.
	SaveTransaction(ctx context.Context, txn domain.Transaction) error

	// ClaimTransaction atomically moves PENDING -> PROCESSING. It reports
	// false with no error when the row was not PENDING (claim race lost).
	ClaimTransaction(ctx context.Context, tenantID, transactionID string, now time.Time) (bool, error)

	// CancelTransaction atomically moves PENDING -> CANCELLED, reporting
	// false when the row was not PENDING.
	CancelTransaction(ctx context.Context, tenantID, transactionID string, now time.Time) (bool, error)

	// UpdateDecision stores the rule engine's output on a transaction.
	UpdateDecision(ctx context.Context, txn domain.Transaction) error

	// UpdateStatus moves a transaction to the given status, recording the
	// failure reason for terminal failures.
	UpdateStatus(ctx context.Context, tenantID, transactionID string, status domain.TransactionStatus, failureReason *string, now time.Time) error

	// SweepPendingIntoBatch completes every other PENDING transaction for
	// the tenant, returning the swept IDs. Used when a THRESHOLD rule
	// converts the whole pending batch through one triggering transaction.
	SweepPendingIntoBatch(ctx context.Context, tenantID, excludeTransactionID string, now time.Time) ([]string, error)
}

// TransactionEventWriter appends immutable state-transition audit facts.
type TransactionEventWriter interface {
	AppendEvent(ctx context.Context, event domain.TransactionEvent) error
}

// TransactionEventReader reads the audit trail for compliance export.
type TransactionEventReader interface {
	ListEvents(ctx context.Context, tenantID, transactionID string) ([]domain.TransactionEvent, error)
}

// TransactionRepositoryFacade combines all transaction repository interfaces.
type TransactionRepositoryFacade interface {
	TransactionReader
	TransactionWriter
	TransactionEventWriter
	TransactionEventReader
}
