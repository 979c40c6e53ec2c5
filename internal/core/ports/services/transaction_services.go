package services

import (
	"context"

	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/hodlpay/treasury_backend/internal/dto"
)

// TransactionSvcFacade is the inbound surface for payment events and
// transaction queries.
type TransactionSvcFacade interface {
	// SubmitTransaction records an inbound payment event, idempotent on
	// (tenant, provider, external id). A duplicate delivery returns the
	// existing transaction without error.
	SubmitTransaction(ctx context.Context, req dto.SubmitTransactionRequest) (*domain.Transaction, error)

	// SubmitScheduledTrigger creates the synthetic transaction behind a
	// FIXED_AMOUNT or DCA rule tick, idempotent per rule and period.
	SubmitScheduledTrigger(ctx context.Context, tenantID, ruleID string) (*domain.Transaction, error)

	// GetTransaction retrieves a transaction scoped to its tenant.
	GetTransaction(ctx context.Context, tenantID, transactionID string) (*domain.Transaction, error)

	// ListTransactionEvents retrieves the audit trail of a transaction.
	ListTransactionEvents(ctx context.Context, tenantID, transactionID string) ([]domain.TransactionEvent, error)

	// CancelTransaction honours an admin cancel while the transaction is
	// still PENDING; once claimed it returns ErrConcurrencyConflict.
	CancelTransaction(ctx context.Context, tenantID, transactionID string) (*domain.Transaction, error)
}
