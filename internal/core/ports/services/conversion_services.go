package services

import (
	"context"

	"github.com/hodlpay/treasury_backend/internal/core/domain"
)

// ConversionSvcFacade drives a transaction through rule evaluation,
// exchange execution and custody withdrawal.
type ConversionSvcFacade interface {
	// Process claims the transaction and runs it to a stable state. A lost
	// claim is not an error: the current transaction state is returned.
	Process(ctx context.Context, tenantID, transactionID string) (*domain.Transaction, error)

	// RetryWithdrawal resumes delivery for a purchase whose withdrawal
	// previously failed. The order is never re-placed.
	RetryWithdrawal(ctx context.Context, tenantID, purchaseID string) (*domain.BitcoinPurchase, error)
}
