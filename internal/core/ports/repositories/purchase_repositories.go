package repositories

import (
	"context"
	"time"

	"github.com/hodlpay/treasury_backend/internal/core/domain"
)

// PurchaseReader defines read operations for bitcoin purchases.
type PurchaseReader interface {
	// FindPurchaseByID retrieves a purchase scoped to its tenant.
	FindPurchaseByID(ctx context.Context, tenantID, purchaseID string) (*domain.BitcoinPurchase, error)

	// FindPurchaseByTransactionID retrieves the purchase backing a
	// transaction, if one exists.
	FindPurchaseByTransactionID(ctx context.Context, tenantID, transactionID string) (*domain.BitcoinPurchase, error)
}

// PurchaseWriter defines write operations for bitcoin purchases.
type PurchaseWriter interface {
	// SavePurchaseAndLot persists the purchase row, its tax lot and the
	// transaction's fee fields in one database transaction, so an executed
	// order is never left unrecorded.
	SavePurchaseAndLot(ctx context.Context, purchase domain.BitcoinPurchase, lot domain.Lot) error

	// UpdateWithdrawal records the outcome of a withdrawal attempt.
	UpdateWithdrawal(ctx context.Context, tenantID, purchaseID string, status domain.WithdrawalStatus, withdrawalTxID *string, now time.Time) error
}

// PurchaseRepositoryFacade combines all purchase repository interfaces.
type PurchaseRepositoryFacade interface {
	PurchaseReader
	PurchaseWriter
}
