package repositories

import (
	"context"
	"time"

	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LotTotals is a snapshot of a tenant's remaining lot pool.
type LotTotals struct {
	RemainingBTC  decimal.Decimal
	RemainingCost decimal.Decimal
}

// LotReader defines read operations for tax lots.
type LotReader interface {
	// ListLots retrieves all of a tenant's lots ordered by acquisition
	// time ascending, consumed lots included.
	ListLots(ctx context.Context, tenantID string) ([]domain.Lot, error)

	// ListLotsByIDs retrieves the named lots; missing IDs map to
	// apperrors.ErrNotFound.
	ListLotsByIDs(ctx context.Context, tenantID string, lotIDs []string) ([]domain.Lot, error)

	// RemainingTotals returns the tenant's remaining BTC and cost pool.
	RemainingTotals(ctx context.Context, tenantID string) (LotTotals, error)
}

// LotWriter defines write operations for tax lots and disposals.
type LotWriter interface {
	// ApplyDisposal decrements each consumed lot's remaining balance and
	// persists the disposal record in one database transaction. It fails
	// with apperrors.ErrAccountingInconsistency if any lot no longer holds
	// the required remaining balance.
	ApplyDisposal(ctx context.Context, disposal domain.Disposal) error
}

// DisposalReader reads recorded disposals for gains reporting.
type DisposalReader interface {
	// ListDisposalsInRange retrieves disposals with DisposedAt in [from, to).
	ListDisposalsInRange(ctx context.Context, tenantID string, from, to time.Time) ([]domain.Disposal, error)
}

// LotRepositoryFacade combines all lot repository interfaces.
type LotRepositoryFacade interface {
	LotReader
	LotWriter
	DisposalReader
}
