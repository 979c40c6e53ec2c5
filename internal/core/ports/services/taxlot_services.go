package services

import (
	"context"
	"time"

	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/hodlpay/treasury_backend/internal/dto"
)

// TaxLotSvcFacade maintains cost-basis lots and resolves disposals by the
// tenant's configured capital-gains method.
type TaxLotSvcFacade interface {
	// ListLots retrieves the tenant's lots, consumed lots included.
	ListLots(ctx context.Context, tenantID string) ([]domain.Lot, error)

	// RecordDisposal selects lots per the tenant's CGT method, decrements
	// them and records the realized gain.
	RecordDisposal(ctx context.Context, tenantID string, req dto.RecordDisposalRequest, recordedBy string) (*domain.Disposal, error)

	// GetRealizedGains aggregates disposals with DisposedAt in [from, to).
	GetRealizedGains(ctx context.Context, tenantID string, from, to time.Time) (*dto.RealizedGainsResponse, error)
}
