package mapping

import (
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/hodlpay/treasury_backend/internal/models"
)

// ToModelLot converts a domain Lot to a model Lot
func ToModelLot(d domain.Lot) models.Lot {
	return models.Lot{
		LotID:            d.LotID,
		TenantID:         d.TenantID,
		PurchaseID:       d.PurchaseID,
		BTCAmount:        d.BTCAmount,
		CostBasisAUD:     d.CostBasisAUD,
		AcquiredAt:       d.AcquiredAt,
		RemainingBTC:     d.RemainingBTC,
		RemainingCostAUD: d.RemainingCostAUD,
		AuditFields:      ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainLot converts a model Lot to a domain Lot
func ToDomainLot(m models.Lot) domain.Lot {
	return domain.Lot{
		LotID:            m.LotID,
		TenantID:         m.TenantID,
		PurchaseID:       m.PurchaseID,
		BTCAmount:        m.BTCAmount,
		CostBasisAUD:     m.CostBasisAUD,
		AcquiredAt:       m.AcquiredAt,
		RemainingBTC:     m.RemainingBTC,
		RemainingCostAUD: m.RemainingCostAUD,
		AuditFields:      ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainLotSlice converts a slice of model Lots to domain Lots
func ToDomainLotSlice(ms []models.Lot) []domain.Lot {
	ds := make([]domain.Lot, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainLot(m)
	}
	return ds
}

// ToModelDisposal converts a domain Disposal to a model Disposal.
// Consumptions map separately to their join rows.
func ToModelDisposal(d domain.Disposal) models.Disposal {
	return models.Disposal{
		DisposalID:   d.DisposalID,
		TenantID:     d.TenantID,
		BTCAmount:    d.BTCAmount,
		ProceedsAUD:  d.ProceedsAUD,
		CostBasisAUD: d.CostBasisAUD,
		RealizedGain: d.RealizedGain,
		Method:       string(d.Method),
		DisposedAt:   d.DisposedAt,
		AuditFields:  ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainDisposal converts a model Disposal to a domain Disposal.
func ToDomainDisposal(m models.Disposal, consumptions []models.LotConsumption) domain.Disposal {
	dcs := make([]domain.LotConsumption, len(consumptions))
	for i, c := range consumptions {
		dcs[i] = domain.LotConsumption{
			LotID:        c.LotID,
			BTCConsumed:  c.BTCConsumed,
			CostConsumed: c.CostConsumed,
		}
	}
	return domain.Disposal{
		DisposalID:   m.DisposalID,
		TenantID:     m.TenantID,
		BTCAmount:    m.BTCAmount,
		ProceedsAUD:  m.ProceedsAUD,
		CostBasisAUD: m.CostBasisAUD,
		RealizedGain: m.RealizedGain,
		Method:       domain.CGTMethod(m.Method),
		Consumptions: dcs,
		DisposedAt:   m.DisposedAt,
		AuditFields:  ToDomainAuditFields(m.AuditFields),
	}
}
