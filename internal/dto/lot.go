package dto

import (
	"time"

	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LotResponse is the externally visible view of a tax lot.
type LotResponse struct {
	LotID            string          `json:"lotID"`
	PurchaseID       string          `json:"purchaseID"`
	BTCAmount        decimal.Decimal `json:"btcAmount"`
	CostBasisAUD     decimal.Decimal `json:"costBasisAUD"`
	AcquiredAt       time.Time       `json:"acquiredAt"`
	RemainingBTC     decimal.Decimal `json:"remainingBTC"`
	RemainingCostAUD decimal.Decimal `json:"remainingCostAUD"`
}

// ToLotResponse converts a domain.Lot to its response DTO.
func ToLotResponse(lot *domain.Lot) LotResponse {
	return LotResponse{
		LotID:            lot.LotID,
		PurchaseID:       lot.PurchaseID,
		BTCAmount:        lot.BTCAmount,
		CostBasisAUD:     lot.CostBasisAUD,
		AcquiredAt:       lot.AcquiredAt,
		RemainingBTC:     lot.RemainingBTC,
		RemainingCostAUD: lot.RemainingCostAUD,
	}
}

// ToListLotResponse converts a slice of lots to response DTOs.
func ToListLotResponse(lots []domain.Lot) []LotResponse {
	res := make([]LotResponse, len(lots))
	for i, lot := range lots {
		res[i] = ToLotResponse(&lot)
	}
	return res
}

// RecordDisposalRequest records a BTC sale against the tenant's lot pool.
// LotIDs is required for (and only valid with) the SPECIFIC_ID method.
type RecordDisposalRequest struct {
	BTCAmount   decimal.Decimal `json:"btcAmount" binding:"required"`
	ProceedsAUD decimal.Decimal `json:"proceedsAUD" binding:"required"`
	LotIDs      []string        `json:"lotIDs,omitempty"`
}

// DisposalResponse reports the realized outcome of one disposal.
type DisposalResponse struct {
	DisposalID   string           `json:"disposalID"`
	BTCAmount    decimal.Decimal  `json:"btcAmount"`
	ProceedsAUD  decimal.Decimal  `json:"proceedsAUD"`
	CostBasisAUD decimal.Decimal  `json:"costBasisAUD"`
	RealizedGain decimal.Decimal  `json:"realizedGain"`
	Method       domain.CGTMethod `json:"method"`
	DisposedAt   time.Time        `json:"disposedAt"`
}

// ToDisposalResponse converts a domain.Disposal to its response DTO.
func ToDisposalResponse(d *domain.Disposal) DisposalResponse {
	return DisposalResponse{
		DisposalID:   d.DisposalID,
		BTCAmount:    d.BTCAmount,
		ProceedsAUD:  d.ProceedsAUD,
		CostBasisAUD: d.CostBasisAUD,
		RealizedGain: d.RealizedGain,
		Method:       d.Method,
		DisposedAt:   d.DisposedAt,
	}
}

// RealizedGainsResponse aggregates disposals over a reporting window.
type RealizedGainsResponse struct {
	From          time.Time          `json:"from"`
	To            time.Time          `json:"to"`
	TotalProceeds decimal.Decimal    `json:"totalProceeds"`
	TotalCost     decimal.Decimal    `json:"totalCost"`
	TotalGain     decimal.Decimal    `json:"totalGain"`
	Disposals     []DisposalResponse `json:"disposals"`
}
