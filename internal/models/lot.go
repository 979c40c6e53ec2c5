package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot represents one tax lot row.
type Lot struct {
	LotID            string          `db:"lot_id"`
	TenantID         string          `db:"tenant_id"`
	PurchaseID       string          `db:"purchase_id"`
	BTCAmount        decimal.Decimal `db:"btc_amount"`
	CostBasisAUD     decimal.Decimal `db:"cost_basis_aud"`
	AcquiredAt       time.Time       `db:"acquired_at"`
	RemainingBTC     decimal.Decimal `db:"remaining_btc"`
	RemainingCostAUD decimal.Decimal `db:"remaining_cost_aud"`
	AuditFields
}

// Disposal represents one BTC sale row.
type Disposal struct {
	DisposalID   string          `db:"disposal_id"`
	TenantID     string          `db:"tenant_id"`
	BTCAmount    decimal.Decimal `db:"btc_amount"`
	ProceedsAUD  decimal.Decimal `db:"proceeds_aud"`
	CostBasisAUD decimal.Decimal `db:"cost_basis_aud"`
	RealizedGain decimal.Decimal `db:"realized_gain"`
	Method       string          `db:"method"`
	DisposedAt   time.Time       `db:"disposed_at"`
	AuditFields
}

// LotConsumption represents one disposal/lot join row.
type LotConsumption struct {
	DisposalID   string          `db:"disposal_id"`
	LotID        string          `db:"lot_id"`
	BTCConsumed  decimal.Decimal `db:"btc_consumed"`
	CostConsumed decimal.Decimal `db:"cost_consumed"`
}
