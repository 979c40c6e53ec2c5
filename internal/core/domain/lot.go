package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is a discrete BTC acquisition used to compute cost basis on disposal.
// Lots are decremented, never deleted; a fully consumed lot stays on the
// books with RemainingBTC zero.
type Lot struct {
	LotID            string          `json:"lotID"` // Primary Key (UUID)
	TenantID         string          `json:"tenantID"`
	PurchaseID       string          `json:"purchaseID"`
	BTCAmount        decimal.Decimal `json:"btcAmount"`    // acquired quantity
	CostBasisAUD     decimal.Decimal `json:"costBasisAUD"` // acquisition cost incl. fees
	AcquiredAt       time.Time       `json:"acquiredAt"`
	RemainingBTC     decimal.Decimal `json:"remainingBTC"`
	RemainingCostAUD decimal.Decimal `json:"remainingCostAUD"`
	AuditFields
}

// LotConsumption records how much of one lot a disposal consumed.
type LotConsumption struct {
	LotID        string          `json:"lotID"`
	BTCConsumed  decimal.Decimal `json:"btcConsumed"`
	CostConsumed decimal.Decimal `json:"costConsumed"`
}

// Disposal is one BTC sale event with its realized capital gain.
type Disposal struct {
	DisposalID   string           `json:"disposalID"` // Primary Key (UUID)
	TenantID     string           `json:"tenantID"`
	BTCAmount    decimal.Decimal  `json:"btcAmount"`
	ProceedsAUD  decimal.Decimal  `json:"proceedsAUD"`
	CostBasisAUD decimal.Decimal  `json:"costBasisAUD"`
	RealizedGain decimal.Decimal  `json:"realizedGain"`
	Method       CGTMethod        `json:"method"`
	Consumptions []LotConsumption `json:"consumptions"`
	DisposedAt   time.Time        `json:"disposedAt"`
	AuditFields
}
