package domain

import "github.com/shopspring/decimal"

// WithdrawalStatus tracks delivery of purchased BTC to the customer wallet.
type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "PENDING"
	WithdrawalProcessing WithdrawalStatus = "PROCESSING"
	WithdrawalCompleted  WithdrawalStatus = "COMPLETED"
	WithdrawalFailed     WithdrawalStatus = "FAILED"
)

// BitcoinPurchase records one executed conversion. At most one exists per
// Transaction; the claim step enforces that.
type BitcoinPurchase struct {
	PurchaseID    string `json:"purchaseID"` // Primary Key (UUID)
	TenantID      string `json:"tenantID"`
	TransactionID string `json:"transactionID"` // unique FK -> transactions

	AUDAmount    decimal.Decimal `json:"audAmount"`    // AUD spent on BTC, net of fees
	BTCAmount    decimal.Decimal `json:"btcAmount"`    // BTC acquired
	ExchangeRate decimal.Decimal `json:"exchangeRate"` // AUD per BTC at execution
	ExchangeFee  decimal.Decimal `json:"exchangeFee"`  // AUD
	PlatformFee  decimal.Decimal `json:"platformFee"`  // AUD

	Exchange        string  `json:"exchange"`
	ExchangeOrderID string  `json:"exchangeOrderID"`
	CustomerWallet  string  `json:"customerWallet"`
	WithdrawalTxID  *string `json:"withdrawalTxID,omitempty"` // set once the chain transfer is accepted

	WithdrawalStatus WithdrawalStatus `json:"withdrawalStatus"`
	AuditFields
}

// CostBasis is the total AUD attributable to the acquired BTC for capital
// gains purposes: spent amount plus both fee components.
func (p BitcoinPurchase) CostBasis() decimal.Decimal {
	return p.AUDAmount.Add(p.ExchangeFee).Add(p.PlatformFee)
}
