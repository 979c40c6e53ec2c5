package models

import "github.com/shopspring/decimal"

// BitcoinPurchase represents one executed conversion row.
type BitcoinPurchase struct {
	PurchaseID    string `db:"purchase_id"`
	TenantID      string `db:"tenant_id"`
	TransactionID string `db:"transaction_id"`

	AUDAmount    decimal.Decimal `db:"aud_amount"`
	BTCAmount    decimal.Decimal `db:"btc_amount"`
	ExchangeRate decimal.Decimal `db:"exchange_rate"`
	ExchangeFee  decimal.Decimal `db:"exchange_fee"`
	PlatformFee  decimal.Decimal `db:"platform_fee"`

	Exchange        string  `db:"exchange"`
	ExchangeOrderID string  `db:"exchange_order_id"`
	CustomerWallet  string  `db:"customer_wallet"`
	WithdrawalTxID  *string `db:"withdrawal_tx_id"`

	WithdrawalStatus string `db:"withdrawal_status"`
	AuditFields
}
