package mapping

import (
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/hodlpay/treasury_backend/internal/models"
)

// ToModelBitcoinPurchase converts a domain BitcoinPurchase to its model form
func ToModelBitcoinPurchase(d domain.BitcoinPurchase) models.BitcoinPurchase {
	return models.BitcoinPurchase{
		PurchaseID:       d.PurchaseID,
		TenantID:         d.TenantID,
		TransactionID:    d.TransactionID,
		AUDAmount:        d.AUDAmount,
		BTCAmount:        d.BTCAmount,
		ExchangeRate:     d.ExchangeRate,
		ExchangeFee:      d.ExchangeFee,
		PlatformFee:      d.PlatformFee,
		Exchange:         d.Exchange,
		ExchangeOrderID:  d.ExchangeOrderID,
		CustomerWallet:   d.CustomerWallet,
		WithdrawalTxID:   d.WithdrawalTxID,
		WithdrawalStatus: string(d.WithdrawalStatus),
		AuditFields:      ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainBitcoinPurchase converts a model BitcoinPurchase to its domain form
func ToDomainBitcoinPurchase(m models.BitcoinPurchase) domain.BitcoinPurchase {
	return domain.BitcoinPurchase{
		PurchaseID:       m.PurchaseID,
		TenantID:         m.TenantID,
		TransactionID:    m.TransactionID,
		AUDAmount:        m.AUDAmount,
		BTCAmount:        m.BTCAmount,
		ExchangeRate:     m.ExchangeRate,
		ExchangeFee:      m.ExchangeFee,
		PlatformFee:      m.PlatformFee,
		Exchange:         m.Exchange,
		ExchangeOrderID:  m.ExchangeOrderID,
		CustomerWallet:   m.CustomerWallet,
		WithdrawalTxID:   m.WithdrawalTxID,
		WithdrawalStatus: domain.WithdrawalStatus(m.WithdrawalStatus),
		AuditFields:      ToDomainAuditFields(m.AuditFields),
	}
}
