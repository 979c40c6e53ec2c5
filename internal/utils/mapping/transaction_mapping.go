package mapping

import (
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/hodlpay/treasury_backend/internal/models"
)

// ToModelTransaction converts a domain Transaction to a model Transaction
func ToModelTransaction(d domain.Transaction) models.Transaction {
	return models.Transaction{
		TransactionID:    d.TransactionID,
		TenantID:         d.TenantID,
		ExternalID:       d.ExternalID,
		Provider:         d.Provider,
		Amount:           d.Amount,
		Currency:         d.Currency,
		Status:           string(d.Status),
		ShouldConvert:    d.ShouldConvert,
		ConversionAmount: d.ConversionAmount,
		ConversionFee:    d.ConversionFee,
		AppliedRuleID:    d.AppliedRuleID,
		Decided:          d.Decided,
		Synthetic:        d.Synthetic,
		FailureReason:    d.FailureReason,
		AuditFields:      ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainTransaction converts a model Transaction to a domain Transaction
func ToDomainTransaction(m models.Transaction) domain.Transaction {
	return domain.Transaction{
		TransactionID:    m.TransactionID,
		TenantID:         m.TenantID,
		ExternalID:       m.ExternalID,
		Provider:         m.Provider,
		Amount:           m.Amount,
		Currency:         m.Currency,
		Status:           domain.TransactionStatus(m.Status),
		ShouldConvert:    m.ShouldConvert,
		ConversionAmount: m.ConversionAmount,
		ConversionFee:    m.ConversionFee,
		AppliedRuleID:    m.AppliedRuleID,
		Decided:          m.Decided,
		Synthetic:        m.Synthetic,
		FailureReason:    m.FailureReason,
		AuditFields:      ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainTransactionEvent converts a model TransactionEvent to its domain form
func ToDomainTransactionEvent(m models.TransactionEvent) domain.TransactionEvent {
	return domain.TransactionEvent{
		EventID:       m.EventID,
		TenantID:      m.TenantID,
		TransactionID: m.TransactionID,
		FromStatus:    domain.TransactionStatus(m.FromStatus),
		ToStatus:      domain.TransactionStatus(m.ToStatus),
		Cause:         m.Cause,
		OccurredAt:    m.OccurredAt,
	}
}

// ToDomainTransactionEventSlice converts a slice of model events to domain events
func ToDomainTransactionEventSlice(ms []models.TransactionEvent) []domain.TransactionEvent {
	ds := make([]domain.TransactionEvent, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainTransactionEvent(m)
	}
	return ds
}
