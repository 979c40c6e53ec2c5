package mapping

import (
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/hodlpay/treasury_backend/internal/models"
)

// ToModelTreasuryRule converts a domain TreasuryRule to a model TreasuryRule
func ToModelTreasuryRule(d domain.TreasuryRule) models.TreasuryRule {
	var freq *string
	if d.DCAFrequency != "" {
		f := string(d.DCAFrequency)
		freq = &f
	}
	return models.TreasuryRule{
		RuleID:               d.RuleID,
		TenantID:             d.TenantID,
		RuleType:             string(d.RuleType),
		ConversionPercentage: d.ConversionPercentage,
		ThresholdAmount:      d.ThresholdAmount,
		FixedAmount:          d.FixedAmount,
		DCABudget:            d.DCABudget,
		DCAFrequency:         freq,
		BTCAllocationMin:     d.BTCAllocationMin,
		BTCAllocationMax:     d.BTCAllocationMax,
		MinTransactionAmount: d.MinTransactionAmount,
		MaxTransactionAmount: d.MaxTransactionAmount,
		CashFloor:            d.CashFloor,
		IsActive:             d.IsActive,
		AuditFields:          ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainTreasuryRule converts a model TreasuryRule to a domain TreasuryRule
func ToDomainTreasuryRule(m models.TreasuryRule) domain.TreasuryRule {
	var freq domain.DCAFrequency
	if m.DCAFrequency != nil {
		freq = domain.DCAFrequency(*m.DCAFrequency)
	}
	return domain.TreasuryRule{
		RuleID:               m.RuleID,
		TenantID:             m.TenantID,
		RuleType:             domain.RuleType(m.RuleType),
		ConversionPercentage: m.ConversionPercentage,
		ThresholdAmount:      m.ThresholdAmount,
		FixedAmount:          m.FixedAmount,
		DCABudget:            m.DCABudget,
		DCAFrequency:         freq,
		BTCAllocationMin:     m.BTCAllocationMin,
		BTCAllocationMax:     m.BTCAllocationMax,
		MinTransactionAmount: m.MinTransactionAmount,
		MaxTransactionAmount: m.MaxTransactionAmount,
		CashFloor:            m.CashFloor,
		IsActive:             m.IsActive,
		AuditFields:          ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainTreasuryRuleSlice converts a slice of model rules to domain rules
func ToDomainTreasuryRuleSlice(ms []models.TreasuryRule) []domain.TreasuryRule {
	ds := make([]domain.TreasuryRule, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainTreasuryRule(m)
	}
	return ds
}
