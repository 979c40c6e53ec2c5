package dto

import (
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RuleRequest is one treasury rule in a SetRules call. Optional bounds use
// pointers so absence is distinguishable from zero.
type RuleRequest struct {
	RuleType domain.RuleType `json:"ruleType" binding:"required,oneof=PERCENTAGE THRESHOLD FIXED_AMOUNT DCA REBALANCE"`

	ConversionPercentage *decimal.Decimal    `json:"conversionPercentage,omitempty"`
	ThresholdAmount      *decimal.Decimal    `json:"thresholdAmount,omitempty"`
	FixedAmount          *decimal.Decimal    `json:"fixedAmount,omitempty"`
	DCABudget            *decimal.Decimal    `json:"dcaBudget,omitempty"`
	DCAFrequency         domain.DCAFrequency `json:"dcaFrequency,omitempty" binding:"omitempty,oneof=DAILY WEEKLY MONTHLY"`
	BTCAllocationMin     *decimal.Decimal    `json:"btcAllocationMin,omitempty"`
	BTCAllocationMax     *decimal.Decimal    `json:"btcAllocationMax,omitempty"`

	MinTransactionAmount *decimal.Decimal `json:"minTransactionAmount,omitempty"`
	MaxTransactionAmount *decimal.Decimal `json:"maxTransactionAmount,omitempty"`
	CashFloor            *decimal.Decimal `json:"cashFloor,omitempty"`
}

// SetRulesRequest replaces the tenant's rule set.
type SetRulesRequest struct {
	Rules []RuleRequest `json:"rules" binding:"required,dive"`
}

// RuleResponse is the externally visible view of a treasury rule.
type RuleResponse struct {
	RuleID   string          `json:"ruleID"`
	RuleType domain.RuleType `json:"ruleType"`

	ConversionPercentage *decimal.Decimal    `json:"conversionPercentage,omitempty"`
	ThresholdAmount      *decimal.Decimal    `json:"thresholdAmount,omitempty"`
	FixedAmount          *decimal.Decimal    `json:"fixedAmount,omitempty"`
	DCABudget            *decimal.Decimal    `json:"dcaBudget,omitempty"`
	DCAFrequency         domain.DCAFrequency `json:"dcaFrequency,omitempty"`
	BTCAllocationMin     *decimal.Decimal    `json:"btcAllocationMin,omitempty"`
	BTCAllocationMax     *decimal.Decimal    `json:"btcAllocationMax,omitempty"`
	MinTransactionAmount *decimal.Decimal    `json:"minTransactionAmount,omitempty"`
	MaxTransactionAmount *decimal.Decimal    `json:"maxTransactionAmount,omitempty"`
	CashFloor            *decimal.Decimal    `json:"cashFloor,omitempty"`
	IsActive             bool                `json:"isActive"`
}

// ToRuleResponse converts a domain.TreasuryRule to its response DTO.
func ToRuleResponse(rule *domain.TreasuryRule) RuleResponse {
	return RuleResponse{
		RuleID:               rule.RuleID,
		RuleType:             rule.RuleType,
		ConversionPercentage: rule.ConversionPercentage,
		ThresholdAmount:      rule.ThresholdAmount,
		FixedAmount:          rule.FixedAmount,
		DCABudget:            rule.DCABudget,
		DCAFrequency:         rule.DCAFrequency,
		BTCAllocationMin:     rule.BTCAllocationMin,
		BTCAllocationMax:     rule.BTCAllocationMax,
		MinTransactionAmount: rule.MinTransactionAmount,
		MaxTransactionAmount: rule.MaxTransactionAmount,
		CashFloor:            rule.CashFloor,
		IsActive:             rule.IsActive,
	}
}

// ToListRuleResponse converts a slice of rules to response DTOs.
func ToListRuleResponse(rules []domain.TreasuryRule) []RuleResponse {
	res := make([]RuleResponse, len(rules))
	for i, rule := range rules {
		res[i] = ToRuleResponse(&rule)
	}
	return res
}
