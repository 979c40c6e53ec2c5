package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hodlpay/treasury_backend/internal/apperrors"
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	portsrepo "github.com/hodlpay/treasury_backend/internal/core/ports/repositories"
	portssvc "github.com/hodlpay/treasury_backend/internal/core/ports/services"
	"github.com/hodlpay/treasury_backend/internal/dto"
	"github.com/shopspring/decimal"
)

// ruleService manages tenant treasury rule sets.
type ruleService struct {
	ruleRepo   portsrepo.RuleRepositoryFacade
	tenantRepo portsrepo.TenantRepositoryFacade
}

// NewRuleService creates a new rule service.
func NewRuleService(ruleRepo portsrepo.RuleRepositoryFacade, tenantRepo portsrepo.TenantRepositoryFacade) portssvc.RuleSvcFacade {
	return &ruleService{ruleRepo: ruleRepo, tenantRepo: tenantRepo}
}

var _ portssvc.RuleSvcFacade = (*ruleService)(nil)

// SetRules validates and replaces the tenant's rule set in one transaction.
func (s *ruleService) SetRules(ctx context.Context, tenantID string, req dto.SetRulesRequest, updatedBy string) ([]domain.TreasuryRule, error) {
	if _, err := s.tenantRepo.FindTenantByID(ctx, tenantID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rules := make([]domain.TreasuryRule, 0, len(req.Rules))
	for i, r := range req.Rules {
		if err := validateRule(r); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, domain.TreasuryRule{
			RuleID:               uuid.NewString(),
			TenantID:             tenantID,
			RuleType:             r.RuleType,
			ConversionPercentage: r.ConversionPercentage,
			ThresholdAmount:      r.ThresholdAmount,
			FixedAmount:          r.FixedAmount,
			DCABudget:            r.DCABudget,
			DCAFrequency:         r.DCAFrequency,
			BTCAllocationMin:     r.BTCAllocationMin,
			BTCAllocationMax:     r.BTCAllocationMax,
			MinTransactionAmount: r.MinTransactionAmount,
			MaxTransactionAmount: r.MaxTransactionAmount,
			CashFloor:            r.CashFloor,
			IsActive:             true,
			AuditFields: domain.AuditFields{
				CreatedAt: now, CreatedBy: updatedBy,
				LastUpdatedAt: now, LastUpdatedBy: updatedBy,
			},
		})
	}

	if err := s.ruleRepo.ReplaceRules(ctx, tenantID, rules); err != nil {
		return nil, fmt.Errorf("failed to replace rules: %w", err)
	}
	return rules, nil
}

func (s *ruleService) ListRules(ctx context.Context, tenantID string) ([]domain.TreasuryRule, error) {
	return s.ruleRepo.ListRules(ctx, tenantID)
}

// validateRule checks the type-specific required fields and bound sanity.
func validateRule(r dto.RuleRequest) error {
	one := decimal.NewFromInt(1)
	switch r.RuleType {
	case domain.RulePercentage:
		if r.ConversionPercentage == nil {
			return fmt.Errorf("%w: PERCENTAGE rule requires conversionPercentage", apperrors.ErrValidation)
		}
		if r.ConversionPercentage.LessThanOrEqual(decimal.Zero) || r.ConversionPercentage.GreaterThan(one) {
			return fmt.Errorf("%w: conversionPercentage must be in (0, 1]", apperrors.ErrValidation)
		}
	case domain.RuleThreshold:
		if r.ThresholdAmount == nil || r.ThresholdAmount.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: THRESHOLD rule requires a positive thresholdAmount", apperrors.ErrValidation)
		}
	case domain.RuleFixedAmount:
		if r.FixedAmount == nil || r.FixedAmount.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: FIXED_AMOUNT rule requires a positive fixedAmount", apperrors.ErrValidation)
		}
	case domain.RuleDCA:
		if r.DCABudget == nil || r.DCABudget.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: DCA rule requires a positive dcaBudget", apperrors.ErrValidation)
		}
		if r.DCAFrequency == "" {
			return fmt.Errorf("%w: DCA rule requires dcaFrequency", apperrors.ErrValidation)
		}
	case domain.RuleRebalance:
		if r.BTCAllocationMin == nil || r.BTCAllocationMax == nil {
			return fmt.Errorf("%w: REBALANCE rule requires btcAllocationMin and btcAllocationMax", apperrors.ErrValidation)
		}
		if r.BTCAllocationMin.LessThan(decimal.Zero) || r.BTCAllocationMax.GreaterThan(one) ||
			r.BTCAllocationMin.GreaterThanOrEqual(*r.BTCAllocationMax) {
			return fmt.Errorf("%w: allocation band must satisfy 0 <= min < max <= 1", apperrors.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown rule type %s", apperrors.ErrValidation, r.RuleType)
	}

	if r.MinTransactionAmount != nil && r.MaxTransactionAmount != nil &&
		r.MinTransactionAmount.GreaterThan(*r.MaxTransactionAmount) {
		return fmt.Errorf("%w: minTransactionAmount exceeds maxTransactionAmount", apperrors.ErrValidation)
	}
	if r.CashFloor != nil && r.CashFloor.LessThan(decimal.Zero) {
		return fmt.Errorf("%w: cashFloor cannot be negative", apperrors.ErrValidation)
	}
	return nil
}
