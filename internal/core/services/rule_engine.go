package services

import (
	"fmt"
	"sort"

	"github.com/hodlpay/treasury_backend/internal/apperrors"
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Aggregates is the consistent tenant-level snapshot the rule engine
// decides against. It is captured under the tenant lock at claim time so
// two concurrent claims cannot both pass a limit check only one could
// satisfy.
type Aggregates struct {
	DailyVolume        decimal.Decimal // AUD converted so far today
	MonthlyVolume      decimal.Decimal // AUD converted so far this month
	PendingBalance     decimal.Decimal // uncommitted AUD (sum of PENDING transactions)
	BTCHoldingsCostAUD decimal.Decimal // book value of remaining lots
}

// Decision is the rule engine's output for one transaction. It never
// mutates ledger state; the orchestrator persists it.
type Decision struct {
	ShouldConvert    bool
	ConversionAmount decimal.Decimal
	AppliedRuleID    *string
	Reason           string
}

func noConversion(reason string) Decision {
	return Decision{ShouldConvert: false, ConversionAmount: decimal.Zero, Reason: reason}
}

// EvaluateRules decides whether and how much of a transaction to convert.
// Pure function of tenant configuration and the aggregate snapshot.
//
// Rule types with overlapping triggers are resolved by fixed priority:
// THRESHOLD > REBALANCE > PERCENTAGE > DCA > FIXED_AMOUNT; only the
// highest-priority matching rule acts. Volume caps reject (they never
// clamp); the cash floor clamps and vetoes.
func EvaluateRules(
	txn domain.Transaction,
	limits domain.TierLimits,
	rules []domain.TreasuryRule,
	agg Aggregates,
) (Decision, error) {
	if len(rules) == 0 {
		return noConversion("no active rules"), nil
	}

	matched := matchingRules(txn, rules, agg)
	if len(matched) == 0 {
		return noConversion("no rule matched"), nil
	}
	rule := matched[0]

	amount := ruleAmount(txn, rule, agg)
	if amount.LessThanOrEqual(decimal.Zero) {
		return noConversion(fmt.Sprintf("rule %s produced no conversion amount", rule.RuleID)), nil
	}
	amount = amount.Round(2)

	// Cash floor is an absolute veto: clamp to what keeps the floor intact.
	if rule.CashFloor != nil {
		available := agg.PendingBalance.Sub(*rule.CashFloor)
		if amount.GreaterThan(available) {
			amount = available.Round(2)
		}
		if amount.LessThanOrEqual(decimal.Zero) {
			return noConversion("conversion would breach cash floor"), nil
		}
	}

	if err := checkLimits(amount, limits, agg); err != nil {
		return Decision{}, err
	}

	ruleID := rule.RuleID
	return Decision{
		ShouldConvert:    true,
		ConversionAmount: amount,
		AppliedRuleID:    &ruleID,
		Reason:           fmt.Sprintf("rule %s (%s)", rule.RuleID, rule.RuleType),
	}, nil
}

// matchingRules filters the active rules down to those whose trigger shape
// and bounds accept this transaction, ordered by priority.
func matchingRules(txn domain.Transaction, rules []domain.TreasuryRule, agg Aggregates) []domain.TreasuryRule {
	matched := make([]domain.TreasuryRule, 0, len(rules))
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		// Schedule-driven rules only fire on scheduler ticks, event-driven
		// rules only on real payments.
		if rule.RuleType.EventDriven() == txn.Synthetic {
			continue
		}
		if txn.Synthetic && txn.AppliedRuleID != nil && *txn.AppliedRuleID != rule.RuleID {
			continue
		}
		if !txn.Synthetic {
			if rule.MinTransactionAmount != nil && txn.Amount.LessThan(*rule.MinTransactionAmount) {
				continue
			}
			if rule.MaxTransactionAmount != nil && txn.Amount.GreaterThan(*rule.MaxTransactionAmount) {
				continue
			}
		}
		if !ruleTriggers(rule, agg) {
			continue
		}
		matched = append(matched, rule)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return domain.RulePriority(matched[i].RuleType) < domain.RulePriority(matched[j].RuleType)
	})
	return matched
}

// ruleTriggers evaluates the rule-specific firing condition against the
// aggregate snapshot.
func ruleTriggers(rule domain.TreasuryRule, agg Aggregates) bool {
	switch rule.RuleType {
	case domain.RuleThreshold:
		return rule.ThresholdAmount != nil && agg.PendingBalance.GreaterThanOrEqual(*rule.ThresholdAmount)
	case domain.RuleRebalance:
		if rule.BTCAllocationMin == nil {
			return false
		}
		return btcAllocation(agg).LessThan(*rule.BTCAllocationMin)
	default:
		return true
	}
}

// ruleAmount computes the conversion amount for the matched rule.
func ruleAmount(txn domain.Transaction, rule domain.TreasuryRule, agg Aggregates) decimal.Decimal {
	switch rule.RuleType {
	case domain.RulePercentage:
		if rule.ConversionPercentage == nil {
			return decimal.Zero
		}
		return txn.Amount.Mul(*rule.ConversionPercentage)
	case domain.RuleThreshold:
		// Convert the full threshold batch, not just this transaction.
		return agg.PendingBalance
	case domain.RuleRebalance:
		if rule.BTCAllocationMin == nil {
			return decimal.Zero
		}
		// Converting moves cash into BTC; treasury total is unchanged, so
		// the amount that re-enters the band is min*total - btc.
		total := agg.BTCHoldingsCostAUD.Add(agg.PendingBalance)
		return rule.BTCAllocationMin.Mul(total).Sub(agg.BTCHoldingsCostAUD)
	case domain.RuleFixedAmount:
		if rule.FixedAmount == nil {
			return decimal.Zero
		}
		return *rule.FixedAmount
	case domain.RuleDCA:
		return rule.PerTickAmount()
	}
	return decimal.Zero
}

// btcAllocation is the BTC share of the tenant treasury, valued at the
// remaining lots' book cost. Zero treasury counts as fully allocated so an
// empty tenant never triggers a rebalance buy.
func btcAllocation(agg Aggregates) decimal.Decimal {
	total := agg.BTCHoldingsCostAUD.Add(agg.PendingBalance)
	if total.LessThanOrEqual(decimal.Zero) {
		return decimal.NewFromInt(1)
	}
	return agg.BTCHoldingsCostAUD.Div(total)
}

// checkLimits rejects a conversion that would cross the tenant's per
// transaction, daily or monthly caps. The unlimited sentinel disables a cap.
func checkLimits(amount decimal.Decimal, limits domain.TierLimits, agg Aggregates) error {
	if !domain.IsUnlimited(limits.MaxTransaction) && amount.GreaterThan(limits.MaxTransaction) {
		return fmt.Errorf("%w: conversion %s exceeds per-transaction cap %s",
			apperrors.ErrLimitExceeded, amount, limits.MaxTransaction)
	}
	if !domain.IsUnlimited(limits.DailyVolume) && agg.DailyVolume.Add(amount).GreaterThan(limits.DailyVolume) {
		return fmt.Errorf("%w: conversion %s would push daily volume past %s",
			apperrors.ErrLimitExceeded, amount, limits.DailyVolume)
	}
	if !domain.IsUnlimited(limits.MonthlyVolume) && agg.MonthlyVolume.Add(amount).GreaterThan(limits.MonthlyVolume) {
		return fmt.Errorf("%w: conversion %s would push monthly volume past %s",
			apperrors.ErrLimitExceeded, amount, limits.MonthlyVolume)
	}
	return nil
}
