package services_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/hodlpay/treasury_backend/internal/apperrors"
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/hodlpay/treasury_backend/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func paymentTxn(amount string) domain.Transaction {
	return domain.Transaction{
		TransactionID: uuid.NewString(),
		TenantID:      uuid.NewString(),
		Amount:        dec(amount),
		Currency:      "AUD",
		Status:        domain.TxPending,
	}
}

func unlimitedTier() domain.TierLimits {
	return domain.TierLimits{
		MonthlyVolume:  domain.Unlimited,
		DailyVolume:    domain.Unlimited,
		MaxTransaction: domain.Unlimited,
	}
}

func TestEvaluateRules_NoRules(t *testing.T) {
	decision, err := services.EvaluateRules(paymentTxn("100"), unlimitedTier(), nil, services.Aggregates{})

	require.NoError(t, err)
	assert.False(t, decision.ShouldConvert)
	assert.True(t, decision.ConversionAmount.IsZero())
	assert.Nil(t, decision.AppliedRuleID)
}

func TestEvaluateRules_PercentageAmount(t *testing.T) {
	rule := domain.TreasuryRule{
		RuleID:               uuid.NewString(),
		RuleType:             domain.RulePercentage,
		ConversionPercentage: decPtr("0.10"),
		IsActive:             true,
	}

	decision, err := services.EvaluateRules(paymentTxn("1000"), unlimitedTier(), []domain.TreasuryRule{rule}, services.Aggregates{})

	require.NoError(t, err)
	require.True(t, decision.ShouldConvert)
	assert.True(t, decision.ConversionAmount.Equal(dec("100")), "got %s", decision.ConversionAmount)
	require.NotNil(t, decision.AppliedRuleID)
	assert.Equal(t, rule.RuleID, *decision.AppliedRuleID)
}

func TestEvaluateRules_InactiveRuleIgnored(t *testing.T) {
	rule := domain.TreasuryRule{
		RuleID:               uuid.NewString(),
		RuleType:             domain.RulePercentage,
		ConversionPercentage: decPtr("0.10"),
		IsActive:             false,
	}

	decision, err := services.EvaluateRules(paymentTxn("1000"), unlimitedTier(), []domain.TreasuryRule{rule}, services.Aggregates{})

	require.NoError(t, err)
	assert.False(t, decision.ShouldConvert)
}

func TestEvaluateRules_ThresholdNotReached(t *testing.T) {
	rule := domain.TreasuryRule{
		RuleID:          uuid.NewString(),
		RuleType:        domain.RuleThreshold,
		ThresholdAmount: decPtr("5000"),
		IsActive:        true,
	}
	agg := services.Aggregates{PendingBalance: dec("4999.99")}

	decision, err := services.EvaluateRules(paymentTxn("100"), unlimitedTier(), []domain.TreasuryRule{rule}, agg)

	require.NoError(t, err)
	assert.False(t, decision.ShouldConvert)
}

func TestEvaluateRules_ThresholdConvertsFullPendingBalance(t *testing.T) {
	rule := domain.TreasuryRule{
		RuleID:          uuid.NewString(),
		RuleType:        domain.RuleThreshold,
		ThresholdAmount: decPtr("5000"),
		IsActive:        true,
	}
	agg := services.Aggregates{PendingBalance: dec("5200")}

	decision, err := services.EvaluateRules(paymentTxn("100"), unlimitedTier(), []domain.TreasuryRule{rule}, agg)

	require.NoError(t, err)
	require.True(t, decision.ShouldConvert)
	assert.True(t, decision.ConversionAmount.Equal(dec("5200")), "got %s", decision.ConversionAmount)
}

func TestEvaluateRules_ThresholdBeatsPercentage(t *testing.T) {
	percentage := domain.TreasuryRule{
		RuleID:               uuid.NewString(),
		RuleType:             domain.RulePercentage,
		ConversionPercentage: decPtr("0.10"),
		IsActive:             true,
	}
	threshold := domain.TreasuryRule{
		RuleID:          uuid.NewString(),
		RuleType:        domain.RuleThreshold,
		ThresholdAmount: decPtr("1000"),
		IsActive:        true,
	}
	agg := services.Aggregates{PendingBalance: dec("1500")}

	decision, err := services.EvaluateRules(paymentTxn("100"), unlimitedTier(), []domain.TreasuryRule{percentage, threshold}, agg)

	require.NoError(t, err)
	require.True(t, decision.ShouldConvert)
	require.NotNil(t, decision.AppliedRuleID)
	assert.Equal(t, threshold.RuleID, *decision.AppliedRuleID)
	assert.True(t, decision.ConversionAmount.Equal(dec("1500")))
}

func TestEvaluateRules_RebalanceTriggersBelowBand(t *testing.T) {
	rule := domain.TreasuryRule{
		RuleID:           uuid.NewString(),
		RuleType:         domain.RuleRebalance,
		BTCAllocationMin: decPtr("0.20"),
		BTCAllocationMax: decPtr("0.40"),
		IsActive:         true,
	}
	// 100 BTC book value out of 1000 total: 10% allocated, band floor 20%.
	agg := services.Aggregates{
		PendingBalance:     dec("900"),
		BTCHoldingsCostAUD: dec("100"),
	}

	decision, err := services.EvaluateRules(paymentTxn("50"), unlimitedTier(), []domain.TreasuryRule{rule}, agg)

	require.NoError(t, err)
	require.True(t, decision.ShouldConvert)
	// 0.20*1000 - 100 = 100 brings allocation back to the floor.
	assert.True(t, decision.ConversionAmount.Equal(dec("100")), "got %s", decision.ConversionAmount)
}

func TestEvaluateRules_RebalanceQuietInsideBand(t *testing.T) {
	rule := domain.TreasuryRule{
		RuleID:           uuid.NewString(),
		RuleType:         domain.RuleRebalance,
		BTCAllocationMin: decPtr("0.20"),
		BTCAllocationMax: decPtr("0.40"),
		IsActive:         true,
	}
	agg := services.Aggregates{
		PendingBalance:     dec("700"),
		BTCHoldingsCostAUD: dec("300"),
	}

	decision, err := services.EvaluateRules(paymentTxn("50"), unlimitedTier(), []domain.TreasuryRule{rule}, agg)

	require.NoError(t, err)
	assert.False(t, decision.ShouldConvert)
}

func TestEvaluateRules_RebalanceEmptyTreasuryNeverFires(t *testing.T) {
	rule := domain.TreasuryRule{
		RuleID:           uuid.NewString(),
		RuleType:         domain.RuleRebalance,
		BTCAllocationMin: decPtr("0.20"),
		IsActive:         true,
	}

	decision, err := services.EvaluateRules(paymentTxn("50"), unlimitedTier(), []domain.TreasuryRule{rule}, services.Aggregates{})

	require.NoError(t, err)
	assert.False(t, decision.ShouldConvert)
}

func TestEvaluateRules_ScheduleDrivenRuleIgnoresPayments(t *testing.T) {
	rule := domain.TreasuryRule{
		RuleID:      uuid.NewString(),
		RuleType:    domain.RuleFixedAmount,
		FixedAmount: decPtr("50"),
		IsActive:    true,
	}

	decision, err := services.EvaluateRules(paymentTxn("1000"), unlimitedTier(), []domain.TreasuryRule{rule}, services.Aggregates{})

	require.NoError(t, err)
	assert.False(t, decision.ShouldConvert)
}

func TestEvaluateRules_SyntheticTickMatchesItsRule(t *testing.T) {
	fixed := domain.TreasuryRule{
		RuleID:      uuid.NewString(),
		RuleType:    domain.RuleFixedAmount,
		FixedAmount: decPtr("50"),
		IsActive:    true,
	}
	other := domain.TreasuryRule{
		RuleID:               uuid.NewString(),
		RuleType:             domain.RulePercentage,
		ConversionPercentage: decPtr("0.10"),
		IsActive:             true,
	}
	txn := paymentTxn("50")
	txn.Synthetic = true
	txn.AppliedRuleID = &fixed.RuleID

	decision, err := services.EvaluateRules(txn, unlimitedTier(), []domain.TreasuryRule{other, fixed}, services.Aggregates{})

	require.NoError(t, err)
	require.True(t, decision.ShouldConvert)
	require.NotNil(t, decision.AppliedRuleID)
	assert.Equal(t, fixed.RuleID, *decision.AppliedRuleID)
	assert.True(t, decision.ConversionAmount.Equal(dec("50")))
}

func TestEvaluateRules_DCAPerTickAmount(t *testing.T) {
	rule := domain.TreasuryRule{
		RuleID:       uuid.NewString(),
		RuleType:     domain.RuleDCA,
		DCABudget:    decPtr("3000"),
		DCAFrequency: domain.FrequencyDaily,
		IsActive:     true,
	}
	txn := paymentTxn("100")
	txn.Synthetic = true
	txn.AppliedRuleID = &rule.RuleID

	decision, err := services.EvaluateRules(txn, unlimitedTier(), []domain.TreasuryRule{rule}, services.Aggregates{})

	require.NoError(t, err)
	require.True(t, decision.ShouldConvert)
	assert.True(t, decision.ConversionAmount.Equal(dec("100")), "got %s", decision.ConversionAmount)
}

func TestEvaluateRules_TransactionBoundsExcludePayment(t *testing.T) {
	rule := domain.TreasuryRule{
		RuleID:               uuid.NewString(),
		RuleType:             domain.RulePercentage,
		ConversionPercentage: decPtr("0.10"),
		MinTransactionAmount: decPtr("500"),
		IsActive:             true,
	}

	decision, err := services.EvaluateRules(paymentTxn("499.99"), unlimitedTier(), []domain.TreasuryRule{rule}, services.Aggregates{})

	require.NoError(t, err)
	assert.False(t, decision.ShouldConvert)
}

func TestEvaluateRules_CashFloorClamps(t *testing.T) {
	rule := domain.TreasuryRule{
		RuleID:               uuid.NewString(),
		RuleType:             domain.RulePercentage,
		ConversionPercentage: decPtr("0.50"),
		CashFloor:            decPtr("800"),
		IsActive:             true,
	}
	// Rule wants 500 but only 200 sits above the floor.
	agg := services.Aggregates{PendingBalance: dec("1000")}

	decision, err := services.EvaluateRules(paymentTxn("1000"), unlimitedTier(), []domain.TreasuryRule{rule}, agg)

	require.NoError(t, err)
	require.True(t, decision.ShouldConvert)
	assert.True(t, decision.ConversionAmount.Equal(dec("200")), "got %s", decision.ConversionAmount)
}

func TestEvaluateRules_CashFloorVetoes(t *testing.T) {
	rule := domain.TreasuryRule{
		RuleID:               uuid.NewString(),
		RuleType:             domain.RulePercentage,
		ConversionPercentage: decPtr("0.50"),
		CashFloor:            decPtr("2000"),
		IsActive:             true,
	}
	agg := services.Aggregates{PendingBalance: dec("1000")}

	decision, err := services.EvaluateRules(paymentTxn("1000"), unlimitedTier(), []domain.TreasuryRule{rule}, agg)

	require.NoError(t, err)
	assert.False(t, decision.ShouldConvert)
}

func TestEvaluateRules_PerTransactionCapRejects(t *testing.T) {
	rule := domain.TreasuryRule{
		RuleID:               uuid.NewString(),
		RuleType:             domain.RulePercentage,
		ConversionPercentage: decPtr("1"),
		IsActive:             true,
	}
	limits := unlimitedTier()
	limits.MaxTransaction = dec("500")

	_, err := services.EvaluateRules(paymentTxn("501"), limits, []domain.TreasuryRule{rule}, services.Aggregates{})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrLimitExceeded)
}

func TestEvaluateRules_DailyCapCountsPriorVolume(t *testing.T) {
	rule := domain.TreasuryRule{
		RuleID:               uuid.NewString(),
		RuleType:             domain.RulePercentage,
		ConversionPercentage: decPtr("1"),
		IsActive:             true,
	}
	limits := unlimitedTier()
	limits.DailyVolume = dec("1000")
	agg := services.Aggregates{DailyVolume: dec("950")}

	_, err := services.EvaluateRules(paymentTxn("100"), limits, []domain.TreasuryRule{rule}, agg)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrLimitExceeded)
}

func TestEvaluateRules_UnlimitedSentinelDisablesCaps(t *testing.T) {
	rule := domain.TreasuryRule{
		RuleID:               uuid.NewString(),
		RuleType:             domain.RulePercentage,
		ConversionPercentage: decPtr("1"),
		IsActive:             true,
	}
	agg := services.Aggregates{DailyVolume: dec("999999"), MonthlyVolume: dec("999999")}

	decision, err := services.EvaluateRules(paymentTxn("100000"), unlimitedTier(), []domain.TreasuryRule{rule}, agg)

	require.NoError(t, err)
	assert.True(t, decision.ShouldConvert)
}
