package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/hodlpay/treasury_backend/internal/apperrors"
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	portssvc "github.com/hodlpay/treasury_backend/internal/core/ports/services"
	"github.com/hodlpay/treasury_backend/internal/core/services"
	"github.com/hodlpay/treasury_backend/internal/dto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type RuleServiceTestSuite struct {
	suite.Suite
	mockRuleRepo   *MockRuleRepository
	mockTenantRepo *MockTenantRepository
	service        portssvc.RuleSvcFacade
	tenantID       string
}

func (suite *RuleServiceTestSuite) SetupTest() {
	suite.mockRuleRepo = new(MockRuleRepository)
	suite.mockTenantRepo = new(MockTenantRepository)
	suite.service = services.NewRuleService(suite.mockRuleRepo, suite.mockTenantRepo)
	suite.tenantID = uuid.NewString()
}

func (suite *RuleServiceTestSuite) expectTenant() {
	suite.mockTenantRepo.On("FindTenantByID", mock.Anything, suite.tenantID).
		Return(&domain.Tenant{TenantID: suite.tenantID, IsActive: true}, nil).Once()
}

func (suite *RuleServiceTestSuite) TestSetRules_ReplacesRuleSet() {
	ctx := context.Background()
	req := dto.SetRulesRequest{Rules: []dto.RuleRequest{
		{RuleType: domain.RulePercentage, ConversionPercentage: decPtr("0.10")},
		{RuleType: domain.RuleThreshold, ThresholdAmount: decPtr("5000"), CashFloor: decPtr("1000")},
	}}

	suite.expectTenant()
	suite.mockRuleRepo.On("ReplaceRules", ctx, suite.tenantID, mock.MatchedBy(func(rules []domain.TreasuryRule) bool {
		return len(rules) == 2 && rules[0].IsActive && rules[1].IsActive &&
			rules[0].TenantID == suite.tenantID
	})).Return(nil).Once()

	rules, err := suite.service.SetRules(ctx, suite.tenantID, req, "admin")

	suite.Require().NoError(err)
	suite.Len(rules, 2)
	suite.NotEmpty(rules[0].RuleID)
	suite.mockRuleRepo.AssertExpectations(suite.T())
}

func (suite *RuleServiceTestSuite) TestSetRules_PercentageOutOfRange() {
	ctx := context.Background()
	req := dto.SetRulesRequest{Rules: []dto.RuleRequest{
		{RuleType: domain.RulePercentage, ConversionPercentage: decPtr("1.5")},
	}}

	suite.expectTenant()

	_, err := suite.service.SetRules(ctx, suite.tenantID, req, "admin")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockRuleRepo.AssertNotCalled(suite.T(), "ReplaceRules", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *RuleServiceTestSuite) TestSetRules_DCARequiresFrequency() {
	ctx := context.Background()
	req := dto.SetRulesRequest{Rules: []dto.RuleRequest{
		{RuleType: domain.RuleDCA, DCABudget: decPtr("3000")},
	}}

	suite.expectTenant()

	_, err := suite.service.SetRules(ctx, suite.tenantID, req, "admin")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *RuleServiceTestSuite) TestSetRules_RebalanceBandOrder() {
	ctx := context.Background()
	req := dto.SetRulesRequest{Rules: []dto.RuleRequest{
		{RuleType: domain.RuleRebalance, BTCAllocationMin: decPtr("0.5"), BTCAllocationMax: decPtr("0.3")},
	}}

	suite.expectTenant()

	_, err := suite.service.SetRules(ctx, suite.tenantID, req, "admin")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *RuleServiceTestSuite) TestSetRules_TransactionBoundsOrder() {
	ctx := context.Background()
	req := dto.SetRulesRequest{Rules: []dto.RuleRequest{
		{
			RuleType:             domain.RulePercentage,
			ConversionPercentage: decPtr("0.10"),
			MinTransactionAmount: decPtr("500"),
			MaxTransactionAmount: decPtr("100"),
		},
	}}

	suite.expectTenant()

	_, err := suite.service.SetRules(ctx, suite.tenantID, req, "admin")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *RuleServiceTestSuite) TestListRules_Delegates() {
	ctx := context.Background()
	stored := []domain.TreasuryRule{{RuleID: uuid.NewString(), TenantID: suite.tenantID}}

	suite.mockRuleRepo.On("ListRules", ctx, suite.tenantID).Return(stored, nil).Once()

	rules, err := suite.service.ListRules(ctx, suite.tenantID)

	suite.Require().NoError(err)
	suite.Equal(stored, rules)
}

func TestRuleServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RuleServiceTestSuite))
}
