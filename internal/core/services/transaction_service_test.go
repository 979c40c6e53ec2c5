package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hodlpay/treasury_backend/internal/apperrors"
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	portssvc "github.com/hodlpay/treasury_backend/internal/core/ports/services"
	"github.com/hodlpay/treasury_backend/internal/core/services"
	"github.com/hodlpay/treasury_backend/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock TransactionRepository ---
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) FindTransactionByID(ctx context.Context, tenantID, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, tenantID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindTransactionByExternalID(ctx context.Context, tenantID, provider, externalID string) (*domain.Transaction, error) {
	args := m.Called(ctx, tenantID, provider, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SumConvertedInRange(ctx context.Context, tenantID string, from, to time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, from, to)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockTransactionRepository) PendingAmountTotal(ctx context.Context, tenantID string) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockTransactionRepository) SaveTransaction(ctx context.Context, txn domain.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) ClaimTransaction(ctx context.Context, tenantID, transactionID string, now time.Time) (bool, error) {
	args := m.Called(ctx, tenantID, transactionID, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) CancelTransaction(ctx context.Context, tenantID, transactionID string, now time.Time) (bool, error) {
	args := m.Called(ctx, tenantID, transactionID, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) UpdateDecision(ctx context.Context, txn domain.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, tenantID, transactionID string, status domain.TransactionStatus, failureReason *string, now time.Time) error {
	args := m.Called(ctx, tenantID, transactionID, status, failureReason, now)
	return args.Error(0)
}

func (m *MockTransactionRepository) SweepPendingIntoBatch(ctx context.Context, tenantID, excludeTransactionID string, now time.Time) ([]string, error) {
	args := m.Called(ctx, tenantID, excludeTransactionID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTransactionRepository) AppendEvent(ctx context.Context, event domain.TransactionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListEvents(ctx context.Context, tenantID, transactionID string) ([]domain.TransactionEvent, error) {
	args := m.Called(ctx, tenantID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TransactionEvent), args.Error(1)
}

// --- Mock RuleRepository ---
type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) ListActiveRules(ctx context.Context, tenantID string) ([]domain.TreasuryRule, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TreasuryRule), args.Error(1)
}

func (m *MockRuleRepository) ListRules(ctx context.Context, tenantID string) ([]domain.TreasuryRule, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TreasuryRule), args.Error(1)
}

func (m *MockRuleRepository) FindRuleByID(ctx context.Context, tenantID, ruleID string) (*domain.TreasuryRule, error) {
	args := m.Called(ctx, tenantID, ruleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TreasuryRule), args.Error(1)
}

func (m *MockRuleRepository) ReplaceRules(ctx context.Context, tenantID string, rules []domain.TreasuryRule) error {
	args := m.Called(ctx, tenantID, rules)
	return args.Error(0)
}

// --- Test Suite ---
type TransactionServiceTestSuite struct {
	suite.Suite
	mockTxRepo     *MockTransactionRepository
	mockRuleRepo   *MockRuleRepository
	mockTenantRepo *MockTenantRepository
	service        portssvc.TransactionSvcFacade
	tenantID       string
}

func (suite *TransactionServiceTestSuite) SetupTest() {
	suite.mockTxRepo = new(MockTransactionRepository)
	suite.mockRuleRepo = new(MockRuleRepository)
	suite.mockTenantRepo = new(MockTenantRepository)
	suite.service = services.NewTransactionService(suite.mockTxRepo, suite.mockRuleRepo, suite.mockTenantRepo)
	suite.tenantID = uuid.NewString()
}

func (suite *TransactionServiceTestSuite) activeTenant() *domain.Tenant {
	return &domain.Tenant{TenantID: suite.tenantID, IsActive: true}
}

func (suite *TransactionServiceTestSuite) TestSubmitTransaction_Success() {
	ctx := context.Background()
	req := dto.SubmitTransactionRequest{
		TenantID:   suite.tenantID,
		ExternalID: "pay_123",
		Provider:   "stripe",
		Amount:     dec("250.505"),
		Currency:   "AUD",
	}

	suite.mockTenantRepo.On("FindTenantByID", ctx, suite.tenantID).
		Return(suite.activeTenant(), nil).Once()
	suite.mockTxRepo.On("SaveTransaction", ctx, mock.MatchedBy(func(txn domain.Transaction) bool {
		return txn.TenantID == suite.tenantID &&
			txn.ExternalID == "pay_123" &&
			txn.Provider == "stripe" &&
			txn.Amount.Equal(dec("250.50")) &&
			txn.Status == domain.TxPending &&
			!txn.Synthetic
	})).Return(nil).Once()
	suite.mockTxRepo.On("AppendEvent", ctx, mock.AnythingOfType("domain.TransactionEvent")).
		Return(nil).Once()

	txn, err := suite.service.SubmitTransaction(ctx, req)

	suite.Require().NoError(err)
	suite.Require().NotNil(txn)
	suite.Equal(domain.TxPending, txn.Status)
	suite.mockTxRepo.AssertExpectations(suite.T())
}

func (suite *TransactionServiceTestSuite) TestSubmitTransaction_DuplicateReturnsExisting() {
	ctx := context.Background()
	existing := &domain.Transaction{
		TransactionID: uuid.NewString(),
		TenantID:      suite.tenantID,
		ExternalID:    "pay_123",
		Provider:      "stripe",
		Status:        domain.TxCompleted,
	}
	req := dto.SubmitTransactionRequest{
		TenantID:   suite.tenantID,
		ExternalID: "pay_123",
		Provider:   "stripe",
		Amount:     dec("100"),
		Currency:   "AUD",
	}

	suite.mockTenantRepo.On("FindTenantByID", ctx, suite.tenantID).
		Return(suite.activeTenant(), nil).Once()
	suite.mockTxRepo.On("SaveTransaction", ctx, mock.AnythingOfType("domain.Transaction")).
		Return(fmt.Errorf("%w: transaction exists", apperrors.ErrDuplicate)).Once()
	suite.mockTxRepo.On("FindTransactionByExternalID", ctx, suite.tenantID, "stripe", "pay_123").
		Return(existing, nil).Once()

	txn, err := suite.service.SubmitTransaction(ctx, req)

	suite.Require().NoError(err)
	suite.Equal(existing.TransactionID, txn.TransactionID)
	suite.mockTxRepo.AssertNotCalled(suite.T(), "AppendEvent", mock.Anything, mock.Anything)
}

func (suite *TransactionServiceTestSuite) TestSubmitTransaction_RejectsNonAUD() {
	ctx := context.Background()
	req := dto.SubmitTransactionRequest{
		TenantID:   suite.tenantID,
		ExternalID: "pay_123",
		Provider:   "stripe",
		Amount:     dec("100"),
		Currency:   "USD",
	}

	_, err := suite.service.SubmitTransaction(ctx, req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockTxRepo.AssertNotCalled(suite.T(), "SaveTransaction", mock.Anything, mock.Anything)
}

func (suite *TransactionServiceTestSuite) TestSubmitTransaction_RejectsDisabledTenant() {
	ctx := context.Background()
	disabled := &domain.Tenant{TenantID: suite.tenantID, IsActive: false}
	req := dto.SubmitTransactionRequest{
		TenantID:   suite.tenantID,
		ExternalID: "pay_123",
		Provider:   "stripe",
		Amount:     dec("100"),
		Currency:   "AUD",
	}

	suite.mockTenantRepo.On("FindTenantByID", ctx, suite.tenantID).
		Return(disabled, nil).Once()

	_, err := suite.service.SubmitTransaction(ctx, req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *TransactionServiceTestSuite) TestSubmitScheduledTrigger_FixedAmount() {
	ctx := context.Background()
	fixed := dec("75")
	rule := &domain.TreasuryRule{
		RuleID:      uuid.NewString(),
		TenantID:    suite.tenantID,
		RuleType:    domain.RuleFixedAmount,
		FixedAmount: &fixed,
		IsActive:    true,
	}

	suite.mockRuleRepo.On("FindRuleByID", ctx, suite.tenantID, rule.RuleID).
		Return(rule, nil).Once()
	suite.mockTxRepo.On("SaveTransaction", ctx, mock.MatchedBy(func(txn domain.Transaction) bool {
		return txn.Synthetic &&
			txn.Provider == "scheduler" &&
			txn.Amount.Equal(dec("75")) &&
			txn.AppliedRuleID != nil && *txn.AppliedRuleID == rule.RuleID
	})).Return(nil).Once()

	txn, err := suite.service.SubmitScheduledTrigger(ctx, suite.tenantID, rule.RuleID)

	suite.Require().NoError(err)
	suite.True(txn.Synthetic)
	suite.mockTxRepo.AssertExpectations(suite.T())
}

func (suite *TransactionServiceTestSuite) TestSubmitScheduledTrigger_IdempotentPerPeriod() {
	ctx := context.Background()
	fixed := dec("75")
	rule := &domain.TreasuryRule{
		RuleID:      uuid.NewString(),
		TenantID:    suite.tenantID,
		RuleType:    domain.RuleFixedAmount,
		FixedAmount: &fixed,
		IsActive:    true,
	}
	existing := &domain.Transaction{TransactionID: uuid.NewString(), Synthetic: true}

	suite.mockRuleRepo.On("FindRuleByID", ctx, suite.tenantID, rule.RuleID).
		Return(rule, nil).Once()
	suite.mockTxRepo.On("SaveTransaction", ctx, mock.AnythingOfType("domain.Transaction")).
		Return(fmt.Errorf("%w: trigger exists", apperrors.ErrDuplicate)).Once()
	suite.mockTxRepo.On("FindTransactionByExternalID", ctx, suite.tenantID, "scheduler", mock.AnythingOfType("string")).
		Return(existing, nil).Once()

	txn, err := suite.service.SubmitScheduledTrigger(ctx, suite.tenantID, rule.RuleID)

	suite.Require().NoError(err)
	suite.Equal(existing.TransactionID, txn.TransactionID)
}

func (suite *TransactionServiceTestSuite) TestSubmitScheduledTrigger_RejectsEventDrivenRule() {
	ctx := context.Background()
	pct := dec("0.1")
	rule := &domain.TreasuryRule{
		RuleID:               uuid.NewString(),
		TenantID:             suite.tenantID,
		RuleType:             domain.RulePercentage,
		ConversionPercentage: &pct,
		IsActive:             true,
	}

	suite.mockRuleRepo.On("FindRuleByID", ctx, suite.tenantID, rule.RuleID).
		Return(rule, nil).Once()

	_, err := suite.service.SubmitScheduledTrigger(ctx, suite.tenantID, rule.RuleID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockTxRepo.AssertNotCalled(suite.T(), "SaveTransaction", mock.Anything, mock.Anything)
}

func (suite *TransactionServiceTestSuite) TestCancelTransaction_PendingCancels() {
	ctx := context.Background()
	txnID := uuid.NewString()
	pending := &domain.Transaction{
		TransactionID: txnID,
		TenantID:      suite.tenantID,
		Status:        domain.TxPending,
	}

	suite.mockTxRepo.On("FindTransactionByID", ctx, suite.tenantID, txnID).
		Return(pending, nil).Once()
	suite.mockTxRepo.On("CancelTransaction", ctx, suite.tenantID, txnID, mock.AnythingOfType("time.Time")).
		Return(true, nil).Once()
	suite.mockTxRepo.On("AppendEvent", ctx, mock.MatchedBy(func(e domain.TransactionEvent) bool {
		return e.FromStatus == domain.TxPending && e.ToStatus == domain.TxCancelled
	})).Return(nil).Once()

	txn, err := suite.service.CancelTransaction(ctx, suite.tenantID, txnID)

	suite.Require().NoError(err)
	suite.Equal(domain.TxCancelled, txn.Status)
	suite.mockTxRepo.AssertExpectations(suite.T())
}

func (suite *TransactionServiceTestSuite) TestCancelTransaction_ClaimedConflicts() {
	ctx := context.Background()
	txnID := uuid.NewString()
	processing := &domain.Transaction{
		TransactionID: txnID,
		TenantID:      suite.tenantID,
		Status:        domain.TxProcessing,
	}

	suite.mockTxRepo.On("FindTransactionByID", ctx, suite.tenantID, txnID).
		Return(processing, nil).Once()
	suite.mockTxRepo.On("CancelTransaction", ctx, suite.tenantID, txnID, mock.AnythingOfType("time.Time")).
		Return(false, nil).Once()

	_, err := suite.service.CancelTransaction(ctx, suite.tenantID, txnID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConcurrencyConflict)
	suite.mockTxRepo.AssertNotCalled(suite.T(), "AppendEvent", mock.Anything, mock.Anything)
}

func (suite *TransactionServiceTestSuite) TestCancelTransaction_TerminalIsValidationError() {
	ctx := context.Background()
	txnID := uuid.NewString()
	completed := &domain.Transaction{
		TransactionID: txnID,
		TenantID:      suite.tenantID,
		Status:        domain.TxCompleted,
	}

	suite.mockTxRepo.On("FindTransactionByID", ctx, suite.tenantID, txnID).
		Return(completed, nil).Once()
	suite.mockTxRepo.On("CancelTransaction", ctx, suite.tenantID, txnID, mock.AnythingOfType("time.Time")).
		Return(false, nil).Once()

	_, err := suite.service.CancelTransaction(ctx, suite.tenantID, txnID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func TestTransactionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TransactionServiceTestSuite))
}
