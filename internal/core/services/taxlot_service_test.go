package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hodlpay/treasury_backend/internal/apperrors"
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	portsrepo "github.com/hodlpay/treasury_backend/internal/core/ports/repositories"
	portssvc "github.com/hodlpay/treasury_backend/internal/core/ports/services"
	"github.com/hodlpay/treasury_backend/internal/core/services"
	"github.com/hodlpay/treasury_backend/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- Mock LotRepository ---
type MockLotRepository struct {
	mock.Mock
}

func (m *MockLotRepository) ListLots(ctx context.Context, tenantID string) ([]domain.Lot, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Lot), args.Error(1)
}

func (m *MockLotRepository) ListLotsByIDs(ctx context.Context, tenantID string, lotIDs []string) ([]domain.Lot, error) {
	args := m.Called(ctx, tenantID, lotIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Lot), args.Error(1)
}

func (m *MockLotRepository) RemainingTotals(ctx context.Context, tenantID string) (portsrepo.LotTotals, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(portsrepo.LotTotals), args.Error(1)
}

func (m *MockLotRepository) ApplyDisposal(ctx context.Context, disposal domain.Disposal) error {
	args := m.Called(ctx, disposal)
	return args.Error(0)
}

func (m *MockLotRepository) ListDisposalsInRange(ctx context.Context, tenantID string, from, to time.Time) ([]domain.Disposal, error) {
	args := m.Called(ctx, tenantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Disposal), args.Error(1)
}

// --- Mock TenantRepository ---
type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) FindTenantByID(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) SaveTenant(ctx context.Context, tenant domain.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) UpdateTenant(ctx context.Context, tenant domain.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

// --- Test Suite ---
type TaxLotServiceTestSuite struct {
	suite.Suite
	mockLotRepo    *MockLotRepository
	mockTenantRepo *MockTenantRepository
	service        portssvc.TaxLotSvcFacade
	tenantID       string
}

func (suite *TaxLotServiceTestSuite) SetupTest() {
	suite.mockLotRepo = new(MockLotRepository)
	suite.mockTenantRepo = new(MockTenantRepository)
	suite.service = services.NewTaxLotService(suite.mockLotRepo, suite.mockTenantRepo)
	suite.tenantID = uuid.NewString()
}

func (suite *TaxLotServiceTestSuite) tenantWithMethod(method domain.CGTMethod) *domain.Tenant {
	return &domain.Tenant{
		TenantID:  suite.tenantID,
		CGTMethod: method,
		IsActive:  true,
	}
}

func lotAt(day int, btc, cost string) domain.Lot {
	b := dec(btc)
	c := dec(cost)
	return domain.Lot{
		LotID:            uuid.NewString(),
		BTCAmount:        b,
		CostBasisAUD:     c,
		AcquiredAt:       time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC),
		RemainingBTC:     b,
		RemainingCostAUD: c,
	}
}

func (suite *TaxLotServiceTestSuite) TestRecordDisposal_FIFOConsumesOldestFirst() {
	ctx := context.Background()
	older := lotAt(1, "1.0", "50000")
	newer := lotAt(2, "1.0", "60000")

	suite.mockTenantRepo.On("FindTenantByID", ctx, suite.tenantID).
		Return(suite.tenantWithMethod(domain.MethodFIFO), nil).Once()
	suite.mockLotRepo.On("ListLots", ctx, suite.tenantID).
		Return([]domain.Lot{newer, older}, nil).Once()
	suite.mockLotRepo.On("ApplyDisposal", ctx, mock.AnythingOfType("domain.Disposal")).
		Return(nil).Once()

	disposal, err := suite.service.RecordDisposal(ctx, suite.tenantID, dto.RecordDisposalRequest{
		BTCAmount:   dec("1.5"),
		ProceedsAUD: dec("120000"),
	}, "admin")

	suite.Require().NoError(err)
	suite.Require().Len(disposal.Consumptions, 2)
	suite.Equal(older.LotID, disposal.Consumptions[0].LotID)
	suite.True(disposal.Consumptions[0].BTCConsumed.Equal(dec("1.0")))
	suite.True(disposal.Consumptions[0].CostConsumed.Equal(dec("50000")))
	suite.Equal(newer.LotID, disposal.Consumptions[1].LotID)
	suite.True(disposal.Consumptions[1].BTCConsumed.Equal(dec("0.5")))
	suite.True(disposal.Consumptions[1].CostConsumed.Equal(dec("30000")))
	// basis 80000, proceeds 120000 -> gain 40000
	suite.True(disposal.CostBasisAUD.Equal(dec("80000")))
	suite.True(disposal.RealizedGain.Equal(dec("40000")))
	suite.mockLotRepo.AssertExpectations(suite.T())
}

func (suite *TaxLotServiceTestSuite) TestRecordDisposal_LIFOConsumesNewestFirst() {
	ctx := context.Background()
	older := lotAt(1, "1.0", "50000")
	newer := lotAt(2, "1.0", "60000")

	suite.mockTenantRepo.On("FindTenantByID", ctx, suite.tenantID).
		Return(suite.tenantWithMethod(domain.MethodLIFO), nil).Once()
	suite.mockLotRepo.On("ListLots", ctx, suite.tenantID).
		Return([]domain.Lot{older, newer}, nil).Once()
	suite.mockLotRepo.On("ApplyDisposal", ctx, mock.AnythingOfType("domain.Disposal")).
		Return(nil).Once()

	disposal, err := suite.service.RecordDisposal(ctx, suite.tenantID, dto.RecordDisposalRequest{
		BTCAmount:   dec("0.5"),
		ProceedsAUD: dec("40000"),
	}, "admin")

	suite.Require().NoError(err)
	suite.Require().Len(disposal.Consumptions, 1)
	suite.Equal(newer.LotID, disposal.Consumptions[0].LotID)
	// half of the 60000 lot
	suite.True(disposal.CostBasisAUD.Equal(dec("30000")))
	suite.True(disposal.RealizedGain.Equal(dec("10000")))
}

func (suite *TaxLotServiceTestSuite) TestRecordDisposal_WeightedAverageBlendsBasis() {
	ctx := context.Background()
	cheap := lotAt(1, "1.0", "40000")
	dear := lotAt(2, "1.0", "60000")

	suite.mockTenantRepo.On("FindTenantByID", ctx, suite.tenantID).
		Return(suite.tenantWithMethod(domain.MethodWeightedAverage), nil).Once()
	suite.mockLotRepo.On("ListLots", ctx, suite.tenantID).
		Return([]domain.Lot{cheap, dear}, nil).Once()
	suite.mockLotRepo.On("ApplyDisposal", ctx, mock.AnythingOfType("domain.Disposal")).
		Return(nil).Once()

	disposal, err := suite.service.RecordDisposal(ctx, suite.tenantID, dto.RecordDisposalRequest{
		BTCAmount:   dec("1.0"),
		ProceedsAUD: dec("55000"),
	}, "admin")

	suite.Require().NoError(err)
	// Pool average is 50000/BTC: 0.5 from each lot, 20000 + 30000 basis.
	suite.Require().Len(disposal.Consumptions, 2)
	suite.True(disposal.CostBasisAUD.Equal(dec("50000")), "got %s", disposal.CostBasisAUD)
	suite.True(disposal.RealizedGain.Equal(dec("5000")))
	total := disposal.Consumptions[0].BTCConsumed.Add(disposal.Consumptions[1].BTCConsumed)
	suite.True(total.Equal(dec("1.0")))
}

func (suite *TaxLotServiceTestSuite) TestRecordDisposal_SpecificIDRequiresLotIDs() {
	ctx := context.Background()
	suite.mockTenantRepo.On("FindTenantByID", ctx, suite.tenantID).
		Return(suite.tenantWithMethod(domain.MethodSpecificID), nil).Once()

	_, err := suite.service.RecordDisposal(ctx, suite.tenantID, dto.RecordDisposalRequest{
		BTCAmount:   dec("0.5"),
		ProceedsAUD: dec("40000"),
	}, "admin")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockLotRepo.AssertNotCalled(suite.T(), "ApplyDisposal", mock.Anything, mock.Anything)
}

func (suite *TaxLotServiceTestSuite) TestRecordDisposal_LotIDsRejectedForFIFO() {
	ctx := context.Background()
	suite.mockTenantRepo.On("FindTenantByID", ctx, suite.tenantID).
		Return(suite.tenantWithMethod(domain.MethodFIFO), nil).Once()

	_, err := suite.service.RecordDisposal(ctx, suite.tenantID, dto.RecordDisposalRequest{
		BTCAmount:   dec("0.5"),
		ProceedsAUD: dec("40000"),
		LotIDs:      []string{uuid.NewString()},
	}, "admin")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *TaxLotServiceTestSuite) TestRecordDisposal_SpecificIDShortfall() {
	ctx := context.Background()
	lot := lotAt(1, "0.3", "15000")

	suite.mockTenantRepo.On("FindTenantByID", ctx, suite.tenantID).
		Return(suite.tenantWithMethod(domain.MethodSpecificID), nil).Once()
	suite.mockLotRepo.On("ListLotsByIDs", ctx, suite.tenantID, []string{lot.LotID}).
		Return([]domain.Lot{lot}, nil).Once()

	_, err := suite.service.RecordDisposal(ctx, suite.tenantID, dto.RecordDisposalRequest{
		BTCAmount:   dec("0.5"),
		ProceedsAUD: dec("40000"),
		LotIDs:      []string{lot.LotID},
	}, "admin")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrAccountingInconsistency)
	suite.mockLotRepo.AssertNotCalled(suite.T(), "ApplyDisposal", mock.Anything, mock.Anything)
}

func (suite *TaxLotServiceTestSuite) TestRecordDisposal_NonPositiveAmount() {
	ctx := context.Background()

	_, err := suite.service.RecordDisposal(ctx, suite.tenantID, dto.RecordDisposalRequest{
		BTCAmount:   dec("0"),
		ProceedsAUD: dec("100"),
	}, "admin")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockTenantRepo.AssertNotCalled(suite.T(), "FindTenantByID", mock.Anything, mock.Anything)
}

func (suite *TaxLotServiceTestSuite) TestRecordDisposal_ExceedsHoldings() {
	ctx := context.Background()
	lot := lotAt(1, "1.0", "50000")

	suite.mockTenantRepo.On("FindTenantByID", ctx, suite.tenantID).
		Return(suite.tenantWithMethod(domain.MethodFIFO), nil).Once()
	suite.mockLotRepo.On("ListLots", ctx, suite.tenantID).
		Return([]domain.Lot{lot}, nil).Once()

	_, err := suite.service.RecordDisposal(ctx, suite.tenantID, dto.RecordDisposalRequest{
		BTCAmount:   dec("1.5"),
		ProceedsAUD: dec("120000"),
	}, "admin")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrAccountingInconsistency)
}

func (suite *TaxLotServiceTestSuite) TestGetRealizedGains_Aggregates() {
	ctx := context.Background()
	from := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	disposals := []domain.Disposal{
		{DisposalID: uuid.NewString(), ProceedsAUD: dec("1000"), CostBasisAUD: dec("800"), RealizedGain: dec("200")},
		{DisposalID: uuid.NewString(), ProceedsAUD: dec("500"), CostBasisAUD: dec("600"), RealizedGain: dec("-100")},
	}

	suite.mockLotRepo.On("ListDisposalsInRange", ctx, suite.tenantID, from, to).
		Return(disposals, nil).Once()

	resp, err := suite.service.GetRealizedGains(ctx, suite.tenantID, from, to)

	suite.Require().NoError(err)
	suite.True(resp.TotalProceeds.Equal(dec("1500")))
	suite.True(resp.TotalCost.Equal(dec("1400")))
	suite.True(resp.TotalGain.Equal(dec("100")))
	suite.Len(resp.Disposals, 2)
}

func TestTaxLotServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaxLotServiceTestSuite))
}

// --- SelectLots determinism ---

func TestSelectLots_PartialConsumptionReducesBasisProportionally(t *testing.T) {
	lot := lotAt(1, "2.0", "100000")

	consumptions, basis, err := services.SelectLots(domain.MethodFIFO, []domain.Lot{lot}, dec("0.5"))

	require.NoError(t, err)
	require.Len(t, consumptions, 1)
	assert.True(t, basis.Equal(dec("25000")), "got %s", basis)
}

func TestSelectLots_FullConsumptionTakesExactRemainingCost(t *testing.T) {
	// A basis that doesn't divide evenly; the final consumption must drain
	// it exactly rather than re-deriving it from a rounded rate.
	lot := lotAt(1, "3.0", "100000.01")

	consumptions, basis, err := services.SelectLots(domain.MethodFIFO, []domain.Lot{lot}, dec("3.0"))

	require.NoError(t, err)
	require.Len(t, consumptions, 1)
	assert.True(t, basis.Equal(dec("100000.01")), "got %s", basis)
}

func TestSelectLots_DeterministicTieBreakOnLotID(t *testing.T) {
	a := lotAt(1, "1.0", "40000")
	b := lotAt(1, "1.0", "60000")
	if a.LotID > b.LotID {
		a, b = b, a
	}

	first, _, err := services.SelectLots(domain.MethodFIFO, []domain.Lot{a, b}, dec("1.0"))
	require.NoError(t, err)
	second, _, err := services.SelectLots(domain.MethodFIFO, []domain.Lot{b, a}, dec("1.0"))
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].LotID, second[0].LotID)
	assert.Equal(t, a.LotID, first[0].LotID)
}

// Pro-rata rounding must never charge a lot more than it holds. With four
// 3-satoshi lots and one 1-satoshi lot, each pro-rata share rounds down
// and the residue has to land on lots with headroom, not on the tiny
// trailing lot.
func TestSelectLots_WeightedAverageStaysWithinLotBalances(t *testing.T) {
	lots := []domain.Lot{
		lotAt(1, "0.00000003", "3"),
		lotAt(2, "0.00000003", "3"),
		lotAt(3, "0.00000003", "3"),
		lotAt(4, "0.00000003", "3"),
		lotAt(5, "0.00000001", "1"),
	}
	remaining := make(map[string]domain.Lot, len(lots))
	for _, lot := range lots {
		remaining[lot.LotID] = lot
	}

	consumptions, _, err := services.SelectLots(domain.MethodWeightedAverage, lots, dec("0.00000006"))

	require.NoError(t, err)
	total := dec("0")
	for _, c := range consumptions {
		holds := remaining[c.LotID].RemainingBTC
		assert.True(t, c.BTCConsumed.LessThanOrEqual(holds),
			"lot %s consumed %s but only holds %s", c.LotID, c.BTCConsumed, holds)
		total = total.Add(c.BTCConsumed)
	}
	assert.True(t, total.Equal(dec("0.00000006")), "consumed %s in total", total)
}
