package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hodlpay/treasury_backend/internal/apperrors"
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	portsrepo "github.com/hodlpay/treasury_backend/internal/core/ports/repositories"
	portssvc "github.com/hodlpay/treasury_backend/internal/core/ports/services"
	"github.com/hodlpay/treasury_backend/internal/dto"
	"github.com/shopspring/decimal"
)

var (
	// ErrNothingToDispose is returned for zero or negative disposals.
	ErrNothingToDispose = errors.New("disposal amount must be positive")
)

// NewLotFromPurchase builds the tax lot a completed purchase appends. Cost
// basis is the AUD spent plus both fee components.
func NewLotFromPurchase(purchase domain.BitcoinPurchase, now time.Time) domain.Lot {
	basis := purchase.CostBasis()
	return domain.Lot{
		LotID:            uuid.NewString(),
		TenantID:         purchase.TenantID,
		PurchaseID:       purchase.PurchaseID,
		BTCAmount:        purchase.BTCAmount,
		CostBasisAUD:     basis,
		AcquiredAt:       now,
		RemainingBTC:     purchase.BTCAmount,
		RemainingCostAUD: basis,
		AuditFields: domain.AuditFields{
			CreatedAt: now, CreatedBy: systemActor,
			LastUpdatedAt: now, LastUpdatedBy: systemActor,
		},
	}
}

// taxLotService maintains cost-basis lots and resolves disposals by the
// tenant's configured capital-gains method.
type taxLotService struct {
	lotRepo    portsrepo.LotRepositoryFacade
	tenantRepo portsrepo.TenantRepositoryFacade
}

// NewTaxLotService creates a new tax-lot accountant.
func NewTaxLotService(lotRepo portsrepo.LotRepositoryFacade, tenantRepo portsrepo.TenantRepositoryFacade) portssvc.TaxLotSvcFacade {
	return &taxLotService{lotRepo: lotRepo, tenantRepo: tenantRepo}
}

var _ portssvc.TaxLotSvcFacade = (*taxLotService)(nil)

func (s *taxLotService) ListLots(ctx context.Context, tenantID string) ([]domain.Lot, error) {
	return s.lotRepo.ListLots(ctx, tenantID)
}

// RecordDisposal selects lots per the tenant's CGT method, decrements them
// and records the realized gain. SPECIFIC_ID requires LotIDs; every other
// method forbids them.
func (s *taxLotService) RecordDisposal(ctx context.Context, tenantID string, req dto.RecordDisposalRequest, recordedBy string) (*domain.Disposal, error) {
	if req.BTCAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrNothingToDispose)
	}

	tenant, err := s.tenantRepo.FindTenantByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var lots []domain.Lot
	if tenant.CGTMethod == domain.MethodSpecificID {
		if len(req.LotIDs) == 0 {
			return nil, fmt.Errorf("%w: SPECIFIC_ID disposal requires lot identifiers", apperrors.ErrValidation)
		}
		lots, err = s.lotRepo.ListLotsByIDs(ctx, tenantID, req.LotIDs)
	} else {
		if len(req.LotIDs) > 0 {
			return nil, fmt.Errorf("%w: lot identifiers only apply to SPECIFIC_ID tenants", apperrors.ErrValidation)
		}
		lots, err = s.lotRepo.ListLots(ctx, tenantID)
	}
	if err != nil {
		return nil, err
	}

	consumptions, costBasis, err := SelectLots(tenant.CGTMethod, lots, req.BTCAmount)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	disposal := domain.Disposal{
		DisposalID:   uuid.NewString(),
		TenantID:     tenantID,
		BTCAmount:    req.BTCAmount,
		ProceedsAUD:  req.ProceedsAUD,
		CostBasisAUD: costBasis,
		RealizedGain: req.ProceedsAUD.Sub(costBasis),
		Method:       tenant.CGTMethod,
		Consumptions: consumptions,
		DisposedAt:   now,
		AuditFields: domain.AuditFields{
			CreatedAt: now, CreatedBy: recordedBy,
			LastUpdatedAt: now, LastUpdatedBy: recordedBy,
		},
	}
	if err := s.lotRepo.ApplyDisposal(ctx, disposal); err != nil {
		return nil, err
	}
	return &disposal, nil
}

func (s *taxLotService) GetRealizedGains(ctx context.Context, tenantID string, from, to time.Time) (*dto.RealizedGainsResponse, error) {
	disposals, err := s.lotRepo.ListDisposalsInRange(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}

	resp := &dto.RealizedGainsResponse{
		From:          from,
		To:            to,
		TotalProceeds: decimal.Zero,
		TotalCost:     decimal.Zero,
		TotalGain:     decimal.Zero,
		Disposals:     make([]dto.DisposalResponse, 0, len(disposals)),
	}
	for i := range disposals {
		d := &disposals[i]
		resp.TotalProceeds = resp.TotalProceeds.Add(d.ProceedsAUD)
		resp.TotalCost = resp.TotalCost.Add(d.CostBasisAUD)
		resp.TotalGain = resp.TotalGain.Add(d.RealizedGain)
		resp.Disposals = append(resp.Disposals, dto.ToDisposalResponse(d))
	}
	return resp, nil
}

// SelectLots resolves which lots a disposal consumes and the cost basis it
// carries. Deterministic for a fixed lot set: ordering ties break on LotID.
func SelectLots(method domain.CGTMethod, lots []domain.Lot, btcAmount decimal.Decimal) ([]domain.LotConsumption, decimal.Decimal, error) {
	open := make([]domain.Lot, 0, len(lots))
	totalRemaining := decimal.Zero
	for _, lot := range lots {
		if lot.RemainingBTC.GreaterThan(decimal.Zero) {
			open = append(open, lot)
			totalRemaining = totalRemaining.Add(lot.RemainingBTC)
		}
	}
	if btcAmount.GreaterThan(totalRemaining) {
		return nil, decimal.Zero, fmt.Errorf("%w: disposal of %s BTC exceeds remaining balance %s",
			apperrors.ErrAccountingInconsistency, btcAmount, totalRemaining)
	}

	switch method {
	case domain.MethodFIFO:
		sortLotsByAge(open, true)
		return consumeSequential(open, btcAmount)
	case domain.MethodLIFO:
		sortLotsByAge(open, false)
		return consumeSequential(open, btcAmount)
	case domain.MethodWeightedAverage:
		return consumeWeightedAverage(open, btcAmount, totalRemaining)
	case domain.MethodSpecificID:
		// Caller passed exactly the named lots; sufficiency was checked
		// above against those lots alone.
		sortLotsByAge(open, true)
		return consumeSequential(open, btcAmount)
	}
	return nil, decimal.Zero, fmt.Errorf("%w: unknown CGT method %s", apperrors.ErrValidation, method)
}

func sortLotsByAge(lots []domain.Lot, oldestFirst bool) {
	sort.SliceStable(lots, func(i, j int) bool {
		if lots[i].AcquiredAt.Equal(lots[j].AcquiredAt) {
			return lots[i].LotID < lots[j].LotID
		}
		if oldestFirst {
			return lots[i].AcquiredAt.Before(lots[j].AcquiredAt)
		}
		return lots[i].AcquiredAt.After(lots[j].AcquiredAt)
	})
}

// consumeSequential drains lots in order, reducing each lot's attributable
// cost basis in proportion to the BTC taken from it.
func consumeSequential(lots []domain.Lot, btcAmount decimal.Decimal) ([]domain.LotConsumption, decimal.Decimal, error) {
	remaining := btcAmount
	consumptions := make([]domain.LotConsumption, 0, len(lots))
	costBasis := decimal.Zero

	for _, lot := range lots {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		take := decimal.Min(remaining, lot.RemainingBTC)
		var cost decimal.Decimal
		if take.Equal(lot.RemainingBTC) {
			// Full consumption takes the exact remaining cost so repeated
			// partial disposals never strand rounding residue.
			cost = lot.RemainingCostAUD
		} else {
			cost = lot.RemainingCostAUD.Mul(take).Div(lot.RemainingBTC).Round(2)
		}
		consumptions = append(consumptions, domain.LotConsumption{
			LotID:        lot.LotID,
			BTCConsumed:  take,
			CostConsumed: cost,
		})
		costBasis = costBasis.Add(cost)
		remaining = remaining.Sub(take)
	}
	return consumptions, costBasis, nil
}

// consumeWeightedAverage treats all open lots as one pool: each lot
// contributes pro rata, and the basis is the pool's average cost. No lot
// is ever charged more than it holds: rounding residue moves to lots that
// still have headroom, so the takes sum exactly to btcAmount while each
// stays within RemainingBTC.
func consumeWeightedAverage(lots []domain.Lot, btcAmount, totalRemaining decimal.Decimal) ([]domain.LotConsumption, decimal.Decimal, error) {
	sortLotsByAge(lots, true)

	takes := make([]decimal.Decimal, len(lots))
	consumed := decimal.Zero
	for i, lot := range lots {
		take := btcAmount.Mul(lot.RemainingBTC).Div(totalRemaining).Round(8)
		if take.GreaterThan(lot.RemainingBTC) {
			take = lot.RemainingBTC
		}
		takes[i] = take
		consumed = consumed.Add(take)
	}

	// Sufficiency was checked by the caller, so a positive residue always
	// finds headroom; a negative one only shrinks positive takes.
	residue := btcAmount.Sub(consumed)
	for i := range lots {
		if residue.IsZero() {
			break
		}
		if residue.IsPositive() {
			headroom := lots[i].RemainingBTC.Sub(takes[i])
			if headroom.IsPositive() {
				add := decimal.Min(residue, headroom)
				takes[i] = takes[i].Add(add)
				residue = residue.Sub(add)
			}
		} else if takes[i].IsPositive() {
			sub := decimal.Min(residue.Neg(), takes[i])
			takes[i] = takes[i].Sub(sub)
			residue = residue.Add(sub)
		}
	}

	consumptions := make([]domain.LotConsumption, 0, len(lots))
	costBasis := decimal.Zero
	for i, lot := range lots {
		take := takes[i]
		if take.LessThanOrEqual(decimal.Zero) {
			continue
		}
		var cost decimal.Decimal
		if take.Equal(lot.RemainingBTC) {
			cost = lot.RemainingCostAUD
		} else {
			cost = lot.RemainingCostAUD.Mul(take).Div(lot.RemainingBTC).Round(2)
		}
		consumptions = append(consumptions, domain.LotConsumption{
			LotID:        lot.LotID,
			BTCConsumed:  take,
			CostConsumed: cost,
		})
		costBasis = costBasis.Add(cost)
	}
	return consumptions, costBasis, nil
}
