package services

import (
	"context"
	"errors"
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

// schedulerProvider marks synthetic transactions created by rule ticks.
const schedulerProvider = "scheduler"

// transactionService is the inbound surface for payment events.
type transactionService struct {
	txRepo     portsrepo.TransactionRepositoryFacade
	ruleRepo   portsrepo.RuleRepositoryFacade
	tenantRepo portsrepo.TenantRepositoryFacade
}

// NewTransactionService creates a new transaction service.
func NewTransactionService(
	txRepo portsrepo.TransactionRepositoryFacade,
	ruleRepo portsrepo.RuleRepositoryFacade,
	tenantRepo portsrepo.TenantRepositoryFacade,
) portssvc.TransactionSvcFacade {
	return &transactionService{txRepo: txRepo, ruleRepo: ruleRepo, tenantRepo: tenantRepo}
}

var _ portssvc.TransactionSvcFacade = (*transactionService)(nil)

// SubmitTransaction records an inbound payment event. Idempotent on
// (tenant, provider, external id): the unique index resolves concurrent
// duplicate deliveries, and the loser re-reads the winner's row.
func (s *transactionService) SubmitTransaction(ctx context.Context, req dto.SubmitTransactionRequest) (*domain.Transaction, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}
	if req.Currency != "AUD" {
		return nil, fmt.Errorf("%w: only AUD payments are supported, got %s", apperrors.ErrValidation, req.Currency)
	}
	tenant, err := s.tenantRepo.FindTenantByID(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive {
		return nil, fmt.Errorf("%w: tenant is disabled", apperrors.ErrForbidden)
	}

	now := time.Now().UTC()
	txn := domain.Transaction{
		TransactionID:    uuid.NewString(),
		TenantID:         req.TenantID,
		ExternalID:       req.ExternalID,
		Provider:         req.Provider,
		Amount:           req.Amount.Round(2),
		Currency:         req.Currency,
		Status:           domain.TxPending,
		ConversionAmount: decimal.Zero,
		ConversionFee:    decimal.Zero,
		AuditFields: domain.AuditFields{
			CreatedAt: now, CreatedBy: req.Provider,
			LastUpdatedAt: now, LastUpdatedBy: req.Provider,
		},
	}

	if err := s.txRepo.SaveTransaction(ctx, txn); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return s.txRepo.FindTransactionByExternalID(ctx, req.TenantID, req.Provider, req.ExternalID)
		}
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	event := domain.TransactionEvent{
		EventID:       uuid.NewString(),
		TenantID:      txn.TenantID,
		TransactionID: txn.TransactionID,
		FromStatus:    domain.TxPending,
		ToStatus:      domain.TxPending,
		Cause:         fmt.Sprintf("received from %s as %s", req.Provider, req.ExternalID),
		OccurredAt:    now,
	}
	if err := s.txRepo.AppendEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to append intake event: %w", err)
	}
	return &txn, nil
}

// SubmitScheduledTrigger creates the synthetic transaction behind a
// FIXED_AMOUNT or DCA rule tick, idempotent per rule and period.
func (s *transactionService) SubmitScheduledTrigger(ctx context.Context, tenantID, ruleID string) (*domain.Transaction, error) {
	rule, err := s.ruleRepo.FindRuleByID(ctx, tenantID, ruleID)
	if err != nil {
		return nil, err
	}
	if rule.RuleType.EventDriven() {
		return nil, fmt.Errorf("%w: rule %s is not schedule-driven", apperrors.ErrValidation, ruleID)
	}
	if !rule.IsActive {
		return nil, fmt.Errorf("%w: rule %s is inactive", apperrors.ErrValidation, ruleID)
	}

	var amount decimal.Decimal
	switch rule.RuleType {
	case domain.RuleFixedAmount:
		if rule.FixedAmount == nil {
			return nil, fmt.Errorf("%w: rule %s has no fixed amount", apperrors.ErrValidation, ruleID)
		}
		amount = rule.FixedAmount.Round(2)
	case domain.RuleDCA:
		amount = rule.PerTickAmount()
		if amount.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%w: rule %s has no DCA budget", apperrors.ErrValidation, ruleID)
		}
	}

	now := time.Now().UTC()
	txn := domain.Transaction{
		TransactionID: uuid.NewString(),
		TenantID:      tenantID,
		ExternalID:    fmt.Sprintf("tick:%s:%s", ruleID, tickPeriod(rule.DCAFrequency, now)),
		Provider:      schedulerProvider,
		Amount:        amount,
		Currency:      "AUD",
		Status:        domain.TxPending,
		Synthetic:     true,
		AppliedRuleID: &rule.RuleID,
		AuditFields: domain.AuditFields{
			CreatedAt: now, CreatedBy: systemActor,
			LastUpdatedAt: now, LastUpdatedBy: systemActor,
		},
	}

	if err := s.txRepo.SaveTransaction(ctx, txn); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			// The period already ticked; return the existing trigger.
			return s.txRepo.FindTransactionByExternalID(ctx, tenantID, schedulerProvider, txn.ExternalID)
		}
		return nil, fmt.Errorf("failed to save scheduled trigger: %w", err)
	}
	return &txn, nil
}

// tickPeriod keys scheduler ticks so one period produces one trigger.
func tickPeriod(freq domain.DCAFrequency, now time.Time) string {
	switch freq {
	case domain.FrequencyDaily:
		return now.Format("2006-01-02")
	case domain.FrequencyWeekly:
		year, week := now.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	default:
		return now.Format("2006-01")
	}
}

func (s *transactionService) GetTransaction(ctx context.Context, tenantID, transactionID string) (*domain.Transaction, error) {
	return s.txRepo.FindTransactionByID(ctx, tenantID, transactionID)
}

func (s *transactionService) ListTransactionEvents(ctx context.Context, tenantID, transactionID string) ([]domain.TransactionEvent, error) {
	return s.txRepo.ListEvents(ctx, tenantID, transactionID)
}

// CancelTransaction honours an admin cancel only while the transaction is
// still PENDING. Once claimed, the caller must wait for a terminal state.
func (s *transactionService) CancelTransaction(ctx context.Context, tenantID, transactionID string) (*domain.Transaction, error) {
	txn, err := s.txRepo.FindTransactionByID(ctx, tenantID, transactionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cancelled, err := s.txRepo.CancelTransaction(ctx, tenantID, transactionID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel transaction: %w", err)
	}
	if !cancelled {
		if txn.Status.Terminal() {
			return nil, fmt.Errorf("%w: transaction is already %s", apperrors.ErrValidation, txn.Status)
		}
		return nil, fmt.Errorf("%w: transaction is being processed, wait for a terminal state", apperrors.ErrConcurrencyConflict)
	}

	event := domain.TransactionEvent{
		EventID:       uuid.NewString(),
		TenantID:      tenantID,
		TransactionID: transactionID,
		FromStatus:    domain.TxPending,
		ToStatus:      domain.TxCancelled,
		Cause:         "cancelled by admin",
		OccurredAt:    now,
	}
	if err := s.txRepo.AppendEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to append cancel event: %w", err)
	}

	txn.Status = domain.TxCancelled
	txn.LastUpdatedAt = now
	return txn, nil
}
