package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hodlpay/treasury_backend/internal/apperrors"
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	portsrepo "github.com/hodlpay/treasury_backend/internal/core/ports/repositories"
	portssvc "github.com/hodlpay/treasury_backend/internal/core/ports/services"
	"github.com/hodlpay/treasury_backend/internal/exchange"
	"github.com/hodlpay/treasury_backend/internal/platform/secrets"
	"github.com/hodlpay/treasury_backend/internal/platform/tenantlock"
	"github.com/shopspring/decimal"
)

const systemActor = "system"

// ConversionConfig tunes the orchestrator's retry and fee behaviour.
type ConversionConfig struct {
	PlatformFeeBps       int64
	ExchangeCallTimeout  time.Duration
	OrderMaxRetries      uint64
	WithdrawalMaxRetries uint64

	// InitialBackoff overrides the first retry interval; zero keeps the
	// library default. Tests shrink it.
	InitialBackoff time.Duration
}

// conversionService drives a transaction through claim, rule evaluation,
// exchange execution and custody withdrawal.
type conversionService struct {
	txRepo          portsrepo.TransactionRepositoryFacade
	purchaseRepo    portsrepo.PurchaseRepositoryFacade
	ruleRepo        portsrepo.RuleRepositoryFacade
	tenantRepo      portsrepo.TenantRepositoryFacade
	lotRepo         portsrepo.LotRepositoryFacade
	integrationRepo portsrepo.IntegrationRepositoryFacade

	factory   exchange.AdapterFactory
	cipher    *secrets.Cipher
	locks     *tenantlock.Registry
	tierTable map[domain.SubscriptionTier]domain.TierLimits
	cfg       ConversionConfig
	logger    *slog.Logger
}

// NewConversionService creates the conversion orchestrator.
func NewConversionService(
	repos portsrepo.RepositoryProvider,
	factory exchange.AdapterFactory,
	cipher *secrets.Cipher,
	locks *tenantlock.Registry,
	tierTable map[domain.SubscriptionTier]domain.TierLimits,
	cfg ConversionConfig,
	logger *slog.Logger,
) portssvc.ConversionSvcFacade {
	return &conversionService{
		txRepo:          repos.TransactionRepo,
		purchaseRepo:    repos.PurchaseRepo,
		ruleRepo:        repos.RuleRepo,
		tenantRepo:      repos.TenantRepo,
		lotRepo:         repos.LotRepo,
		integrationRepo: repos.IntegrationRepo,
		factory:         factory,
		cipher:          cipher,
		locks:           locks,
		tierTable:       tierTable,
		cfg:             cfg,
		logger:          logger,
	}
}

var _ portssvc.ConversionSvcFacade = (*conversionService)(nil)

// Process claims the transaction and runs it to a stable state. Duplicate
// deliveries resolve here: a lost claim returns the current state with no
// error and without touching the exchange.
func (s *conversionService) Process(ctx context.Context, tenantID, transactionID string) (*domain.Transaction, error) {
	logger := s.logger.With(
		slog.String("tenant_id", tenantID),
		slog.String("transaction_id", transactionID),
	)

	tenant, err := s.tenantRepo.FindTenantByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}

	// Health gate: an unhealthy integration blocks new claims but never
	// fails transactions already in flight.
	integration, err := s.integrationRepo.FindActiveIntegration(ctx, tenantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: tenant has no active exchange integration", apperrors.ErrExchangeUnavailable)
		}
		return nil, fmt.Errorf("failed to load integration: %w", err)
	}
	if !integration.Usable() {
		return nil, fmt.Errorf("%w: integration %s is unhealthy", apperrors.ErrExchangeUnavailable, integration.Provider)
	}

	txn, sweptIDs, err := s.claimAndDecide(ctx, tenant, transactionID, logger)
	if err != nil {
		return nil, err
	}
	if txn.Status != domain.TxProcessing {
		// Terminal, cancelled or claim lost; nothing more to do here.
		return txn, nil
	}
	for _, sweptID := range sweptIDs {
		s.appendEvent(ctx, tenantID, sweptID, domain.TxPending, domain.TxCompleted,
			fmt.Sprintf("absorbed into threshold batch %s", transactionID), logger)
	}

	if !txn.ShouldConvert {
		return s.finishWithoutPurchase(ctx, txn, logger)
	}
	return s.executeConversion(ctx, tenant, integration, txn, logger)
}

// claimAndDecide holds the per-tenant lock for the decide+claim step only.
// The aggregate snapshot, decision and claim happen under the lock so two
// concurrent claims cannot both pass a limit check; exchange calls stay
// outside it.
func (s *conversionService) claimAndDecide(ctx context.Context, tenant *domain.Tenant, transactionID string, logger *slog.Logger) (*domain.Transaction, []string, error) {
	s.locks.Lock(tenant.TenantID)
	defer s.locks.Unlock(tenant.TenantID)

	txn, err := s.txRepo.FindTransactionByID(ctx, tenant.TenantID, transactionID)
	if err != nil {
		return nil, nil, err
	}
	if txn.Status != domain.TxPending {
		return txn, nil, nil
	}

	if !txn.Decided {
		decision, err := s.decide(ctx, tenant, *txn)
		if err != nil {
			// Limit rejections leave the transaction PENDING and never
			// claim it; the rejection is recorded as an audit fact so a
			// status query can see it, not only the process log.
			if errors.Is(err, apperrors.ErrLimitExceeded) {
				s.appendEvent(ctx, tenant.TenantID, txn.TransactionID, domain.TxPending, domain.TxPending,
					fmt.Sprintf("conversion held: %v", err), logger)
			}
			return nil, nil, err
		}
		txn.ShouldConvert = decision.ShouldConvert
		txn.ConversionAmount = decision.ConversionAmount
		txn.AppliedRuleID = decision.AppliedRuleID
		txn.Decided = true
		if !decision.ShouldConvert {
			logger.Info("Conversion declined by rule engine", slog.String("reason", decision.Reason))
		}
	}

	now := time.Now().UTC()
	claimed, err := s.txRepo.ClaimTransaction(ctx, tenant.TenantID, txn.TransactionID, now)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to claim transaction: %w", err)
	}
	if !claimed {
		// Race lost to a concurrent delivery; report the winner's state.
		current, err := s.txRepo.FindTransactionByID(ctx, tenant.TenantID, txn.TransactionID)
		if err != nil {
			return nil, nil, err
		}
		return current, nil, nil
	}
	txn.Status = domain.TxProcessing
	txn.LastUpdatedAt = now

	if err := s.txRepo.UpdateDecision(ctx, *txn); err != nil {
		return nil, nil, fmt.Errorf("failed to persist decision: %w", err)
	}
	s.appendEvent(ctx, tenant.TenantID, txn.TransactionID, domain.TxPending, domain.TxProcessing, "claimed for processing", logger)

	// A THRESHOLD conversion commits the whole pending batch through this
	// transaction; the absorbed rows complete while the lock is held so
	// they cannot be double counted by a concurrent claim.
	var sweptIDs []string
	if txn.ShouldConvert && s.isThresholdDecision(ctx, tenant.TenantID, txn) {
		sweptIDs, err = s.txRepo.SweepPendingIntoBatch(ctx, tenant.TenantID, txn.TransactionID, now)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to sweep pending batch: %w", err)
		}
	}
	return txn, sweptIDs, nil
}

func (s *conversionService) isThresholdDecision(ctx context.Context, tenantID string, txn *domain.Transaction) bool {
	if txn.AppliedRuleID == nil {
		return false
	}
	rule, err := s.ruleRepo.FindRuleByID(ctx, tenantID, *txn.AppliedRuleID)
	if err != nil {
		return false
	}
	return rule.RuleType == domain.RuleThreshold
}

// decide captures the aggregate snapshot and runs the rule engine.
func (s *conversionService) decide(ctx context.Context, tenant *domain.Tenant, txn domain.Transaction) (Decision, error) {
	rules, err := s.ruleRepo.ListActiveRules(ctx, tenant.TenantID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load rules: %w", err)
	}

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	daily, err := s.txRepo.SumConvertedInRange(ctx, tenant.TenantID, dayStart, now)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to compute daily volume: %w", err)
	}
	monthly, err := s.txRepo.SumConvertedInRange(ctx, tenant.TenantID, monthStart, now)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to compute monthly volume: %w", err)
	}
	pending, err := s.txRepo.PendingAmountTotal(ctx, tenant.TenantID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to compute pending balance: %w", err)
	}
	totals, err := s.lotRepo.RemainingTotals(ctx, tenant.TenantID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to compute lot totals: %w", err)
	}

	agg := Aggregates{
		DailyVolume:        daily,
		MonthlyVolume:      monthly,
		PendingBalance:     pending,
		BTCHoldingsCostAUD: totals.RemainingCost,
	}
	return EvaluateRules(txn, tenant.EffectiveLimits(s.tierTable), rules, agg)
}

func (s *conversionService) finishWithoutPurchase(ctx context.Context, txn *domain.Transaction, logger *slog.Logger) (*domain.Transaction, error) {
	now := time.Now().UTC()
	if err := s.txRepo.UpdateStatus(ctx, txn.TenantID, txn.TransactionID, domain.TxCompleted, nil, now); err != nil {
		return nil, fmt.Errorf("failed to complete transaction: %w", err)
	}
	s.appendEvent(ctx, txn.TenantID, txn.TransactionID, domain.TxProcessing, domain.TxCompleted, "no conversion required", logger)
	txn.Status = domain.TxCompleted
	txn.LastUpdatedAt = now
	return txn, nil
}

// executeConversion runs the exchange steps: place the order, record the
// purchase and lot in one unit of work, then withdraw to custody. Exchange
// failures are recorded on the transaction and surfaced through status
// queries, never returned across the claim boundary.
func (s *conversionService) executeConversion(ctx context.Context, tenant *domain.Tenant, integration *domain.Integration, txn *domain.Transaction, logger *slog.Logger) (*domain.Transaction, error) {
	creds, err := s.openCredentials(integration)
	if err != nil {
		return s.failTransaction(ctx, txn, fmt.Sprintf("credentials unusable: %v", err), logger)
	}
	adapter := s.factory.ForProvider(integration.Provider, creds)

	platformFee := txn.ConversionAmount.
		Mul(decimal.NewFromInt(s.cfg.PlatformFeeBps)).
		Div(decimal.NewFromInt(10000)).
		Round(2)
	orderAmount := txn.ConversionAmount.Sub(platformFee)

	order, err := s.placeOrderWithRetry(ctx, adapter, txn.TransactionID, orderAmount, logger)
	if err != nil {
		// No BTC was acquired; the transaction is terminal.
		return s.failTransaction(ctx, txn, fmt.Sprintf("order failed: %v", err), logger)
	}

	now := time.Now().UTC()
	purchase := domain.BitcoinPurchase{
		PurchaseID:       uuid.NewString(),
		TenantID:         tenant.TenantID,
		TransactionID:    txn.TransactionID,
		AUDAmount:        order.AUDAmount,
		BTCAmount:        order.BTCAmount,
		ExchangeRate:     order.Rate,
		ExchangeFee:      order.Fee,
		PlatformFee:      platformFee,
		Exchange:         integration.Provider,
		ExchangeOrderID:  order.OrderID,
		CustomerWallet:   tenant.WalletAddress,
		WithdrawalStatus: domain.WithdrawalPending,
		AuditFields: domain.AuditFields{
			CreatedAt: now, CreatedBy: systemActor,
			LastUpdatedAt: now, LastUpdatedBy: systemActor,
		},
	}
	lot := NewLotFromPurchase(purchase, now)

	// The purchase and its tax lot persist in the same unit of work as the
	// fee fields: an executed order is never left unrecorded.
	if err := s.purchaseRepo.SavePurchaseAndLot(ctx, purchase, lot); err != nil {
		return nil, fmt.Errorf("order %s executed but recording failed: %w", order.OrderID, err)
	}
	txn.ConversionFee = order.Fee.Add(platformFee)
	logger.Info("Order executed",
		slog.String("order_id", order.OrderID),
		slog.String("btc_amount", order.BTCAmount.String()),
		slog.String("rate", order.Rate.String()),
	)

	return s.deliverToCustody(ctx, adapter, txn, &purchase, logger)
}

// deliverToCustody withdraws the purchased BTC. On failure the transaction
// stays PROCESSING with the purchase marked FAILED: money was converted but
// not delivered, and only the withdrawal step may be retried.
func (s *conversionService) deliverToCustody(ctx context.Context, adapter exchange.Exchange, txn *domain.Transaction, purchase *domain.BitcoinPurchase, logger *slog.Logger) (*domain.Transaction, error) {
	now := time.Now().UTC()
	if err := s.purchaseRepo.UpdateWithdrawal(ctx, purchase.TenantID, purchase.PurchaseID, domain.WithdrawalProcessing, nil, now); err != nil {
		return nil, fmt.Errorf("failed to mark withdrawal processing: %w", err)
	}

	withdrawal, err := s.withdrawWithRetry(ctx, adapter, purchase.BTCAmount, purchase.CustomerWallet, logger)
	now = time.Now().UTC()
	if err != nil {
		logger.Warn("Withdrawal failed after retries", slog.String("error", err.Error()))
		if updateErr := s.purchaseRepo.UpdateWithdrawal(ctx, purchase.TenantID, purchase.PurchaseID, domain.WithdrawalFailed, nil, now); updateErr != nil {
			return nil, fmt.Errorf("failed to record withdrawal failure: %w", updateErr)
		}
		purchase.WithdrawalStatus = domain.WithdrawalFailed
		// Transaction remains PROCESSING: needs RetryWithdrawal, never a
		// fresh order.
		return txn, nil
	}

	if err := s.purchaseRepo.UpdateWithdrawal(ctx, purchase.TenantID, purchase.PurchaseID, domain.WithdrawalCompleted, &withdrawal.TxID, now); err != nil {
		return nil, fmt.Errorf("failed to record withdrawal: %w", err)
	}
	if err := s.txRepo.UpdateStatus(ctx, txn.TenantID, txn.TransactionID, domain.TxCompleted, nil, now); err != nil {
		return nil, fmt.Errorf("failed to complete transaction: %w", err)
	}
	s.appendEvent(ctx, txn.TenantID, txn.TransactionID, domain.TxProcessing, domain.TxCompleted, "conversion delivered to custody", logger)
	purchase.WithdrawalStatus = domain.WithdrawalCompleted
	purchase.WithdrawalTxID = &withdrawal.TxID
	txn.Status = domain.TxCompleted
	txn.LastUpdatedAt = now
	return txn, nil
}

// RetryWithdrawal resumes delivery for a purchase whose withdrawal
// previously failed.
func (s *conversionService) RetryWithdrawal(ctx context.Context, tenantID, purchaseID string) (*domain.BitcoinPurchase, error) {
	purchase, err := s.purchaseRepo.FindPurchaseByID(ctx, tenantID, purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase.WithdrawalStatus == domain.WithdrawalCompleted {
		return purchase, nil
	}
	if purchase.WithdrawalStatus == domain.WithdrawalProcessing {
		return nil, fmt.Errorf("%w: withdrawal already in flight", apperrors.ErrConcurrencyConflict)
	}

	integration, err := s.integrationRepo.FindIntegrationByProvider(ctx, tenantID, purchase.Exchange)
	if err != nil {
		return nil, err
	}
	creds, err := s.openCredentials(integration)
	if err != nil {
		return nil, err
	}
	adapter := s.factory.ForProvider(integration.Provider, creds)

	txn, err := s.txRepo.FindTransactionByID(ctx, tenantID, purchase.TransactionID)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With(slog.String("tenant_id", tenantID), slog.String("purchase_id", purchaseID))
	if _, err := s.deliverToCustody(ctx, adapter, txn, purchase, logger); err != nil {
		return nil, err
	}
	return purchase, nil
}

func (s *conversionService) openCredentials(integration *domain.Integration) (exchange.Credentials, error) {
	raw, err := s.cipher.Open(integration.Credentials)
	if err != nil {
		return exchange.Credentials{}, fmt.Errorf("%w: cannot open integration credentials", apperrors.ErrExchangeRejected)
	}
	return exchange.ParseCredentials(raw)
}

// placeOrderWithRetry retries the placement on transient failures. The
// transaction id rides along as the exchange-side client reference, so an
// attempt that placed an order but lost the fill readback resumes that
// order on the next attempt instead of buying again.
func (s *conversionService) placeOrderWithRetry(ctx context.Context, adapter exchange.Exchange, transactionID string, amount decimal.Decimal, logger *slog.Logger) (exchange.Order, error) {
	var order exchange.Order
	attempt := 0
	operation := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.ExchangeCallTimeout)
		defer cancel()
		var err error
		order, err = adapter.PlaceOrder(callCtx, transactionID, amount)
		if err != nil {
			if errors.Is(err, apperrors.ErrExchangeRejected) {
				return backoff.Permanent(err)
			}
			logger.Warn("Order attempt failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
			return err
		}
		return nil
	}
	err := backoff.Retry(operation, s.retryPolicy(ctx, s.cfg.OrderMaxRetries))
	return order, err
}

func (s *conversionService) withdrawWithRetry(ctx context.Context, adapter exchange.Exchange, amount decimal.Decimal, address string, logger *slog.Logger) (exchange.Withdrawal, error) {
	var withdrawal exchange.Withdrawal
	attempt := 0
	operation := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.ExchangeCallTimeout)
		defer cancel()
		var err error
		withdrawal, err = adapter.Withdraw(callCtx, amount, address)
		if err != nil {
			if errors.Is(err, apperrors.ErrExchangeRejected) {
				return backoff.Permanent(err)
			}
			logger.Warn("Withdrawal attempt failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
			return err
		}
		return nil
	}
	err := backoff.Retry(operation, s.retryPolicy(ctx, s.cfg.WithdrawalMaxRetries))
	return withdrawal, err
}

// retryPolicy is exponential backoff with jitter, bounded by a maximum
// attempt count and the caller's context.
func (s *conversionService) retryPolicy(ctx context.Context, maxRetries uint64) backoff.BackOffContext {
	policy := backoff.NewExponentialBackOff()
	if s.cfg.InitialBackoff > 0 {
		policy.InitialInterval = s.cfg.InitialBackoff
	}
	return backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx)
}

func (s *conversionService) failTransaction(ctx context.Context, txn *domain.Transaction, reason string, logger *slog.Logger) (*domain.Transaction, error) {
	now := time.Now().UTC()
	if err := s.txRepo.UpdateStatus(ctx, txn.TenantID, txn.TransactionID, domain.TxFailed, &reason, now); err != nil {
		return nil, fmt.Errorf("failed to record transaction failure: %w", err)
	}
	s.appendEvent(ctx, txn.TenantID, txn.TransactionID, domain.TxProcessing, domain.TxFailed, reason, logger)
	logger.Warn("Transaction failed", slog.String("reason", reason))
	txn.Status = domain.TxFailed
	txn.FailureReason = &reason
	txn.LastUpdatedAt = now
	return txn, nil
}

// appendEvent records a state transition audit fact. Audit append failures
// are logged, not propagated: the transition itself already committed.
func (s *conversionService) appendEvent(ctx context.Context, tenantID, transactionID string, from, to domain.TransactionStatus, cause string, logger *slog.Logger) {
	event := domain.TransactionEvent{
		EventID:       uuid.NewString(),
		TenantID:      tenantID,
		TransactionID: transactionID,
		FromStatus:    from,
		ToStatus:      to,
		Cause:         cause,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.txRepo.AppendEvent(ctx, event); err != nil {
		logger.Error("Failed to append transaction event", slog.String("error", err.Error()))
	}
}
