package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hodlpay/treasury_backend/internal/apperrors"
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	portsrepo "github.com/hodlpay/treasury_backend/internal/core/ports/repositories"
	"github.com/hodlpay/treasury_backend/internal/models"
	"github.com/hodlpay/treasury_backend/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxTransactionRepository struct {
	BaseRepository
}

// newPgxTransactionRepository creates a new repository for transaction data.
func newPgxTransactionRepository(pool *pgxpool.Pool) portsrepo.TransactionRepositoryFacade {
	return &PgxTransactionRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.TransactionRepositoryFacade = (*PgxTransactionRepository)(nil)

const transactionColumns = `transaction_id, tenant_id, external_id, provider, amount, currency, status,
	should_convert, conversion_amount, conversion_fee, applied_rule_id, decided,
	synthetic, failure_reason, created_at, created_by, last_updated_at, last_updated_by`

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var m models.Transaction
	err := row.Scan(
		&m.TransactionID,
		&m.TenantID,
		&m.ExternalID,
		&m.Provider,
		&m.Amount,
		&m.Currency,
		&m.Status,
		&m.ShouldConvert,
		&m.ConversionAmount,
		&m.ConversionFee,
		&m.AppliedRuleID,
		&m.Decided,
		&m.Synthetic,
		&m.FailureReason,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// SaveTransaction inserts a new transaction. A duplicate
// (tenant, provider, external id) maps to apperrors.ErrDuplicate.
func (r *PgxTransactionRepository) SaveTransaction(ctx context.Context, txn domain.Transaction) error {
	m := mapping.ToModelTransaction(txn)
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.TransactionID,
		m.TenantID,
		m.ExternalID,
		m.Provider,
		m.Amount,
		m.Currency,
		m.Status,
		m.ShouldConvert,
		m.ConversionAmount,
		m.ConversionFee,
		m.AppliedRuleID,
		m.Decided,
		m.Synthetic,
		m.FailureReason,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: external id %s from %s", apperrors.ErrDuplicate, m.ExternalID, m.Provider)
		}
		return fmt.Errorf("failed to save transaction %s: %w", m.TransactionID, err)
	}
	return nil
}

// FindTransactionByID retrieves a transaction scoped to its tenant.
func (r *PgxTransactionRepository) FindTransactionByID(ctx context.Context, tenantID, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE tenant_id = $1 AND transaction_id = $2;`
	m, err := scanTransaction(r.Pool.QueryRow(ctx, query, tenantID, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}
	d := mapping.ToDomainTransaction(m)
	return &d, nil
}

// FindTransactionByExternalID retrieves a transaction by its
// provider-assigned idempotency key.
func (r *PgxTransactionRepository) FindTransactionByExternalID(ctx context.Context, tenantID, provider, externalID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE tenant_id = $1 AND provider = $2 AND external_id = $3;`
	m, err := scanTransaction(r.Pool.QueryRow(ctx, query, tenantID, provider, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find transaction by external id %s: %w", externalID, err)
	}
	d := mapping.ToDomainTransaction(m)
	return &d, nil
}

// SumConvertedInRange returns the total conversion amount of non-failed
// conversions decided within [from, to).
func (r *PgxTransactionRepository) SumConvertedInRange(ctx context.Context, tenantID string, from, to time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(conversion_amount), 0)
		FROM transactions
		WHERE tenant_id = $1
		  AND should_convert = TRUE
		  AND status IN ('PROCESSING', 'COMPLETED')
		  AND last_updated_at >= $2
		  AND last_updated_at < $3;
	`
	var total decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, tenantID, from, to).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum converted volume: %w", err)
	}
	return total, nil
}

// PendingAmountTotal returns the sum of PENDING transaction amounts.
func (r *PgxTransactionRepository) PendingAmountTotal(ctx context.Context, tenantID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE tenant_id = $1 AND status = 'PENDING';
	`
	var total decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, tenantID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum pending balance: %w", err)
	}
	return total, nil
}

// ClaimTransaction atomically moves PENDING -> PROCESSING. The conditional
// UPDATE is the claim: exactly one of N concurrent callers sees a row.
func (r *PgxTransactionRepository) ClaimTransaction(ctx context.Context, tenantID, transactionID string, now time.Time) (bool, error) {
	query := `
		UPDATE transactions
		SET status = 'PROCESSING', last_updated_at = $3, last_updated_by = 'system'
		WHERE tenant_id = $1 AND transaction_id = $2 AND status = 'PENDING';
	`
	tag, err := r.Pool.Exec(ctx, query, tenantID, transactionID, now)
	if err != nil {
		return false, fmt.Errorf("failed to claim transaction %s: %w", transactionID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// CancelTransaction atomically moves PENDING -> CANCELLED.
func (r *PgxTransactionRepository) CancelTransaction(ctx context.Context, tenantID, transactionID string, now time.Time) (bool, error) {
	query := `
		UPDATE transactions
		SET status = 'CANCELLED', last_updated_at = $3, last_updated_by = 'admin'
		WHERE tenant_id = $1 AND transaction_id = $2 AND status = 'PENDING';
	`
	tag, err := r.Pool.Exec(ctx, query, tenantID, transactionID, now)
	if err != nil {
		return false, fmt.Errorf("failed to cancel transaction %s: %w", transactionID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateDecision stores the rule engine's output on a transaction.
func (r *PgxTransactionRepository) UpdateDecision(ctx context.Context, txn domain.Transaction) error {
	m := mapping.ToModelTransaction(txn)
	query := `
		UPDATE transactions
		SET should_convert = $3,
			conversion_amount = $4,
			applied_rule_id = $5,
			decided = $6,
			last_updated_at = $7,
			last_updated_by = 'system'
		WHERE tenant_id = $1 AND transaction_id = $2;
	`
	tag, err := r.Pool.Exec(ctx, query,
		m.TenantID,
		m.TransactionID,
		m.ShouldConvert,
		m.ConversionAmount,
		m.AppliedRuleID,
		m.Decided,
		m.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update decision for %s: %w", m.TransactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateStatus moves a transaction to the given status, recording the
// failure reason for terminal failures.
func (r *PgxTransactionRepository) UpdateStatus(ctx context.Context, tenantID, transactionID string, status domain.TransactionStatus, failureReason *string, now time.Time) error {
	query := `
		UPDATE transactions
		SET status = $3, failure_reason = $4, last_updated_at = $5, last_updated_by = 'system'
		WHERE tenant_id = $1 AND transaction_id = $2;
	`
	tag, err := r.Pool.Exec(ctx, query, tenantID, transactionID, string(status), failureReason, now)
	if err != nil {
		return fmt.Errorf("failed to update status for %s: %w", transactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SweepPendingIntoBatch completes every other PENDING transaction for the
// tenant, returning the swept IDs.
func (r *PgxTransactionRepository) SweepPendingIntoBatch(ctx context.Context, tenantID, excludeTransactionID string, now time.Time) ([]string, error) {
	query := `
		UPDATE transactions
		SET status = 'COMPLETED', last_updated_at = $3, last_updated_by = 'system'
		WHERE tenant_id = $1 AND status = 'PENDING' AND transaction_id <> $2
		RETURNING transaction_id;
	`
	rows, err := r.Pool.Query(ctx, query, tenantID, excludeTransactionID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep pending batch: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect swept ids: %w", err)
	}
	return ids, nil
}

// AppendEvent inserts one immutable audit fact.
func (r *PgxTransactionRepository) AppendEvent(ctx context.Context, event domain.TransactionEvent) error {
	query := `
		INSERT INTO transaction_events (event_id, tenant_id, transaction_id, from_status, to_status, cause, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.Pool.Exec(ctx, query,
		event.EventID,
		event.TenantID,
		event.TransactionID,
		string(event.FromStatus),
		string(event.ToStatus),
		event.Cause,
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append event for %s: %w", event.TransactionID, err)
	}
	return nil
}

// ListEvents retrieves the audit trail of a transaction, oldest first.
func (r *PgxTransactionRepository) ListEvents(ctx context.Context, tenantID, transactionID string) ([]domain.TransactionEvent, error) {
	query := `
		SELECT event_id, tenant_id, transaction_id, from_status, to_status, cause, occurred_at
		FROM transaction_events
		WHERE tenant_id = $1 AND transaction_id = $2
		ORDER BY occurred_at, event_id;
	`
	rows, err := r.Pool.Query(ctx, query, tenantID, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	ms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.TransactionEvent, error) {
		var m models.TransactionEvent
		err := row.Scan(
			&m.EventID,
			&m.TenantID,
			&m.TransactionID,
			&m.FromStatus,
			&m.ToStatus,
			&m.Cause,
			&m.OccurredAt,
		)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan events: %w", err)
	}
	return mapping.ToDomainTransactionEventSlice(ms), nil
}
