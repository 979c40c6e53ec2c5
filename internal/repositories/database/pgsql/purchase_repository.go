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
)

type PgxPurchaseRepository struct {
	BaseRepository
}

// newPgxPurchaseRepository creates a new repository for bitcoin purchase data.
func newPgxPurchaseRepository(pool *pgxpool.Pool) portsrepo.PurchaseRepositoryFacade {
	return &PgxPurchaseRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.PurchaseRepositoryFacade = (*PgxPurchaseRepository)(nil)

const purchaseColumns = `purchase_id, tenant_id, transaction_id, aud_amount, btc_amount,
	exchange_rate, exchange_fee, platform_fee, exchange, exchange_order_id,
	customer_wallet, withdrawal_tx_id, withdrawal_status,
	created_at, created_by, last_updated_at, last_updated_by`

func scanPurchase(row pgx.Row) (models.BitcoinPurchase, error) {
	var m models.BitcoinPurchase
	err := row.Scan(
		&m.PurchaseID,
		&m.TenantID,
		&m.TransactionID,
		&m.AUDAmount,
		&m.BTCAmount,
		&m.ExchangeRate,
		&m.ExchangeFee,
		&m.PlatformFee,
		&m.Exchange,
		&m.ExchangeOrderID,
		&m.CustomerWallet,
		&m.WithdrawalTxID,
		&m.WithdrawalStatus,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// SavePurchaseAndLot persists the purchase row, its tax lot and the
// transaction's fee fields in one database transaction.
func (r *PgxPurchaseRepository) SavePurchaseAndLot(ctx context.Context, purchase domain.BitcoinPurchase, lot domain.Lot) error {
	pm := mapping.ToModelBitcoinPurchase(purchase)
	lm := mapping.ToModelLot(lot)

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	insertPurchase := `
		INSERT INTO bitcoin_purchases (` + purchaseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
	`
	_, err = tx.Exec(ctx, insertPurchase,
		pm.PurchaseID,
		pm.TenantID,
		pm.TransactionID,
		pm.AUDAmount,
		pm.BTCAmount,
		pm.ExchangeRate,
		pm.ExchangeFee,
		pm.PlatformFee,
		pm.Exchange,
		pm.ExchangeOrderID,
		pm.CustomerWallet,
		pm.WithdrawalTxID,
		pm.WithdrawalStatus,
		pm.CreatedAt,
		pm.CreatedBy,
		pm.LastUpdatedAt,
		pm.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: purchase for transaction %s", apperrors.ErrDuplicate, pm.TransactionID)
		}
		return fmt.Errorf("failed to save purchase %s: %w", pm.PurchaseID, err)
	}

	insertLot := `
		INSERT INTO lots (` + lotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err = tx.Exec(ctx, insertLot,
		lm.LotID,
		lm.TenantID,
		lm.PurchaseID,
		lm.BTCAmount,
		lm.CostBasisAUD,
		lm.AcquiredAt,
		lm.RemainingBTC,
		lm.RemainingCostAUD,
		lm.CreatedAt,
		lm.CreatedBy,
		lm.LastUpdatedAt,
		lm.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save lot %s: %w", lm.LotID, err)
	}

	updateFees := `
		UPDATE transactions
		SET conversion_fee = $3, last_updated_at = $4, last_updated_by = 'system'
		WHERE tenant_id = $1 AND transaction_id = $2;
	`
	fee := pm.ExchangeFee.Add(pm.PlatformFee)
	tag, err := tx.Exec(ctx, updateFees, pm.TenantID, pm.TransactionID, fee, pm.LastUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to record fees on transaction %s: %w", pm.TransactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, pm.TransactionID)
	}

	return r.Commit(ctx, tx)
}

// UpdateWithdrawal records the outcome of a withdrawal attempt.
func (r *PgxPurchaseRepository) UpdateWithdrawal(ctx context.Context, tenantID, purchaseID string, status domain.WithdrawalStatus, withdrawalTxID *string, now time.Time) error {
	query := `
		UPDATE bitcoin_purchases
		SET withdrawal_status = $3, withdrawal_tx_id = $4, last_updated_at = $5, last_updated_by = 'system'
		WHERE tenant_id = $1 AND purchase_id = $2;
	`
	tag, err := r.Pool.Exec(ctx, query, tenantID, purchaseID, string(status), withdrawalTxID, now)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal for purchase %s: %w", purchaseID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FindPurchaseByID retrieves a purchase scoped to its tenant.
func (r *PgxPurchaseRepository) FindPurchaseByID(ctx context.Context, tenantID, purchaseID string) (*domain.BitcoinPurchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM bitcoin_purchases WHERE tenant_id = $1 AND purchase_id = $2;`
	m, err := scanPurchase(r.Pool.QueryRow(ctx, query, tenantID, purchaseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find purchase %s: %w", purchaseID, err)
	}
	d := mapping.ToDomainBitcoinPurchase(m)
	return &d, nil
}

// FindPurchaseByTransactionID retrieves the purchase backing a transaction.
func (r *PgxPurchaseRepository) FindPurchaseByTransactionID(ctx context.Context, tenantID, transactionID string) (*domain.BitcoinPurchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM bitcoin_purchases WHERE tenant_id = $1 AND transaction_id = $2;`
	m, err := scanPurchase(r.Pool.QueryRow(ctx, query, tenantID, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find purchase for transaction %s: %w", transactionID, err)
	}
	d := mapping.ToDomainBitcoinPurchase(m)
	return &d, nil
}
