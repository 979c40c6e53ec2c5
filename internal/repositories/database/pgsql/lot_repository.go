package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/hodlpay/treasury_backend/internal/apperrors"
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	portsrepo "github.com/hodlpay/treasury_backend/internal/core/ports/repositories"
	"github.com/hodlpay/treasury_backend/internal/models"
	"github.com/hodlpay/treasury_backend/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxLotRepository struct {
	BaseRepository
}

// newPgxLotRepository creates a new repository for tax lot data.
func newPgxLotRepository(pool *pgxpool.Pool) portsrepo.LotRepositoryFacade {
	return &PgxLotRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.LotRepositoryFacade = (*PgxLotRepository)(nil)

const lotColumns = `lot_id, tenant_id, purchase_id, btc_amount, cost_basis_aud, acquired_at,
	remaining_btc, remaining_cost_aud, created_at, created_by, last_updated_at, last_updated_by`

func collectLots(rows pgx.Rows) ([]models.Lot, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Lot, error) {
		var m models.Lot
		err := row.Scan(
			&m.LotID,
			&m.TenantID,
			&m.PurchaseID,
			&m.BTCAmount,
			&m.CostBasisAUD,
			&m.AcquiredAt,
			&m.RemainingBTC,
			&m.RemainingCostAUD,
			&m.CreatedAt,
			&m.CreatedBy,
			&m.LastUpdatedAt,
			&m.LastUpdatedBy,
		)
		return m, err
	})
}

// ListLots retrieves all of a tenant's lots, oldest acquisition first.
// The lot ID breaks ties so selection order is deterministic.
func (r *PgxLotRepository) ListLots(ctx context.Context, tenantID string) ([]domain.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE tenant_id = $1 ORDER BY acquired_at, lot_id;`
	rows, err := r.Pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	ms, err := collectLots(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan lots: %w", err)
	}
	return mapping.ToDomainLotSlice(ms), nil
}

// ListLotsByIDs retrieves the named lots; any missing ID maps to
// apperrors.ErrNotFound.
func (r *PgxLotRepository) ListLotsByIDs(ctx context.Context, tenantID string, lotIDs []string) ([]domain.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE tenant_id = $1 AND lot_id = ANY($2) ORDER BY acquired_at, lot_id;`
	rows, err := r.Pool.Query(ctx, query, tenantID, lotIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots by id: %w", err)
	}
	defer rows.Close()

	ms, err := collectLots(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan lots: %w", err)
	}
	if len(ms) != len(lotIDs) {
		found := make(map[string]struct{}, len(ms))
		for _, m := range ms {
			found[m.LotID] = struct{}{}
		}
		for _, id := range lotIDs {
			if _, ok := found[id]; !ok {
				return nil, fmt.Errorf("%w: lot %s", apperrors.ErrNotFound, id)
			}
		}
	}
	return mapping.ToDomainLotSlice(ms), nil
}

// RemainingTotals returns the tenant's remaining BTC and cost pool.
func (r *PgxLotRepository) RemainingTotals(ctx context.Context, tenantID string) (portsrepo.LotTotals, error) {
	query := `
		SELECT COALESCE(SUM(remaining_btc), 0), COALESCE(SUM(remaining_cost_aud), 0)
		FROM lots
		WHERE tenant_id = $1;
	`
	var totals portsrepo.LotTotals
	if err := r.Pool.QueryRow(ctx, query, tenantID).Scan(&totals.RemainingBTC, &totals.RemainingCost); err != nil {
		return portsrepo.LotTotals{}, fmt.Errorf("failed to sum remaining lot pool: %w", err)
	}
	return totals, nil
}

// ApplyDisposal decrements each consumed lot's remaining balance and persists
// the disposal record in one database transaction. The conditional decrement
// guards against a lot that no longer holds the required balance: any short
// lot aborts the whole disposal with apperrors.ErrAccountingInconsistency.
func (r *PgxLotRepository) ApplyDisposal(ctx context.Context, disposal domain.Disposal) error {
	dm := mapping.ToModelDisposal(disposal)

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	decrement := `
		UPDATE lots
		SET remaining_btc = remaining_btc - $3,
			remaining_cost_aud = remaining_cost_aud - $4,
			last_updated_at = $5,
			last_updated_by = 'system'
		WHERE tenant_id = $1 AND lot_id = $2 AND remaining_btc >= $3;
	`
	insertConsumption := `
		INSERT INTO lot_consumptions (disposal_id, lot_id, btc_consumed, cost_consumed)
		VALUES ($1, $2, $3, $4);
	`
	for _, c := range disposal.Consumptions {
		tag, err := tx.Exec(ctx, decrement, dm.TenantID, c.LotID, c.BTCConsumed, c.CostConsumed, dm.LastUpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to decrement lot %s: %w", c.LotID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: lot %s no longer holds %s BTC", apperrors.ErrAccountingInconsistency, c.LotID, c.BTCConsumed.String())
		}
		if _, err := tx.Exec(ctx, insertConsumption, dm.DisposalID, c.LotID, c.BTCConsumed, c.CostConsumed); err != nil {
			return fmt.Errorf("failed to record consumption of lot %s: %w", c.LotID, err)
		}
	}

	insertDisposal := `
		INSERT INTO disposals (disposal_id, tenant_id, btc_amount, proceeds_aud, cost_basis_aud,
			realized_gain, method, disposed_at, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err = tx.Exec(ctx, insertDisposal,
		dm.DisposalID,
		dm.TenantID,
		dm.BTCAmount,
		dm.ProceedsAUD,
		dm.CostBasisAUD,
		dm.RealizedGain,
		dm.Method,
		dm.DisposedAt,
		dm.CreatedAt,
		dm.CreatedBy,
		dm.LastUpdatedAt,
		dm.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save disposal %s: %w", dm.DisposalID, err)
	}

	return r.Commit(ctx, tx)
}

// ListDisposalsInRange retrieves disposals with DisposedAt in [from, to),
// each with its lot consumptions attached.
func (r *PgxLotRepository) ListDisposalsInRange(ctx context.Context, tenantID string, from, to time.Time) ([]domain.Disposal, error) {
	query := `
		SELECT disposal_id, tenant_id, btc_amount, proceeds_aud, cost_basis_aud,
			realized_gain, method, disposed_at, created_at, created_by, last_updated_at, last_updated_by
		FROM disposals
		WHERE tenant_id = $1 AND disposed_at >= $2 AND disposed_at < $3
		ORDER BY disposed_at, disposal_id;
	`
	rows, err := r.Pool.Query(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query disposals: %w", err)
	}
	defer rows.Close()

	dms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Disposal, error) {
		var m models.Disposal
		err := row.Scan(
			&m.DisposalID,
			&m.TenantID,
			&m.BTCAmount,
			&m.ProceedsAUD,
			&m.CostBasisAUD,
			&m.RealizedGain,
			&m.Method,
			&m.DisposedAt,
			&m.CreatedAt,
			&m.CreatedBy,
			&m.LastUpdatedAt,
			&m.LastUpdatedBy,
		)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan disposals: %w", err)
	}
	if len(dms) == 0 {
		return []domain.Disposal{}, nil
	}

	ids := make([]string, len(dms))
	for i, m := range dms {
		ids[i] = m.DisposalID
	}
	consumptions, err := r.listConsumptions(ctx, ids)
	if err != nil {
		return nil, err
	}

	ds := make([]domain.Disposal, len(dms))
	for i, m := range dms {
		ds[i] = mapping.ToDomainDisposal(m, consumptions[m.DisposalID])
	}
	return ds, nil
}

func (r *PgxLotRepository) listConsumptions(ctx context.Context, disposalIDs []string) (map[string][]models.LotConsumption, error) {
	query := `
		SELECT disposal_id, lot_id, btc_consumed, cost_consumed
		FROM lot_consumptions
		WHERE disposal_id = ANY($1)
		ORDER BY disposal_id, lot_id;
	`
	rows, err := r.Pool.Query(ctx, query, disposalIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query lot consumptions: %w", err)
	}
	defer rows.Close()

	byDisposal := make(map[string][]models.LotConsumption)
	for rows.Next() {
		var c models.LotConsumption
		if err := rows.Scan(&c.DisposalID, &c.LotID, &c.BTCConsumed, &c.CostConsumed); err != nil {
			return nil, fmt.Errorf("failed to scan lot consumption: %w", err)
		}
		byDisposal[c.DisposalID] = append(byDisposal[c.DisposalID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lot consumptions: %w", err)
	}
	return byDisposal, nil
}
