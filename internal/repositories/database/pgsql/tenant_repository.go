package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/hodlpay/treasury_backend/internal/apperrors"
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	portsrepo "github.com/hodlpay/treasury_backend/internal/core/ports/repositories"
	"github.com/hodlpay/treasury_backend/internal/models"
	"github.com/hodlpay/treasury_backend/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxTenantRepository struct {
	BaseRepository
}

// newPgxTenantRepository creates a new repository for tenant data.
func newPgxTenantRepository(pool *pgxpool.Pool) portsrepo.TenantRepositoryFacade {
	return &PgxTenantRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.TenantRepositoryFacade = (*PgxTenantRepository)(nil)

const tenantColumns = `tenant_id, name, subscription_tier, cgt_method, wallet_address,
	monthly_volume_limit, daily_volume_limit, max_transaction_limit, is_active,
	created_at, created_by, last_updated_at, last_updated_by`

func scanTenant(row pgx.Row) (models.Tenant, error) {
	var m models.Tenant
	err := row.Scan(
		&m.TenantID,
		&m.Name,
		&m.SubscriptionTier,
		&m.CGTMethod,
		&m.WalletAddress,
		&m.MonthlyVolumeLimit,
		&m.DailyVolumeLimit,
		&m.MaxTransactionLimit,
		&m.IsActive,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// SaveTenant persists a new tenant.
func (r *PgxTenantRepository) SaveTenant(ctx context.Context, tenant domain.Tenant) error {
	m := mapping.ToModelTenant(tenant)
	query := `
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.TenantID,
		m.Name,
		m.SubscriptionTier,
		m.CGTMethod,
		m.WalletAddress,
		m.MonthlyVolumeLimit,
		m.DailyVolumeLimit,
		m.MaxTransactionLimit,
		m.IsActive,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: tenant %s", apperrors.ErrDuplicate, m.TenantID)
		}
		return fmt.Errorf("failed to save tenant %s: %w", m.TenantID, err)
	}
	return nil
}

// FindTenantByID retrieves a tenant by its unique identifier.
func (r *PgxTenantRepository) FindTenantByID(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE tenant_id = $1;`
	m, err := scanTenant(r.Pool.QueryRow(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find tenant %s: %w", tenantID, err)
	}
	d := mapping.ToDomainTenant(m)
	return &d, nil
}

// UpdateTenant updates tier, method and limit overrides.
func (r *PgxTenantRepository) UpdateTenant(ctx context.Context, tenant domain.Tenant) error {
	m := mapping.ToModelTenant(tenant)
	query := `
		UPDATE tenants SET
			name = $2,
			subscription_tier = $3,
			cgt_method = $4,
			wallet_address = $5,
			monthly_volume_limit = $6,
			daily_volume_limit = $7,
			max_transaction_limit = $8,
			is_active = $9,
			last_updated_at = $10,
			last_updated_by = $11
		WHERE tenant_id = $1;
	`
	tag, err := r.Pool.Exec(ctx, query,
		m.TenantID,
		m.Name,
		m.SubscriptionTier,
		m.CGTMethod,
		m.WalletAddress,
		m.MonthlyVolumeLimit,
		m.DailyVolumeLimit,
		m.MaxTransactionLimit,
		m.IsActive,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update tenant %s: %w", m.TenantID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
