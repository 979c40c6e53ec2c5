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

type PgxIntegrationRepository struct {
	BaseRepository
}

// newPgxIntegrationRepository creates a new repository for exchange
// integration data.
func newPgxIntegrationRepository(pool *pgxpool.Pool) portsrepo.IntegrationRepositoryFacade {
	return &PgxIntegrationRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.IntegrationRepositoryFacade = (*PgxIntegrationRepository)(nil)

const integrationColumns = `integration_id, tenant_id, provider, credentials, is_active, is_healthy,
	last_checked_at, created_at, created_by, last_updated_at, last_updated_by`

func scanIntegration(row pgx.Row) (models.Integration, error) {
	var m models.Integration
	err := row.Scan(
		&m.IntegrationID,
		&m.TenantID,
		&m.Provider,
		&m.Credentials,
		&m.IsActive,
		&m.IsHealthy,
		&m.LastCheckedAt,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// SaveIntegration inserts a new integration with sealed credentials.
func (r *PgxIntegrationRepository) SaveIntegration(ctx context.Context, integration domain.Integration) error {
	m := mapping.ToModelIntegration(integration)
	query := `
		INSERT INTO integrations (` + integrationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.IntegrationID,
		m.TenantID,
		m.Provider,
		m.Credentials,
		m.IsActive,
		m.IsHealthy,
		m.LastCheckedAt,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: integration with %s", apperrors.ErrDuplicate, m.Provider)
		}
		return fmt.Errorf("failed to save integration %s: %w", m.IntegrationID, err)
	}
	return nil
}

// FindActiveIntegration retrieves the tenant's active integration.
func (r *PgxIntegrationRepository) FindActiveIntegration(ctx context.Context, tenantID string) (*domain.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE tenant_id = $1 AND is_active = TRUE;`
	m, err := scanIntegration(r.Pool.QueryRow(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find active integration for tenant %s: %w", tenantID, err)
	}
	d := mapping.ToDomainIntegration(m)
	return &d, nil
}

// FindIntegrationByProvider retrieves a tenant's integration with the named
// provider regardless of state.
func (r *PgxIntegrationRepository) FindIntegrationByProvider(ctx context.Context, tenantID, provider string) (*domain.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE tenant_id = $1 AND provider = $2;`
	m, err := scanIntegration(r.Pool.QueryRow(ctx, query, tenantID, provider))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find %s integration for tenant %s: %w", provider, tenantID, err)
	}
	d := mapping.ToDomainIntegration(m)
	return &d, nil
}

// ListActiveIntegrations retrieves every active integration across tenants.
func (r *PgxIntegrationRepository) ListActiveIntegrations(ctx context.Context) ([]domain.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE is_active = TRUE ORDER BY tenant_id, provider;`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active integrations: %w", err)
	}
	defer rows.Close()

	ms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Integration, error) {
		return scanIntegration(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan integrations: %w", err)
	}
	return mapping.ToDomainIntegrationSlice(ms), nil
}

// SetIntegrationHealth records the latest health-check outcome.
func (r *PgxIntegrationRepository) SetIntegrationHealth(ctx context.Context, tenantID, integrationID string, healthy bool, checkedAt time.Time) error {
	query := `
		UPDATE integrations
		SET is_healthy = $3, last_checked_at = $4, last_updated_at = $4, last_updated_by = 'system'
		WHERE tenant_id = $1 AND integration_id = $2;
	`
	tag, err := r.Pool.Exec(ctx, query, tenantID, integrationID, healthy, checkedAt)
	if err != nil {
		return fmt.Errorf("failed to set health for integration %s: %w", integrationID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeactivateIntegration disables the tenant's integration with the named
// provider.
func (r *PgxIntegrationRepository) DeactivateIntegration(ctx context.Context, tenantID, provider string, now time.Time) error {
	query := `
		UPDATE integrations
		SET is_active = FALSE, last_updated_at = $3, last_updated_by = 'system'
		WHERE tenant_id = $1 AND provider = $2 AND is_active = TRUE;
	`
	tag, err := r.Pool.Exec(ctx, query, tenantID, provider, now)
	if err != nil {
		return fmt.Errorf("failed to deactivate %s integration: %w", provider, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
