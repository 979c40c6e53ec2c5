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
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxRuleRepository struct {
	BaseRepository
}

// newPgxRuleRepository creates a new repository for treasury rules.
func newPgxRuleRepository(pool *pgxpool.Pool) portsrepo.RuleRepositoryFacade {
	return &PgxRuleRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.RuleRepositoryFacade = (*PgxRuleRepository)(nil)

const ruleColumns = `rule_id, tenant_id, rule_type, conversion_percentage, threshold_amount,
	fixed_amount, dca_budget, dca_frequency, btc_allocation_min, btc_allocation_max,
	min_transaction_amount, max_transaction_amount, cash_floor, is_active,
	created_at, created_by, last_updated_at, last_updated_by`

func scanRule(row pgx.Row) (models.TreasuryRule, error) {
	var m models.TreasuryRule
	err := row.Scan(
		&m.RuleID,
		&m.TenantID,
		&m.RuleType,
		&m.ConversionPercentage,
		&m.ThresholdAmount,
		&m.FixedAmount,
		&m.DCABudget,
		&m.DCAFrequency,
		&m.BTCAllocationMin,
		&m.BTCAllocationMax,
		&m.MinTransactionAmount,
		&m.MaxTransactionAmount,
		&m.CashFloor,
		&m.IsActive,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

func (r *PgxRuleRepository) listRulesWhere(ctx context.Context, where string, args ...any) ([]domain.TreasuryRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM treasury_rules ` + where + ` ORDER BY created_at, rule_id;`
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	ms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.TreasuryRule, error) {
		return scanRule(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan rules: %w", err)
	}
	return mapping.ToDomainTreasuryRuleSlice(ms), nil
}

// ListActiveRules retrieves the tenant's active rules.
func (r *PgxRuleRepository) ListActiveRules(ctx context.Context, tenantID string) ([]domain.TreasuryRule, error) {
	return r.listRulesWhere(ctx, `WHERE tenant_id = $1 AND is_active = TRUE`, tenantID)
}

// ListRules retrieves every rule for the tenant, active or not.
func (r *PgxRuleRepository) ListRules(ctx context.Context, tenantID string) ([]domain.TreasuryRule, error) {
	return r.listRulesWhere(ctx, `WHERE tenant_id = $1`, tenantID)
}

// FindRuleByID retrieves one rule scoped to its tenant.
func (r *PgxRuleRepository) FindRuleByID(ctx context.Context, tenantID, ruleID string) (*domain.TreasuryRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM treasury_rules WHERE tenant_id = $1 AND rule_id = $2;`
	m, err := scanRule(r.Pool.QueryRow(ctx, query, tenantID, ruleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find rule %s: %w", ruleID, err)
	}
	d := mapping.ToDomainTreasuryRule(m)
	return &d, nil
}

// ReplaceRules deactivates the tenant's existing rules and inserts the
// provided set within one database transaction.
func (r *PgxRuleRepository) ReplaceRules(ctx context.Context, tenantID string, rules []domain.TreasuryRule) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	if _, err := tx.Exec(ctx,
		`UPDATE treasury_rules SET is_active = FALSE WHERE tenant_id = $1 AND is_active = TRUE;`,
		tenantID,
	); err != nil {
		return fmt.Errorf("failed to deactivate rules for tenant %s: %w", tenantID, err)
	}

	insert := `
		INSERT INTO treasury_rules (` + ruleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);
	`
	for _, rule := range rules {
		m := mapping.ToModelTreasuryRule(rule)
		if _, err := tx.Exec(ctx, insert,
			m.RuleID,
			m.TenantID,
			m.RuleType,
			m.ConversionPercentage,
			m.ThresholdAmount,
			m.FixedAmount,
			m.DCABudget,
			m.DCAFrequency,
			m.BTCAllocationMin,
			m.BTCAllocationMax,
			m.MinTransactionAmount,
			m.MaxTransactionAmount,
			m.CashFloor,
			m.IsActive,
			m.CreatedAt,
			m.CreatedBy,
			m.LastUpdatedAt,
			m.LastUpdatedBy,
		); err != nil {
			return fmt.Errorf("failed to insert rule %s: %w", m.RuleID, err)
		}
	}

	return r.Commit(ctx, tx)
}
