package repositories

import (
	"context"

	"github.com/hodlpay/treasury_backend/internal/core/domain"
)

// RuleReader defines read operations for treasury rules.
type RuleReader interface {
	// ListActiveRules retrieves the tenant's active rules.
	ListActiveRules(ctx context.Context, tenantID string) ([]domain.TreasuryRule, error)

	// ListRules retrieves every rule for the tenant, active or not.
	ListRules(ctx context.Context, tenantID string) ([]domain.TreasuryRule, error)

	// FindRuleByID retrieves one rule scoped to its tenant.
	FindRuleByID(ctx context.Context, tenantID, ruleID string) (*domain.TreasuryRule, error)
}

// RuleWriter defines write operations for treasury rules.
type RuleWriter interface {
	// ReplaceRules deactivates the tenant's existing rules and inserts the
	// provided set within one database transaction.
	ReplaceRules(ctx context.Context, tenantID string, rules []domain.TreasuryRule) error
}

// RuleRepositoryFacade combines all rule repository interfaces.
type RuleRepositoryFacade interface {
	RuleReader
	RuleWriter
}
