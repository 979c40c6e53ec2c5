package services

import (
	"context"

	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/hodlpay/treasury_backend/internal/dto"
)

// RuleSvcFacade manages a tenant's treasury rule set. Rule evaluation
// itself lives in the conversion pipeline and reads rules through the
// repository, not through this facade.
type RuleSvcFacade interface {
	// SetRules validates and replaces the tenant's rule set.
	SetRules(ctx context.Context, tenantID string, req dto.SetRulesRequest, updatedBy string) ([]domain.TreasuryRule, error)

	// ListRules retrieves the tenant's rules.
	ListRules(ctx context.Context, tenantID string) ([]domain.TreasuryRule, error)
}
