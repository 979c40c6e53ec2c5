package pgsql

import (
	portsrepo "github.com/hodlpay/treasury_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider creates the pgsql-backed repositories and bundles
// them for the service container.
func NewRepositoryProvider(pool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TenantRepo:      newPgxTenantRepository(pool),
		RuleRepo:        newPgxRuleRepository(pool),
		TransactionRepo: newPgxTransactionRepository(pool),
		PurchaseRepo:    newPgxPurchaseRepository(pool),
		LotRepo:         newPgxLotRepository(pool),
		IntegrationRepo: newPgxIntegrationRepository(pool),
	}
}
