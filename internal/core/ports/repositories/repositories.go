package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	TenantRepo      TenantRepositoryFacade
	RuleRepo        RuleRepositoryFacade
	TransactionRepo TransactionRepositoryFacade
	PurchaseRepo    PurchaseRepositoryFacade
	LotRepo         LotRepositoryFacade
	IntegrationRepo IntegrationRepositoryFacade
}
