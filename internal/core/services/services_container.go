package services

import (
	"log/slog"

	"github.com/hodlpay/treasury_backend/internal/core/domain"
	portsrepo "github.com/hodlpay/treasury_backend/internal/core/ports/repositories"
	portssvc "github.com/hodlpay/treasury_backend/internal/core/ports/services"
	"github.com/hodlpay/treasury_backend/internal/exchange"
	"github.com/hodlpay/treasury_backend/internal/platform/providers"
	"github.com/hodlpay/treasury_backend/internal/platform/secrets"
	"github.com/hodlpay/treasury_backend/internal/platform/tenantlock"
	"github.com/hodlpay/treasury_backend/pkg/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, logger *slog.Logger) (*portssvc.ServiceContainer, error) {
	cipher, err := secrets.NewCipher(cfg.SecretsKey)
	if err != nil {
		return nil, err
	}

	providerMap := providers.Load()
	factory := exchange.NewFactory(providerMap, cfg.ExchangeCallTimeout)
	locks := tenantlock.NewRegistry()
	tierTable := domain.DefaultTierLimits()

	container := &portssvc.ServiceContainer{}
	container.Tenant = NewTenantService(repos.TenantRepo, logger)
	container.Rule = NewRuleService(repos.RuleRepo, repos.TenantRepo)
	container.Transaction = NewTransactionService(repos.TransactionRepo, repos.RuleRepo, repos.TenantRepo)
	container.TaxLot = NewTaxLotService(repos.LotRepo, repos.TenantRepo)
	container.Integration = NewIntegrationService(repos.IntegrationRepo, repos.TenantRepo, factory, cipher, providerMap, logger)
	container.Conversion = NewConversionService(
		repos,
		factory,
		cipher,
		locks,
		tierTable,
		ConversionConfig{
			PlatformFeeBps:       cfg.PlatformFeeBps,
			ExchangeCallTimeout:  cfg.ExchangeCallTimeout,
			OrderMaxRetries:      uint64(cfg.OrderMaxRetries),
			WithdrawalMaxRetries: uint64(cfg.WithdrawalMaxRetries),
		},
		logger,
	)

	return container, nil
}
