package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hodlpay/treasury_backend/internal/apperrors"
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	portsrepo "github.com/hodlpay/treasury_backend/internal/core/ports/repositories"
	portssvc "github.com/hodlpay/treasury_backend/internal/core/ports/services"
	"github.com/hodlpay/treasury_backend/internal/dto"
	"github.com/hodlpay/treasury_backend/internal/exchange"
	"github.com/hodlpay/treasury_backend/internal/platform/providers"
	"github.com/hodlpay/treasury_backend/internal/platform/secrets"
)

// integrationService manages tenant exchange connections.
type integrationService struct {
	integrationRepo portsrepo.IntegrationRepositoryFacade
	tenantRepo      portsrepo.TenantRepositoryFacade
	factory         exchange.AdapterFactory
	cipher          *secrets.Cipher
	providerMap     providers.Map
	logger          *slog.Logger
}

// NewIntegrationService creates a new integration service.
func NewIntegrationService(
	integrationRepo portsrepo.IntegrationRepositoryFacade,
	tenantRepo portsrepo.TenantRepositoryFacade,
	factory exchange.AdapterFactory,
	cipher *secrets.Cipher,
	providerMap providers.Map,
	logger *slog.Logger,
) portssvc.IntegrationSvcFacade {
	return &integrationService{
		integrationRepo: integrationRepo,
		tenantRepo:      tenantRepo,
		factory:         factory,
		cipher:          cipher,
		providerMap:     providerMap,
		logger:          logger,
	}
}

var _ portssvc.IntegrationSvcFacade = (*integrationService)(nil)

// ConnectExchange verifies the credentials with a health check, seals them
// and stores the integration. Unimplemented providers fail closed before
// any credential material is stored.
func (s *integrationService) ConnectExchange(ctx context.Context, tenantID string, req dto.ConnectExchangeRequest, createdBy string) (*domain.Integration, error) {
	if _, err := s.tenantRepo.FindTenantByID(ctx, tenantID); err != nil {
		return nil, err
	}
	status, known := s.providerMap.Status(req.Provider)
	if !known {
		return nil, fmt.Errorf("%w: unknown provider %s", apperrors.ErrValidation, req.Provider)
	}
	if status != providers.Enabled {
		return nil, fmt.Errorf("%w: provider %s is not available", apperrors.ErrExchangeUnavailable, req.Provider)
	}

	creds := exchange.Credentials{APIKey: req.APIKey, APISecret: req.APISecret}
	adapter := s.factory.ForProvider(req.Provider, creds)
	healthErr := adapter.HealthCheck(ctx)
	if healthErr != nil && errors.Is(healthErr, apperrors.ErrExchangeRejected) {
		// Bad credentials never get stored.
		return nil, healthErr
	}

	raw, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to encode credentials: %w", err)
	}
	sealed, err := s.cipher.Seal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to seal credentials: %w", err)
	}

	now := time.Now().UTC()
	integration := domain.Integration{
		IntegrationID: uuid.NewString(),
		TenantID:      tenantID,
		Provider:      req.Provider,
		Credentials:   sealed,
		IsActive:      true,
		IsHealthy:     healthErr == nil,
		LastCheckedAt: now,
		AuditFields: domain.AuditFields{
			CreatedAt: now, CreatedBy: createdBy,
			LastUpdatedAt: now, LastUpdatedBy: createdBy,
		},
	}
	if err := s.integrationRepo.SaveIntegration(ctx, integration); err != nil {
		return nil, fmt.Errorf("failed to save integration: %w", err)
	}
	if healthErr != nil {
		s.logger.Warn("Exchange connected but unhealthy",
			slog.String("tenant_id", tenantID),
			slog.String("provider", req.Provider),
			slog.String("error", healthErr.Error()),
		)
	}
	return &integration, nil
}

func (s *integrationService) DisconnectExchange(ctx context.Context, tenantID, provider string, updatedBy string) error {
	if err := s.integrationRepo.DeactivateIntegration(ctx, tenantID, provider, time.Now().UTC()); err != nil {
		return err
	}
	s.logger.Info("Exchange disconnected",
		slog.String("tenant_id", tenantID),
		slog.String("provider", provider),
		slog.String("by", updatedBy),
	)
	return nil
}

// RunHealthSweep re-checks every active integration. An unhealthy result
// blocks new conversion claims for that tenant until health recovers; it
// never fails in-flight transactions.
func (s *integrationService) RunHealthSweep(ctx context.Context) error {
	integrations, err := s.integrationRepo.ListActiveIntegrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list integrations: %w", err)
	}

	for _, integration := range integrations {
		healthy := s.checkOne(ctx, integration)
		now := time.Now().UTC()
		if err := s.integrationRepo.SetIntegrationHealth(ctx, integration.TenantID, integration.IntegrationID, healthy, now); err != nil {
			s.logger.Error("Failed to record integration health",
				slog.String("integration_id", integration.IntegrationID),
				slog.String("error", err.Error()),
			)
		}
		if healthy != integration.IsHealthy {
			s.logger.Info("Integration health changed",
				slog.String("tenant_id", integration.TenantID),
				slog.String("provider", integration.Provider),
				slog.Bool("healthy", healthy),
			)
		}
	}
	return nil
}

func (s *integrationService) checkOne(ctx context.Context, integration domain.Integration) bool {
	raw, err := s.cipher.Open(integration.Credentials)
	if err != nil {
		return false
	}
	creds, err := exchange.ParseCredentials(raw)
	if err != nil {
		return false
	}
	adapter := s.factory.ForProvider(integration.Provider, creds)
	return adapter.HealthCheck(ctx) == nil
}
