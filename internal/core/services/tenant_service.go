package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hodlpay/treasury_backend/internal/core/domain"
	portsrepo "github.com/hodlpay/treasury_backend/internal/core/ports/repositories"
	portssvc "github.com/hodlpay/treasury_backend/internal/core/ports/services"
	"github.com/hodlpay/treasury_backend/internal/dto"
)

type tenantService struct {
	tenantRepo portsrepo.TenantRepositoryFacade
	logger     *slog.Logger
}

// NewTenantService creates a new tenant service.
func NewTenantService(tenantRepo portsrepo.TenantRepositoryFacade, logger *slog.Logger) portssvc.TenantSvcFacade {
	return &tenantService{tenantRepo: tenantRepo, logger: logger}
}

var _ portssvc.TenantSvcFacade = (*tenantService)(nil)

func (s *tenantService) CreateTenant(ctx context.Context, req dto.CreateTenantRequest, createdBy string) (*domain.Tenant, error) {
	now := time.Now().UTC()
	tenant := domain.Tenant{
		TenantID:         uuid.NewString(),
		Name:             req.Name,
		SubscriptionTier: req.SubscriptionTier,
		CGTMethod:        req.CGTMethod,
		WalletAddress:    req.WalletAddress,
		IsActive:         true,
		AuditFields: domain.AuditFields{
			CreatedAt: now, CreatedBy: createdBy,
			LastUpdatedAt: now, LastUpdatedBy: createdBy,
		},
	}
	if req.MonthlyVolumeLimit != nil {
		tenant.MonthlyVolumeLimit = *req.MonthlyVolumeLimit
	}
	if req.DailyVolumeLimit != nil {
		tenant.DailyVolumeLimit = *req.DailyVolumeLimit
	}
	if req.MaxTransactionLimit != nil {
		tenant.MaxTransactionLimit = *req.MaxTransactionLimit
	}

	if err := s.tenantRepo.SaveTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to save tenant: %w", err)
	}
	s.logger.Info("Tenant created",
		slog.String("tenant_id", tenant.TenantID),
		slog.String("tier", string(tenant.SubscriptionTier)),
	)
	return &tenant, nil
}

func (s *tenantService) GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	return s.tenantRepo.FindTenantByID(ctx, tenantID)
}
