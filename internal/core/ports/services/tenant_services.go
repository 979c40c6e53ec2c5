package services

import (
	"context"

	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/hodlpay/treasury_backend/internal/dto"
)

// TenantSvcFacade provisions and reads merchant accounts.
type TenantSvcFacade interface {
	CreateTenant(ctx context.Context, req dto.CreateTenantRequest, createdBy string) (*domain.Tenant, error)
	GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error)
}
