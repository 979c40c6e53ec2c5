package dto

import (
	"time"

	"github.com/hodlpay/treasury_backend/internal/core/domain"
)

// ConnectExchangeRequest connects a tenant to an exchange provider.
// Credentials are sealed before they touch storage and never echoed back.
type ConnectExchangeRequest struct {
	Provider  string `json:"provider" binding:"required"`
	APIKey    string `json:"apiKey" binding:"required"`
	APISecret string `json:"apiSecret" binding:"required"`
}

// IntegrationResponse is the externally visible view of an integration.
// It deliberately carries no credential material.
type IntegrationResponse struct {
	IntegrationID string    `json:"integrationID"`
	Provider      string    `json:"provider"`
	IsActive      bool      `json:"isActive"`
	IsHealthy     bool      `json:"isHealthy"`
	LastCheckedAt time.Time `json:"lastCheckedAt"`
}

// ToIntegrationResponse converts a domain.Integration to its response DTO,
// dropping the credential blob.
func ToIntegrationResponse(integration *domain.Integration) IntegrationResponse {
	return IntegrationResponse{
		IntegrationID: integration.IntegrationID,
		Provider:      integration.Provider,
		IsActive:      integration.IsActive,
		IsHealthy:     integration.IsHealthy,
		LastCheckedAt: integration.LastCheckedAt,
	}
}
