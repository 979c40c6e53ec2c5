package dto

import (
	"time"

	"github.com/hodlpay/treasury_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SubmitTransactionRequest is one inbound payment event from a payment
// processor webhook. ExternalID is the idempotency key.
type SubmitTransactionRequest struct {
	TenantID   string            `json:"tenantID" binding:"required,uuid"`
	ExternalID string            `json:"externalID" binding:"required"`
	Provider   string            `json:"provider" binding:"required"`
	Amount     decimal.Decimal   `json:"amount" binding:"required"`
	Currency   string            `json:"currency" binding:"required,len=3"`
	Metadata   map[string]string `json:"metadata"`
}

// TransactionResponse is the externally visible view of a transaction.
type TransactionResponse struct {
	TransactionID    string                   `json:"transactionID"`
	TenantID         string                   `json:"tenantID"`
	ExternalID       string                   `json:"externalID"`
	Provider         string                   `json:"provider"`
	Amount           decimal.Decimal          `json:"amount"`
	Currency         string                   `json:"currency"`
	Status           domain.TransactionStatus `json:"status"`
	ShouldConvert    bool                     `json:"shouldConvert"`
	ConversionAmount decimal.Decimal          `json:"conversionAmount"`
	ConversionFee    decimal.Decimal          `json:"conversionFee"`
	AppliedRuleID    *string                  `json:"appliedRuleID,omitempty"`
	FailureReason    *string                  `json:"failureReason,omitempty"`
	CreatedAt        time.Time                `json:"createdAt"`
	LastUpdatedAt    time.Time                `json:"lastUpdatedAt"`
}

// ToTransactionResponse converts a domain.Transaction to its response DTO.
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:    txn.TransactionID,
		TenantID:         txn.TenantID,
		ExternalID:       txn.ExternalID,
		Provider:         txn.Provider,
		Amount:           txn.Amount,
		Currency:         txn.Currency,
		Status:           txn.Status,
		ShouldConvert:    txn.ShouldConvert,
		ConversionAmount: txn.ConversionAmount,
		ConversionFee:    txn.ConversionFee,
		AppliedRuleID:    txn.AppliedRuleID,
		FailureReason:    txn.FailureReason,
		CreatedAt:        txn.CreatedAt,
		LastUpdatedAt:    txn.LastUpdatedAt,
	}
}

// TransactionEventResponse is one audit fact in the compliance trail.
type TransactionEventResponse struct {
	FromStatus domain.TransactionStatus `json:"fromStatus"`
	ToStatus   domain.TransactionStatus `json:"toStatus"`
	Cause      string                   `json:"cause"`
	OccurredAt time.Time                `json:"occurredAt"`
}

// ToTransactionEventResponses converts audit facts to their response DTOs.
func ToTransactionEventResponses(events []domain.TransactionEvent) []TransactionEventResponse {
	res := make([]TransactionEventResponse, len(events))
	for i, ev := range events {
		res[i] = TransactionEventResponse{
			FromStatus: ev.FromStatus,
			ToStatus:   ev.ToStatus,
			Cause:      ev.Cause,
			OccurredAt: ev.OccurredAt,
		}
	}
	return res
}
