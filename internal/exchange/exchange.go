// Package exchange isolates Bitcoin exchange provider differences behind a
// single capability interface. One implementation exists per provider;
// providers without an implementation fail closed.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hodlpay/treasury_backend/internal/apperrors"
	"github.com/hodlpay/treasury_backend/internal/platform/providers"
	"github.com/shopspring/decimal"
)

// Credentials are a provider's decrypted API credentials. They live only
// for the duration of a call and must never be logged.
type Credentials struct {
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

// ParseCredentials decodes a decrypted credential blob.
func ParseCredentials(raw []byte) (Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, fmt.Errorf("%w: malformed exchange credentials", apperrors.ErrValidation)
	}
	if creds.APIKey == "" || creds.APISecret == "" {
		return Credentials{}, fmt.Errorf("%w: exchange credentials missing key or secret", apperrors.ErrValidation)
	}
	return creds, nil
}

// Balance is the exchange account balance snapshot.
type Balance struct {
	AUD decimal.Decimal
	BTC decimal.Decimal
}

// Fees reports the exchange's current fee schedule.
type Fees struct {
	TradingFeeRate decimal.Decimal // fraction of order value
	WithdrawalFee  decimal.Decimal // flat BTC fee per withdrawal
}

// Order is the result of a market buy.
type Order struct {
	OrderID   string
	AUDAmount decimal.Decimal // AUD spent net of the exchange fee
	BTCAmount decimal.Decimal // BTC acquired
	Rate      decimal.Decimal // AUD per BTC
	Fee       decimal.Decimal // AUD taken by the exchange
}

// Withdrawal is the result of moving BTC to the customer's own wallet.
type Withdrawal struct {
	TxID string
}

// Exchange is the uniform capability interface over one provider.
// All long-latency calls take a context and honour its deadline.
//
// PlaceOrder takes a caller-stable clientRef: adapters must make repeated
// placements with the same clientRef resolve to one real order, so the
// orchestrator can retry the whole call after a transient failure without
// buying twice.
type Exchange interface {
	Name() string
	GetBalance(ctx context.Context) (Balance, error)
	GetTradingFees(ctx context.Context) (Fees, error)
	GetWithdrawalFees(ctx context.Context) (Fees, error)
	PlaceOrder(ctx context.Context, clientRef string, audAmount decimal.Decimal) (Order, error)
	Withdraw(ctx context.Context, btcAmount decimal.Decimal, address string) (Withdrawal, error)
	HealthCheck(ctx context.Context) error
}

// AdapterFactory resolves a provider name and decrypted credentials into
// an Exchange adapter. Satisfied by *Factory.
type AdapterFactory interface {
	ForProvider(provider string, creds Credentials) Exchange
}

// Factory builds Exchange instances from decrypted credentials, keyed on
// provider name against the process-wide capability map.
type Factory struct {
	providerMap providers.Map
	callTimeout time.Duration
}

// NewFactory creates an exchange factory.
func NewFactory(providerMap providers.Map, callTimeout time.Duration) *Factory {
	return &Factory{providerMap: providerMap, callTimeout: callTimeout}
}

// ForProvider returns the adapter for the named provider. Unknown and
// coming-soon providers get the fail-closed stub rather than an absent
// entry, so every call site sees a uniform error.
func (f *Factory) ForProvider(provider string, creds Credentials) Exchange {
	if !f.providerMap.IsEnabled(provider) {
		return &unavailableExchange{provider: provider}
	}
	switch provider {
	case providers.Kraken:
		return newKrakenExchange(creds, f.callTimeout)
	default:
		return &unavailableExchange{provider: provider}
	}
}
