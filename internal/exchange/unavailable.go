package exchange

import (
	"context"
	"fmt"

	"github.com/hodlpay/treasury_backend/internal/apperrors"
	"github.com/shopspring/decimal"
)

// unavailableExchange is the fail-closed adapter for providers without an
// implementation. Every operation errors; nothing silently no-ops.
type unavailableExchange struct {
	provider string
}

var _ Exchange = (*unavailableExchange)(nil)

func (u *unavailableExchange) err() error {
	return fmt.Errorf("%w: provider %s is not available", apperrors.ErrExchangeUnavailable, u.provider)
}

func (u *unavailableExchange) Name() string { return u.provider }

func (u *unavailableExchange) GetBalance(ctx context.Context) (Balance, error) {
	return Balance{}, u.err()
}

func (u *unavailableExchange) GetTradingFees(ctx context.Context) (Fees, error) {
	return Fees{}, u.err()
}

func (u *unavailableExchange) GetWithdrawalFees(ctx context.Context) (Fees, error) {
	return Fees{}, u.err()
}

func (u *unavailableExchange) PlaceOrder(ctx context.Context, clientRef string, audAmount decimal.Decimal) (Order, error) {
	return Order{}, u.err()
}

func (u *unavailableExchange) Withdraw(ctx context.Context, btcAmount decimal.Decimal, address string) (Withdrawal, error) {
	return Withdrawal{}, u.err()
}

func (u *unavailableExchange) HealthCheck(ctx context.Context) error {
	return u.err()
}
