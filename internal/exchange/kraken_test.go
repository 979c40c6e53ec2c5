package exchange

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hodlpay/treasury_backend/internal/apperrors"
	"github.com/hodlpay/treasury_backend/internal/platform/providers"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCreds() Credentials {
	return Credentials{
		APIKey:    "test-key",
		APISecret: base64.StdEncoding.EncodeToString([]byte("test-secret")),
	}
}

func newTestKraken(t *testing.T, handler http.HandlerFunc) *krakenExchange {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	k := newKrakenExchange(testCreds(), 5*time.Second)
	k.baseURL = server.URL
	return k
}

func writeNoOrders(t *testing.T, w http.ResponseWriter, path string) bool {
	t.Helper()
	switch path {
	case "/0/private/OpenOrders":
		w.Write([]byte(`{"error":[],"result":{"open":{}}}`))
		return true
	case "/0/private/ClosedOrders":
		w.Write([]byte(`{"error":[],"result":{"closed":{}}}`))
		return true
	}
	return false
}

func TestKraken_PlaceOrder_Success(t *testing.T) {
	k := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("API-Key"))
		require.NotEmpty(t, r.Header.Get("API-Sign"))
		if writeNoOrders(t, w, r.URL.Path) {
			return
		}
		switch r.URL.Path {
		case "/0/private/AddOrder":
			require.NoError(t, r.ParseForm())
			require.NotEmpty(t, r.PostForm.Get("userref"))
			w.Write([]byte(`{"error":[],"result":{"txid":["OABC-123"]}}`))
		case "/0/private/QueryOrders":
			w.Write([]byte(`{"error":[],"result":{"OABC-123":{"cost":"100.00","fee":"1.00","price":"50000","vol_exec":"0.00198"}}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	order, err := k.PlaceOrder(context.Background(), "txn-1", decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, "OABC-123", order.OrderID)
	assert.True(t, order.AUDAmount.Equal(decimal.NewFromInt(99)), "aud net of fee, got %s", order.AUDAmount)
	assert.True(t, order.BTCAmount.Equal(decimal.RequireFromString("0.00198")))
	assert.True(t, order.Rate.Equal(decimal.NewFromInt(50000)))
	assert.True(t, order.Fee.Equal(decimal.NewFromInt(1)))
}

func TestKraken_PlaceOrder_InsufficientFundsIsRejected(t *testing.T) {
	k := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
		if writeNoOrders(t, w, r.URL.Path) {
			return
		}
		w.Write([]byte(`{"error":["EOrder:Insufficient funds"],"result":null}`))
	})

	_, err := k.PlaceOrder(context.Background(), "txn-1", decimal.NewFromInt(100))
	assert.ErrorIs(t, err, apperrors.ErrExchangeRejected)
}

func TestKraken_PlaceOrder_ServerErrorIsTransient(t *testing.T) {
	k := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := k.PlaceOrder(context.Background(), "txn-1", decimal.NewFromInt(100))
	assert.ErrorIs(t, err, apperrors.ErrExchangeUnavailable)
}

// A placement whose AddOrder went through but whose fill readback failed
// must not submit a second real order when retried with the same
// reference.
func TestKraken_PlaceOrder_RetryResumesExistingOrder(t *testing.T) {
	var addOrderCalls, queryCalls int
	var placed bool
	k := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/0/private/OpenOrders":
			w.Write([]byte(`{"error":[],"result":{"open":{}}}`))
		case "/0/private/ClosedOrders":
			if placed {
				w.Write([]byte(`{"error":[],"result":{"closed":{"OABC-123":{}}}}`))
			} else {
				w.Write([]byte(`{"error":[],"result":{"closed":{}}}`))
			}
		case "/0/private/AddOrder":
			addOrderCalls++
			placed = true
			w.Write([]byte(`{"error":[],"result":{"txid":["OABC-123"]}}`))
		case "/0/private/QueryOrders":
			queryCalls++
			if queryCalls == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`{"error":[],"result":{"OABC-123":{"cost":"100.00","fee":"1.00","price":"50000","vol_exec":"0.00198"}}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	_, err := k.PlaceOrder(context.Background(), "txn-1", decimal.NewFromInt(100))
	require.ErrorIs(t, err, apperrors.ErrExchangeUnavailable)

	order, err := k.PlaceOrder(context.Background(), "txn-1", decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, "OABC-123", order.OrderID)
	assert.True(t, order.BTCAmount.Equal(decimal.RequireFromString("0.00198")))
	assert.Equal(t, 1, addOrderCalls, "retried placement must resume the existing order, not buy again")
}

func TestKraken_InvalidKeyIsRejected(t *testing.T) {
	k := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":["EAPI:Invalid key"],"result":null}`))
	})

	_, err := k.GetBalance(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrExchangeRejected)
}

func TestKraken_Withdraw_Success(t *testing.T) {
	k := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/0/private/Withdraw", r.URL.Path)
		w.Write([]byte(`{"error":[],"result":{"refid":"WD-42"}}`))
	})

	wd, err := k.Withdraw(context.Background(), decimal.RequireFromString("0.001"), "merchant-cold-wallet")
	require.NoError(t, err)
	assert.Equal(t, "WD-42", wd.TxID)
}

func TestKraken_HealthCheck(t *testing.T) {
	k := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/0/public/SystemStatus", r.URL.Path)
		w.Write([]byte(`{"error":[],"result":{"status":"maintenance"}}`))
	})

	err := k.HealthCheck(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrExchangeUnavailable)
}

func TestFactory_UnimplementedProviderFailsClosed(t *testing.T) {
	f := NewFactory(providers.Load(), time.Second)

	ex := f.ForProvider(providers.CoinJar, testCreds())
	_, err := ex.PlaceOrder(context.Background(), "txn-1", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, apperrors.ErrExchangeUnavailable)

	err = ex.HealthCheck(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrExchangeUnavailable)
}

func TestParseCredentials(t *testing.T) {
	creds, err := ParseCredentials([]byte(`{"apiKey":"k","apiSecret":"s"}`))
	require.NoError(t, err)
	assert.Equal(t, "k", creds.APIKey)

	_, err = ParseCredentials([]byte(`{"apiKey":"k"}`))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = ParseCredentials([]byte(`not json`))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
