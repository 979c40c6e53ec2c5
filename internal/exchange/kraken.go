package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hodlpay/treasury_backend/internal/apperrors"
	"github.com/shopspring/decimal"
)

const (
	krakenBaseURL = "https://api.kraken.com"
	krakenPair    = "XBTAUD"
)

// krakenExchange is the reference adapter implementation.
type krakenExchange struct {
	creds      Credentials
	httpClient *http.Client
	baseURL    string
	nonce      func() int64
}

var _ Exchange = (*krakenExchange)(nil)

func newKrakenExchange(creds Credentials, callTimeout time.Duration) *krakenExchange {
	return &krakenExchange{
		creds:      creds,
		httpClient: &http.Client{Timeout: callTimeout},
		baseURL:    krakenBaseURL,
		nonce:      func() int64 { return time.Now().UnixNano() },
	}
}

func (k *krakenExchange) Name() string { return "kraken" }

// krakenResponse is the common envelope of every Kraken API response.
type krakenResponse struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// classifyKrakenError maps Kraken error strings to the transient/permanent
// split the orchestrator's retry policy depends on. EAPI (credentials),
// EOrder and EFunding (balance, bad order) are rejections and never
// retried; everything else is treated as transient.
func classifyKrakenError(apiErrors []string) error {
	msg := strings.Join(apiErrors, "; ")
	for _, e := range apiErrors {
		if strings.HasPrefix(e, "EAPI:") || strings.HasPrefix(e, "EOrder:") || strings.HasPrefix(e, "EFunding:") {
			return fmt.Errorf("%w: %s", apperrors.ErrExchangeRejected, msg)
		}
	}
	return fmt.Errorf("%w: %s", apperrors.ErrExchangeUnavailable, msg)
}

// sign produces the API-Sign header: HMAC-SHA512 of the URI path and
// SHA256(nonce || POST data), keyed with the base64-decoded API secret.
func (k *krakenExchange) sign(path string, nonce string, postData string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(k.creds.APISecret)
	if err != nil {
		return "", fmt.Errorf("%w: API secret is not valid base64", apperrors.ErrExchangeRejected)
	}
	sha := sha256.Sum256([]byte(nonce + postData))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(sha[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (k *krakenExchange) private(ctx context.Context, endpoint string, params url.Values, out any) error {
	path := "/0/private/" + endpoint
	if params == nil {
		params = url.Values{}
	}
	nonce := strconv.FormatInt(k.nonce(), 10)
	params.Set("nonce", nonce)
	postData := params.Encode()

	signature, err := k.sign(path, nonce, postData)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+path, strings.NewReader(postData))
	if err != nil {
		return fmt.Errorf("failed to build kraken request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", k.creds.APIKey)
	req.Header.Set("API-Sign", signature)

	return k.do(req, out)
}

func (k *krakenExchange) public(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.baseURL+"/0/public/"+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build kraken request: %w", err)
	}
	return k.do(req, out)
}

func (k *krakenExchange) do(req *http.Request, out any) error {
	resp, err := k.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrExchangeUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", apperrors.ErrExchangeUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: kraken returned status %d", apperrors.ErrExchangeUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: kraken returned status %d", apperrors.ErrExchangeRejected, resp.StatusCode)
	}

	var envelope krakenResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%w: malformed kraken response: %v", apperrors.ErrExchangeUnavailable, err)
	}
	if len(envelope.Error) > 0 {
		return classifyKrakenError(envelope.Error)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("%w: malformed kraken result: %v", apperrors.ErrExchangeUnavailable, err)
		}
	}
	return nil
}

func (k *krakenExchange) GetBalance(ctx context.Context) (Balance, error) {
	var result map[string]string
	if err := k.private(ctx, "Balance", nil, &result); err != nil {
		return Balance{}, err
	}
	balance := Balance{AUD: decimal.Zero, BTC: decimal.Zero}
	if aud, ok := result["ZAUD"]; ok {
		parsed, err := decimal.NewFromString(aud)
		if err != nil {
			return Balance{}, fmt.Errorf("%w: unparseable AUD balance", apperrors.ErrExchangeUnavailable)
		}
		balance.AUD = parsed
	}
	if btc, ok := result["XXBT"]; ok {
		parsed, err := decimal.NewFromString(btc)
		if err != nil {
			return Balance{}, fmt.Errorf("%w: unparseable BTC balance", apperrors.ErrExchangeUnavailable)
		}
		balance.BTC = parsed
	}
	return balance, nil
}

func (k *krakenExchange) GetTradingFees(ctx context.Context) (Fees, error) {
	params := url.Values{}
	params.Set("pair", krakenPair)
	var result struct {
		Fees map[string]struct {
			Fee string `json:"fee"`
		} `json:"fees"`
	}
	if err := k.private(ctx, "TradeVolume", params, &result); err != nil {
		return Fees{}, err
	}
	pairFees, ok := result.Fees[krakenPair]
	if !ok {
		return Fees{}, fmt.Errorf("%w: no fee schedule for %s", apperrors.ErrExchangeUnavailable, krakenPair)
	}
	feePercent, err := decimal.NewFromString(pairFees.Fee)
	if err != nil {
		return Fees{}, fmt.Errorf("%w: unparseable fee schedule", apperrors.ErrExchangeUnavailable)
	}
	// Kraken reports fees in percent.
	return Fees{TradingFeeRate: feePercent.Div(decimal.NewFromInt(100))}, nil
}

func (k *krakenExchange) GetWithdrawalFees(ctx context.Context) (Fees, error) {
	params := url.Values{}
	params.Set("asset", "XBT")
	var result map[string]struct {
		Fee struct {
			Fee string `json:"fee"`
		} `json:"fee"`
	}
	if err := k.private(ctx, "WithdrawMethods", params, &result); err != nil {
		return Fees{}, err
	}
	for _, method := range result {
		fee, err := decimal.NewFromString(method.Fee.Fee)
		if err != nil {
			continue
		}
		return Fees{WithdrawalFee: fee}, nil
	}
	return Fees{}, fmt.Errorf("%w: no withdrawal method for XBT", apperrors.ErrExchangeUnavailable)
}

// orderUserref derives Kraken's int32 userref from the client reference.
// The tag is what lets a retried placement recognise its own earlier order.
func orderUserref(clientRef string) int32 {
	h := fnv.New32a()
	h.Write([]byte(clientRef))
	return int32(h.Sum32() & 0x7fffffff)
}

// findOrderByRef looks for an order already tagged with this userref, open
// or closed. Returns the order id when one exists.
func (k *krakenExchange) findOrderByRef(ctx context.Context, userref int32) (string, bool, error) {
	ref := strconv.FormatInt(int64(userref), 10)

	params := url.Values{}
	params.Set("userref", ref)
	var open struct {
		Open map[string]json.RawMessage `json:"open"`
	}
	if err := k.private(ctx, "OpenOrders", params, &open); err != nil {
		return "", false, err
	}
	for txid := range open.Open {
		return txid, true, nil
	}

	params = url.Values{}
	params.Set("userref", ref)
	var closed struct {
		Closed map[string]json.RawMessage `json:"closed"`
	}
	if err := k.private(ctx, "ClosedOrders", params, &closed); err != nil {
		return "", false, err
	}
	for txid := range closed.Closed {
		return txid, true, nil
	}
	return "", false, nil
}

// PlaceOrder executes a market buy of BTC for the given AUD amount
// (volume expressed in the quote currency) and reads back the fill.
// Idempotent on clientRef: if an order tagged with this reference already
// exists, AddOrder succeeded on an earlier attempt whose fill readback was
// lost, and only the readback is resumed.
func (k *krakenExchange) PlaceOrder(ctx context.Context, clientRef string, audAmount decimal.Decimal) (Order, error) {
	userref := orderUserref(clientRef)

	orderID, found, err := k.findOrderByRef(ctx, userref)
	if err != nil {
		return Order{}, err
	}
	if !found {
		params := url.Values{}
		params.Set("pair", krakenPair)
		params.Set("type", "buy")
		params.Set("ordertype", "market")
		params.Set("oflags", "viqc")
		params.Set("volume", audAmount.String())
		params.Set("userref", strconv.FormatInt(int64(userref), 10))

		var placed struct {
			Txid []string `json:"txid"`
		}
		if err := k.private(ctx, "AddOrder", params, &placed); err != nil {
			return Order{}, err
		}
		if len(placed.Txid) == 0 {
			return Order{}, fmt.Errorf("%w: AddOrder returned no order id", apperrors.ErrExchangeUnavailable)
		}
		orderID = placed.Txid[0]
	}

	fill, err := k.queryOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	fill.OrderID = orderID
	return fill, nil
}

func (k *krakenExchange) queryOrder(ctx context.Context, orderID string) (Order, error) {
	params := url.Values{}
	params.Set("txid", orderID)
	var result map[string]struct {
		Cost    string `json:"cost"`
		Fee     string `json:"fee"`
		Price   string `json:"price"`
		VolExec string `json:"vol_exec"`
	}
	if err := k.private(ctx, "QueryOrders", params, &result); err != nil {
		return Order{}, err
	}
	info, ok := result[orderID]
	if !ok {
		return Order{}, fmt.Errorf("%w: order %s not found after placement", apperrors.ErrExchangeUnavailable, orderID)
	}

	cost, err := decimal.NewFromString(info.Cost)
	if err != nil {
		return Order{}, fmt.Errorf("%w: unparseable order cost", apperrors.ErrExchangeUnavailable)
	}
	fee, err := decimal.NewFromString(info.Fee)
	if err != nil {
		return Order{}, fmt.Errorf("%w: unparseable order fee", apperrors.ErrExchangeUnavailable)
	}
	price, err := decimal.NewFromString(info.Price)
	if err != nil {
		return Order{}, fmt.Errorf("%w: unparseable order price", apperrors.ErrExchangeUnavailable)
	}
	volume, err := decimal.NewFromString(info.VolExec)
	if err != nil {
		return Order{}, fmt.Errorf("%w: unparseable executed volume", apperrors.ErrExchangeUnavailable)
	}

	return Order{
		AUDAmount: cost.Sub(fee),
		BTCAmount: volume,
		Rate:      price,
		Fee:       fee,
	}, nil
}

// Withdraw moves BTC to the customer wallet. The address must be registered
// as a withdrawal key on the Kraken account; Kraken refuses free-form
// addresses on the API.
func (k *krakenExchange) Withdraw(ctx context.Context, btcAmount decimal.Decimal, address string) (Withdrawal, error) {
	params := url.Values{}
	params.Set("asset", "XBT")
	params.Set("key", address)
	params.Set("amount", btcAmount.String())

	var result struct {
		RefID string `json:"refid"`
	}
	if err := k.private(ctx, "Withdraw", params, &result); err != nil {
		return Withdrawal{}, err
	}
	if result.RefID == "" {
		return Withdrawal{}, fmt.Errorf("%w: withdrawal returned no reference id", apperrors.ErrExchangeUnavailable)
	}
	return Withdrawal{TxID: result.RefID}, nil
}

// HealthCheck verifies the exchange is reachable and accepting orders.
func (k *krakenExchange) HealthCheck(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	if err := k.public(ctx, "SystemStatus", &status); err != nil {
		return err
	}
	if status.Status != "online" {
		return fmt.Errorf("%w: kraken system status is %s", apperrors.ErrExchangeUnavailable, status.Status)
	}
	return nil
}
