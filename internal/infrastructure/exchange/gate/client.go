package gate

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"duoleg/internal/domain/model"
)

const venueName = "gate"

// Client is the Gate.io spot REST client. Public endpoints (book, pair
// meta) work without credentials; orders and balances need key/secret.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
}

func New(baseURL, apiKey, apiSecret string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.gateio.ws"
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http:      &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return venueName }

// OrderBook fetches the public depth and keeps the best level per side.
func (c *Client) OrderBook(ctx context.Context, symbol string) (model.Book, error) {
	u := fmt.Sprintf("%s/api/v4/spot/order_book?currency_pair=%s", c.baseURL, url.QueryEscape(symbol))
	var resp bookResp
	if err := c.getPublic(ctx, u, &resp); err != nil {
		return model.Book{}, model.NewVenueError(venueName, "order_book", model.KindTransient, err)
	}
	if len(resp.Asks) == 0 || len(resp.Bids) == 0 {
		return model.Book{}, model.NewVenueError(venueName, "order_book", model.KindTransient, errors.New("empty book"))
	}
	return model.Book{
		Symbol: symbol,
		Ask:    levelFromPair(resp.Asks[0]),
		Bid:    levelFromPair(resp.Bids[0]),
		TsMs:   time.Now().UnixMilli(),
	}, nil
}

// PairMeta discovers per-pair precision and minimums from the public
// currency-pairs endpoint.
func (c *Client) PairMeta(ctx context.Context, symbol string) (model.SpotMeta, error) {
	u := fmt.Sprintf("%s/api/v4/spot/currency_pairs?currency_pair=%s", c.baseURL, url.QueryEscape(symbol))
	var raw json.RawMessage
	if err := c.getPublic(ctx, u, &raw); err != nil {
		return model.SpotMeta{}, model.NewVenueError(venueName, "pair_meta", model.KindTransient, err)
	}

	// The endpoint answers with either a single object or a one-element
	// array depending on the query form.
	var item pairMeta
	var arr []pairMeta
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) > 0 {
		item = arr[0]
	} else if err := json.Unmarshal(raw, &item); err != nil {
		return model.SpotMeta{}, model.NewVenueError(venueName, "pair_meta", model.KindTransient, err)
	}
	return model.SpotMeta{
		PriceScale: item.Precision,
		QtyScale:   item.AmountPrecision,
		MinQty:     parseF(item.MinBaseAmount),
		MinQuote:   parseF(item.MinQuoteAmount),
	}, nil
}

// SubmitOrder places a spot limit order. Price and amount arrive already
// rounded to the pair's scales.
func (c *Client) SubmitOrder(ctx context.Context, symbol, side, price, amount string) (string, error) {
	body := map[string]string{
		"currency_pair": symbol,
		"type":          "limit",
		"account":       "spot",
		"side":          side,
		"price":         price,
		"amount":        amount,
	}
	var resp orderResp
	if err := c.signedCall(ctx, http.MethodPost, "/api/v4/spot/orders", "", body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", model.NewVenueError(venueName, "submit_order", model.KindBusiness, errors.New("no order id in response"))
	}
	log.Info().
		Str("venue", venueName).
		Str("symbol", symbol).
		Str("side", side).
		Str("price", price).
		Str("amount", amount).
		Str("order_id", resp.ID).
		Msg("order placed")
	return resp.ID, nil
}

func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	path := "/api/v4/spot/orders/" + url.PathEscape(orderID)
	query := "currency_pair=" + url.QueryEscape(symbol)
	if err := c.signedCall(ctx, http.MethodDelete, path, query, nil, nil); err != nil {
		return err
	}
	log.Info().Str("venue", venueName).Str("symbol", symbol).Str("order_id", orderID).Msg("order cancelled")
	return nil
}

// OrderDetail looks one order up. An unknown id maps to
// model.ErrOrderNotFound so the reconciler can apply its policy.
func (c *Client) OrderDetail(ctx context.Context, symbol, orderID string) (model.OrderDetail, error) {
	path := "/api/v4/spot/orders/" + url.PathEscape(orderID)
	query := "currency_pair=" + url.QueryEscape(symbol)
	var resp orderResp
	if err := c.signedCall(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return model.OrderDetail{}, err
	}
	filled := parseF(resp.FilledAmount)
	total := parseF(resp.Amount)
	left := parseF(resp.Left)
	if resp.Left == "" && total > 0 {
		left = total - filled
	}
	return model.OrderDetail{
		ID:        resp.ID,
		Status:    strings.ToLower(resp.Status),
		Filled:    filled,
		Total:     total,
		Remaining: left,
		AvgPrice:  parseF(resp.AvgDealPrice),
	}, nil
}

// Balances returns available/locked for the pair's base, quote and USDT.
func (c *Client) Balances(ctx context.Context, symbol string) (map[string]model.AssetBalance, error) {
	var resp []accountResp
	if err := c.signedCall(ctx, http.MethodGet, "/api/v4/spot/accounts", "", nil, &resp); err != nil {
		return nil, err
	}
	base, quote := model.BaseAsset(symbol), model.QuoteAsset(symbol)
	want := map[string]struct{}{base: {}, quote: {}, "USDT": {}}
	out := make(map[string]model.AssetBalance)
	for _, a := range resp {
		cur := strings.ToUpper(a.Currency)
		if _, ok := want[cur]; !ok {
			continue
		}
		out[cur] = model.AssetBalance{Available: parseF(a.Available), Locked: parseF(a.Locked)}
	}
	return out, nil
}

func (c *Client) getPublic(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gate http %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// signedCall performs an authenticated v4 request and classifies failures.
func (c *Client) signedCall(ctx context.Context, method, path, query string, body any, out any) error {
	op := method + " " + path

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return model.NewVenueError(venueName, op, model.KindTransient, err)
		}
	}

	endpoint := c.baseURL + path
	if query != "" {
		endpoint += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return model.NewVenueError(venueName, op, model.KindTransient, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.sign(req, method, path, query, payload)

	resp, err := c.http.Do(req)
	if err != nil {
		return model.NewVenueError(venueName, op, model.KindTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NewVenueError(venueName, op, model.KindTransient, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return model.NewVenueError(venueName, op, model.KindAuth, apiError(raw, resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return model.NewVenueError(venueName, op, model.KindNotFound, model.ErrOrderNotFound)
	case resp.StatusCode >= 400:
		apiErr := apiError(raw, resp.StatusCode)
		if strings.Contains(apiErr.Error(), "ORDER_NOT_FOUND") {
			return model.NewVenueError(venueName, op, model.KindNotFound, model.ErrOrderNotFound)
		}
		return model.NewVenueError(venueName, op, model.KindBusiness, apiErr)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return model.NewVenueError(venueName, op, model.KindTransient, fmt.Errorf("non-JSON body: %w", err))
	}
	return nil
}

// sign applies the v4 HMAC-SHA512 scheme:
// SIGN = hex(hmac(secret, method\npath\nquery\nsha512(body)\ntimestamp)).
func (c *Client) sign(req *http.Request, method, path, query string, payload []byte) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	bodyHash := sha512.Sum512(payload)
	msg := strings.Join([]string{method, path, query, hex.EncodeToString(bodyHash[:]), ts}, "\n")
	mac := hmac.New(sha512.New, []byte(c.apiSecret))
	mac.Write([]byte(msg))
	req.Header.Set("KEY", c.apiKey)
	req.Header.Set("Timestamp", ts)
	req.Header.Set("SIGN", hex.EncodeToString(mac.Sum(nil)))
}

func apiError(raw []byte, status int) error {
	var e struct {
		Label   string `json:"label"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &e); err == nil && (e.Label != "" || e.Message != "") {
		return fmt.Errorf("gate http %d: %s %s", status, e.Label, e.Message)
	}
	return fmt.Errorf("gate http %d: %s", status, string(raw))
}

func levelFromPair(pair [2]string) model.Level {
	return model.Level{Price: parseF(pair[0]), Size: parseF(pair[1])}
}

func parseF(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
