package mexc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"duoleg/internal/application/port"
	"duoleg/internal/domain/model"
)

const venueName = "mexc"

var numericID = regexp.MustCompile(`^[0-9]+$`)

// Client is the MEXC USDT-futures REST client. Market data comes from the
// public contract API; orders and balances authenticate with the web token.
type Client struct {
	baseURL         string // private endpoints (futures.mexc.com)
	contractBaseURL string // public contract endpoints (contract.mexc.com)
	webAuthToken    string
	supported       map[string]struct{}
	http            *http.Client
}

func New(baseURL, contractBaseURL, webAuthToken string, supported []string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://futures.mexc.com"
	}
	if contractBaseURL == "" {
		contractBaseURL = "https://contract.mexc.com"
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	sup := make(map[string]struct{}, len(supported))
	for _, s := range supported {
		sup[strings.ToUpper(s)] = struct{}{}
	}
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		contractBaseURL: strings.TrimRight(contractBaseURL, "/"),
		webAuthToken:    webAuthToken,
		supported:       sup,
		http:            &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return venueName }

// Depth returns the top of book; sizes are contract counts.
func (c *Client) Depth(ctx context.Context, symbol string) (model.Book, error) {
	u := fmt.Sprintf("%s/api/v1/contract/depth/%s?limit=5", c.contractBaseURL, url.PathEscape(symbol))
	var resp depthResp
	if err := c.getPublic(ctx, u, &resp); err != nil {
		return model.Book{}, model.NewVenueError(venueName, "depth", model.KindTransient, err)
	}
	if len(resp.Data.Asks) == 0 || len(resp.Data.Bids) == 0 {
		return model.Book{}, model.NewVenueError(venueName, "depth", model.KindTransient, errors.New("empty book"))
	}
	return model.Book{
		Symbol: symbol,
		Ask:    levelFromRow(resp.Data.Asks[0]),
		Bid:    levelFromRow(resp.Data.Bids[0]),
		TsMs:   time.Now().UnixMilli(),
	}, nil
}

// ContractMeta discovers contract precision and sizing. Both API hosts
// serve the detail endpoint; the private host is tried first, then the
// contract host.
func (c *Client) ContractMeta(ctx context.Context, symbol string) (model.FuturesMeta, error) {
	hosts := []string{c.baseURL, c.contractBaseURL}
	var lastErr error
	for _, host := range hosts {
		u := fmt.Sprintf("%s/api/v1/contract/detail?symbol=%s", host, url.QueryEscape(symbol))
		var resp contractDetailResp
		if err := c.getPublic(ctx, u, &resp); err != nil {
			lastErr = err
			continue
		}
		item, ok := resp.first()
		if !ok {
			lastErr = errors.New("empty contract detail")
			continue
		}
		return item.toMeta(), nil
	}
	return model.FuturesMeta{}, model.NewVenueError(venueName, "contract_meta", model.KindTransient, lastErr)
}

// SubmitOrder places a limit order in contracts. SideCode is the venue's
// directional code (3 = open short, 4 = close short), openType 1 = isolated.
func (c *Client) SubmitOrder(ctx context.Context, order port.FuturesOrder) (string, error) {
	leverage := order.Leverage
	if leverage <= 0 {
		leverage = 1
	}
	payload := map[string]any{
		"symbol":   order.Symbol,
		"price":    order.Price,
		"vol":      order.Contracts,
		"side":     order.SideCode,
		"openType": 1,
		"leverage": leverage,
		"type":     1, // limit
	}
	var resp submitResp
	if err := c.privateCall(ctx, http.MethodPost, "/api/v1/private/order/submit", payload, &resp); err != nil {
		return "", err
	}
	id := resp.orderID()
	if id == "" {
		return "", model.NewVenueError(venueName, "submit_order", model.KindBusiness,
			fmt.Errorf("order rejected: %s", resp.message()))
	}
	log.Info().
		Str("venue", venueName).
		Str("symbol", order.Symbol).
		Int("side_code", order.SideCode).
		Float64("price", order.Price).
		Float64("contracts", order.Contracts).
		Str("order_id", id).
		Msg("order placed")
	return id, nil
}

func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	var resp submitResp
	if err := c.privateCall(ctx, http.MethodPost, "/api/v1/private/order/cancel", []string{orderID}, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return model.NewVenueError(venueName, "cancel_order", model.KindBusiness,
			fmt.Errorf("cancel rejected: %s", resp.message()))
	}
	log.Info().Str("venue", venueName).Str("symbol", symbol).Str("order_id", orderID).Msg("order cancelled")
	return nil
}

// OrderDetail queries one fixed endpoint. The id must be numeric and the
// symbol one of the configured instruments; both checks predate the call
// because the venue answers garbage instead of errors otherwise.
func (c *Client) OrderDetail(ctx context.Context, symbol, orderID string) (model.OrderDetail, error) {
	if !numericID.MatchString(orderID) {
		return model.OrderDetail{}, model.NewVenueError(venueName, "order_detail", model.KindBusiness,
			fmt.Errorf("non-numeric order id %q", orderID))
	}
	if len(c.supported) > 0 {
		if _, ok := c.supported[strings.ToUpper(symbol)]; !ok {
			return model.OrderDetail{}, model.NewVenueError(venueName, "order_detail", model.KindBusiness,
				fmt.Errorf("unsupported instrument %q", symbol))
		}
	}
	var resp orderDetailResp
	path := "/api/v1/private/order/get/" + orderID
	if err := c.privateCall(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return model.OrderDetail{}, err
	}
	detail := resp.parse()
	detail.ID = orderID
	return detail, nil
}

// AvailableUSDT reads the futures wallet. The result is "unknown" rather
// than an error when the token is missing or the payload unparseable;
// callers branch on Unknown.
func (c *Client) AvailableUSDT(ctx context.Context) model.BalanceStatus {
	if c.webAuthToken == "" {
		return model.BalanceStatus{Unknown: true, Reason: "no_web_token"}
	}
	var resp assetsResp
	if err := c.privateCall(ctx, http.MethodGet, "/api/v1/private/account/assets", nil, &resp); err != nil {
		log.Warn().Err(err).Str("venue", venueName).Msg("balance lookup failed")
		return model.BalanceStatus{Unknown: true, Reason: "request_error"}
	}
	v, ok := resp.usdtAvailable()
	if !ok {
		return model.BalanceStatus{Unknown: true, Reason: "not_found"}
	}
	return model.BalanceStatus{Available: v}
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
		return fmt.Errorf("mexc http %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) privateCall(ctx context.Context, method, path string, body any, out any) error {
	op := method + " " + path
	if c.webAuthToken == "" {
		return model.NewVenueError(venueName, op, model.KindAuth, errors.New("web auth token not configured"))
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return model.NewVenueError(venueName, op, model.KindTransient, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return model.NewVenueError(venueName, op, model.KindTransient, err)
	}
	req.Header.Set("Authorization", c.webAuthToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.NewVenueError(venueName, op, model.KindTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NewVenueError(venueName, op, model.KindTransient, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return model.NewVenueError(venueName, op, model.KindAuth, errorFromBody(raw, resp.StatusCode))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		return model.NewVenueError(venueName, op, model.KindTransient,
			fmt.Errorf("non-JSON body (%s): http %d", ct, resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return model.NewVenueError(venueName, op, model.KindBusiness, errorFromBody(raw, resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return model.NewVenueError(venueName, op, model.KindTransient, fmt.Errorf("non-JSON body: %w", err))
	}
	return nil
}

// errorFromBody normalizes the venue's message wording into the short
// classes operators actually act on.
func errorFromBody(raw []byte, status int) error {
	var e struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(raw, &e); err == nil {
		msg = strings.ToLower(e.Msg)
		if msg == "" {
			msg = strings.ToLower(e.Message)
		}
	}
	switch {
	case strings.Contains(msg, "token") && strings.Contains(msg, "expire"):
		return fmt.Errorf("mexc http %d: token expired", status)
	case strings.Contains(msg, "param") || strings.Contains(msg, "invalid"):
		return fmt.Errorf("mexc http %d: invalid parameters", status)
	case strings.Contains(msg, "sign"):
		return fmt.Errorf("mexc http %d: invalid signature", status)
	case msg != "":
		return fmt.Errorf("mexc http %d: %s", status, msg)
	}
	return fmt.Errorf("mexc http %d: %s", status, string(raw))
}

func levelFromRow(row []float64) model.Level {
	l := model.Level{}
	if len(row) > 0 {
		l.Price = row[0]
	}
	if len(row) > 1 {
		l.Size = row[1]
	}
	return l
}
