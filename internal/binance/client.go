package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const positionRiskPath = "/fapi/v3/positionRisk"
const orderPath = "/fapi/v1/order"

// Client talks to the Binance USDT-M futures REST API. It covers exactly the
// surface the hedge monitor needs: reading positions and placing market sell /
// reduce-only buy orders. It never retries; the driver owns failure policy.
type Client struct {
	baseURL      string
	apiKey       string
	apiSecret    string
	recvWindowMS int64
	http         *http.Client
	log          *zap.Logger
}

func New(baseURL string, timeout time.Duration, recvWindowMS int64, apiKey, apiSecret string, log *zap.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(apiSecret) == "" {
		return nil, errors.New("binance api key and secret are required")
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		apiSecret:    apiSecret,
		recvWindowMS: recvWindowMS,
		http:         &http.Client{Timeout: timeout},
		log:          log,
	}, nil
}

// Positions returns the positionRisk entries for symbol. Numeric fields are
// left as strings.
func (c *Client) Positions(ctx context.Context, symbol string) ([]Position, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	body, err := c.signedRequest(ctx, http.MethodGet, positionRiskPath, params)
	if err != nil {
		return nil, fmt.Errorf("position risk: %w", err)
	}
	var positions []Position
	if err := json.Unmarshal(body, &positions); err != nil {
		return nil, fmt.Errorf("position risk decode: %w", err)
	}
	return positions, nil
}

// OpenSell places a market sell to grow the short hedge.
func (c *Client) OpenSell(ctx context.Context, symbol, quantity string) (*OrderResult, error) {
	return c.placeMarketOrder(ctx, symbol, "SELL", quantity, false)
}

// CloseSell places a reduce-only market buy to shrink the short hedge. The
// reduceOnly flag guarantees the order can never flip the position long.
func (c *Client) CloseSell(ctx context.Context, symbol, quantity string) (*OrderResult, error) {
	return c.placeMarketOrder(ctx, symbol, "BUY", quantity, true)
}

func (c *Client) placeMarketOrder(ctx context.Context, symbol, side, quantity string, reduceOnly bool) (*OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", "MARKET")
	params.Set("quantity", quantity)
	if reduceOnly {
		params.Set("reduceOnly", "true")
	}
	body, err := c.signedRequest(ctx, http.MethodPost, orderPath, params)
	if err != nil {
		return nil, fmt.Errorf("%s %s order: %w", strings.ToLower(side), symbol, err)
	}
	var result OrderResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("order decode: %w", err)
	}
	if c.log != nil {
		c.log.Info("futures order placed",
			zap.String("symbol", symbol),
			zap.String("side", side),
			zap.String("quantity", quantity),
			zap.Bool("reduce_only", reduceOnly),
			zap.Int64("order_id", result.OrderID),
		)
	}
	return &result, nil
}

func (c *Client) signedRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	query := signedQuery(c.apiSecret, params, c.recvWindowMS)
	var req *http.Request
	var err error
	switch method {
	case http.MethodGet, http.MethodDelete:
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query, nil)
	default:
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(query))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("http %d: binance %d: %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
