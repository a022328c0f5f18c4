// Package fmp provides a client for the Financial Modeling Prep API
package fmp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/chartstack/chartd/internal/common"
	"github.com/chartstack/chartd/internal/interfaces"
	"github.com/chartstack/chartd/internal/models"
)

const (
	DefaultBaseURL   = "https://financialmodelingprep.com/api/v3"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client implements the MarketDataClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new FMP client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs a rate-limited GET request and returns the raw body.
// Failures are classified into interfaces.UpstreamError so callers can
// distinguish rate limits, auth failures, timeouts, and network errors.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("FMP API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &interfaces.UpstreamError{
			Kind:     interfaces.UpstreamNetwork,
			Endpoint: path,
			Message:  err.Error(),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &interfaces.UpstreamError{
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Endpoint:   path,
			Message:    string(body),
		}
	}

	return body, nil
}

// classifyStatus maps an HTTP status to an upstream error kind.
func classifyStatus(status int) interfaces.UpstreamErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return interfaces.UpstreamRateLimited
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusPaymentRequired:
		return interfaces.UpstreamUnauthorized
	default:
		return interfaces.UpstreamOther
	}
}

// classifyTransportError maps a transport failure to an upstream error.
func classifyTransportError(path string, err error) error {
	kind := interfaces.UpstreamNetwork
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		kind = interfaces.UpstreamTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		kind = interfaces.UpstreamTimeout
	}
	return &interfaces.UpstreamError{
		Kind:     kind,
		Endpoint: path,
		Message:  err.Error(),
	}
}

// historicalEnvelope is the wrapped response shape for historical
// prices: {"symbol": "...", "historical": [...]}. Older endpoints
// return the bars as a bare array instead.
type historicalEnvelope struct {
	Symbol     string            `json:"symbol"`
	Historical []models.PriceBar `json:"historical"`
}

// GetHistoricalPrices retrieves raw daily price bars for a symbol.
// The endpoint has returned two shapes over time, a bare array and an
// object wrapping the array, distinguished by the leading token.
func (c *Client) GetHistoricalPrices(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
	params := url.Values{}
	if !from.IsZero() {
		params.Set("from", from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		params.Set("to", to.Format("2006-01-02"))
	}

	path := fmt.Sprintf("/historical-price-full/%s", url.PathEscape(symbol))

	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	bars, err := parseHistoricalPayload(body)
	if err != nil {
		return nil, &interfaces.UpstreamError{
			Kind:     interfaces.UpstreamBadPayload,
			Endpoint: path,
			Message:  err.Error(),
		}
	}

	c.logger.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("FMP historical prices fetched")

	return bars, nil
}

// parseHistoricalPayload decodes either response shape by checking the
// first JSON token rather than probing fields.
func parseHistoricalPayload(body []byte) ([]models.PriceBar, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var bars []models.PriceBar
		if err := json.Unmarshal(trimmed, &bars); err != nil {
			return nil, fmt.Errorf("failed to decode bar array: %w", err)
		}
		return bars, nil
	case '{':
		var envelope historicalEnvelope
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode historical envelope: %w", err)
		}
		return envelope.Historical, nil
	default:
		return nil, fmt.Errorf("unexpected payload starting with %q", trimmed[0])
	}
}

// GetKeyMetrics retrieves quarterly key-metrics periods, most recent first.
func (c *Client) GetKeyMetrics(ctx context.Context, symbol string, limit int) ([]models.KeyMetrics, error) {
	params := url.Values{}
	params.Set("period", "quarter")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	path := fmt.Sprintf("/key-metrics/%s", url.PathEscape(symbol))

	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var metrics []models.KeyMetrics
	if err := json.Unmarshal(body, &metrics); err != nil {
		return nil, &interfaces.UpstreamError{
			Kind:     interfaces.UpstreamBadPayload,
			Endpoint: path,
			Message:  err.Error(),
		}
	}

	return metrics, nil
}

// GetIncomeStatements retrieves quarterly income statements, most recent first.
func (c *Client) GetIncomeStatements(ctx context.Context, symbol string, limit int) ([]models.IncomeStatement, error) {
	params := url.Values{}
	params.Set("period", "quarter")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	path := fmt.Sprintf("/income-statement/%s", url.PathEscape(symbol))

	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var statements []models.IncomeStatement
	if err := json.Unmarshal(body, &statements); err != nil {
		return nil, &interfaces.UpstreamError{
			Kind:     interfaces.UpstreamBadPayload,
			Endpoint: path,
			Message:  err.Error(),
		}
	}

	return statements, nil
}

// Ensure Client implements MarketDataClient
var _ interfaces.MarketDataClient = (*Client)(nil)
