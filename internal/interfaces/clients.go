// Package interfaces defines service contracts for chartd
package interfaces

import (
	"context"
	"fmt"
	"time"

	"github.com/chartstack/chartd/internal/common"
	"github.com/chartstack/chartd/internal/models"
)

// MarketDataClient provides access to the external financial data API.
// Implementations are safe for concurrent use and enforce their own
// rate limit and request timeout.
type MarketDataClient interface {
	// GetHistoricalPrices retrieves raw daily price bars for a symbol
	// within [from, to]. Rows are returned unvalidated, in upstream order.
	GetHistoricalPrices(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error)

	// GetKeyMetrics retrieves quarterly key-metrics periods, most recent first.
	GetKeyMetrics(ctx context.Context, symbol string, limit int) ([]models.KeyMetrics, error)

	// GetIncomeStatements retrieves quarterly income statements, most recent first.
	GetIncomeStatements(ctx context.Context, symbol string, limit int) ([]models.IncomeStatement, error)
}

// UpstreamErrorKind classifies an external source failure.
type UpstreamErrorKind string

const (
	UpstreamRateLimited  UpstreamErrorKind = "rate_limited"
	UpstreamUnauthorized UpstreamErrorKind = "unauthorized"
	UpstreamTimeout      UpstreamErrorKind = "timeout"
	UpstreamNetwork      UpstreamErrorKind = "network"
	UpstreamBadPayload   UpstreamErrorKind = "bad_payload"
	UpstreamOther        UpstreamErrorKind = "other"
)

// UpstreamError is a classified external source failure. StatusCode is
// zero for transport-level failures.
type UpstreamError struct {
	Kind       UpstreamErrorKind
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream %s error: %s (status: %d, endpoint: %s)", e.Kind, e.Message, e.StatusCode, e.Endpoint)
	}
	return fmt.Sprintf("upstream %s error: %s (endpoint: %s)", e.Kind, e.Message, e.Endpoint)
}

func (e *UpstreamError) Unwrap() error { return common.ErrUpstream }
