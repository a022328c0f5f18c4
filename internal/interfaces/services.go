// Package interfaces defines service contracts for chartd
package interfaces

import (
	"context"
	"time"

	"github.com/chartstack/chartd/internal/models"
)

// QueryService answers chart data requests through the three-tier read
// path: cache, then store, then a sync against the external source
// when stored coverage is insufficient or stale.
type QueryService interface {
	// GetHistoricalData returns the price series for a symbol and
	// timeframe, ascending by date with no duplicate dates. The
	// Freshness value is FreshnessStale when a needed refresh failed
	// and the result fell back to whatever the store already had.
	GetHistoricalData(ctx context.Context, symbol, timeframe string) ([]models.PriceRecord, models.Freshness, error)

	// GetLatestPrice returns the most recent record within the 1W window.
	GetLatestPrice(ctx context.Context, symbol string) (*models.PriceRecord, error)

	// GetPriceRatio returns the symbolA/symbolB close-price ratio series
	// over the timeframe, ascending by date. Dates where symbolB closed
	// at zero are skipped.
	GetPriceRatio(ctx context.Context, symbolA, symbolB, timeframe string) ([]models.RatioPoint, error)

	// GetDateRange returns the stored date coverage for a symbol, or nil
	// when unknown. It never fails; storage errors degrade to nil.
	GetDateRange(ctx context.Context, symbol string) *models.DateRange

	// GetFundamentals returns the fundamental ratio series for a symbol,
	// ascending by date, syncing from the external source when the store
	// is empty or a reporting period overdue.
	GetFundamentals(ctx context.Context, symbol string) ([]models.FundamentalRecord, error)
}

// SyncService ingests external source data into the store. Operations
// never return a Go error; failures are captured in the SyncResult so
// batch callers can continue.
type SyncService interface {
	// SyncStock fetches, validates, and upserts daily price records for
	// symbol within [from, to]. Zero times default to the full history
	// window.
	SyncStock(ctx context.Context, symbol string, from, to time.Time) *models.SyncResult

	// SyncFundamentals fetches key metrics and income statements,
	// merges them by period date, derives YoY revenue growth, and
	// upserts the result.
	SyncFundamentals(ctx context.Context, symbol string) *models.SyncResult
}
