// Package interfaces defines service contracts for chartd
package interfaces

import (
	"context"
	"time"

	"github.com/chartstack/chartd/internal/models"
)

// Store coordinates the relational storage backends. It is the system
// of record; the cache only ever holds regenerable projections of it.
type Store interface {
	Prices() PriceStore
	Fundamentals() FundamentalStore

	// Lifecycle
	Close() error
}

// PriceStore persists per-symbol, per-date OHLCV rows.
type PriceStore interface {
	// UpsertPrices writes records in a single transaction, keyed on
	// (symbol, date). Existing rows are overwritten whole.
	UpsertPrices(ctx context.Context, records []models.PriceRecord) error

	// GetPricesInRange returns records for symbol within [from, to],
	// ascending by date.
	GetPricesInRange(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceRecord, error)

	// GetLatestPrice returns the most recent record, or nil when none.
	GetLatestPrice(ctx context.Context, symbol string) (*models.PriceRecord, error)

	// GetDateRange returns the earliest and latest stored dates, or nil
	// when the symbol has no rows.
	GetDateRange(ctx context.Context, symbol string) (*models.DateRange, error)
}

// FundamentalStore persists per-symbol, per-date fundamental ratios.
type FundamentalStore interface {
	// UpsertFundamentals writes records in a single transaction, keyed
	// on (symbol, date).
	UpsertFundamentals(ctx context.Context, records []models.FundamentalRecord) error

	// GetFundamentals returns all records for symbol, ascending by date.
	GetFundamentals(ctx context.Context, symbol string) ([]models.FundamentalRecord, error)
}

// Cache is the volatile query-result cache. Losing it is always safe:
// every entry is a regenerable projection of the Store. Get returns
// (nil, nil) on miss; callers treat errors as a miss as well.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Lifecycle
	Close() error
}
