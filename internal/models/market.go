// Package models defines the data structures used across chartd
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is one trading day of OHLCV data for one symbol.
// At most one record exists per (symbol, date); the date carries no
// time component. Volume is decimal because daily share volumes can
// exceed 2^53 and must cross the API boundary as a decimal string,
// which is shopspring's default JSON encoding.
type PriceRecord struct {
	Symbol        string          `json:"symbol"`
	Date          time.Time       `json:"date"`
	Open          float64         `json:"open"`
	High          float64         `json:"high"`
	Low           float64         `json:"low"`
	Close         float64         `json:"close"`
	Volume        decimal.Decimal `json:"volume"`
	Change        float64         `json:"change"`
	ChangePercent float64         `json:"changePercent"`
	VWAP          float64         `json:"vwap"`
}

// FundamentalRecord is one reporting period of fundamental ratios for
// one symbol. Metric fields are pointers: a record built from income
// data alone carries nil metrics, and RevenueGrowthYoY is nil until
// four prior periods exist. FCF and Revenue are integer currency
// amounts that can exceed 2^53.
type FundamentalRecord struct {
	Symbol           string           `json:"symbol"`
	Date             time.Time        `json:"date"`
	Period           string           `json:"period"`
	PERatio          *float64         `json:"peRatio"`
	PriceToFCF       *float64         `json:"priceToFcf"`
	FCF              *decimal.Decimal `json:"fcf"`
	EPS              *float64         `json:"eps"`
	RevenueGrowthYoY *float64         `json:"revenueGrowthYoy"`
	ROE              *float64         `json:"roe"`
	DebtToEquity     *float64         `json:"debtToEquity"`
	Revenue          *decimal.Decimal `json:"revenue"`
}

// RatioPoint is one shared trading day in a price ratio series.
// Derived on demand; cached but never persisted.
type RatioPoint struct {
	Date         time.Time `json:"date"`
	Ratio        float64   `json:"ratio"`
	Symbol1Price float64   `json:"symbol1Price"`
	Symbol2Price float64   `json:"symbol2Price"`
}

// DateRange reports the earliest and latest stored dates for a symbol.
type DateRange struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// Freshness signals whether a query result satisfied the staleness
// policy or was served from stale store data after a failed refresh.
type Freshness string

const (
	FreshnessFresh Freshness = "fresh"
	FreshnessStale Freshness = "stale"
)

// SyncResult summarizes one sync run. Sync operations never return a
// Go error; every failure is captured in Errors so batch callers can
// continue with the remaining symbols.
type SyncResult struct {
	Symbol         string     `json:"symbol"`
	RecordsFetched int        `json:"recordsFetched"`
	RecordsSaved   int        `json:"recordsSaved"`
	DateRange      *DateRange `json:"dateRange,omitempty"`
	Errors         []string   `json:"errors"`
}

// OK reports whether the sync completed without errors.
func (r *SyncResult) OK() bool {
	return len(r.Errors) == 0
}

// PriceBar is a raw price row as returned by the external source,
// before validation. The date is kept as the upstream string so the
// sync engine can drop unparseable rows individually.
type PriceBar struct {
	Date          string          `json:"date"`
	Open          float64         `json:"open"`
	High          float64         `json:"high"`
	Low           float64         `json:"low"`
	Close         float64         `json:"close"`
	Volume        decimal.Decimal `json:"volume"`
	Change        float64         `json:"change"`
	ChangePercent float64         `json:"changePercent"`
	VWAP          float64         `json:"vwap"`
}

// KeyMetrics is one raw key-metrics period from the external source.
type KeyMetrics struct {
	Date         string           `json:"date"`
	Period       string           `json:"period"`
	PERatio      *float64         `json:"peRatio"`
	PriceToFCF   *float64         `json:"pfcfRatio"`
	FCF          *decimal.Decimal `json:"freeCashFlow"`
	EPS          *float64         `json:"netIncomePerShare"`
	ROE          *float64         `json:"roe"`
	DebtToEquity *float64         `json:"debtToEquity"`
}

// IncomeStatement is one raw income-statement period from the
// external source.
type IncomeStatement struct {
	Date    string           `json:"date"`
	Period  string           `json:"period"`
	Revenue *decimal.Decimal `json:"revenue"`
	EPS     *float64         `json:"eps"`
}
