// Package common provides shared utilities for chartd
package common

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe is one of the fixed lookback windows supported for charting.
type Timeframe string

// Supported timeframes, longest to shortest.
const (
	Timeframe5Y  Timeframe = "5Y"
	Timeframe1Y  Timeframe = "1Y"
	TimeframeYTD Timeframe = "YTD"
	Timeframe1M  Timeframe = "1M"
	Timeframe1W  Timeframe = "1W"
)

// Timeframes lists all supported timeframes.
var Timeframes = []Timeframe{Timeframe5Y, Timeframe1Y, TimeframeYTD, Timeframe1M, Timeframe1W}

// Staleness policy for store-resident data.
const (
	// RefreshCoverageRatio is the fraction of the expected record count
	// below which stored data triggers a live refetch.
	RefreshCoverageRatio = 0.8

	// MaxStaleDays is the number of calendar days the most recent stored
	// record may lag behind "now" before a refetch is triggered.
	MaxStaleDays = 3

	// MaxFundamentalAge is how far the newest stored reporting period
	// may lag behind "now" before fundamentals are re-synced. Quarterly
	// cadence plus filing delay; 120 days means a period is overdue.
	MaxFundamentalAge = 120 * 24 * time.Hour

	// TTLFundamentals is the cache TTL for fundamentals query results.
	TTLFundamentals = 12 * time.Hour
)

// ParseTimeframe normalizes and validates a timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.ToUpper(strings.TrimSpace(s)))
	switch tf {
	case Timeframe5Y, Timeframe1Y, TimeframeYTD, Timeframe1M, Timeframe1W:
		return tf, nil
	}
	return "", fmt.Errorf("%w: unknown timeframe %q", ErrInvalidInput, s)
}

// TTL returns the cache lifetime for query results of this timeframe.
func (tf Timeframe) TTL() time.Duration {
	switch tf {
	case Timeframe5Y:
		return 24 * time.Hour
	case Timeframe1Y:
		return 12 * time.Hour
	case TimeframeYTD:
		return 6 * time.Hour
	case Timeframe1M:
		return 3 * time.Hour
	case Timeframe1W:
		return time.Hour
	}
	return time.Hour
}

// Window returns the [from, to] calendar-day window for this timeframe,
// anchored at UTC midnight of the given time.
func (tf Timeframe) Window(now time.Time) (time.Time, time.Time) {
	to := DateOnly(now)
	switch tf {
	case Timeframe5Y:
		return to.AddDate(-5, 0, 0), to
	case Timeframe1Y:
		return to.AddDate(-1, 0, 0), to
	case TimeframeYTD:
		return time.Date(to.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), to
	case Timeframe1M:
		return to.AddDate(0, -1, 0), to
	case Timeframe1W:
		return to.AddDate(0, 0, -7), to
	}
	return to, to
}

// MinExpectedRecords returns the heuristic minimum number of trading-day
// records a fully covered window should hold. YTD scales with the
// calendar days elapsed this year; the fixed timeframes use approximate
// trading-day counts.
func (tf Timeframe) MinExpectedRecords(now time.Time) int {
	switch tf {
	case Timeframe5Y:
		return 1260
	case Timeframe1Y:
		return 252
	case TimeframeYTD:
		elapsed := int(DateOnly(now).Sub(time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)).Hours()/24) + 1
		return int(0.7 * float64(elapsed))
	case Timeframe1M:
		return 21
	case Timeframe1W:
		return 5
	}
	return 0
}

// DateOnly truncates a time to UTC midnight of its calendar day.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// IsFresh returns true if the given timestamp is within the TTL.
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
