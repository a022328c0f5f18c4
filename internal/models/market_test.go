package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceRecordVolumeJSON(t *testing.T) {
	// 2^53 is the float64 integer precision limit; daily volumes above
	// it must serialize as a decimal string, not a float.
	volume, err := decimal.NewFromString("9007199254740995")
	require.NoError(t, err)

	record := PriceRecord{
		Symbol: "AAPL",
		Date:   time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC),
		Close:  196.89,
		Volume: volume,
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"volume":"9007199254740995"`)

	var decoded PriceRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Volume.Equal(volume))
}

func TestFundamentalRecordNullFields(t *testing.T) {
	record := FundamentalRecord{
		Symbol: "AAPL",
		Date:   time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
		Period: "Q1",
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"peRatio":null`)
	assert.Contains(t, string(data), `"revenueGrowthYoy":null`)
	assert.Contains(t, string(data), `"revenue":null`)
}

func TestFundamentalRecordRevenueJSON(t *testing.T) {
	revenue, err := decimal.NewFromString("119575000000")
	require.NoError(t, err)

	record := FundamentalRecord{
		Symbol:  "AAPL",
		Date:    time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
		Revenue: &revenue,
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"revenue":"119575000000"`)
}

func TestSyncResultOK(t *testing.T) {
	ok := &SyncResult{Symbol: "AAPL", Errors: []string{}}
	assert.True(t, ok.OK())

	failed := &SyncResult{Symbol: "AAPL", Errors: []string{"rate limited"}}
	assert.False(t, failed.OK())
}
