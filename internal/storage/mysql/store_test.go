package mysql

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/chartstack/chartd/internal/common"
	"github.com/chartstack/chartd/internal/models"
)

// newTestStore runs the real schema and queries against an in-memory
// sqlite database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)

	store, err := NewStoreFromDB(db, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func day(d int) time.Time {
	return time.Date(2024, time.June, d, 0, 0, 0, 0, time.UTC)
}

func priceRecord(symbol string, date time.Time, close float64) models.PriceRecord {
	return models.PriceRecord{
		Symbol: symbol,
		Date:   date,
		Open:   close - 1,
		High:   close + 1,
		Low:    close - 2,
		Close:  close,
		Volume: decimal.NewFromInt(1000000),
	}
}

func TestUpsertPricesOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := priceRecord("AAPL", day(14), 196.89)
	require.NoError(t, store.Prices().UpsertPrices(ctx, []models.PriceRecord{first}))

	// Same (symbol, date) with corrected values replaces the row.
	second := priceRecord("AAPL", day(14), 197.50)
	second.Volume = decimal.NewFromInt(2000000)
	require.NoError(t, store.Prices().UpsertPrices(ctx, []models.PriceRecord{second}))

	records, err := store.Prices().GetPricesInRange(ctx, "AAPL", day(1), day(30))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 197.50, records[0].Close)
	assert.True(t, records[0].Volume.Equal(decimal.NewFromInt(2000000)))
}

func TestUpsertPricesEmpty(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Prices().UpsertPrices(context.Background(), nil))
}

func TestGetPricesInRangeAscending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	records := []models.PriceRecord{
		priceRecord("AAPL", day(14), 196.89),
		priceRecord("AAPL", day(12), 193.12),
		priceRecord("AAPL", day(13), 198.11),
		priceRecord("MSFT", day(13), 441.06),
	}
	require.NoError(t, store.Prices().UpsertPrices(ctx, records))

	got, err := store.Prices().GetPricesInRange(ctx, "AAPL", day(12), day(14))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, day(12), got[0].Date)
	assert.Equal(t, day(13), got[1].Date)
	assert.Equal(t, day(14), got[2].Date)

	// Range bounds are inclusive.
	got, err = store.Prices().GetPricesInRange(ctx, "AAPL", day(13), day(13))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 198.11, got[0].Close)
}

func TestGetPricesInRangeEmpty(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Prices().GetPricesInRange(context.Background(), "NVDA", day(1), day(30))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetLatestPrice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Prices().UpsertPrices(ctx, []models.PriceRecord{
		priceRecord("AAPL", day(12), 193.12),
		priceRecord("AAPL", day(14), 196.89),
	}))

	latest, err := store.Prices().GetLatestPrice(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, day(14), latest.Date)
	assert.Equal(t, 196.89, latest.Close)
}

func TestGetLatestPriceUnknownSymbol(t *testing.T) {
	store := newTestStore(t)

	latest, err := store.Prices().GetLatestPrice(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestGetDateRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Prices().UpsertPrices(ctx, []models.PriceRecord{
		priceRecord("AAPL", day(3), 190.0),
		priceRecord("AAPL", day(14), 196.89),
		priceRecord("AAPL", day(7), 194.0),
	}))

	dr, err := store.Prices().GetDateRange(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, dr)
	assert.Equal(t, day(3), dr.Earliest)
	assert.Equal(t, day(14), dr.Latest)
}

func TestGetDateRangeUnknownSymbol(t *testing.T) {
	store := newTestStore(t)

	dr, err := store.Prices().GetDateRange(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Nil(t, dr)
}

func TestUpsertPricesBigVolume(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	volume, err := decimal.NewFromString("9007199254740995")
	require.NoError(t, err)

	record := priceRecord("AAPL", day(14), 196.89)
	record.Volume = volume
	require.NoError(t, store.Prices().UpsertPrices(ctx, []models.PriceRecord{record}))

	got, err := store.Prices().GetLatestPrice(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Volume.Equal(volume), "got %s", got.Volume)
}

func TestUpsertFundamentals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pe := 28.5
	revenue := decimal.NewFromInt(90753000000)
	records := []models.FundamentalRecord{
		{Symbol: "AAPL", Date: time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), Period: "Q2", PERatio: &pe, Revenue: &revenue},
		{Symbol: "AAPL", Date: time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC), Period: "Q1"},
	}
	require.NoError(t, store.Fundamentals().UpsertFundamentals(ctx, records))

	got, err := store.Fundamentals().GetFundamentals(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ascending by date.
	assert.Equal(t, "Q1", got[0].Period)
	assert.Equal(t, "Q2", got[1].Period)

	// Null metrics round-trip as nil.
	assert.Nil(t, got[0].PERatio)
	assert.Nil(t, got[0].Revenue)
	require.NotNil(t, got[1].PERatio)
	assert.Equal(t, 28.5, *got[1].PERatio)
	require.NotNil(t, got[1].Revenue)
	assert.True(t, got[1].Revenue.Equal(revenue))
}

func TestUpsertFundamentalsOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)

	pe := 28.5
	require.NoError(t, store.Fundamentals().UpsertFundamentals(ctx, []models.FundamentalRecord{
		{Symbol: "AAPL", Date: date, Period: "Q2", PERatio: &pe},
	}))

	updated := 29.1
	growth := 4.2
	require.NoError(t, store.Fundamentals().UpsertFundamentals(ctx, []models.FundamentalRecord{
		{Symbol: "AAPL", Date: date, Period: "Q2", PERatio: &updated, RevenueGrowthYoY: &growth},
	}))

	got, err := store.Fundamentals().GetFundamentals(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 29.1, *got[0].PERatio)
	require.NotNil(t, got[0].RevenueGrowthYoY)
	assert.Equal(t, 4.2, *got[0].RevenueGrowthYoY)
}

func TestStoreIsolatesSymbols(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, symbol := range []string{"AAPL", "MSFT", "GOOGL"} {
		require.NoError(t, store.Prices().UpsertPrices(ctx, []models.PriceRecord{
			priceRecord(symbol, day(10+i), 100+float64(i)),
		}))
	}

	for _, symbol := range []string{"AAPL", "MSFT", "GOOGL"} {
		got, err := store.Prices().GetPricesInRange(ctx, symbol, day(1), day(30))
		require.NoError(t, err)
		require.Len(t, got, 1, "symbol %s", symbol)
		assert.Equal(t, symbol, got[0].Symbol)
	}
}

func TestUpsertPricesLargeBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	records := make([]models.PriceRecord, 0, 250)
	base := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 250; i++ {
		records = append(records, priceRecord("AAPL", base.AddDate(0, 0, i), 100+float64(i)*0.1))
	}
	require.NoError(t, store.Prices().UpsertPrices(ctx, records))

	got, err := store.Prices().GetPricesInRange(ctx, "AAPL", base, base.AddDate(0, 0, 249))
	require.NoError(t, err)
	assert.Len(t, got, 250)

	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Date.After(got[i-1].Date), fmt.Sprintf("index %d out of order", i))
	}
}
