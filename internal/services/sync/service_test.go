package sync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartstack/chartd/internal/common"
	"github.com/chartstack/chartd/internal/interfaces"
	"github.com/chartstack/chartd/internal/models"
)

type fakeClient struct {
	pricesFn  func(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error)
	metricsFn func(ctx context.Context, symbol string, limit int) ([]models.KeyMetrics, error)
	incomesFn func(ctx context.Context, symbol string, limit int) ([]models.IncomeStatement, error)
}

func (c *fakeClient) GetHistoricalPrices(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
	if c.pricesFn == nil {
		return nil, nil
	}
	return c.pricesFn(ctx, symbol, from, to)
}

func (c *fakeClient) GetKeyMetrics(ctx context.Context, symbol string, limit int) ([]models.KeyMetrics, error) {
	if c.metricsFn == nil {
		return nil, nil
	}
	return c.metricsFn(ctx, symbol, limit)
}

func (c *fakeClient) GetIncomeStatements(ctx context.Context, symbol string, limit int) ([]models.IncomeStatement, error) {
	if c.incomesFn == nil {
		return nil, nil
	}
	return c.incomesFn(ctx, symbol, limit)
}

type fakePriceStore struct {
	batches    [][]models.PriceRecord
	failOnCall int // 1-based call number that fails, 0 for never
}

func (f *fakePriceStore) UpsertPrices(ctx context.Context, records []models.PriceRecord) error {
	batch := make([]models.PriceRecord, len(records))
	copy(batch, records)
	f.batches = append(f.batches, batch)
	if f.failOnCall > 0 && len(f.batches) == f.failOnCall {
		return errors.New("connection lost")
	}
	return nil
}

func (f *fakePriceStore) GetPricesInRange(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceRecord, error) {
	return nil, nil
}

func (f *fakePriceStore) GetLatestPrice(ctx context.Context, symbol string) (*models.PriceRecord, error) {
	return nil, nil
}

func (f *fakePriceStore) GetDateRange(ctx context.Context, symbol string) (*models.DateRange, error) {
	return nil, nil
}

func (f *fakePriceStore) saved() []models.PriceRecord {
	var all []models.PriceRecord
	for _, b := range f.batches {
		all = append(all, b...)
	}
	return all
}

type fakeFundamentalStore struct {
	batches    [][]models.FundamentalRecord
	failOnCall int
}

func (f *fakeFundamentalStore) UpsertFundamentals(ctx context.Context, records []models.FundamentalRecord) error {
	batch := make([]models.FundamentalRecord, len(records))
	copy(batch, records)
	f.batches = append(f.batches, batch)
	if f.failOnCall > 0 && len(f.batches) == f.failOnCall {
		return errors.New("connection lost")
	}
	return nil
}

func (f *fakeFundamentalStore) GetFundamentals(ctx context.Context, symbol string) ([]models.FundamentalRecord, error) {
	return nil, nil
}

func (f *fakeFundamentalStore) saved() []models.FundamentalRecord {
	var all []models.FundamentalRecord
	for _, b := range f.batches {
		all = append(all, b...)
	}
	return all
}

type fakeStore struct {
	prices       *fakePriceStore
	fundamentals *fakeFundamentalStore
}

func newFakeStore() *fakeStore {
	return &fakeStore{prices: &fakePriceStore{}, fundamentals: &fakeFundamentalStore{}}
}

func (f *fakeStore) Prices() interfaces.PriceStore             { return f.prices }
func (f *fakeStore) Fundamentals() interfaces.FundamentalStore { return f.fundamentals }
func (f *fakeStore) Close() error                              { return nil }

func newTestService(client *fakeClient, store *fakeStore) *Service {
	svc := NewService(client, store, common.NewSilentLogger())
	svc.now = func() time.Time { return time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

func bar(date string, close float64) models.PriceBar {
	return models.PriceBar{
		Date:   date,
		Open:   close - 1,
		High:   close + 1,
		Low:    close - 2,
		Close:  close,
		Volume: decimal.NewFromInt(1000000),
	}
}

func TestSyncStockValidatesAndSorts(t *testing.T) {
	client := &fakeClient{
		pricesFn: func(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
			return []models.PriceBar{
				bar("2024-06-14", 196.89),
				{Date: "2024-06-13"},    // all-zero OHLC, dropped
				bar("not-a-date", 42.0), // unparseable, dropped
				bar("2024-06-12", 193.12),
			}, nil
		},
	}
	store := newFakeStore()
	svc := newTestService(client, store)

	result := svc.SyncStock(context.Background(), "AAPL", time.Time{}, time.Time{})

	assert.True(t, result.OK())
	assert.Equal(t, 4, result.RecordsFetched)
	assert.Equal(t, 2, result.RecordsSaved)

	saved := store.prices.saved()
	require.Len(t, saved, 2)
	assert.Equal(t, time.Date(2024, time.June, 12, 0, 0, 0, 0, time.UTC), saved[0].Date)
	assert.Equal(t, time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC), saved[1].Date)
	assert.Equal(t, "AAPL", saved[0].Symbol)

	require.NotNil(t, result.DateRange)
	assert.Equal(t, saved[0].Date, result.DateRange.Earliest)
	assert.Equal(t, saved[1].Date, result.DateRange.Latest)
}

func TestSyncStockDefaultWindow(t *testing.T) {
	var gotFrom, gotTo time.Time
	client := &fakeClient{
		pricesFn: func(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
			gotFrom, gotTo = from, to
			return nil, nil
		},
	}
	svc := newTestService(client, newFakeStore())

	result := svc.SyncStock(context.Background(), "AAPL", time.Time{}, time.Time{})

	assert.True(t, result.OK())
	assert.Equal(t, time.Date(2019, time.June, 15, 0, 0, 0, 0, time.UTC), gotFrom)
	assert.Equal(t, time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), gotTo)
}

func TestSyncStockChunksBatches(t *testing.T) {
	bars := make([]models.PriceBar, 0, 250)
	base := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 250; i++ {
		bars = append(bars, bar(base.AddDate(0, 0, i).Format("2006-01-02"), 100+float64(i)*0.1))
	}
	client := &fakeClient{
		pricesFn: func(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
			return bars, nil
		},
	}
	store := newFakeStore()
	svc := newTestService(client, store)

	result := svc.SyncStock(context.Background(), "AAPL", base, base.AddDate(0, 0, 249))

	assert.True(t, result.OK())
	assert.Equal(t, 250, result.RecordsSaved)
	require.Len(t, store.prices.batches, 3)
	assert.Len(t, store.prices.batches[0], 100)
	assert.Len(t, store.prices.batches[1], 100)
	assert.Len(t, store.prices.batches[2], 50)
}

func TestSyncStockBatchFailureKeepsCommitted(t *testing.T) {
	bars := make([]models.PriceBar, 0, 250)
	base := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 250; i++ {
		bars = append(bars, bar(base.AddDate(0, 0, i).Format("2006-01-02"), 100))
	}
	client := &fakeClient{
		pricesFn: func(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
			return bars, nil
		},
	}
	store := newFakeStore()
	store.prices.failOnCall = 2
	svc := newTestService(client, store)

	result := svc.SyncStock(context.Background(), "AAPL", base, base.AddDate(0, 0, 249))

	assert.False(t, result.OK())
	assert.Equal(t, 100, result.RecordsSaved)
	// The failed batch aborts the remainder; no third attempt.
	assert.Len(t, store.prices.batches, 2)
	require.NotNil(t, result.DateRange)
	assert.Equal(t, base, result.DateRange.Earliest)
	assert.Equal(t, base.AddDate(0, 0, 99), result.DateRange.Latest)
}

func TestSyncStockRateLimited(t *testing.T) {
	client := &fakeClient{
		pricesFn: func(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
			return nil, &interfaces.UpstreamError{
				Kind:       interfaces.UpstreamRateLimited,
				StatusCode: 429,
				Endpoint:   "/historical-price-full/AAPL",
				Message:    "Limit Reach",
			}
		},
	}
	store := newFakeStore()
	svc := newTestService(client, store)

	result := svc.SyncStock(context.Background(), "AAPL", time.Time{}, time.Time{})

	assert.False(t, result.OK())
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "rate limited"), "got %q", result.Errors[0])
	assert.Equal(t, 0, result.RecordsSaved)
	assert.Empty(t, store.prices.batches)
}

func TestSyncStockNoData(t *testing.T) {
	svc := newTestService(&fakeClient{}, newFakeStore())

	result := svc.SyncStock(context.Background(), "ZZZZ", time.Time{}, time.Time{})

	assert.True(t, result.OK())
	assert.Equal(t, 0, result.RecordsFetched)
	assert.Equal(t, 0, result.RecordsSaved)
	assert.Nil(t, result.DateRange)
}

func floatPtr(f float64) *float64 { return &f }

func decPtr(i int64) *decimal.Decimal {
	d := decimal.NewFromInt(i)
	return &d
}

func TestSyncFundamentalsMergesSources(t *testing.T) {
	client := &fakeClient{
		metricsFn: func(ctx context.Context, symbol string, limit int) ([]models.KeyMetrics, error) {
			return []models.KeyMetrics{
				{Date: "2024-03-31", Period: "Q2", PERatio: floatPtr(28.5), EPS: floatPtr(1.40)},
				{Date: "2023-12-31", Period: "Q1", PERatio: floatPtr(30.1)},
			}, nil
		},
		incomesFn: func(ctx context.Context, symbol string, limit int) ([]models.IncomeStatement, error) {
			return []models.IncomeStatement{
				{Date: "2024-03-31", Period: "Q2", Revenue: decPtr(90753000000), EPS: floatPtr(1.53)},
				{Date: "2023-09-30", Period: "Q4", Revenue: decPtr(89498000000)},
			}, nil
		},
	}
	store := newFakeStore()
	svc := newTestService(client, store)

	result := svc.SyncFundamentals(context.Background(), "AAPL")

	assert.True(t, result.OK())
	assert.Equal(t, 4, result.RecordsFetched)
	assert.Equal(t, 3, result.RecordsSaved)

	saved := store.fundamentals.saved()
	require.Len(t, saved, 3)

	// Ascending: income-only Q4 2023, metrics-only Q1, merged Q2 2024.
	assert.Equal(t, time.Date(2023, time.September, 30, 0, 0, 0, 0, time.UTC), saved[0].Date)
	assert.Nil(t, saved[0].PERatio)
	require.NotNil(t, saved[0].Revenue)

	assert.Equal(t, time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC), saved[1].Date)
	require.NotNil(t, saved[1].PERatio)
	assert.Nil(t, saved[1].Revenue)

	merged := saved[2]
	assert.Equal(t, time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), merged.Date)
	require.NotNil(t, merged.PERatio)
	assert.Equal(t, 28.5, *merged.PERatio)
	require.NotNil(t, merged.Revenue)
	// Income statement EPS wins over the key-metrics per-share figure.
	require.NotNil(t, merged.EPS)
	assert.Equal(t, 1.53, *merged.EPS)
}

func TestSyncFundamentalsPaywalledMetrics(t *testing.T) {
	client := &fakeClient{
		metricsFn: func(ctx context.Context, symbol string, limit int) ([]models.KeyMetrics, error) {
			return nil, &interfaces.UpstreamError{
				Kind:       interfaces.UpstreamUnauthorized,
				StatusCode: 402,
				Endpoint:   "/key-metrics/AAPL",
				Message:    "premium endpoint",
			}
		},
		incomesFn: func(ctx context.Context, symbol string, limit int) ([]models.IncomeStatement, error) {
			return []models.IncomeStatement{
				{Date: "2024-03-31", Period: "Q2", Revenue: decPtr(90753000000)},
			}, nil
		},
	}
	store := newFakeStore()
	svc := newTestService(client, store)

	result := svc.SyncFundamentals(context.Background(), "AAPL")

	// Paywall on one endpoint is not a sync failure.
	assert.True(t, result.OK())
	assert.Equal(t, 1, result.RecordsSaved)

	saved := store.fundamentals.saved()
	require.Len(t, saved, 1)
	assert.Nil(t, saved[0].PERatio)
	require.NotNil(t, saved[0].Revenue)
}

func TestSyncFundamentalsNetworkError(t *testing.T) {
	client := &fakeClient{
		metricsFn: func(ctx context.Context, symbol string, limit int) ([]models.KeyMetrics, error) {
			return nil, &interfaces.UpstreamError{
				Kind:     interfaces.UpstreamNetwork,
				Endpoint: "/key-metrics/AAPL",
				Message:  "connection refused",
			}
		},
	}
	store := newFakeStore()
	svc := newTestService(client, store)

	result := svc.SyncFundamentals(context.Background(), "AAPL")

	assert.False(t, result.OK())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "network error")
	assert.Empty(t, store.fundamentals.batches)
}

func TestSyncFundamentalsComputesYoY(t *testing.T) {
	// Eight quarters of revenue growing 10% year over year.
	metrics := make([]models.KeyMetrics, 0, 8)
	incomes := make([]models.IncomeStatement, 0, 8)
	dates := []string{
		"2022-06-30", "2022-09-30", "2022-12-31", "2023-03-31",
		"2023-06-30", "2023-09-30", "2023-12-31", "2024-03-31",
	}
	for i, date := range dates {
		revenue := int64(100000)
		if i >= 4 {
			revenue = 110000
		}
		metrics = append(metrics, models.KeyMetrics{Date: date, Period: "Q"})
		incomes = append(incomes, models.IncomeStatement{Date: date, Period: "Q", Revenue: decPtr(revenue)})
	}

	client := &fakeClient{
		metricsFn: func(ctx context.Context, symbol string, limit int) ([]models.KeyMetrics, error) {
			return metrics, nil
		},
		incomesFn: func(ctx context.Context, symbol string, limit int) ([]models.IncomeStatement, error) {
			return incomes, nil
		},
	}
	store := newFakeStore()
	svc := newTestService(client, store)

	result := svc.SyncFundamentals(context.Background(), "AAPL")
	require.True(t, result.OK())

	saved := store.fundamentals.saved()
	require.Len(t, saved, 8)

	// No YoY for the first four periods.
	for i := 0; i < 4; i++ {
		assert.Nil(t, saved[i].RevenueGrowthYoY, "index %d", i)
	}
	for i := 4; i < 8; i++ {
		require.NotNil(t, saved[i].RevenueGrowthYoY, "index %d", i)
		assert.InDelta(t, 10.0, *saved[i].RevenueGrowthYoY, 0.001)
	}
}
