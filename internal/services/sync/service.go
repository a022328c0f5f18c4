// Package sync ingests external market data into the persistent store.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chartstack/chartd/internal/common"
	"github.com/chartstack/chartd/internal/interfaces"
	"github.com/chartstack/chartd/internal/models"
)

const (
	// priceBatchSize is the number of price rows upserted per transaction.
	priceBatchSize = 100

	// fundamentalBatchSize is the number of fundamental rows upserted
	// per transaction.
	fundamentalBatchSize = 40

	// fetchQuarters is how many reporting periods are requested from the
	// external source, roughly ten years of quarterly filings.
	fetchQuarters = 40

	// dateLayout is the calendar-date format used by the external source.
	dateLayout = "2006-01-02"
)

// Service implements interfaces.SyncService. Failures never surface as
// Go errors; they are collected into the returned SyncResult.
type Service struct {
	client interfaces.MarketDataClient
	store  interfaces.Store
	logger *common.Logger
	now    func() time.Time
}

// NewService creates a sync service.
func NewService(client interfaces.MarketDataClient, store interfaces.Store, logger *common.Logger) *Service {
	return &Service{
		client: client,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// SyncStock fetches daily price bars for symbol within [from, to],
// validates them, and upserts them in batches. Zero bounds default to
// the full five-year charting window.
func (s *Service) SyncStock(ctx context.Context, symbol string, from, to time.Time) *models.SyncResult {
	result := &models.SyncResult{Symbol: symbol, Errors: []string{}}

	if from.IsZero() || to.IsZero() {
		from, to = common.Timeframe5Y.Window(s.now())
	}

	bars, err := s.client.GetHistoricalPrices(ctx, symbol, from, to)
	if err != nil {
		result.Errors = append(result.Errors, classifyFetchError("historical prices", err))
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("price fetch failed")
		return result
	}
	result.RecordsFetched = len(bars)

	records := s.validateBars(symbol, bars)
	if len(records) == 0 {
		return result
	}

	// Dedupe on date and sort ascending. The source occasionally
	// repeats a trading day; later rows win.
	records = MergePriceRecords(nil, records)

	for start := 0; start < len(records); start += priceBatchSize {
		end := start + priceBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.store.Prices().UpsertPrices(ctx, records[start:end]); err != nil {
			// Committed batches stay; remaining batches are abandoned
			// so a broken connection does not hammer the store.
			result.Errors = append(result.Errors, fmt.Sprintf("storage error: failed to save price batch: %v", err))
			s.logger.Error().Err(err).Str("symbol", symbol).Int("saved", result.RecordsSaved).Msg("price batch failed")
			break
		}
		result.RecordsSaved += end - start
	}

	if result.RecordsSaved > 0 {
		saved := records[:result.RecordsSaved]
		result.DateRange = &models.DateRange{
			Earliest: saved[0].Date,
			Latest:   saved[len(saved)-1].Date,
		}
	}

	s.logger.Info().
		Str("symbol", symbol).
		Int("fetched", result.RecordsFetched).
		Int("saved", result.RecordsSaved).
		Int("errors", len(result.Errors)).
		Msg("price sync complete")
	return result
}

// validateBars converts raw bars into price records, dropping rows with
// unparseable dates or all-zero OHLC values.
func (s *Service) validateBars(symbol string, bars []models.PriceBar) []models.PriceRecord {
	records := make([]models.PriceRecord, 0, len(bars))
	dropped := 0
	for _, bar := range bars {
		date, err := time.ParseInLocation(dateLayout, bar.Date, time.UTC)
		if err != nil {
			dropped++
			continue
		}
		if bar.Open == 0 && bar.High == 0 && bar.Low == 0 && bar.Close == 0 {
			dropped++
			continue
		}
		records = append(records, models.PriceRecord{
			Symbol:        symbol,
			Date:          date,
			Open:          bar.Open,
			High:          bar.High,
			Low:           bar.Low,
			Close:         bar.Close,
			Volume:        bar.Volume,
			Change:        bar.Change,
			ChangePercent: bar.ChangePercent,
			VWAP:          bar.VWAP,
		})
	}
	if dropped > 0 {
		s.logger.Debug().Str("symbol", symbol).Int("dropped", dropped).Msg("dropped invalid price bars")
	}
	return records
}

// SyncFundamentals fetches key metrics and income statements
// concurrently, merges them by reporting date, derives YoY revenue
// growth, and upserts the result.
func (s *Service) SyncFundamentals(ctx context.Context, symbol string) *models.SyncResult {
	result := &models.SyncResult{Symbol: symbol, Errors: []string{}}

	var (
		wg         sync.WaitGroup
		metrics    []models.KeyMetrics
		metricsErr error
		incomes    []models.IncomeStatement
		incomesErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		metrics, metricsErr = s.client.GetKeyMetrics(ctx, symbol, fetchQuarters)
	}()
	go func() {
		defer wg.Done()
		incomes, incomesErr = s.client.GetIncomeStatements(ctx, symbol, fetchQuarters)
	}()
	wg.Wait()

	// A paywalled endpoint means the plan lacks that dataset, not that
	// the sync failed. Treat it as empty and merge what remains.
	if metricsErr != nil {
		if isPaywalled(metricsErr) {
			s.logger.Debug().Str("symbol", symbol).Msg("key metrics unavailable on current plan")
			metrics = nil
		} else {
			result.Errors = append(result.Errors, classifyFetchError("key metrics", metricsErr))
		}
	}
	if incomesErr != nil {
		if isPaywalled(incomesErr) {
			s.logger.Debug().Str("symbol", symbol).Msg("income statements unavailable on current plan")
			incomes = nil
		} else {
			result.Errors = append(result.Errors, classifyFetchError("income statements", incomesErr))
		}
	}
	result.RecordsFetched = len(metrics) + len(incomes)

	records := mergeFundamentals(symbol, metrics, incomes)
	if len(records) == 0 {
		return result
	}

	computeRevenueGrowth(records)

	for start := 0; start < len(records); start += fundamentalBatchSize {
		end := start + fundamentalBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.store.Fundamentals().UpsertFundamentals(ctx, records[start:end]); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("storage error: failed to save fundamental batch: %v", err))
			s.logger.Error().Err(err).Str("symbol", symbol).Int("saved", result.RecordsSaved).Msg("fundamental batch failed")
			break
		}
		result.RecordsSaved += end - start
	}

	if result.RecordsSaved > 0 {
		saved := records[:result.RecordsSaved]
		result.DateRange = &models.DateRange{
			Earliest: saved[0].Date,
			Latest:   saved[len(saved)-1].Date,
		}
	}

	s.logger.Info().
		Str("symbol", symbol).
		Int("fetched", result.RecordsFetched).
		Int("saved", result.RecordsSaved).
		Int("errors", len(result.Errors)).
		Msg("fundamental sync complete")
	return result
}

// classifyFetchError turns an upstream failure into a result message
// that names the failure class, so batch callers can tell a rate limit
// from a bad payload without parsing provider text.
func classifyFetchError(what string, err error) string {
	var ue *interfaces.UpstreamError
	if errors.As(err, &ue) {
		switch ue.Kind {
		case interfaces.UpstreamRateLimited:
			return fmt.Sprintf("rate limited fetching %s: %v", what, err)
		case interfaces.UpstreamUnauthorized:
			return fmt.Sprintf("unauthorized fetching %s: %v", what, err)
		case interfaces.UpstreamTimeout:
			return fmt.Sprintf("timeout fetching %s: %v", what, err)
		case interfaces.UpstreamNetwork:
			return fmt.Sprintf("network error fetching %s: %v", what, err)
		case interfaces.UpstreamBadPayload:
			return fmt.Sprintf("bad payload fetching %s: %v", what, err)
		}
	}
	return fmt.Sprintf("failed to fetch %s: %v", what, err)
}

// isPaywalled reports whether the error is an authorization rejection,
// which the free tier returns for premium endpoints.
func isPaywalled(err error) bool {
	var ue *interfaces.UpstreamError
	return errors.As(err, &ue) && ue.Kind == interfaces.UpstreamUnauthorized
}

// Ensure Service implements the SyncService interface
var _ interfaces.SyncService = (*Service)(nil)
