// Package query serves chart data through the three-tier read path:
// cache, then store, then a sync against the external source.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chartstack/chartd/internal/common"
	"github.com/chartstack/chartd/internal/interfaces"
	"github.com/chartstack/chartd/internal/models"
)

// Service implements interfaces.QueryService.
type Service struct {
	store  interfaces.Store
	cache  interfaces.Cache
	sync   interfaces.SyncService
	logger *common.Logger
	now    func() time.Time
}

// NewService creates a query service.
func NewService(store interfaces.Store, cache interfaces.Cache, syncService interfaces.SyncService, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		sync:   syncService,
		logger: logger,
		now:    time.Now,
	}
}

// GetHistoricalData returns the price series for a symbol and
// timeframe. Cached results are trusted for their TTL; store results
// below the coverage threshold or older than the staleness limit
// trigger a sync before answering.
func (s *Service) GetHistoricalData(ctx context.Context, symbol, timeframe string) ([]models.PriceRecord, models.Freshness, error) {
	sym, err := common.NormalizeSymbol(symbol)
	if err != nil {
		return nil, "", err
	}
	tf, err := common.ParseTimeframe(timeframe)
	if err != nil {
		return nil, "", err
	}

	cacheKey := fmt.Sprintf("history:%s:%s", sym, tf)
	var cached []models.PriceRecord
	if s.cacheGet(ctx, cacheKey, &cached) {
		return cached, models.FreshnessFresh, nil
	}

	now := s.now()
	from, to := tf.Window(now)
	records, err := s.store.Prices().GetPricesInRange(ctx, sym, from, to)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	if s.needsRefresh(records, tf, now) {
		result := s.sync.SyncStock(ctx, sym, from, to)
		if !result.OK() {
			if len(records) > 0 {
				// Refresh failed but the store still has usable data.
				s.logger.Warn().Str("symbol", sym).Strs("errors", result.Errors).Msg("serving stale data after failed sync")
				return records, models.FreshnessStale, nil
			}
			return nil, "", &common.NoDataError{Symbol: sym}
		}
		if result.RecordsSaved > 0 {
			records, err = s.store.Prices().GetPricesInRange(ctx, sym, from, to)
			if err != nil {
				return nil, "", fmt.Errorf("%w: %v", common.ErrStorage, err)
			}
		}
	}

	if len(records) == 0 {
		return nil, "", &common.NoDataError{Symbol: sym}
	}

	s.cacheSet(ctx, cacheKey, records, tf.TTL())
	return records, models.FreshnessFresh, nil
}

// needsRefresh reports whether stored coverage is too thin or too old
// to serve without consulting the external source.
func (s *Service) needsRefresh(records []models.PriceRecord, tf common.Timeframe, now time.Time) bool {
	if len(records) == 0 {
		return true
	}
	if float64(len(records)) < common.RefreshCoverageRatio*float64(tf.MinExpectedRecords(now)) {
		return true
	}
	latest := records[len(records)-1].Date
	age := common.DateOnly(now).Sub(common.DateOnly(latest))
	return age > common.MaxStaleDays*24*time.Hour
}

// GetLatestPrice returns the most recent record within the 1W window,
// going through the same refresh policy as a chart query.
func (s *Service) GetLatestPrice(ctx context.Context, symbol string) (*models.PriceRecord, error) {
	records, _, err := s.GetHistoricalData(ctx, symbol, string(common.Timeframe1W))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		sym, _ := common.NormalizeSymbol(symbol)
		return nil, &common.NoDataError{Symbol: sym}
	}
	latest := records[len(records)-1]
	return &latest, nil
}

// GetPriceRatio returns the symbolA/symbolB close-price ratio series
// over the timeframe. Only dates present in both series appear, and
// dates where symbolB closed at zero are skipped.
func (s *Service) GetPriceRatio(ctx context.Context, symbolA, symbolB, timeframe string) ([]models.RatioPoint, error) {
	symA, err := common.NormalizeSymbol(symbolA)
	if err != nil {
		return nil, err
	}
	symB, err := common.NormalizeSymbol(symbolB)
	if err != nil {
		return nil, err
	}
	tf, err := common.ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("ratio:%s:%s:%s", symA, symB, tf)
	var cached []models.RatioPoint
	if s.cacheGet(ctx, cacheKey, &cached) {
		return cached, nil
	}

	type leg struct {
		records []models.PriceRecord
		err     error
	}
	chA := make(chan leg, 1)
	chB := make(chan leg, 1)
	go func() {
		records, _, err := s.GetHistoricalData(ctx, symA, timeframe)
		chA <- leg{records, err}
	}()
	go func() {
		records, _, err := s.GetHistoricalData(ctx, symB, timeframe)
		chB <- leg{records, err}
	}()
	legA, legB := <-chA, <-chB

	if legA.err != nil {
		return nil, legA.err
	}
	if legB.err != nil {
		return nil, legB.err
	}

	closeB := make(map[time.Time]float64, len(legB.records))
	for _, r := range legB.records {
		closeB[common.DateOnly(r.Date)] = r.Close
	}

	points := make([]models.RatioPoint, 0, len(legA.records))
	for _, r := range legA.records {
		b, ok := closeB[common.DateOnly(r.Date)]
		if !ok || b == 0 {
			continue
		}
		points = append(points, models.RatioPoint{
			Date:         common.DateOnly(r.Date),
			Ratio:        r.Close / b,
			Symbol1Price: r.Close,
			Symbol2Price: b,
		})
	}

	if len(points) == 0 {
		return nil, &common.NoDataError{Symbol: fmt.Sprintf("%s/%s", symA, symB)}
	}

	s.cacheSet(ctx, cacheKey, points, tf.TTL())
	return points, nil
}

// GetDateRange returns the stored coverage for a symbol, or nil when
// the symbol is unknown or the store errors.
func (s *Service) GetDateRange(ctx context.Context, symbol string) *models.DateRange {
	sym, err := common.NormalizeSymbol(symbol)
	if err != nil {
		return nil
	}
	dr, err := s.store.Prices().GetDateRange(ctx, sym)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", sym).Msg("date range lookup failed")
		return nil
	}
	return dr
}

// GetFundamentals returns the fundamental ratio series for a symbol,
// syncing from the external source when the store is empty or the
// newest reporting period is overdue.
func (s *Service) GetFundamentals(ctx context.Context, symbol string) ([]models.FundamentalRecord, error) {
	sym, err := common.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("fundamentals:%s", sym)
	var cached []models.FundamentalRecord
	if s.cacheGet(ctx, cacheKey, &cached) {
		return cached, nil
	}

	records, err := s.store.Fundamentals().GetFundamentals(ctx, sym)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	if s.fundamentalsOverdue(records) {
		result := s.sync.SyncFundamentals(ctx, sym)
		if !result.OK() {
			if len(records) > 0 {
				s.logger.Warn().Str("symbol", sym).Strs("errors", result.Errors).Msg("serving stale fundamentals after failed sync")
				return records, nil
			}
			return nil, &common.NoDataError{Symbol: sym}
		}
		if result.RecordsSaved > 0 {
			records, err = s.store.Fundamentals().GetFundamentals(ctx, sym)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
			}
		}
	}

	if len(records) == 0 {
		return nil, &common.NoDataError{Symbol: sym}
	}

	s.cacheSet(ctx, cacheKey, records, common.TTLFundamentals)
	return records, nil
}

func (s *Service) fundamentalsOverdue(records []models.FundamentalRecord) bool {
	if len(records) == 0 {
		return true
	}
	latest := records[len(records)-1].Date
	return s.now().Sub(latest) > common.MaxFundamentalAge
}

// cacheGet loads and unmarshals a cached value. Any cache failure is
// logged and treated as a miss.
func (s *Service) cacheGet(ctx context.Context, key string, out any) bool {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}
	if data == nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache entry corrupt")
		return false
	}
	return true
}

// cacheSet marshals and stores a value. Failures are logged only.
func (s *Service) cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache marshal failed")
		return
	}
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Ensure Service implements the QueryService interface
var _ interfaces.QueryService = (*Service)(nil)
