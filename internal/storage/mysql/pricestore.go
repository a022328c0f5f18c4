package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chartstack/chartd/internal/models"

	"github.com/chartstack/chartd/internal/common"
)

type priceStore struct {
	db     *gorm.DB
	logger *common.Logger
}

// priceUpdateColumns are overwritten whole on (symbol, date) collision.
var priceUpdateColumns = []string{"open", "high", "low", "close", "volume", "change", "change_percent", "vwap"}

func (s *priceStore) UpsertPrices(ctx context.Context, records []models.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]StockPriceRow, len(records))
	for i, r := range records {
		rows[i] = toPriceRow(r)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns(priceUpdateColumns),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %d price rows: %w", len(rows), err)
	}
	return nil
}

func (s *priceStore) GetPricesInRange(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceRecord, error) {
	var rows []StockPriceRow
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND date >= ? AND date <= ?", symbol, from, to).
		Order("date asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", symbol, err)
	}

	records := make([]models.PriceRecord, len(rows))
	for i := range rows {
		records[i] = toPriceRecord(&rows[i])
	}
	return records, nil
}

func (s *priceStore) GetLatestPrice(ctx context.Context, symbol string) (*models.PriceRecord, error) {
	var row StockPriceRow
	err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("date desc").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest price for %s: %w", symbol, err)
	}

	record := toPriceRecord(&row)
	return &record, nil
}

func (s *priceStore) GetDateRange(ctx context.Context, symbol string) (*models.DateRange, error) {
	var earliest, latest StockPriceRow

	err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("date asc").
		First(&earliest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query earliest date for %s: %w", symbol, err)
	}

	err = s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("date desc").
		First(&latest).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query latest date for %s: %w", symbol, err)
	}

	return &models.DateRange{
		Earliest: earliest.Date.UTC(),
		Latest:   latest.Date.UTC(),
	}, nil
}
