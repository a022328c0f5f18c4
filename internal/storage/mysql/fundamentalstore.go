package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chartstack/chartd/internal/common"
	"github.com/chartstack/chartd/internal/models"
)

type fundamentalStore struct {
	db     *gorm.DB
	logger *common.Logger
}

var ratioUpdateColumns = []string{
	"period", "pe_ratio", "price_to_fcf", "fcf", "eps",
	"revenue_growth_yoy", "roe", "debt_to_equity", "revenue",
}

func (s *fundamentalStore) UpsertFundamentals(ctx context.Context, records []models.FundamentalRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]FinancialRatioRow, len(records))
	for i, r := range records {
		rows[i] = toRatioRow(r)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns(ratioUpdateColumns),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %d fundamental rows: %w", len(rows), err)
	}
	return nil
}

func (s *fundamentalStore) GetFundamentals(ctx context.Context, symbol string) ([]models.FundamentalRecord, error) {
	var rows []FinancialRatioRow
	err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("date asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query fundamentals for %s: %w", symbol, err)
	}

	records := make([]models.FundamentalRecord, len(rows))
	for i := range rows {
		records[i] = toFundamentalRecord(&rows[i])
	}
	return records, nil
}
