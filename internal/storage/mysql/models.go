package mysql

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/chartstack/chartd/internal/models"
)

// StockPriceRow is the persistence model for one trading day. The
// unique index on (symbol, date) is the upsert key; the descending
// composite index serves "most recent N" queries.
type StockPriceRow struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement"`
	Symbol        string          `gorm:"size:10;not null;uniqueIndex:idx_symbol_date,priority:1;index:idx_symbol_date_desc,priority:1"`
	Date          time.Time       `gorm:"not null;uniqueIndex:idx_symbol_date,priority:2;index:idx_symbol_date_desc,priority:2,sort:desc"`
	Open          float64         `gorm:"not null"`
	High          float64         `gorm:"not null"`
	Low           float64         `gorm:"not null"`
	Close         float64         `gorm:"not null"`
	Volume        decimal.Decimal `gorm:"type:decimal(20,0);not null"`
	Change        float64         `gorm:"not null"`
	ChangePercent float64         `gorm:"not null"`
	VWAP          float64         `gorm:"column:vwap;not null"`
}

// TableName sets the table name for StockPriceRow
func (StockPriceRow) TableName() string { return "stock_prices" }

// FinancialRatioRow is the persistence model for one reporting period.
type FinancialRatioRow struct {
	ID               uint64              `gorm:"primaryKey;autoIncrement"`
	Symbol           string              `gorm:"size:10;not null;uniqueIndex:idx_ratio_symbol_date,priority:1;index:idx_ratio_symbol_date_desc,priority:1"`
	Date             time.Time           `gorm:"not null;uniqueIndex:idx_ratio_symbol_date,priority:2;index:idx_ratio_symbol_date_desc,priority:2,sort:desc"`
	Period           string              `gorm:"size:8"`
	PERatio          *float64            `gorm:"column:pe_ratio"`
	PriceToFCF       *float64            `gorm:"column:price_to_fcf"`
	FCF              decimal.NullDecimal `gorm:"column:fcf;type:decimal(20,0)"`
	EPS              *float64            `gorm:"column:eps"`
	RevenueGrowthYoY *float64            `gorm:"column:revenue_growth_yoy"`
	ROE              *float64            `gorm:"column:roe"`
	DebtToEquity     *float64            `gorm:"column:debt_to_equity"`
	Revenue          decimal.NullDecimal `gorm:"type:decimal(20,0)"`
}

// TableName sets the table name for FinancialRatioRow
func (FinancialRatioRow) TableName() string { return "financial_ratios" }

func toPriceRow(r models.PriceRecord) StockPriceRow {
	return StockPriceRow{
		Symbol:        r.Symbol,
		Date:          r.Date,
		Open:          r.Open,
		High:          r.High,
		Low:           r.Low,
		Close:         r.Close,
		Volume:        r.Volume,
		Change:        r.Change,
		ChangePercent: r.ChangePercent,
		VWAP:          r.VWAP,
	}
}

func toPriceRecord(row *StockPriceRow) models.PriceRecord {
	return models.PriceRecord{
		Symbol:        row.Symbol,
		Date:          row.Date.UTC(),
		Open:          row.Open,
		High:          row.High,
		Low:           row.Low,
		Close:         row.Close,
		Volume:        row.Volume,
		Change:        row.Change,
		ChangePercent: row.ChangePercent,
		VWAP:          row.VWAP,
	}
}

func toRatioRow(r models.FundamentalRecord) FinancialRatioRow {
	return FinancialRatioRow{
		Symbol:           r.Symbol,
		Date:             r.Date,
		Period:           r.Period,
		PERatio:          r.PERatio,
		PriceToFCF:       r.PriceToFCF,
		FCF:              toNullDecimal(r.FCF),
		EPS:              r.EPS,
		RevenueGrowthYoY: r.RevenueGrowthYoY,
		ROE:              r.ROE,
		DebtToEquity:     r.DebtToEquity,
		Revenue:          toNullDecimal(r.Revenue),
	}
}

func toFundamentalRecord(row *FinancialRatioRow) models.FundamentalRecord {
	return models.FundamentalRecord{
		Symbol:           row.Symbol,
		Date:             row.Date.UTC(),
		Period:           row.Period,
		PERatio:          row.PERatio,
		PriceToFCF:       row.PriceToFCF,
		FCF:              fromNullDecimal(row.FCF),
		EPS:              row.EPS,
		RevenueGrowthYoY: row.RevenueGrowthYoY,
		ROE:              row.ROE,
		DebtToEquity:     row.DebtToEquity,
		Revenue:          fromNullDecimal(row.Revenue),
	}
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func fromNullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
