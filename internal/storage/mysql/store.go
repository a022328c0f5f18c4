// Package mysql implements the persistent store on MySQL via gorm.
package mysql

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/chartstack/chartd/internal/common"
	"github.com/chartstack/chartd/internal/interfaces"
)

// Store owns the gorm connection and exposes the per-table stores.
type Store struct {
	db           *gorm.DB
	prices       *priceStore
	fundamentals *fundamentalStore
	logger       *common.Logger
}

// NewStore opens a MySQL connection, runs migrations, and returns the store.
func NewStore(cfg common.MySQLConfig, logger *common.Logger) (*Store, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.GetConnMaxLifetime())

	return NewStoreFromDB(db, logger)
}

// NewStoreFromDB wraps an existing gorm connection. Used directly by
// tests running against an in-memory database.
func NewStoreFromDB(db *gorm.DB, logger *common.Logger) (*Store, error) {
	if err := db.AutoMigrate(&StockPriceRow{}, &FinancialRatioRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{
		db:           db,
		prices:       &priceStore{db: db, logger: logger},
		fundamentals: &fundamentalStore{db: db, logger: logger},
		logger:       logger,
	}, nil
}

// Prices returns the price table store.
func (s *Store) Prices() interfaces.PriceStore { return s.prices }

// Fundamentals returns the fundamentals table store.
func (s *Store) Fundamentals() interfaces.FundamentalStore { return s.fundamentals }

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure Store implements the Store interface
var _ interfaces.Store = (*Store)(nil)
