package infra

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tiendapos/internal/model"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate
// to create / update all tables.
// TranslateError is enabled so unique violations surface as
// gorm.ErrDuplicatedKey — the cash close relies on that to detect a
// concurrent close instead of failing with a raw driver error.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return db, nil
}

// RunMigrations applies the schema. The store runs on a single node so GORM
// AutoMigrate is sufficient; there is no migration history to coordinate.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Product{},
		&model.ProductImage{},
		&model.StockMove{},
		&model.Sale{},
		&model.SaleLine{},
		&model.CashDay{},
		&model.CashMove{},
		&model.CashClose{},
	)
}
