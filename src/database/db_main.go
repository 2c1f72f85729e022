package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tradejournal/src/database/migrations"
	"tradejournal/src/model"
)

// Open connects to the configured database without touching the schema.
func Open(config Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch config.Driver {
	case DriverPostgres:
		dialector = postgres.Open(config.DatabaseURLMain)
	case DriverSQLite:
		dialector = sqlite.Open(config.DatabaseURLMain)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", config.Driver)
	}

	db, err := gorm.Open(dialector,
		&gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("connect to %s database: %w", config.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB from gorm: %w", err)
	}

	if config.Driver == DriverSQLite {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	return db, nil
}

// Migrate creates or updates the schema and then runs pending data migrations.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Trade{},
		&model.EquityBaseline{},
		&model.Exception{},
		&migrations.DataMigration{},
	); err != nil {
		return fmt.Errorf("failed to run schema migrations: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("failed to run data migrations: %w", err)
	}

	return nil
}

// InitMainDB opens the main read/write database and brings its schema up to date.
// It should be called once at application startup and the handle passed on.
func InitMainDB(config Config) (*gorm.DB, error) {
	db, err := Open(config)
	if err != nil {
		return nil, err
	}

	logrus.WithField("driver", config.Driver).Info("[database] MainDB connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logrus.Info("[database] MainDB migrations completed")

	return db, nil
}
