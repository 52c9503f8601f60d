package database

import (
	"time"

	"example.com/backstage/services/tenders/config"
	"example.com/backstage/services/tenders/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the Postgres connection pool and registers metric hooks
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	logLevel := logger.Error
	if cfg.Debug {
		logLevel = logger.Info
	}

	gormLogger := logger.New(
		&logAdapter{},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying DB connection")
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	RegisterDurationHooks(db)
	RegisterMetricsHooks(db)

	return db, nil
}

// ConnectWithRetry retries Connect with exponential backoff
func ConnectWithRetry(cfg config.DatabaseConfig, attempts int) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	interval := time.Second
	for i := 0; i < attempts; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}
		log.Error().Err(err).Int("attempt", i+1).Int("max_attempts", attempts).Msg("Failed to connect to database, retrying")
		if i < attempts-1 {
			time.Sleep(interval)
			interval *= 2
		}
	}
	return nil, errors.Wrapf(err, "failed to connect to database after %d attempts", attempts)
}

// Migrate creates or updates the schema
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Project{},
		&models.OrganisationMapping{},
		&models.Event{},
		&models.SupplierSelection{},
	)
}

// Close releases the connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// logAdapter forwards gorm log lines to zerolog
type logAdapter struct{}

func (l *logAdapter) Printf(format string, args ...interface{}) {
	log.Info().Str("component", "gorm").Msgf(format, args...)
}
