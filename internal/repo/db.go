// Package repo is the GORM persistence layer: the server database (accounts,
// runs, schedules, idempotency keys) and one profile database per account.
package repo

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	zlog "github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-outreach-backend/internal/domain"
)

// pragmas go in the DSN so the driver applies them to every pool connection.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

const (
	serverMaxConns  = 10
	profileMaxConns = 4

	slowQuery = 500 * time.Millisecond
)

// gormWriter routes GORM's own log lines through the zerolog global.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...any) {
	zlog.Warn().Str("component", "gorm").Msgf(format, args...)
}

var gormLogger = logger.New(gormWriter{}, logger.Config{
	SlowThreshold:             slowQuery,
	LogLevel:                  logger.Warn,
	IgnoreRecordNotFoundError: true,
})

// OpenSQLite opens the server database at path with query tracing enabled.
// The parent directory must exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	return openSQLite(path, serverMaxConns)
}

func dsn(path string) string {
	q := url.Values{"_pragma": pragmas}
	return path + "?" + q.Encode()
}

func openSQLite(path string, maxConns int) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("sqlite dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		closeDB(db)
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// AutoMigrate brings the server schema up to date.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Account{}, &domain.Run{}, &domain.Schedule{}, &domain.Idempotency{})
}

// MigrateProfiles brings a profile database schema up to date.
func MigrateProfiles(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Profile{})
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
