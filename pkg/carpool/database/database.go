package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// sqliteParams make concurrent writers queue on the database lock instead of
// failing, and start every transaction with the write lock held.
const sqliteParams = "_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"

var DB *gorm.DB

// Connect initializes the database connection for the given driver.
func Connect(driver, dsn string) error {
	db, err := Open(driver, dsn)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open opens a gorm connection without touching the package-level handle.
func Open(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	switch driver {
	case DriverSQLite, "":
		db, err := gorm.Open(sqlite.Open(SQLiteDSN(dsn)), cfg)
		if err != nil {
			return nil, err
		}
		if !isMemory(dsn) {
			if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
				return nil, fmt.Errorf("enable WAL: %w", err)
			}
		}
		return db, nil
	case DriverPostgres:
		return gorm.Open(postgres.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// SQLiteDSN appends the locking parameters to a sqlite file name or URI.
func SQLiteDSN(dsn string) string {
	if strings.Contains(dsn, "_txlock=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + sqliteParams
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// GetDB returns the database instance.
func GetDB() *gorm.DB {
	return DB
}
