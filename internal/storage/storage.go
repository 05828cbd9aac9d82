package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatali-fataliyev/spending_insights/logging"
	"github.com/go-sql-driver/mysql"

	_ "modernc.org/sqlite"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

var (
	pingAttempts = 15
	pingInterval = 3 * time.Second
)

// Init opens the transactions database. MySQL is only read, its schema
// belongs to the service that writes transactions. A SQLite file is
// created and migrated on demand.
func Init(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("missing database DSN for driver '%s'", driver)
	}

	switch driver {
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to parse mysql DSN: %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create mysql connector: %w", err)
		}
		logging.Logger.Infof("Connecting to MySQL database '%s'...", cfg.DBName)
		db := sql.OpenDB(connector)
		if err := waitForDB(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		logging.Logger.Info("Connected to database successfully")
		return db, nil

	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err := sql.Open(DriverSQLite, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
		}
		logging.Logger.Info("Running migrations...")
		if err := runMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logging.Logger.Info("all migrations applied successfully")
		return db, nil
	}

	return nil, fmt.Errorf("unsupported database driver '%s'", driver)
}

func waitForDB(ctx context.Context, db *sql.DB) error {
	for i := 0; i < pingAttempts; i++ {
		if err := db.PingContext(ctx); err == nil {
			return nil
		}
		logging.Logger.Warnf("Database not ready, retrying... (%d/%d)", i+1, pingAttempts)
		select {
		case <-ctx.Done():
			return fmt.Errorf("database unreachable: %w", ctx.Err())
		case <-time.After(pingInterval):
		}
	}
	return fmt.Errorf("database unreachable after %d attempts", pingAttempts)
}
