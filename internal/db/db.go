// Package db persists guide channels, programmes and ingest runs in SQLite.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	maxOpenConns       = 25
	maxIdleConns       = 5
	connMaxLifetime    = 5 * time.Minute
	defaultPingTimeout = 5 * time.Second
)

// Options tunes the SQLite connection
type Options struct {
	// EnableWAL switches the journal to write-ahead logging.
	EnableWAL bool
	// ConnectionTimeout bounds the initial ping. Zero means 5s.
	ConnectionTimeout time.Duration
}

// DB wraps a GORM database connection
type DB struct {
	*gorm.DB
}

// New opens the SQLite database at dbPath, creating its directory if needed.
// Example: "./data/epgrab.db"
func New(dbPath string, opts Options) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Configure SQLite with foreign keys and an optional WAL journal
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", dbPath)
	if opts.EnableWAL {
		dsn += "&_journal_mode=WAL"
	}

	// Open database with GORM
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		// Writes that need atomicity use WithTransaction
		SkipDefaultTransaction: true,
		// Prepare statements for repeated per-day queries
		PrepareStmt: true,
		Logger:      gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Get underlying sql.DB for connection pool configuration
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	// Verify connection
	timeout := opts.ConnectionTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: gormDB}, nil
}

// Health checks database connectivity
func (db *DB) Health(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// GetSQLDB returns the underlying sql.DB for migrations
func (db *DB) GetSQLDB() (*sql.DB, error) {
	return db.DB.DB()
}

// Open opens the database and applies migrations from migrationsPath
func Open(dbPath, migrationsPath string, opts Options) (*DB, error) {
	database, err := New(dbPath, opts)
	if err != nil {
		return nil, err
	}
	sqlDB, err := database.GetSQLDB()
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	// Apply pending migrations before handing out the connection
	if err := RunMigrations(sqlDB, migrationsPath); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}
