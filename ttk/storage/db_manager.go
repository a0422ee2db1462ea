// Package storage implements the persistence layer with goose migrations on libsql
package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/go-libsql"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DBManager handles the database connection, schema migrations, and transactions
type DBManager struct {
	config *Config
	mu     sync.RWMutex
	db     *sql.DB
}

// NewDBManager opens the database, migrates the schema, and configures pooling
func NewDBManager(config *Config) (*DBManager, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}

	manager := &DBManager{config: config}

	if _, err := manager.getDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return manager, nil
}

// Close closes the database connection.
func (dm *DBManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db = nil
	return err
}

// DB returns the initialized database handle.
func (dm *DBManager) DB() (*sql.DB, error) {
	return dm.getDB()
}

// getDB retrieves or creates the DB connection
func (dm *DBManager) getDB() (*sql.DB, error) {
	dm.mu.RLock()
	db := dm.db
	dm.mu.RUnlock()
	if db != nil {
		return db, nil
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.db != nil {
		return dm.db, nil
	}

	dbURL := dm.config.DSN
	var newDb *sql.DB
	var err error
	if strings.HasPrefix(dbURL, "file:") {
		newDb, err = sql.Open("libsql", dbURL)
	} else {
		authURL := dbURL
		if dm.config.AuthToken != "" {
			if u, perr := url.Parse(dbURL); perr == nil {
				q := u.Query()
				q.Set("authToken", dm.config.AuthToken)
				u.RawQuery = q.Encode()
				authURL = u.String()
			} else {
				if strings.Contains(dbURL, "?") {
					authURL = dbURL + "&authToken=" + url.QueryEscape(dm.config.AuthToken)
				} else {
					authURL = dbURL + "?authToken=" + url.QueryEscape(dm.config.AuthToken)
				}
			}
		}
		newDb, err = sql.Open("libsql", authURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create database connector: %w", err)
	}

	if err := dm.initialize(newDb); err != nil {
		newDb.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Configure connection pooling for optimal performance
	dm.configureConnectionPooling(newDb)

	dm.db = newDb
	_ = newDb.Stats() // touch stats (future metrics)
	return newDb, nil
}

// initialize creates schema using goose and applies PRAGMA settings
func (dm *DBManager) initialize(db *sql.DB) error {
	if err := dm.runGooseMigrations(db); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}

	if err := dm.configurePragmaSettings(db); err != nil {
		return fmt.Errorf("failed to configure PRAGMA settings: %w", err)
	}

	return nil
}

// runGooseMigrations runs the embedded goose migrations on the provided database.
// Migrations ship inside the binary so the schema never depends on the working
// directory of whatever process links this package.
func (dm *DBManager) runGooseMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	defer goose.SetBaseFS(nil)

	// Set goose dialect to SQLite (required for proper migration execution)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	// Run all pending migrations
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}
	return nil
}

// configurePragmaSettings applies PRAGMA settings to the database
func (dm *DBManager) configurePragmaSettings(db *sql.DB) error {
	// Journal mode (WAL, DELETE, etc.)
	if dm.config.JournalMode != "" {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA journal_mode = %s", dm.config.JournalMode)); err != nil {
			return fmt.Errorf("failed to set journal_mode: %w", err)
		}
	}

	// Synchronous mode (NORMAL, FULL, OFF)
	if dm.config.SyncMode != "" {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA synchronous = %s", dm.config.SyncMode)); err != nil {
			return fmt.Errorf("failed to set synchronous: %w", err)
		}
	}

	// Cache size (negative values in KB, positive in pages)
	if dm.config.CacheSize != 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA cache_size = %d", dm.config.CacheSize)); err != nil {
			return fmt.Errorf("failed to set cache_size: %w", err)
		}
	}

	// Temporary storage location
	if dm.config.TempStore != "" {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA temp_store = %s", dm.config.TempStore)); err != nil {
			return fmt.Errorf("failed to set temp_store: %w", err)
		}
	}

	// Additional performance PRAGMAs
	pragmaSettings := []struct {
		name  string
		value string
	}{
		{"mmap_size", "268435456"},     // 256MB memory map
		{"wal_autocheckpoint", "1000"}, // Checkpoint every 1000 pages
		{"busy_timeout", "5000"},       // 5 second timeout
		{"foreign_keys", "ON"},         // Enable foreign key constraints
	}

	for _, setting := range pragmaSettings {
		// Some PRAGMA statements return values, so we need to handle them differently
		query := fmt.Sprintf("PRAGMA %s = %s", setting.name, setting.value)
		if _, err := db.Exec(query); err != nil {
			// If Exec fails due to returning rows, try Query instead
			if strings.Contains(err.Error(), "returned rows") {
				if _, err := db.Query(query); err != nil {
					return fmt.Errorf("failed to set %s: %w", setting.name, err)
				}
			} else {
				return fmt.Errorf("failed to set %s: %w", setting.name, err)
			}
		}
	}

	return nil
}

// configureConnectionPooling sets up optimal connection pooling parameters
func (dm *DBManager) configureConnectionPooling(db *sql.DB) {
	// Set max open connections (default: 25 for SQLite)
	maxOpen := dm.config.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25 // SQLite default
	}
	db.SetMaxOpenConns(maxOpen)

	// Set max idle connections (default: 25 for SQLite)
	maxIdle := dm.config.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 25 // SQLite default
	}
	db.SetMaxIdleConns(maxIdle)

	// Set connection max idle time (default: 5 minutes)
	idleTime := time.Duration(dm.config.ConnMaxIdleSec) * time.Second
	if idleTime <= 0 {
		idleTime = 5 * time.Minute
	}
	db.SetConnMaxIdleTime(idleTime)

	// Set connection max lifetime (default: 1 hour)
	lifeTime := time.Duration(dm.config.ConnMaxLifeSec) * time.Second
	if lifeTime <= 0 {
		lifeTime = time.Hour
	}
	db.SetConnMaxLifetime(lifeTime)

	// Log connection pool configuration
	log.Printf("Connection pool configured: max_open=%d, max_idle=%d, max_idle_time=%v, max_lifetime=%v",
		maxOpen, maxIdle, idleTime, lifeTime)
}

// WithTx executes a function within a database transaction
func (dm *DBManager) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	db, err := dm.getDB()
	if err != nil {
		return fmt.Errorf("failed to get database: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		// Rollback on error
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("transaction failed and rollback failed: %v (original error: %w)", rollbackErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// WithTxReadOnly executes a read-only function within a transaction
func (dm *DBManager) WithTxReadOnly(ctx context.Context, fn func(*sql.Tx) error) error {
	db, err := dm.getDB()
	if err != nil {
		return fmt.Errorf("failed to get database: %w", err)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin read-only transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("read-only transaction failed and rollback failed: %v (original error: %w)", rollbackErr, err)
		}
		return err
	}

	// Commit on success (read-only commits are safe)
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit read-only transaction: %w", err)
	}

	return nil
}
