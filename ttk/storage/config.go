package storage

import (
	"os"
	"strconv"
)

// Config holds the database configuration
type Config struct {
	DSN            string
	AuthToken      string
	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxIdleSec int
	ConnMaxLifeSec int
	// PRAGMA settings
	SyncMode    string // NORMAL, FULL, OFF
	CacheSize   int    // pages, negative for KB
	TempStore   string // MEMORY, FILE, DEFAULT
	JournalMode string // WAL, DELETE, TRUNCATE, PERSIST, MEMORY, OFF
}

// NewConfig creates a new Config from environment variables
func NewConfig() *Config {
	dsn := os.Getenv("LIBSQL_URL")
	if dsn == "" {
		dsn = "file:./tabletalk.db"
	}

	authToken := os.Getenv("LIBSQL_AUTH_TOKEN")

	maxOpen := 0
	if v := os.Getenv("DB_MAX_OPEN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			maxOpen = n
		}
	}
	maxIdle := 0
	if v := os.Getenv("DB_MAX_IDLE_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			maxIdle = n
		}
	}
	idleSec := 0
	if v := os.Getenv("DB_CONN_MAX_IDLE_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			idleSec = n
		}
	}
	lifeSec := 0
	if v := os.Getenv("DB_CONN_MAX_LIFETIME_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			lifeSec = n
		}
	}

	syncMode := "NORMAL"
	if v := os.Getenv("DB_SYNC_MODE"); v != "" {
		syncMode = v
	}

	cacheSize := -64000 // 64MB default
	if v := os.Getenv("DB_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cacheSize = n
		}
	}

	tempStore := "MEMORY"
	if v := os.Getenv("DB_TEMP_STORE"); v != "" {
		tempStore = v
	}

	journalMode := "WAL"
	if v := os.Getenv("DB_JOURNAL_MODE"); v != "" {
		journalMode = v
	}

	return &Config{
		DSN:            dsn,
		AuthToken:      authToken,
		MaxOpenConns:   maxOpen,
		MaxIdleConns:   maxIdle,
		ConnMaxIdleSec: idleSec,
		ConnMaxLifeSec: lifeSec,
		SyncMode:       syncMode,
		CacheSize:      cacheSize,
		TempStore:      tempStore,
		JournalMode:    journalMode,
	}
}
