package sqldb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// DialectPostgres identifies PostgreSQL DSNs.
	DialectPostgres = "postgres"
	// DialectSQLite identifies SQLite DSNs.
	DialectSQLite = "sqlite"

	pingTimeout = 5 * time.Second
)

var errEmptyDSN = errors.New("db: empty dsn")

// Open opens a GORM connection for the DSN and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, errEmptyDSN
	}

	dialect, err := DetectDialect(trimmed)
	if err != nil {
		return nil, err
	}

	var conn *gorm.DB
	switch dialect {
	case DialectPostgres:
		conn, err = openPostgres(trimmed)
	default:
		conn, err = openSQLite(trimmed)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(conn); err != nil {
		return nil, err
	}

	return conn, nil
}

// Migrate creates or updates the tables used by the stores.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(&Account{}, &UsageEntry{}, &PaymentEntry{}); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}

// DetectDialect infers the dialect from a DSN string.
func DetectDialect(dsn string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://"):
		return DialectPostgres, nil
	case strings.Contains(lower, "host=") || strings.Contains(lower, "dbname="):
		return DialectPostgres, nil
	case strings.HasPrefix(lower, "file:"),
		strings.HasPrefix(lower, "sqlite://"),
		!strings.Contains(lower, "://"):
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("db: unsupported dsn: %s", dsn)
	}
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
}

func openPostgres(dsn string) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("db: open postgres: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("db: open postgres sql: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if errPing := sqlDB.PingContext(pingCtx); errPing != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db: ping: %w", errPing)
	}

	return conn, nil
}

func openSQLite(dsn string) (*gorm.DB, error) {
	normalized := dsn
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		normalized = "file:" + dsn[len("sqlite://"):]
	}

	path := sqlitePath(normalized)
	if path != "" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("db: create sqlite dir: %w", err)
			}
		}
	}

	if !strings.Contains(normalized, "_pragma=busy_timeout") {
		sep := "?"
		if strings.Contains(normalized, "?") {
			sep = "&"
		}
		normalized += sep + "_pragma=busy_timeout(5000)"
	}

	conn, err := gorm.Open(sqlite.Open(normalized), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite sql: %w", err)
	}

	// SQLite has a single writer; one connection keeps balance updates
	// serialized and lets in-memory databases survive across queries.
	sqlDB.SetMaxOpenConns(1)

	return conn, nil
}

// sqlitePath extracts the file path from a SQLite DSN, or "" for in-memory databases.
func sqlitePath(dsn string) string {
	trimmed := strings.TrimSpace(dsn)
	if idx := strings.Index(trimmed, "?"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	trimmed = strings.TrimPrefix(trimmed, "file:")
	trimmed = strings.TrimPrefix(trimmed, "//")
	if trimmed == "" || trimmed == ":memory:" || strings.Contains(trimmed, "mode=memory") {
		return ""
	}
	return trimmed
}
