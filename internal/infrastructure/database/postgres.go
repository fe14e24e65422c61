package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/sideseat/sideseat-core/internal/config"
)

// PostgresDB is the relational transactional backend for the auth, user,
// organization, and storage domains. Two drivers are supported: PostgreSQL
// for multi-node production deployments, and an embedded SQLite file
// (cfg.Database.Driver == "embedded") for single-node/dev deployments that
// don't want to stand up PostgreSQL. Both drivers satisfy the same shape
// (DB, SqlDB) so repositories and the migration manager don't need to care
// which one is live.
type PostgresDB struct {
	DB       *gorm.DB
	SqlDB    *sql.DB
	embedded bool
	config   *config.Config
	logger   *slog.Logger
}

// NewPostgresDB opens the configured relational backend.
func NewPostgresDB(cfg *config.Config, logger *slog.Logger) (*PostgresDB, error) {
	if cfg.Database.IsEmbedded() {
		return newEmbeddedDB(cfg, logger)
	}
	return newPostgresDB(cfg, logger)
}

func newPostgresDB(cfg *config.Config, logger *slog.Logger) (*PostgresDB, error) {
	// Configure GORM logger
	glogger := gormLogger.Default

	// Open database connection
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseURL()), &gorm.Config{
		Logger:                 glogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// Get underlying SQL DB for connection pooling
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	logger.Info("Connected to PostgreSQL database")

	return &PostgresDB{
		DB:     db,
		SqlDB:  sqlDB,
		config: cfg,
		logger: logger,
	}, nil
}

// newEmbeddedDB opens the single-file SQLite backend. It is wired through the
// same migration manager and repository constructors as PostgreSQL (both take
// a plain *gorm.DB), so every relational domain (auth, user, organization,
// storage) works unmodified against either backend; the only divergence is
// the migration source directory (migrations/embedded vs migrations/postgres),
// since SQLite's DDL dialect isn't compatible with the PostgreSQL one.
func newEmbeddedDB(cfg *config.Config, logger *slog.Logger) (*PostgresDB, error) {
	path := cfg.GetEmbeddedPath()
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create embedded database directory: %w", err)
		}
	}

	// A single busy-timeout-backed file connection; SQLite serializes writers
	// internally, so the pool is deliberately small (one writer, N idle readers).
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormLogger.Default,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded SQLite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to open embedded database file %q: %w", path, err)
	}

	logger.Info("Connected to embedded SQLite database", "path", path)

	return &PostgresDB{
		DB:       db,
		SqlDB:    sqlDB,
		embedded: true,
		config:   cfg,
		logger:   logger,
	}, nil
}

// IsEmbedded reports whether the live connection is the embedded SQLite
// backend rather than PostgreSQL.
func (p *PostgresDB) IsEmbedded() bool {
	return p.embedded
}

// Close closes the database connection
func (p *PostgresDB) Close() error {
	p.logger.Info("Closing relational database connection")
	return p.SqlDB.Close()
}

// Health checks database health
func (p *PostgresDB) Health() error {
	return p.SqlDB.Ping()
}

// GetStats returns database connection statistics
func (p *PostgresDB) GetStats() sql.DBStats {
	return p.SqlDB.Stats()
}
