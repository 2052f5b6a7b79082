package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"heritagequest/internal/config"
)

// DB wraps the database connection with dialect support
type DB struct {
	*sql.DB
	Dialect Dialect
}

// New wraps an already opened connection
func New(db *sql.DB, dialect Dialect) *DB {
	return &DB{DB: db, Dialect: dialect}
}

// Initialize creates and configures a SQLite database connection
func Initialize(dbPath string) (*DB, error) {
	return open(NewSQLiteDialect(), DialectConfig{Path: dbPath})
}

// InitializeWithConfig creates and configures the database connection based on config
func InitializeWithConfig(cfg *config.Config) (*DB, error) {
	switch strings.ToLower(cfg.DatabaseType) {
	case "postgres", "postgresql":
		return open(NewPostgresDialect(), DialectConfig{URL: cfg.DatabaseURL})
	case "mysql":
		return open(NewMySQLDialect(), DialectConfig{URL: cfg.DatabaseURL})
	case "sqlite", "sqlite3", "":
		return open(NewSQLiteDialect(), DialectConfig{Path: cfg.DatabasePath})
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.DatabaseType)
	}
}

func open(dialect Dialect, dialectConfig DialectConfig) (*DB, error) {
	db, err := sql.Open(dialect.DriverName(), dialect.DSN(dialectConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := dialect.ConfigureConnection(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure connection: %w", err)
	}

	return &DB{DB: db, Dialect: dialect}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// QueryContext executes a query with automatic placeholder rewriting
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.DB.QueryContext(ctx, db.Dialect.RewriteQuery(query), args...)
}

// QueryRowContext executes a query that returns a single row with automatic placeholder rewriting
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRowContext(ctx, db.Dialect.RewriteQuery(query), args...)
}

// ExecContext executes a query that doesn't return rows with automatic placeholder rewriting
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return db.DB.ExecContext(ctx, db.Dialect.RewriteQuery(query), args...)
}
